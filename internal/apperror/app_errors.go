package apperror

import "errors"

var (
	ErrGameFinished    = errors.New("game is already finished")
	ErrNotYourTurn     = errors.New("it's not your turn")
	ErrCellOccupied    = errors.New("cell is already occupied")
	ErrWrongBoard      = errors.New("move is outside the forced board")
	ErrBoardDecided    = errors.New("board is already decided")
	ErrInvalidCell     = errors.New("invalid cell index")
	ErrInvalidBoard    = errors.New("invalid board index")
	ErrUndoUnavailable = errors.New("undo is not available")
	ErrInvalidSave     = errors.New("saved game is malformed")
	ErrSaveNotFound    = errors.New("saved game not found")
	ErrNotConnected    = errors.New("no active peer connection")
	ErrPeerGone        = errors.New("peer disconnected")
)
