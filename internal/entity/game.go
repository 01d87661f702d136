package entity

const (
	PlayerX   = "X"
	PlayerO   = "O"
	PlayerTie = "-"

	EmptyCell = ""
)

// NoBoard means the next player may choose any undecided board.
const NoBoard = -1

const (
	ModeLocal        = "local"
	ModeHosting      = "hosting"
	ModeJoining      = "joining"
	ModeConnected    = "connected"
	ModeDisconnected = "disconnected"
)

// SubBoard is one of the nine 3x3 boards, row-major, cells 0-8.
type SubBoard [9]string

// BoardStatus is derived from a SubBoard's cells; Winner and IsDraw are
// mutually exclusive.
type BoardStatus struct {
	Winner string `json:"winner,omitempty"`
	IsDraw bool   `json:"is_draw,omitempty"`
}

// IsDecided reports whether no further marks may be placed on the board.
func (that BoardStatus) IsDecided() bool {
	return that.Winner != EmptyCell || that.IsDraw
}

// Move addresses a single cell of a single sub-board.
type Move struct {
	Board int `json:"board"`
	Cell  int `json:"cell"`
}

// Game is the canonical state of an ultimate tic-tac-toe match. It is a
// plain value: every mutation goes through ultimate.ApplyMove, which
// returns a fresh copy.
type Game struct {
	Boards      [9]SubBoard    `json:"boards"`
	Statuses    [9]BoardStatus `json:"statuses"`
	Turn        string         `json:"turn"`
	ForcedBoard int            `json:"forced_board"`
	Winner      string         `json:"winner,omitempty"`
	IsDraw      bool           `json:"is_draw,omitempty"`
	MoveCount   int            `json:"move_count"`
}

func NewGame() Game {
	return Game{
		Turn:        PlayerX,
		ForcedBoard: NoBoard,
	}
}

func (that *Game) IsFinished() bool {
	return that.Winner != EmptyCell || that.IsDraw
}

// MoveRecord is a snapshot taken before a move is applied, kept for undo.
type MoveRecord struct {
	Game     Game `json:"game"`
	LastMove Move `json:"last_move"`
}

// SavedGame is the persisted form of a match: the full game value, the
// last-applied move, and whether the match was online when saved. History
// is never persisted.
type SavedGame struct {
	Game     Game   `json:"game"`
	LastMove *Move  `json:"last_move,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

// WasOnline reports whether the save was taken from an online session.
// Such saves are loaded for local inspection only.
func (that *SavedGame) WasOnline() bool {
	switch that.Mode {
	case ModeHosting, ModeJoining, ModeConnected, ModeDisconnected:
		return true
	default:
		return false
	}
}

func ToggleMark(mark string) string {
	if mark == PlayerX {
		return PlayerO
	}
	return PlayerX
}
