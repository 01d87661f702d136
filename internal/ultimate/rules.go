package ultimate

import (
	"fmt"

	"github.com/vakarthi/ultimate-ttt/internal/apperror"
	"github.com/vakarthi/ultimate-ttt/internal/entity"
)

// WinCombos are the 8 winning triples of a 3x3 board: rows, columns,
// diagonals. The same table decides sub-boards and the meta-board.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// CheckSubBoard derives the status of a single sub-board from its cells.
func CheckSubBoard(cells entity.SubBoard) entity.BoardStatus {
	for _, combo := range WinCombos {
		a, b, c := cells[combo[0]], cells[combo[1]], cells[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			return entity.BoardStatus{Winner: a}
		}
	}

	for _, cell := range cells {
		if cell == entity.EmptyCell {
			return entity.BoardStatus{}
		}
	}

	return entity.BoardStatus{IsDraw: true}
}

// CheckMeta derives the match result from the nine sub-board statuses.
// A board without a winner contributes no mark to the meta triples; the
// match is a draw only once every board is decided.
func CheckMeta(statuses [9]entity.BoardStatus) entity.BoardStatus {
	for _, combo := range WinCombos {
		a := statuses[combo[0]].Winner
		if a != entity.EmptyCell && a == statuses[combo[1]].Winner && a == statuses[combo[2]].Winner {
			return entity.BoardStatus{Winner: a}
		}
	}

	for _, status := range statuses {
		if !status.IsDecided() {
			return entity.BoardStatus{}
		}
	}

	return entity.BoardStatus{IsDraw: true}
}

// LegalMoves enumerates every move the player to move may make, in
// ascending (board, cell) order. When a forced board is set and still
// undecided only its empty cells qualify; otherwise all undecided boards
// are open. Terminal states have no legal moves.
func LegalMoves(game entity.Game) []entity.Move {
	if game.IsFinished() {
		return nil
	}

	forced := game.ForcedBoard
	if forced != entity.NoBoard && !game.Statuses[forced].IsDecided() {
		return emptyCells(&game, forced)
	}

	var moves []entity.Move
	for board := range game.Boards {
		if game.Statuses[board].IsDecided() {
			continue
		}
		moves = append(moves, emptyCells(&game, board)...)
	}

	return moves
}

func emptyCells(game *entity.Game, board int) []entity.Move {
	moves := make([]entity.Move, 0, 9)
	for cell, mark := range game.Boards[board] {
		if mark == entity.EmptyCell {
			moves = append(moves, entity.Move{Board: board, Cell: cell})
		}
	}
	return moves
}

// ApplyMove is the single state transition of the game. It takes the
// current state by value and returns the successor state, so the caller's
// copy is never touched on rejection. Both locally entered moves and moves
// received from the peer go through here, which is what keeps two online
// instances in lockstep.
func ApplyMove(game entity.Game, board, cell int) (entity.Game, error) {
	if board < 0 || board >= len(game.Boards) {
		return game, fmt.Errorf("%w: board %d", apperror.ErrInvalidBoard, board)
	}

	if cell < 0 || cell >= len(game.Boards[board]) {
		return game, fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if game.IsFinished() {
		return game, apperror.ErrGameFinished
	}

	if forced := game.ForcedBoard; forced != entity.NoBoard && forced != board && !game.Statuses[forced].IsDecided() {
		return game, fmt.Errorf("%w: must play board %d", apperror.ErrWrongBoard, forced)
	}

	if game.Statuses[board].IsDecided() {
		return game, fmt.Errorf("%w: board %d", apperror.ErrBoardDecided, board)
	}

	if game.Boards[board][cell] != entity.EmptyCell {
		return game, apperror.ErrCellOccupied
	}

	game.Boards[board][cell] = game.Turn
	game.Statuses[board] = CheckSubBoard(game.Boards[board])

	meta := CheckMeta(game.Statuses)
	game.Winner = meta.Winner
	game.IsDraw = meta.IsDraw

	// The move's cell sends the opponent to the board with the same index.
	// A decided destination means free choice.
	if game.Statuses[cell].IsDecided() {
		game.ForcedBoard = entity.NoBoard
	} else {
		game.ForcedBoard = cell
	}

	game.MoveCount++

	if game.IsFinished() {
		game.Turn = entity.EmptyCell
		game.ForcedBoard = entity.NoBoard
	} else {
		game.Turn = entity.ToggleMark(game.Turn)
	}

	return game, nil
}
