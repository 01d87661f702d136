package ai

import (
	"math"
	"math/rand"
	"time"

	"github.com/vakarthi/ultimate-ttt/internal/entity"
	"github.com/vakarthi/ultimate-ttt/internal/ultimate"
)

const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Heuristic weights for the advanced tier. Every candidate move is scored
// in isolation, one ply deep; these are the only contributing terms.
const (
	scoreWinBoard       = 100
	scoreWinMatch       = 10000
	scoreWinCenterBoard = 20
	scoreWinCornerBoard = 10
	scoreBlock          = 80
	scoreSendDecided    = -50
	scoreSendWinnable   = -100
	scoreCenterCell     = 5
	scoreCornerCell     = 3

	noiseSpan = 5.0
	tieMargin = 0.1
)

const centerIndex = 4

// Selector picks moves for the computer player. The random source is
// injected so tests can fix the seed and assert deterministic picks.
type Selector struct {
	rng *rand.Rand
}

func New(rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint: gosec // game move noise, not crypto
	}

	return &Selector{rng: rng}
}

// SelectMove returns a move for the player whose turn it is, or false when
// the state is terminal and no move exists. The game value is never
// mutated.
func (that *Selector) SelectMove(game entity.Game, difficulty string) (entity.Move, bool) {
	moves := ultimate.LegalMoves(game)
	if len(moves) == 0 {
		return entity.Move{}, false
	}

	switch difficulty {
	case DifficultyIntermediate:
		return that.selectIntermediate(game, moves), true
	case DifficultyAdvanced:
		return that.selectAdvanced(game, moves), true
	default:
		return moves[that.rng.Intn(len(moves))], true
	}
}

// selectIntermediate plays the first immediate sub-board win in index
// order, else the first block of an opponent win, else a random legal move.
func (that *Selector) selectIntermediate(game entity.Game, moves []entity.Move) entity.Move {
	mover := game.Turn
	opponent := entity.ToggleMark(mover)

	for _, move := range moves {
		if wouldWinBoard(game.Boards[move.Board], mover, move.Cell) {
			return move
		}
	}

	for _, move := range moves {
		if wouldWinBoard(game.Boards[move.Board], opponent, move.Cell) {
			return move
		}
	}

	return moves[that.rng.Intn(len(moves))]
}

// selectAdvanced scores every legal move, adds uniform noise in [0,5) per
// move, and picks uniformly among moves within 0.1 of the noisy maximum.
func (that *Selector) selectAdvanced(game entity.Game, moves []entity.Move) entity.Move {
	noisy := make([]float64, len(moves))
	best := math.Inf(-1)

	for i, move := range moves {
		noisy[i] = float64(scoreMove(game, move)) + that.rng.Float64()*noiseSpan
		if noisy[i] > best {
			best = noisy[i]
		}
	}

	var top []entity.Move
	for i, move := range moves {
		if best-noisy[i] <= tieMargin {
			top = append(top, move)
		}
	}

	if len(top) == 1 {
		return top[0]
	}

	return top[that.rng.Intn(len(top))]
}

// scoreMove computes the base heuristic score of a candidate move, before
// noise.
func scoreMove(game entity.Game, move entity.Move) int {
	mover := game.Turn
	opponent := entity.ToggleMark(mover)
	score := 0

	after := game.Boards[move.Board]
	after[move.Cell] = mover

	if ultimate.CheckSubBoard(after).Winner == mover {
		score += scoreWinBoard

		statuses := game.Statuses
		statuses[move.Board] = entity.BoardStatus{Winner: mover}
		if ultimate.CheckMeta(statuses).Winner == mover {
			score += scoreWinMatch
		}

		switch {
		case move.Board == centerIndex:
			score += scoreWinCenterBoard
		case isCorner(move.Board):
			score += scoreWinCornerBoard
		}
	}

	if wouldWinBoard(game.Boards[move.Board], opponent, move.Cell) {
		score += scoreBlock
	}

	// Destination analysis. Decidedness is read from the pre-move statuses;
	// the threat probe sees the candidate mark, which matters when the move
	// sends the opponent back into the board just played.
	if game.Statuses[move.Cell].IsDecided() {
		score += scoreSendDecided
	} else {
		dest := game.Boards[move.Cell]
		if move.Cell == move.Board {
			dest = after
		}
		if _, threatened := winningCell(dest, opponent); threatened {
			score += scoreSendWinnable
		}
	}

	switch {
	case move.Cell == centerIndex:
		score += scoreCenterCell
	case isCorner(move.Cell):
		score += scoreCornerCell
	}

	return score
}

// wouldWinBoard reports whether placing mark into the given empty cell
// wins the board. The board is an array, so the probe works on a copy.
func wouldWinBoard(board entity.SubBoard, mark string, cell int) bool {
	if board[cell] != entity.EmptyCell {
		return false
	}

	board[cell] = mark

	return ultimate.CheckSubBoard(board).Winner == mark
}

// winningCell finds the lowest-index empty cell that would win the board
// for mark.
func winningCell(board entity.SubBoard, mark string) (int, bool) {
	for cell := range board {
		if wouldWinBoard(board, mark, cell) {
			return cell, true
		}
	}

	return 0, false
}

func isCorner(index int) bool {
	return index == 0 || index == 2 || index == 6 || index == 8
}
