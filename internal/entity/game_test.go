package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewGame(t *testing.T) {
	game := NewGame()

	assert.Equal(t, PlayerX, game.Turn)
	assert.Equal(t, NoBoard, game.ForcedBoard)
	assert.Equal(t, 0, game.MoveCount)
	assert.False(t, game.IsFinished())

	for _, board := range game.Boards {
		for _, cell := range board {
			assert.Equal(t, EmptyCell, cell)
		}
	}
}

func TestBoardStatus_IsDecided(t *testing.T) {
	testCases := []struct {
		name     string
		status   BoardStatus
		expected bool
	}{
		{name: "open board", status: BoardStatus{}, expected: false},
		{name: "won board", status: BoardStatus{Winner: PlayerX}, expected: true},
		{name: "drawn board", status: BoardStatus{IsDraw: true}, expected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.status.IsDecided())
		})
	}
}

func TestGame_IsFinished(t *testing.T) {
	t.Run("Won match", func(t *testing.T) {
		game := NewGame()
		game.Winner = PlayerO

		assert.True(t, game.IsFinished())
	})

	t.Run("Drawn match", func(t *testing.T) {
		game := NewGame()
		game.IsDraw = true

		assert.True(t, game.IsFinished())
	})
}

func TestSavedGame_WasOnline(t *testing.T) {
	testCases := []struct {
		mode     string
		expected bool
	}{
		{mode: ModeLocal, expected: false},
		{mode: "", expected: false},
		{mode: ModeHosting, expected: true},
		{mode: ModeJoining, expected: true},
		{mode: ModeConnected, expected: true},
		{mode: ModeDisconnected, expected: true},
	}

	for _, tc := range testCases {
		save := &SavedGame{Game: NewGame(), Mode: tc.mode}
		assert.Equal(t, tc.expected, save.WasOnline(), "mode %q", tc.mode)
	}
}

func TestToggleMark(t *testing.T) {
	assert.Equal(t, PlayerO, ToggleMark(PlayerX))
	assert.Equal(t, PlayerX, ToggleMark(PlayerO))
}
