package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vakarthi/ultimate-ttt/internal/apperror"
	"github.com/vakarthi/ultimate-ttt/internal/entity"
	"github.com/vakarthi/ultimate-ttt/testing/suite"
)

func TestSaveRepository(t *testing.T) {
	ctx, s := suite.New(t)

	repo := NewSaveRepository(s.Storage)

	t.Run("Save and load round-trip", func(t *testing.T) {
		// Given: a match in progress
		game := entity.NewGame()
		game.Boards[4][4] = entity.PlayerX
		game.Turn = entity.PlayerO
		game.ForcedBoard = 4
		game.MoveCount = 1

		save := &entity.SavedGame{
			Game:     game,
			LastMove: &entity.Move{Board: 4, Cell: 4},
			Mode:     entity.ModeLocal,
		}

		// When: it is saved and loaded back
		require.NoError(t, repo.Save(ctx, "slot-1", save))

		loaded, err := repo.Load(ctx, "slot-1")
		require.NoError(t, err)

		// Then: the state survives unchanged
		assert.Equal(t, save, loaded)
	})

	t.Run("Overwrite replaces the previous save", func(t *testing.T) {
		first := &entity.SavedGame{Game: entity.NewGame(), Mode: entity.ModeLocal}
		require.NoError(t, repo.Save(ctx, "slot-2", first))

		second := &entity.SavedGame{Game: entity.NewGame(), Mode: entity.ModeConnected}
		require.NoError(t, repo.Save(ctx, "slot-2", second))

		loaded, err := repo.Load(ctx, "slot-2")
		require.NoError(t, err)
		assert.True(t, loaded.WasOnline())
	})

	t.Run("Missing key", func(t *testing.T) {
		_, err := repo.Load(ctx, "nothing-here")

		require.ErrorIs(t, err, apperror.ErrSaveNotFound)
	})

	t.Run("Corrupt blob", func(t *testing.T) {
		// Given: something that is not a save under the save key space
		require.NoError(t, s.Storage.Set(ctx, "save:bad", "{not json", 0).Err())

		_, err := repo.Load(ctx, "bad")

		require.ErrorIs(t, err, apperror.ErrInvalidSave)
	})

	t.Run("Delete removes the save", func(t *testing.T) {
		save := &entity.SavedGame{Game: entity.NewGame()}
		require.NoError(t, repo.Save(ctx, "slot-3", save))

		require.NoError(t, repo.Delete(ctx, "slot-3"))

		_, err := repo.Load(ctx, "slot-3")
		require.ErrorIs(t, err, apperror.ErrSaveNotFound)
	})
}
