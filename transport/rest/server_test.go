package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vakarthi/ultimate-ttt/internal/apperror"
	"github.com/vakarthi/ultimate-ttt/internal/entity"
)

type memoryStore struct {
	mu    sync.Mutex
	blobs map[string]entity.SavedGame
}

func newMemoryStore() *memoryStore {
	return &memoryStore{blobs: make(map[string]entity.SavedGame)}
}

func (that *memoryStore) Save(_ context.Context, key string, save *entity.SavedGame) error {
	that.mu.Lock()
	defer that.mu.Unlock()
	that.blobs[key] = *save
	return nil
}

func (that *memoryStore) Load(_ context.Context, key string) (*entity.SavedGame, error) {
	that.mu.Lock()
	defer that.mu.Unlock()
	save, ok := that.blobs[key]
	if !ok {
		return nil, apperror.ErrSaveNotFound
	}
	return &save, nil
}

func testServer(t *testing.T) (*httptest.Server, *memoryStore) {
	t.Helper()

	store := newMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := httptest.NewServer(New(logger, store).Handler())
	t.Cleanup(srv.Close)

	return srv, store
}

func TestPing(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
}

func TestSaves(t *testing.T) {
	t.Run("Store then fetch a save", func(t *testing.T) {
		srv, _ := testServer(t)

		game := entity.NewGame()
		game.Boards[0][4] = entity.PlayerX
		game.Turn = entity.PlayerO
		game.ForcedBoard = 4
		game.MoveCount = 1

		save := entity.SavedGame{
			Game:     game,
			LastMove: &entity.Move{Board: 0, Cell: 4},
			Mode:     entity.ModeLocal,
		}

		payload, err := json.Marshal(save)
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodPut, srv.URL+"/saves/slot-1", bytes.NewReader(payload))
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, err = http.Get(srv.URL + "/saves/slot-1")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var loaded entity.SavedGame
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&loaded))
		assert.Equal(t, save, loaded)
	})

	t.Run("Missing save returns 404", func(t *testing.T) {
		srv, _ := testServer(t)

		resp, err := http.Get(srv.URL + "/saves/nothing")
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Malformed payload returns 400", func(t *testing.T) {
		srv, _ := testServer(t)

		resp, err := http.Post(srv.URL+"/saves/slot-2", "application/json", bytes.NewBufferString("{broken"))
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Empty key returns 404", func(t *testing.T) {
		srv, _ := testServer(t)

		resp, err := http.Get(srv.URL + "/saves/")
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Unsupported method returns 405", func(t *testing.T) {
		srv, store := testServer(t)
		require.NoError(t, store.Save(context.Background(), "slot-3", &entity.SavedGame{Game: entity.NewGame()}))

		req, err := http.NewRequest(http.MethodDelete, srv.URL+"/saves/slot-3", nil)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}
