package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vakarthi/ultimate-ttt/internal/apperror"
	"github.com/vakarthi/ultimate-ttt/internal/entity"
	"github.com/vakarthi/ultimate-ttt/pkg/handlers"
)

type saveStore interface {
	Save(ctx context.Context, key string, save *entity.SavedGame) error
	Load(ctx context.Context, key string) (*entity.SavedGame, error)
}

// Server exposes the healthcheck and the save-game blob store over HTTP,
// so a UI client can persist matches without talking to redis itself.
type Server struct {
	logger *slog.Logger
	saves  saveStore
}

func New(logger *slog.Logger, saves saveStore) *Server {
	return &Server{
		logger: logger.With("component", "rest"),
		saves:  saves,
	}
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", handlers.PingHandler)
	mux.HandleFunc("/saves/", that.savesHandler)

	return mux
}

// Start - starts the HTTP server.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) savesHandler(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/saves/")
	if key == "" || strings.Contains(key, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		that.loadSave(w, r, key)
	case http.MethodPut, http.MethodPost:
		that.storeSave(w, r, key)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (that *Server) loadSave(w http.ResponseWriter, r *http.Request, key string) {
	log := that.logger.With("method", "loadSave", "key", key)

	save, err := that.saves.Load(r.Context(), key)
	if errors.Is(err, apperror.ErrSaveNotFound) {
		http.NotFound(w, r)
		return
	}

	if err != nil {
		log.Error("failed to load save", "error", err)
		http.Error(w, "failed to load save", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(save); err != nil {
		log.Error("failed to encode save", "error", err)
	}
}

func (that *Server) storeSave(w http.ResponseWriter, r *http.Request, key string) {
	log := that.logger.With("method", "storeSave", "key", key)

	var save entity.SavedGame
	if err := json.NewDecoder(r.Body).Decode(&save); err != nil {
		http.Error(w, "malformed save payload", http.StatusBadRequest)
		return
	}

	if err := that.saves.Save(r.Context(), key, &save); err != nil {
		log.Error("failed to store save", "error", err)
		http.Error(w, "failed to store save", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
