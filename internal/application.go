package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vakarthi/ultimate-ttt/internal/config"
	"github.com/vakarthi/ultimate-ttt/internal/repository"
	"github.com/vakarthi/ultimate-ttt/internal/repository/storage"
	"github.com/vakarthi/ultimate-ttt/transport/relay"
	"github.com/vakarthi/ultimate-ttt/transport/rest"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the relay daemon: the websocket relay that pairs two
// engines, and the REST server carrying the healthcheck and the save-game
// store.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisClient, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisClient.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	saveRepo := repository.NewSaveRepository(redisClient)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		restServer := rest.New(logger, saveRepo)
		if httpErr := restServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run relay server
	relayErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting relay server", "port", conf.SocketPort)
		relayServer := relay.New(logger)
		if relayErr := relayServer.Start(ctx, conf.SocketPort); relayErr != nil {
			log.Error("relay server error", "error", relayErr)
			relayErrCh <- relayErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-relayErrCh:
		return fmt.Errorf("relay server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
