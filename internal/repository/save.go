package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vakarthi/ultimate-ttt/internal/apperror"
	"github.com/vakarthi/ultimate-ttt/internal/entity"
)

type SaveRepository interface {
	Save(ctx context.Context, key string, save *entity.SavedGame) error
	Load(ctx context.Context, key string) (*entity.SavedGame, error)
	Delete(ctx context.Context, key string) error
}

type dbSave struct {
	client *redis.Client
}

func NewSaveRepository(client *redis.Client) SaveRepository {
	return &dbSave{
		client: client,
	}
}

func (that *dbSave) Save(ctx context.Context, key string, save *entity.SavedGame) error {
	saveJSON, err := json.Marshal(save)
	if err != nil {
		return fmt.Errorf("could not marshal save: %w", err)
	}

	saveKey := "save:" + key
	if err = that.client.Set(ctx, saveKey, saveJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set save: %w", err)
	}

	return nil
}

func (that *dbSave) Load(ctx context.Context, key string) (*entity.SavedGame, error) {
	saveKey := "save:" + key

	response, err := that.client.Get(ctx, saveKey).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrSaveNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get save by key: %w", err)
	}

	var save entity.SavedGame
	if err = json.Unmarshal([]byte(response), &save); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrInvalidSave, err)
	}

	return &save, nil
}

func (that *dbSave) Delete(ctx context.Context, key string) error {
	saveKey := "save:" + key

	if err := that.client.Del(ctx, saveKey).Err(); err != nil {
		return fmt.Errorf("failed to delete save by key: %w", err)
	}

	return nil
}
