package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/qiyas-mock/internal/config"
	"github.com/stemsi/qiyas-mock/internal/model"
)

const (
	// MaxHistoryBytes caps one user's stored history document.
	MaxHistoryBytes = 4 << 20
	historyRetries  = 3
)

var ErrHistoryFull = errors.New("attempt history storage quota exceeded")

// AttemptHistoryStore keeps each user's attempt history as a single JSON list
// in Redis. Every write reads the full list and rewrites it under WATCH.
type AttemptHistoryStore struct {
	rdb      *redis.Client
	maxBytes int
}

// NewAttemptHistoryStore creates a new AttemptHistoryStore.
func NewAttemptHistoryStore(rdb *redis.Client) *AttemptHistoryStore {
	return &AttemptHistoryStore{rdb: rdb, maxBytes: MaxHistoryBytes}
}

func decodeHistory(raw []byte) ([]model.AttemptRecord, error) {
	var history []model.AttemptRecord
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return history, nil
}

// Load returns the full history of a user, oldest first.
func (s *AttemptHistoryStore) Load(ctx context.Context, userID int) ([]model.AttemptRecord, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.AttemptHistoryKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return decodeHistory(raw)
}

// Rewrite applies fn to the stored list and writes the result back. A
// concurrent writer aborts the transaction, which is retried.
func (s *AttemptHistoryStore) Rewrite(ctx context.Context, userID int, apply func([]model.AttemptRecord) ([]model.AttemptRecord, error)) error {
	key := config.CacheKey.AttemptHistoryKey(userID)

	txf := func(tx *redis.Tx) error {
		var history []model.AttemptRecord
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if history, err = decodeHistory(raw); err != nil {
				return err
			}
		}

		next, err := apply(history)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode history: %w", err)
		}
		if len(data) > s.maxBytes {
			return ErrHistoryFull
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < historyRetries; i++ {
		err = s.rdb.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}
