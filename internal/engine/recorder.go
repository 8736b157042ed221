package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/qiyas-mock/internal/model"
)

// HistoryStore keeps one attempt list per owner. There is no partial update:
// Rewrite reads the full list, hands it to apply and writes the result back
// in full.
type HistoryStore interface {
	Load(ctx context.Context, owner int) ([]model.AttemptRecord, error)
	Rewrite(ctx context.Context, owner int, apply func([]model.AttemptRecord) ([]model.AttemptRecord, error)) error
}

// Recorder appends finished attempts to the history. History is append-only.
type Recorder struct {
	store HistoryStore
	log   zerolog.Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(store HistoryStore, log zerolog.Logger) *Recorder {
	return &Recorder{
		store: store,
		log:   log.With().Str("component", "attempt_recorder").Logger(),
	}
}

// Persist appends rec to the owner's history. Recording the same attempt id
// twice returns ErrDuplicateAttempt.
func (r *Recorder) Persist(ctx context.Context, owner int, rec model.AttemptRecord) error {
	err := r.store.Rewrite(ctx, owner, func(history []model.AttemptRecord) ([]model.AttemptRecord, error) {
		for _, h := range history {
			if h.ID == rec.ID {
				return nil, ErrDuplicateAttempt
			}
		}
		return append(history, rec), nil
	})
	if err != nil {
		r.log.Warn().Err(err).Int("user_id", owner).Str("attempt_id", rec.ID).Msg("Failed to persist attempt")
		return fmt.Errorf("persist attempt %s: %w", rec.ID, err)
	}

	r.log.Info().Int("user_id", owner).Str("attempt_id", rec.ID).Msg("Attempt persisted")
	return nil
}

// History returns the owner's attempts, oldest first.
func (r *Recorder) History(ctx context.Context, owner int) ([]model.AttemptRecord, error) {
	history, err := r.store.Load(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return history, nil
}

// Attempt returns one attempt of the owner.
func (r *Recorder) Attempt(ctx context.Context, owner int, id string) (model.AttemptRecord, bool, error) {
	history, err := r.History(ctx, owner)
	if err != nil {
		return model.AttemptRecord{}, false, err
	}
	for _, h := range history {
		if h.ID == id {
			return h, true, nil
		}
	}
	return model.AttemptRecord{}, false, nil
}
