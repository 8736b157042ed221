package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/qiyas-mock/internal/config"
	"github.com/stemsi/qiyas-mock/internal/model"
)

const (
	ArchiveBatchSize    = 50
	ArchiveBatchTimeout = 2 * time.Second
	ArchivePollTimeout  = 1 * time.Second
)

// AttemptArchiver persists attempts to long-term storage.
type AttemptArchiver interface {
	InsertBatch(ctx context.Context, batch []model.AttemptRecord) error
	Insert(ctx context.Context, rec model.AttemptRecord) error
}

// ArchiveQueue is the Redis list feeding the archive worker.
type ArchiveQueue struct {
	rdb *redis.Client
}

func NewArchiveQueue(rdb *redis.Client) *ArchiveQueue {
	return &ArchiveQueue{rdb: rdb}
}

// Enqueue pushes a finished attempt onto the archive queue.
func (q *ArchiveQueue) Enqueue(ctx context.Context, rec model.AttemptRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.ArchiveAttemptsQueue, raw).Err()
}

// AttemptArchiveWorker drains the archive queue into PostgreSQL.
type AttemptArchiveWorker struct {
	archive AttemptArchiver
	rdb     *redis.Client
	queue   *ArchiveQueue
	log     zerolog.Logger
}

func NewAttemptArchiveWorker(archive AttemptArchiver, rdb *redis.Client, log zerolog.Logger) *AttemptArchiveWorker {
	return &AttemptArchiveWorker{
		archive: archive,
		rdb:     rdb,
		queue:   NewArchiveQueue(rdb),
		log:     log.With().Str("component", "attempt_archive_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *AttemptArchiveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AttemptArchiveWorker started")

	batch := make([]model.AttemptRecord, 0, ArchiveBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ArchiveBatchSize || time.Since(lastFlush) >= ArchiveBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ArchivePollTimeout, config.WorkerKey.ArchiveAttemptsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var rec model.AttemptRecord
			if err := json.Unmarshal([]byte(item[1]), &rec); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, rec)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert with single-row fallback
// ----------------------------------------------------------------

func (w *AttemptArchiveWorker) flushSafe(ctx context.Context, batch []model.AttemptRecord) {
	if len(batch) == 0 {
		return
	}

	if err := w.archive.InsertBatch(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("batch", len(batch)).Msg("bulk archive failed, using fallback")

		for _, rec := range batch {
			if err := w.archive.Insert(ctx, rec); err != nil {
				w.log.Error().Err(err).Str("attempt_id", rec.ID).Msg("archive insert failed, requeueing")
				if err := w.queue.Enqueue(ctx, rec); err != nil {
					w.log.Error().Err(err).Str("attempt_id", rec.ID).Msg("requeue failed, attempt stays in history only")
				}
			}
		}
		return
	}

	w.log.Debug().Int("batch", len(batch)).Msg("Attempts archived")
}
