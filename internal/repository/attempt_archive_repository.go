package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/qiyas-mock/internal/model"
)

// AttemptArchiveRepository writes finished attempts to PostgreSQL.
type AttemptArchiveRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptArchiveRepository creates a new AttemptArchiveRepository.
func NewAttemptArchiveRepository(pool *pgxpool.Pool) *AttemptArchiveRepository {
	return &AttemptArchiveRepository{pool: pool}
}

// InsertBatch archives many attempts in one statement. Attempts already
// archived are skipped.
func (r *AttemptArchiveRepository) InsertBatch(ctx context.Context, batch []model.AttemptRecord) error {
	n := len(batch)
	ids := make([]uuid.UUID, 0, n)
	users := make([]int, 0, n)
	templateIDs := make([]string, 0, n)
	templateNames := make([]string, 0, n)
	corrects := make([]int, 0, n)
	scoreds := make([]int, 0, n)
	taken := make([]int, 0, n)
	breaks := make([]bool, 0, n)
	records := make([]string, 0, n)
	finishedAts := make([]time.Time, 0, n)

	for _, rec := range batch {
		id, err := uuid.Parse(rec.ID)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		users = append(users, rec.UserID)
		templateIDs = append(templateIDs, rec.TemplateID)
		templateNames = append(templateNames, rec.TemplateName)
		corrects = append(corrects, rec.CorrectCount)
		scoreds = append(scoreds, rec.ScoredCount)
		taken = append(taken, rec.TimeTakenSeconds)
		breaks = append(breaks, rec.PrayerBreakUsed)
		records = append(records, string(raw))
		finishedAts = append(finishedAts, rec.Timestamp)
	}

	query := `
		INSERT INTO attempts (id, user_id, template_id, template_name, correct_count,
		                      scored_count, time_taken_seconds, prayer_break_used, record, finished_at)
		SELECT u.id, u.user_id, u.template_id, u.template_name, u.correct_count,
		       u.scored_count, u.time_taken_seconds, u.prayer_break_used, u.record::jsonb, u.finished_at
		FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::text[],
			$4::text[],
			$5::int[],
			$6::int[],
			$7::int[],
			$8::bool[],
			$9::text[],
			$10::timestamptz[]
		) AS u (id, user_id, template_id, template_name, correct_count,
		        scored_count, time_taken_seconds, prayer_break_used, record, finished_at)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		ids, users, templateIDs, templateNames, corrects, scoreds, taken, breaks, records, finishedAts)
	return err
}

// Insert archives a single attempt.
func (r *AttemptArchiveRepository) Insert(ctx context.Context, rec model.AttemptRecord) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO attempts (id, user_id, template_id, template_name, correct_count,
		                       scored_count, time_taken_seconds, prayer_break_used, record, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10)
		 ON CONFLICT (id) DO NOTHING`,
		id, rec.UserID, rec.TemplateID, rec.TemplateName, rec.CorrectCount,
		rec.ScoredCount, rec.TimeTakenSeconds, rec.PrayerBreakUsed, string(raw), rec.Timestamp,
	)
	return err
}
