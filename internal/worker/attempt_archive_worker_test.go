package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/qiyas-mock/internal/model"
)

type fakeArchive struct {
	batchErr error
	batches  int
	singles  []string
}

func (f *fakeArchive) InsertBatch(_ context.Context, batch []model.AttemptRecord) error {
	f.batches++
	return f.batchErr
}

func (f *fakeArchive) Insert(_ context.Context, rec model.AttemptRecord) error {
	f.singles = append(f.singles, rec.ID)
	return nil
}

func TestFlushUsesBatchInsert(t *testing.T) {
	archive := &fakeArchive{}
	w := NewAttemptArchiveWorker(archive, nil, zerolog.Nop())

	w.flushSafe(context.Background(), []model.AttemptRecord{{ID: "a"}, {ID: "b"}})
	if archive.batches != 1 || len(archive.singles) != 0 {
		t.Fatalf("batches=%d singles=%v", archive.batches, archive.singles)
	}
}

func TestFlushFallsBackToSingleInserts(t *testing.T) {
	archive := &fakeArchive{batchErr: errors.New("deadlock detected")}
	w := NewAttemptArchiveWorker(archive, nil, zerolog.Nop())

	w.flushSafe(context.Background(), []model.AttemptRecord{{ID: "a"}, {ID: "b"}})
	if len(archive.singles) != 2 || archive.singles[0] != "a" || archive.singles[1] != "b" {
		t.Fatalf("singles = %v, want [a b]", archive.singles)
	}
}

func TestFlushIgnoresEmptyBatch(t *testing.T) {
	archive := &fakeArchive{}
	NewAttemptArchiveWorker(archive, nil, zerolog.Nop()).flushSafe(context.Background(), nil)
	if archive.batches != 0 {
		t.Fatal("empty batch reached the archive")
	}
}
