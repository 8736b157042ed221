package engine

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/qiyas-mock/internal/model"
)

// memoryHistory stores each owner's history as one JSON document, read and
// written in full.
type memoryHistory struct {
	mu   sync.Mutex
	docs map[int][]byte
	err  error
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{docs: make(map[int][]byte)}
}

func (h *memoryHistory) Load(_ context.Context, owner int) ([]model.AttemptRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.decode(owner)
}

func (h *memoryHistory) decode(owner int) ([]model.AttemptRecord, error) {
	var out []model.AttemptRecord
	if doc, ok := h.docs[owner]; ok {
		if err := json.Unmarshal(doc, &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (h *memoryHistory) Rewrite(_ context.Context, owner int, apply func([]model.AttemptRecord) ([]model.AttemptRecord, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	current, err := h.decode(owner)
	if err != nil {
		return err
	}
	next, err := apply(current)
	if err != nil {
		return err
	}
	doc, err := json.Marshal(next)
	if err != nil {
		return err
	}
	h.docs[owner] = doc
	return nil
}

func finishedAttempt(t *testing.T) *Result {
	t.Helper()
	tpl := sectionTemplate("round-trip",
		model.SectionConfig{Category: model.CategoryVerbal, QuestionCount: 6, TimeLimitMinutes: 5},
		model.SectionConfig{Category: model.CategoryMixed, QuestionCount: 10, TimeLimitMinutes: 5},
	)
	tpl.NonScoredCount = 3

	c := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := startedMachine(t, c, tpl)
	answerSection(t, m, 5, 3)
	mustDispatch(t, m, FinishSection{})
	answerSection(t, m, 9, 6)
	c.advance(7 * time.Minute)
	mustDispatch(t, m, FinishSection{})
	mustDispatch(t, m, ReviewChoice{Choice: ChoiceFinish})

	res, err := m.Results()
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	return res
}

func TestRecorderRoundTrip(t *testing.T) {
	res := finishedAttempt(t)
	store := newMemoryHistory()
	rec := NewRecorder(store, zerolog.Nop())
	ctx := context.Background()

	if err := rec.Persist(ctx, 7, res.Record); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	got, ok, err := rec.Attempt(ctx, 7, res.Record.ID)
	if err != nil || !ok {
		t.Fatalf("Attempt: ok=%v err=%v", ok, err)
	}

	again := Recompute(got)
	if !reflect.DeepEqual(again, res.Aggregate) {
		t.Fatalf("recomputed aggregate differs\n got: %+v\nwant: %+v", again, res.Aggregate)
	}
	for n, want := range res.Record.SectionScores {
		if got.SectionScores[n] != want {
			t.Errorf("section %d: got %+v, want %+v", n, got.SectionScores[n], want)
		}
	}

	var correct, scored int
	for _, s := range got.SectionScores {
		correct += s.CorrectCount
		scored += s.ScoredQuestionCount
	}
	if again.Correct != correct || again.Scored != scored {
		t.Errorf("recomputed %d/%d, stored sections sum to %d/%d", again.Correct, again.Scored, correct, scored)
	}
	if len(again.Sections) != len(got.SectionScores) {
		t.Errorf("recomputed %d sections, stored %d", len(again.Sections), len(got.SectionScores))
	}
	if got.TimeTakenSeconds != 7*60 {
		t.Errorf("time taken = %d, want 420", got.TimeTakenSeconds)
	}
}

func TestRecorderIsAppendOnly(t *testing.T) {
	store := newMemoryHistory()
	rec := NewRecorder(store, zerolog.Nop())
	ctx := context.Background()

	first := model.AttemptRecord{ID: "a1", CorrectCount: 4, ScoredCount: 10}
	if err := rec.Persist(ctx, 1, first); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if err := rec.Persist(ctx, 1, model.AttemptRecord{ID: "a2"}); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	dup := first
	dup.CorrectCount = 10
	if err := rec.Persist(ctx, 1, dup); !errors.Is(err, ErrDuplicateAttempt) {
		t.Fatalf("duplicate: got %v, want ErrDuplicateAttempt", err)
	}

	history, err := rec.History(ctx, 1)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 || history[0].ID != "a1" || history[1].ID != "a2" {
		t.Fatalf("history = %+v", history)
	}
	if history[0].CorrectCount != 4 {
		t.Errorf("first attempt was rewritten: %+v", history[0])
	}

	other, _ := rec.History(ctx, 2)
	if len(other) != 0 {
		t.Errorf("owner 2 sees %d attempts", len(other))
	}
}

func TestRecorderReportsStoreFailure(t *testing.T) {
	errQuota := errors.New("quota exceeded")
	store := newMemoryHistory()
	store.err = errQuota

	err := NewRecorder(store, zerolog.Nop()).Persist(context.Background(), 1, model.AttemptRecord{ID: "x"})
	if !errors.Is(err, errQuota) {
		t.Fatalf("got %v, want wrapped quota error", err)
	}
}
