package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/qiyas-mock/internal/model"
)

type manualTicker struct {
	c chan time.Time
}

func (t *manualTicker) C() <-chan time.Time { return t.c }
func (t *manualTicker) Stop()               {}

// manualTickers records every ticker the runner creates.
type manualTickers struct {
	created chan *manualTicker
}

func newManualTickers() *manualTickers {
	return &manualTickers{created: make(chan *manualTicker, 16)}
}

func (f *manualTickers) New(time.Duration) Ticker {
	t := &manualTicker{c: make(chan time.Time)}
	f.created <- t
	return t
}

func (f *manualTickers) next(t *testing.T) *manualTicker {
	t.Helper()
	select {
	case tk := <-f.created:
		return tk
	case <-time.After(2 * time.Second):
		t.Fatal("no ticker armed")
		return nil
	}
}

func (tk *manualTicker) fire(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case tk.c <- time.Now():
		case <-time.After(2 * time.Second):
			t.Fatalf("tick %d not consumed", i+1)
		}
	}
}

func waitFor(t *testing.T, r *Runner, what string, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap, err := r.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		if cond(snap) {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last snapshot %+v", what, snap)
		}
		time.Sleep(time.Millisecond)
	}
}

func startRunner(t *testing.T, tpl model.ExamTemplate) (*Runner, *manualTickers) {
	t.Helper()
	tickers := newManualTickers()
	r := NewRunner(newTestMachine(&clock{}), tickers.New, zerolog.Nop())
	t.Cleanup(r.Close)

	ctx := context.Background()
	if err := r.Do(ctx, SelectExam{Template: tpl, Entitled: true}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := r.Do(ctx, BeginExam{Sections: assembleSections(t, tpl, 1)}); err != nil {
		t.Fatalf("begin: %v", err)
	}
	return r, tickers
}

func TestRunnerDrivesCountdown(t *testing.T) {
	r, tickers := startRunner(t, twoSectionTemplate())

	tickers.next(t).fire(t, 3)
	waitFor(t, r, "three ticks", func(s Snapshot) bool { return s.RemainingSeconds == 597 })

	if err := r.Do(context.Background(), StartPrayerBreak{}); err != nil {
		t.Fatalf("break: %v", err)
	}
	tickers.next(t).fire(t, 2)
	snap := waitFor(t, r, "break ticks", func(s Snapshot) bool { return s.BreakRemainingSeconds == 898 })
	if snap.RemainingSeconds != 597 {
		t.Errorf("section countdown moved during break: %d", snap.RemainingSeconds)
	}

	if err := r.Do(context.Background(), ResumeFromBreak{}); err != nil {
		t.Fatalf("resume: %v", err)
	}
	tickers.next(t).fire(t, 1)
	waitFor(t, r, "section resumes", func(s Snapshot) bool { return s.RemainingSeconds == 596 })
}

func TestRunnerFiresResultsOnce(t *testing.T) {
	tpl := sectionTemplate("drill",
		model.SectionConfig{Category: model.CategoryVerbal, QuestionCount: 3, TimeLimitMinutes: 1})
	r, tickers := startRunner(t, tpl)

	results := make(chan *Result, 2)
	r.OnResults(func(res *Result) { results <- res })

	tickers.next(t).fire(t, 60)
	waitFor(t, r, "timeout", func(s Snapshot) bool { return s.State == StateAwaitingFinalReview })

	if err := r.Do(context.Background(), ReviewChoice{Choice: ChoiceFinish}); err != nil {
		t.Fatalf("finish: %v", err)
	}
	select {
	case res := <-results:
		if res.Record.ScoredCount != 3 {
			t.Errorf("scored = %d, want 3", res.Record.ScoredCount)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("results hook not called")
	}

	if _, err := r.Snapshot(context.Background()); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	select {
	case <-results:
		t.Fatal("results hook called twice")
	default:
	}
}

func TestRunnerSubscribe(t *testing.T) {
	r, _ := startRunner(t, twoSectionTemplate())
	snaps, cancel := r.Subscribe()
	defer cancel()

	if err := r.Do(context.Background(), Navigate{Direction: DirectionNext}); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s := <-snaps:
			if s.QuestionIndex == 1 {
				return
			}
		case <-timeout:
			t.Fatal("no snapshot for the navigation published")
		}
	}
}

func TestRunnerClosed(t *testing.T) {
	r, _ := startRunner(t, twoSectionTemplate())
	r.Close()
	r.Close()

	if err := r.Do(context.Background(), FinishSection{}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("got %v, want ErrSessionClosed", err)
	}
}
