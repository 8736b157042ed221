package database

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retry(ctx, zerolog.Nop(), "test", func(context.Context) error {
		calls++
		cancel()
		return errors.New("refused")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("ping called %d times", calls)
	}
}

func TestRetrySucceedsFirstTry(t *testing.T) {
	if err := retry(context.Background(), zerolog.Nop(), "test", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("retry: %v", err)
	}
}
