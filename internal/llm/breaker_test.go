package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	xerrors "wa-insights-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type countingCompleter struct {
	calls  int
	answer string
	err    error
}

func (c *countingCompleter) Complete(context.Context, string, string) (string, error) {
	c.calls++
	return c.answer, c.err
}

func TestBreaker_PassesThrough(t *testing.T) {
	t.Parallel()

	next := &countingCompleter{answer: `{"segment":"NEW_CUSTOMER"}`}
	b := NewBreaker("test", next, BreakerConfig{}, zap.NewNop())

	got, err := b.Complete(context.Background(), "sys", "prompt")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != next.answer {
		t.Errorf("Complete() = %q", got)
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	next := &countingCompleter{err: errors.New("503 from upstream")}
	b := NewBreaker("test", next, BreakerConfig{MaxFailures: 3, OpenFor: time.Hour}, zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := b.Complete(context.Background(), "s", "p"); !errors.Is(err, xerrors.ErrClassifierUnavailable) {
			t.Fatalf("call %d error = %v, want ErrClassifierUnavailable", i, err)
		}
	}
	if b.State() != "open" {
		t.Fatalf("state = %s, want open", b.State())
	}

	_, err := b.Complete(context.Background(), "s", "p")
	if !errors.Is(err, xerrors.ErrClassifierUnavailable) {
		t.Fatalf("open call error = %v", err)
	}
	if next.calls != 3 {
		t.Errorf("provider called %d times, want 3 (open circuit must short-circuit)", next.calls)
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), Config{Provider: "claude-local"}, zap.NewNop()); err == nil {
		t.Fatal("New() error = nil, want unknown provider")
	}
}

func TestNew_OpenAIDefaults(t *testing.T) {
	t.Parallel()

	b, err := New(context.Background(), Config{APIKey: "k"}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c, ok := b.next.(*OpenAIClient)
	if !ok {
		t.Fatalf("provider = %T, want *OpenAIClient", b.next)
	}
	if c.model != "gpt-4o-mini" || c.timeout != 30*time.Second {
		t.Errorf("defaults = %s/%v", c.model, c.timeout)
	}
}
