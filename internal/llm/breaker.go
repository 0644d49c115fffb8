// internal/llm/breaker.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	xerrors "wa-insights-service/internal/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Completer is the single call every provider implements.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type BreakerConfig struct {
	MaxFailures uint32
	OpenFor     time.Duration
}

// Breaker guards a Completer with a circuit breaker. Every failure it returns
// wraps xerrors.ErrClassifierUnavailable.
type Breaker struct {
	next   Completer
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

func NewBreaker(name string, next Completer, cfg BreakerConfig, logger *zap.Logger) *Breaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = time.Minute
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("classifier circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(settings), logger: logger}
}

func (b *Breaker) Complete(ctx context.Context, system, prompt string) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Complete(ctx, system, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: circuit open", xerrors.ErrClassifierUnavailable)
		}
		return "", fmt.Errorf("%w: %w", xerrors.ErrClassifierUnavailable, err)
	}
	return out.(string), nil
}

// State reports the breaker state, mainly for health output.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
