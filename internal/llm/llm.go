// internal/llm/llm.go
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
	Breaker     BreakerConfig
}

// New builds the configured provider wrapped in a circuit breaker.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Breaker, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	var next Completer
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		if cfg.Model == "" {
			cfg.Model = "gpt-4o-mini"
		}
		next = NewOpenAIClient(cfg)
	case ProviderGemini:
		if cfg.Model == "" {
			cfg.Model = "gemini-2.0-flash"
		}
		c, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		next = c
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}

	logger.Info("classifier configured",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout),
	)
	return NewBreaker("classifier", next, cfg.Breaker, logger), nil
}
