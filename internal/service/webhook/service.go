// internal/service/webhook/service.go
package webhook

import (
	"context"
	"errors"

	"wa-insights-service/internal/domain/chat"
	"wa-insights-service/internal/domain/webhook"
	xerrors "wa-insights-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// Ingester persists normalized messages and status updates.
type Ingester interface {
	Ingest(ctx context.Context, msg *webhook.IncomingMessage) (*chat.IngestResult, error)
	UpdateStatus(ctx context.Context, upd *webhook.StatusUpdate) error
}

type Service struct {
	normalizer *Normalizer
	ingester   Ingester
	logger     *zap.Logger
}

func NewService(normalizer *Normalizer, ingester Ingester, logger *zap.Logger) *Service {
	return &Service{
		normalizer: normalizer,
		ingester:   ingester,
		logger:     logger,
	}
}

// Handle normalizes a raw webhook and routes it. Validation failures are returned
// unchanged; benign outcomes (ignored, duplicate, invalid sender) are not errors.
func (s *Service) Handle(ctx context.Context, raw []byte) (*webhook.Result, error) {
	evt, err := s.normalizer.Normalize(raw)
	if err != nil {
		s.logger.Warn("webhook rejected", zap.Error(err))
		return nil, err
	}

	result := &webhook.Result{Event: evt.Name}

	switch evt.Kind {
	case webhook.KindMessage:
		_, err := s.ingester.Ingest(ctx, evt.Message)
		switch {
		case err == nil:
			result.Outcome = webhook.OutcomeIngested
		case errors.Is(err, xerrors.ErrDuplicateMessage):
			result.Outcome = webhook.OutcomeDuplicate
		case errors.Is(err, xerrors.ErrInvalidSender):
			result.Outcome = webhook.OutcomeIgnored
			result.Reason = "invalid sender"
		default:
			return nil, err
		}

	case webhook.KindStatus:
		if err := s.ingester.UpdateStatus(ctx, evt.Status); err != nil {
			return nil, err
		}
		result.Outcome = webhook.OutcomeStatusUpdated

	default:
		s.logger.Info("webhook ignored",
			zap.String("event", evt.Name),
			zap.String("reason", evt.Reason),
		)
		result.Outcome = webhook.OutcomeIgnored
		result.Reason = evt.Reason
	}

	return result, nil
}
