// internal/service/ingest/service.go
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wa-insights-service/internal/domain/chat"
	"wa-insights-service/internal/domain/webhook"
	"wa-insights-service/internal/events"
	xerrors "wa-insights-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// DefaultSessionWindow is how long after its start a session keeps absorbing messages.
const DefaultSessionWindow = 30 * time.Minute

// ReplayCache remembers committed message ids so redeliveries can skip the database.
type ReplayCache interface {
	SeenMessage(ctx context.Context, messageID string) (bool, error)
	RememberMessage(ctx context.Context, messageID string) error
}

type Service struct {
	store     chat.Store
	replay    ReplayCache
	publisher events.Publisher
	window    time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the processing-time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store chat.Store, replay ReplayCache, publisher events.Publisher, window time.Duration, logger *zap.Logger, opts ...Option) *Service {
	if window <= 0 {
		window = DefaultSessionWindow
	}
	s := &Service{
		store:     store,
		replay:    replay,
		publisher: publisher,
		window:    window,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest stitches an inbound message onto its customer and session and records it.
// Returns ErrInvalidSender for unusable sender ids and ErrDuplicateMessage for replays.
func (s *Service) Ingest(ctx context.Context, msg *webhook.IncomingMessage) (*chat.IngestResult, error) {
	phone, err := NormalizePhone(msg.From)
	if err != nil {
		s.logger.Warn("dropping message from invalid sender",
			zap.String("message_id", msg.MessageID),
			zap.String("from", msg.From),
		)
		return nil, err
	}

	if seen, err := s.replay.SeenMessage(ctx, msg.MessageID); err != nil {
		s.logger.Warn("replay cache lookup failed", zap.String("message_id", msg.MessageID), zap.Error(err))
	} else if seen {
		s.logger.Info("duplicate message ignored",
			zap.String("message_id", msg.MessageID),
			zap.String("source", "cache"),
		)
		return nil, xerrors.ErrDuplicateMessage
	}

	now := s.now()
	result := &chat.IngestResult{}

	err = s.store.InTx(ctx, func(ctx context.Context, l chat.Ledger) error {
		c, created, err := s.stitchCustomer(ctx, l, phone, msg)
		if err != nil {
			return err
		}

		exists, err := l.MessageExists(ctx, msg.MessageID)
		if err != nil {
			return err
		}
		if exists {
			return xerrors.ErrDuplicateMessage
		}

		sess, sessionCreated, err := s.stitchSession(ctx, l, c.ID, now)
		if err != nil {
			return err
		}

		m, err := s.record(ctx, l, c, created, sess, msg, now)
		if err != nil {
			return err
		}

		result.CustomerID = c.ID
		result.SessionID = sess.ID
		result.MessageID = m.ID
		result.CustomerCreated = created
		result.SessionCreated = sessionCreated
		return nil
	})

	if errors.Is(err, xerrors.ErrDuplicateMessage) {
		s.logger.Info("duplicate message ignored",
			zap.String("message_id", msg.MessageID),
			zap.String("source", "database"),
		)
		s.remember(ctx, msg.MessageID)
		return nil, err
	}
	if err != nil {
		s.logger.Error("failed to ingest message",
			zap.String("message_id", msg.MessageID),
			zap.String("phone", phone),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to ingest message: %w", err)
	}

	s.remember(ctx, msg.MessageID)

	s.logger.Info("message ingested",
		zap.Int64("customer_id", result.CustomerID),
		zap.Int64("session_id", result.SessionID),
		zap.String("message_id", msg.MessageID),
		zap.Bool("customer_created", result.CustomerCreated),
		zap.Bool("session_created", result.SessionCreated),
	)

	if err := s.publisher.Publish(ctx, events.TypeMessageIngested, events.MessageIngested{
		CustomerID:      result.CustomerID,
		SessionID:       result.SessionID,
		MessageID:       msg.MessageID,
		PhoneNumber:     phone,
		Timestamp:       msg.Timestamp,
		CustomerCreated: result.CustomerCreated,
		SessionCreated:  result.SessionCreated,
	}); err != nil {
		s.logger.Warn("failed to publish ingest event", zap.String("message_id", msg.MessageID), zap.Error(err))
	}

	return result, nil
}

// UpdateStatus applies a delivery status to a stored message. Unknown ids are a logged no-op.
func (s *Service) UpdateStatus(ctx context.Context, upd *webhook.StatusUpdate) error {
	n, err := s.store.UpdateMessageStatus(ctx, upd.MessageID, upd.Status)
	if err != nil {
		s.logger.Error("failed to update message status",
			zap.String("message_id", upd.MessageID),
			zap.Error(err),
		)
		return err
	}
	if n == 0 {
		s.logger.Warn("status update for unknown message",
			zap.String("message_id", upd.MessageID),
			zap.String("status", upd.Status),
		)
		return nil
	}

	s.logger.Debug("message status updated",
		zap.String("message_id", upd.MessageID),
		zap.String("status", upd.Status),
	)
	return nil
}

func (s *Service) remember(ctx context.Context, messageID string) {
	if err := s.replay.RememberMessage(ctx, messageID); err != nil {
		s.logger.Warn("failed to remember message", zap.String("message_id", messageID), zap.Error(err))
	}
}
