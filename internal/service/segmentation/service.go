// internal/service/segmentation/service.go
package segmentation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wa-insights-service/internal/domain/customer"
	"wa-insights-service/internal/domain/segment"
	"wa-insights-service/internal/events"
	xerrors "wa-insights-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// Classifier sends one prompt to the language model and returns its raw text answer.
type Classifier interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// DigestBuilder produces the classifier input for a customer.
type DigestBuilder interface {
	Build(ctx context.Context, customerID int64) (*segment.Digest, error)
}

// Locker serializes batch runs across processes.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

type Config struct {
	Timeout     time.Duration
	BatchSize   int
	Interval    time.Duration
	StaleAfter  time.Duration
	MinMessages int
	LockTTL     time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 7 * 24 * time.Hour
	}
	if c.MinMessages <= 0 {
		c.MinMessages = 3
	}
	if c.LockTTL <= 0 {
		c.LockTTL = time.Hour
	}
	return c
}

type Service struct {
	repo       segment.Repository
	digests    DigestBuilder
	classifier Classifier
	publisher  events.Publisher
	locker     Locker
	parser     *parser
	cfg        Config
	now        func() time.Time
	logger     *zap.Logger

	// background batches run on base and are tracked by running until Shutdown.
	base     context.Context
	stopBase context.CancelFunc
	mu       sync.Mutex
	closed   bool
	running  sync.WaitGroup
}

func NewService(
	repo segment.Repository,
	digests DigestBuilder,
	classifier Classifier,
	publisher events.Publisher,
	locker Locker,
	cfg Config,
	logger *zap.Logger,
) *Service {
	base, stopBase := context.WithCancel(context.Background())
	return &Service{
		base:       base,
		stopBase:   stopBase,
		repo:       repo,
		digests:    digests,
		classifier: classifier,
		publisher:  publisher,
		locker:     locker,
		parser:     newParser(),
		cfg:        cfg.withDefaults(),
		now:        time.Now,
		logger:     logger,
	}
}

// Classify runs the classifier over a digest. Unparseable output yields the fallback
// result without error; transport failures wrap ErrClassifierUnavailable.
func (s *Service) Classify(ctx context.Context, d *segment.Digest) (*segment.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	raw, err := s.classifier.Complete(ctx, systemInstruction, buildPrompt(d))
	if err != nil {
		if !xerrors.Is(err, xerrors.ErrClassifierUnavailable) {
			err = fmt.Errorf("%w: %w", xerrors.ErrClassifierUnavailable, err)
		}
		return nil, err
	}

	res, err := s.parser.parse(raw)
	if err != nil {
		s.logger.Warn("classifier output unusable, applying fallback",
			zap.Int64("customer_id", d.CustomerID),
			zap.Error(err),
		)
		res = segment.NewFallbackResult(d.CustomerID)
	}
	res.CustomerID = d.CustomerID
	return res, nil
}

// SegmentCustomer builds the digest, classifies and persists the result.
func (s *Service) SegmentCustomer(ctx context.Context, customerID int64) (*segment.Result, error) {
	d, err := s.digests.Build(ctx, customerID)
	if err != nil {
		return nil, err
	}

	res, err := s.Classify(ctx, d)
	if err != nil {
		s.logger.Error("classifier call failed",
			zap.Int64("customer_id", customerID),
			zap.Error(err),
		)
		return nil, err
	}

	res.SegmentedAt = s.now().UTC()
	if err := s.repo.SaveResult(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to persist segmentation: %w", err)
	}

	s.logger.Info("customer segmented",
		zap.Int64("customer_id", customerID),
		zap.String("segment", string(res.Segment)),
		zap.Float64("confidence", res.Confidence),
		zap.Bool("fallback", res.Fallback),
	)

	if err := s.publisher.Publish(ctx, events.TypeCustomerSegmented, events.CustomerSegmented{
		CustomerID:      res.CustomerID,
		Segment:         string(res.Segment),
		Confidence:      res.Confidence,
		Characteristics: res.Characteristics,
		Fallback:        res.Fallback,
		SegmentedAt:     res.SegmentedAt,
	}); err != nil {
		s.logger.Warn("failed to publish segmentation event", zap.Int64("customer_id", customerID), zap.Error(err))
	}

	return res, nil
}

// Stats returns customer counts per label for labels in use.
func (s *Service) Stats(ctx context.Context) (segment.Stats, error) {
	stats, err := s.repo.CountBySegment(ctx)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ListCustomers returns customers currently carrying label.
func (s *Service) ListCustomers(ctx context.Context, label segment.Label, limit int) ([]customer.Summary, error) {
	if !label.Valid() {
		return nil, xerrors.NewValidationError("unknown segment %q", label)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	customers, err := s.repo.ListBySegment(ctx, label, limit)
	if err != nil {
		return nil, err
	}
	if customers == nil {
		customers = []customer.Summary{}
	}
	return customers, nil
}
