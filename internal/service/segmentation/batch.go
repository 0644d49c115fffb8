// internal/service/segmentation/batch.go
package segmentation

import (
	"context"
	"errors"
	"fmt"

	"wa-insights-service/internal/domain/customer"
	"wa-insights-service/internal/domain/segment"
	xerrors "wa-insights-service/internal/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const batchLockName = "segmentation:batch"

var errShuttingDown = errors.New("segmentation service is shutting down")

// Candidates returns unlabeled or stale customers with enough messages, most recently active first.
func (s *Service) Candidates(ctx context.Context) ([]int64, error) {
	return s.repo.FindCandidates(ctx, customer.SegmentationCandidateFilter{
		StaleBefore: s.now().Add(-s.cfg.StaleAfter),
		MinMessages: s.cfg.MinMessages,
		Limit:       s.cfg.BatchSize,
	})
}

// RunBatch selects candidates and segments them while holding the batch lock.
func (s *Service) RunBatch(ctx context.Context) (*segment.BatchReport, error) {
	release, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	ids, err := s.Candidates(ctx)
	if err != nil {
		return nil, err
	}
	return s.ProcessBatch(ctx, ids), nil
}

// StartBatch selects candidates now and segments them in the background.
// It returns the number of queued customers.
func (s *Service) StartBatch(ctx context.Context) (int, error) {
	release, err := s.lock(ctx)
	if err != nil {
		return 0, err
	}

	ids, err := s.Candidates(ctx)
	if err != nil {
		release()
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		release()
		return 0, errShuttingDown
	}

	// Keep the request values for correlation but stop with the service, not the request.
	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	detach := context.AfterFunc(s.base, cancel)

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		defer release()
		defer detach()
		defer cancel()
		s.ProcessBatch(bg, ids)
	}()
	return len(ids), nil
}

// Shutdown cancels background batches and waits for them to release the batch lock.
// It returns ctx.Err() if they have not finished when ctx is done.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stopBase()

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("segmentation batches still running: %w", ctx.Err())
	}
}

// ProcessBatch segments ids one by one, throttled to one classifier call per interval.
// A failing customer is logged and skipped.
func (s *Service) ProcessBatch(ctx context.Context, ids []int64) *segment.BatchReport {
	report := &segment.BatchReport{Requested: len(ids), StartedAt: s.now().UTC()}
	limiter := rate.NewLimiter(rate.Every(s.cfg.Interval), 1)

	s.logger.Info("segmentation batch started", zap.Int("customers", len(ids)))

	for i, id := range ids {
		if err := limiter.Wait(ctx); err != nil {
			s.logger.Warn("segmentation batch interrupted",
				zap.Int("processed", i),
				zap.Error(err),
			)
			for _, rest := range ids[i:] {
				report.Failed++
				report.FailedIDs = append(report.FailedIDs, rest)
			}
			break
		}

		res, err := s.SegmentCustomer(ctx, id)
		if err != nil {
			level := zap.ErrorLevel
			if errors.Is(err, xerrors.ErrNotFound) {
				level = zap.WarnLevel
			}
			s.logger.Check(level, "skipping customer in batch").Write(
				zap.Int64("customer_id", id),
				zap.Error(err),
			)
			report.Failed++
			report.FailedIDs = append(report.FailedIDs, id)
			continue
		}

		report.Segmented++
		if res.Fallback {
			report.Fallbacks++
		}
	}

	report.FinishedAt = s.now().UTC()
	report.Duration = report.FinishedAt.Sub(report.StartedAt)

	s.logger.Info("segmentation batch finished",
		zap.Int("requested", report.Requested),
		zap.Int("segmented", report.Segmented),
		zap.Int("fallbacks", report.Fallbacks),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)
	return report
}

func (s *Service) lock(ctx context.Context) (func(), error) {
	release, ok, err := s.locker.Acquire(ctx, batchLockName, s.cfg.LockTTL)
	if err != nil {
		// Lock backend errors do not block the batch.
		s.logger.Warn("batch lock unavailable, continuing without it", zap.Error(err))
		return func() {}, nil
	}
	if !ok {
		return nil, xerrors.ErrBatchInProgress
	}
	return release, nil
}
