// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wa-insights-service/internal/domain/segment"
	xerrors "wa-insights-service/internal/pkg/errors"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const batchJobName = "segmentation-batch"

// BatchRunner runs one segmentation batch to completion.
type BatchRunner interface {
	RunBatch(ctx context.Context) (*segment.BatchReport, error)
}

// Scheduler runs the periodic segmentation batch.
type Scheduler struct {
	scheduler gocron.Scheduler
	runner    BatchRunner
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(runner BatchRunner, logger *zap.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(&gocronLogAdapter{logger: logger.Sugar()}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// ScheduleBatch registers the batch job on a cron expression. Overlapping runs
// in this process are skipped; the batch lock covers other replicas.
func (s *Scheduler) ScheduleBatch(cronExpr string) error {
	if cronExpr == "" {
		return errors.New("empty cron expression")
	}

	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(s.runBatch),
		gocron.WithName(batchJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", batchJobName, err)
	}

	fields := []zap.Field{zap.String("job", batchJobName), zap.String("cron", cronExpr)}
	if next, err := job.NextRun(); err == nil {
		fields = append(fields, zap.Time("next_run", next))
	}
	s.logger.Info("job scheduled", fields...)
	return nil
}

func (s *Scheduler) runBatch() {
	report, err := s.runner.RunBatch(s.ctx)
	switch {
	case errors.Is(err, xerrors.ErrBatchInProgress):
		s.logger.Info("scheduled batch skipped, another run holds the lock")
	case err != nil:
		s.logger.Error("scheduled batch failed", zap.Error(err))
	default:
		s.logger.Info("scheduled batch completed",
			zap.Int("segmented", report.Segmented),
			zap.Int("failed", report.Failed),
		)
	}
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	s.cancel()
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}
	return nil
}

type gocronLogAdapter struct {
	logger *zap.SugaredLogger
}

func (l *gocronLogAdapter) Debug(msg string, args ...any) { l.logger.Debugw(msg, args...) }
func (l *gocronLogAdapter) Info(msg string, args ...any)  { l.logger.Infow(msg, args...) }
func (l *gocronLogAdapter) Warn(msg string, args ...any)  { l.logger.Warnw(msg, args...) }
func (l *gocronLogAdapter) Error(msg string, args ...any) { l.logger.Errorw(msg, args...) }
