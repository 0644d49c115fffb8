// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"wa-insights-service/internal/config"
	"wa-insights-service/internal/db"
	"wa-insights-service/internal/events"
	customerHandler "wa-insights-service/internal/handlers/customer"
	healthHandler "wa-insights-service/internal/handlers/health"
	segmentationHandler "wa-insights-service/internal/handlers/segmentation"
	webhookHandler "wa-insights-service/internal/handlers/webhook"
	"wa-insights-service/internal/llm"
	"wa-insights-service/internal/middleware"
	"wa-insights-service/internal/pkg/guard"
	"wa-insights-service/internal/pkg/jwt"
	"wa-insights-service/internal/repository/postgres"
	"wa-insights-service/internal/scheduler"
	"wa-insights-service/internal/service/ingest"
	"wa-insights-service/internal/service/segmentation"
	"wa-insights-service/internal/service/summary"
	webhookUsecase "wa-insights-service/internal/service/webhook"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const producerName = "wa-insights-service"

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	pool      *pgxpool.Pool
	redis     *redis.Client
	publisher events.Publisher
	scheduler *scheduler.Scheduler
	batches   *segmentation.Service
}

func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Server{cfg: cfg, engine: gin.New(), logger: logger}
}

// Start wires every dependency and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	defer s.close()

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(ctx, db.PostgresConfig{
		URL:      s.cfg.DatabaseURL,
		MaxConns: s.cfg.DBMaxConns,
		MinConns: s.cfg.DBMinConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s.pool = pool
	s.logger.Info("postgres connected")

	if err := db.ApplyMigrations(pool, s.logger); err != nil {
		return err
	}

	// ----- Redis (optional) -----
	var g interface {
		ingest.ReplayCache
		segmentation.Locker
	} = guard.Noop{}
	if s.cfg.RedisAddr != "" {
		client, err := db.NewRedisClient(ctx, db.RedisConfig{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPass,
			DB:       s.cfg.RedisDB,
			PoolSize: 10,
		})
		if err != nil {
			s.logger.Warn("redis unavailable, replay cache and batch lock disabled", zap.Error(err))
		} else {
			s.redis = client
			g = guard.NewRedisGuard(client, 24*time.Hour, s.logger)
			s.logger.Info("redis connected", zap.String("addr", s.cfg.RedisAddr))
		}
	}

	// ----- Broker (optional) -----
	s.publisher = events.NoopPublisher{}
	if s.cfg.AMQPURL != "" {
		pub, err := events.NewRabbitPublisher(s.cfg.AMQPURL, s.cfg.AMQPExchange, producerName, s.logger)
		if err != nil {
			s.logger.Warn("broker unavailable, domain events disabled", zap.Error(err))
		} else {
			s.publisher = pub
			s.logger.Info("broker connected", zap.String("exchange", s.cfg.AMQPExchange))
		}
	}

	// ----- Classifier -----
	classifier, err := llm.New(ctx, llm.Config{
		Provider:    s.cfg.LLMProvider,
		APIKey:      s.cfg.LLMAPIKey,
		BaseURL:     s.cfg.LLMBaseURL,
		Model:       s.cfg.LLMModel,
		Temperature: s.cfg.LLMTemperature,
		Timeout:     s.cfg.LLMTimeout,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("failed to build classifier: %w", err)
	}

	// ----- Operator JWT (optional) -----
	verifier, err := jwt.LoadVerifier(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT verifier: %w", err)
	}
	if verifier == nil {
		s.logger.Warn("JWT_PUBLIC_KEY_PATH not set, operator routes are unauthenticated")
	}

	// ----- Repositories -----
	dbWrapper := postgres.NewDB(pool)
	store := postgres.NewLedgerStore(
		dbWrapper,
		postgres.NewCustomerRepository(pool),
		postgres.NewChatSessionRepository(pool),
		postgres.NewMessageRepository(pool),
	)

	// ----- Services (Usecases) -----
	ingestService := ingest.NewService(store, g, s.publisher, s.cfg.SessionWindow, s.logger)
	webhookService := webhookUsecase.NewService(webhookUsecase.NewNormalizer(), ingestService, s.logger)
	summaryService := summary.NewService(store, s.cfg.SummaryMessageLimit, s.logger)
	segmentationService := segmentation.NewService(
		store,
		summaryService,
		classifier,
		s.publisher,
		g,
		segmentation.Config{
			Timeout:     s.cfg.LLMTimeout,
			BatchSize:   s.cfg.SegmentationBatchSize,
			Interval:    s.cfg.SegmentationInterval,
			StaleAfter:  s.cfg.SegmentationStaleAfter,
			MinMessages: s.cfg.SegmentationMinMessages,
		},
		s.logger,
	)
	s.batches = segmentationService

	// ----- Scheduler -----
	if s.cfg.SegmentationEnabled {
		sched, err := scheduler.New(segmentationService, s.logger)
		if err != nil {
			return err
		}
		if err := sched.ScheduleBatch(s.cfg.SegmentationCron); err != nil {
			_ = sched.Stop()
			return err
		}
		s.scheduler = sched
	}

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RequestIDMiddleware(),
		middleware.RecoveryMiddleware(s.logger),
		middleware.LoggingMiddleware(s.logger),
		middleware.CORSMiddleware(s.cfg.CORSAllowedOrigins),
	)

	// ----- Router -----
	SetupRouter(s.engine, &Handlers{
		WebhookHandler:      webhookHandler.NewWebhookHandler(webhookService, s.logger),
		HealthHandler:       healthHandler.NewHealthHandler(pool, s.logger),
		SegmentationHandler: segmentationHandler.NewSegmentationHandler(segmentationService, s.logger),
		CustomerHandler:     customerHandler.NewCustomerHandler(summaryService),
		AuthMiddleware:      middleware.NewAuthMiddleware(verifier, s.logger),
		WebhookMaxBodyBytes: s.cfg.WebhookMaxBodyBytes,
	})

	return s.serve(ctx)
}

func (s *Server) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grp, ctx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	if s.scheduler != nil {
		s.scheduler.Start()
		s.logger.Info("segmentation scheduler started", zap.String("cron", s.cfg.SegmentationCron))
	}

	grp.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if s.scheduler != nil {
			if err := s.scheduler.Stop(); err != nil {
				errs = append(errs, err)
			}
		}
		// Manual batches hold the batch lock and pool connections until they stop.
		if err := s.batches.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	return grp.Wait()
}

func (s *Server) close() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Warn("failed to close publisher", zap.Error(err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	s.logger.Info("server stopped")
}
