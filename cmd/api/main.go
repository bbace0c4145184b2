package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bricks_crm_backend/internal/analysis"
	"bricks_crm_backend/internal/email"
	"bricks_crm_backend/internal/events"
	apphttp "bricks_crm_backend/internal/http"
	"bricks_crm_backend/internal/http/router"
	"bricks_crm_backend/internal/leads"
	"bricks_crm_backend/internal/metrics"
	"bricks_crm_backend/internal/recordings"
	"bricks_crm_backend/internal/scheduler"
	"bricks_crm_backend/internal/storage"
	"bricks_crm_backend/internal/telegram"
	"bricks_crm_backend/platform/config"
	"bricks_crm_backend/platform/db"
	"bricks_crm_backend/platform/logger"
	"bricks_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	tgClient := telegram.NewClient(cfg, log)
	if tgClient == nil {
		panic("telegram client could not be created")
	}

	emailSender := initEmailSender(cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadRepo := leads.NewRepository(pool)
	recordingRepo := recordings.NewRepository(pool)

	notifier, queueClient, closeQueue := initNotifier(cfg, tgClient, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	service := recordings.NewService(recordingRepo, leadRepo, notifier, eventBus, cfg, log)

	if cfg.IsStorageEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure recordings bucket", 5, 2*time.Second, func() error {
			return storageSvc.EnsureBucketExists(ctx)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err)
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		service.SetArchiver(recordings.NewTelegramArchiver(tgClient, storageSvc))
		log.Info("storage service initialized", "bucket", cfg.GetRecordingsBucket())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; audio archiving disabled")
	}

	if cfg.IsAnalysisEnabled() {
		summarizer, err := analysis.NewGeminiClient(ctx, cfg)
		if err != nil {
			log.Error("failed to initialize analysis client", "error", err)
		} else {
			service.SetSummarizer(summarizer)
			log.Info("analysis client initialized", "model", cfg.GetGeminiModel())
		}
	}

	handler := recordings.NewHandler(service, val, log)
	if cfg.GetRedisURL() != "" {
		if opt, err := redis.ParseURL(cfg.GetRedisURL()); err != nil {
			log.Warn("invalid REDIS_URL; update dedup cache disabled", "error", err)
		} else {
			handler.SetUpdateCache(recordings.NewUpdateCache(redis.NewClient(opt)))
		}
	}
	recordingsModule := recordings.NewModule(service, handler)

	pipelineMetrics := metrics.NewPipelineMetrics(nil)
	pipelineMetrics.RegisterHandlers(eventBus)
	metricsModule := metrics.NewModule()

	// Failure alerts: through the queue when Redis is up, direct SMTP otherwise.
	switch {
	case queueClient != nil:
		scheduler.RegisterFailureAlerts(eventBus, queueClient.EnqueueFailureAlert, log)
	case emailSender != nil:
		scheduler.RegisterFailureAlerts(eventBus, emailSender.SendFailureAlert, log)
	}

	// Embedded queue worker drains sends and alerts in-process; a separate
	// cmd/worker deployment takes over when this instance runs with
	// ASYNQ_EMBEDDED=false.
	var worker *scheduler.Worker
	if queueClient != nil && os.Getenv("ASYNQ_EMBEDDED") != "false" {
		worker, err = scheduler.NewWorker(cfg, tgClient, emailSender, log)
		if err != nil {
			log.Error("failed to initialize queue worker", "error", err)
			panic("failed to initialize queue worker: " + err.Error())
		}
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			recordingsModule,
			metricsModule,
		},
	}

	engine := router.New(app)

	g, gctx := errgroup.WithContext(ctx)
	if worker != nil {
		g.Go(func() error {
			log.Info("embedded queue worker started", "queue", cfg.GetAsynqQueueName())
			worker.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		return engine.Run(cfg.HTTPAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		return gctx.Err()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
}

// initNotifier picks the outbound message path: queue-backed when Redis is
// configured (with a local dedup cache as a side benefit), direct Bot API
// sends otherwise.
func initNotifier(cfg *config.Config, tgClient *telegram.Client, log *logger.Logger) (recordings.Notifier, *scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; sending chat messages synchronously")
		return recordings.NewDirectNotifier(tgClient), nil, nil
	}

	queueClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize queue client", "error", err)
		return recordings.NewDirectNotifier(tgClient), nil, nil
	}

	return queueClient, queueClient, func() {
		_ = queueClient.Close()
	}
}

// initEmailSender returns the alerter as an interface so that an unconfigured
// SMTP yields a true nil; a typed-nil *email.SMTPSender would pass the
// worker's nil check and panic on first use.
func initEmailSender(cfg *config.Config, log *logger.Logger) scheduler.FailureAlerter {
	if !cfg.IsEmailEnabled() {
		log.Warn("SMTP not configured; failure alert emails disabled")
		return nil
	}
	return email.NewSMTPSender(cfg)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
