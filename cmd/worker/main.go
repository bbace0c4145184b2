package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"bricks_crm_backend/internal/email"
	"bricks_crm_backend/internal/scheduler"
	"bricks_crm_backend/internal/telegram"
	"bricks_crm_backend/platform/config"
	"bricks_crm_backend/platform/logger"
)

// Standalone queue worker. Run this instead of the embedded worker when the
// API is deployed with ASYNQ_EMBEDDED=false.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting queue worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tgClient := telegram.NewClient(cfg, log)
	if tgClient == nil {
		panic("telegram client could not be created")
	}

	var alerter scheduler.FailureAlerter
	if cfg.IsEmailEnabled() {
		alerter = email.NewSMTPSender(cfg)
	} else {
		log.Warn("SMTP not configured; failure alert emails disabled")
	}

	worker, err := scheduler.NewWorker(cfg, tgClient, alerter, log)
	if err != nil {
		log.Error("failed to initialize queue worker", "error", err)
		panic("failed to initialize queue worker: " + err.Error())
	}

	worker.Run(ctx)
}
