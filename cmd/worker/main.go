package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/voiceguard/internal/audit"
	"github.com/nikhilbhutani/voiceguard/internal/config"
	"github.com/nikhilbhutani/voiceguard/internal/database"
	"github.com/nikhilbhutani/voiceguard/internal/queue"
	"github.com/nikhilbhutani/voiceguard/internal/queue/workers"
	"github.com/nikhilbhutani/voiceguard/internal/webhook"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Redis.Addr == "" {
		slog.Error("REDIS_ADDR is required for the alert worker")
		os.Exit(1)
	}

	var recorder workers.DeliveryRecorder
	if db, err := database.NewPool(context.Background(), cfg.Database); err != nil {
		slog.Warn("alert deliveries will not be recorded", "error", err)
	} else {
		defer db.Close()
		recorder = audit.NewService(db)
	}

	dispatcher := webhook.NewDispatcher(cfg.Alerts.WebhookURL, cfg.Alerts.WebhookSecret)
	if !dispatcher.Enabled() {
		slog.Warn("ALERT_WEBHOOK_URL not set, distress alerts will be acknowledged and dropped")
	}

	srv := asynq.NewServer(queue.RedisOpt(cfg.Redis), queue.ServerConfig(cfg.Worker.Concurrency))

	registry := queue.NewHandlersRegistry()

	// Register workers
	alertWorker := workers.NewAlertWorker(dispatcher, recorder)

	registry.Register(queue.TypeDistressAlert, asynq.HandlerFunc(alertWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", cfg.Worker.Concurrency)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
