package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/voiceguard/internal/analysis"
	"github.com/nikhilbhutani/voiceguard/internal/api"
	"github.com/nikhilbhutani/voiceguard/internal/api/handlers"
	"github.com/nikhilbhutani/voiceguard/internal/audit"
	"github.com/nikhilbhutani/voiceguard/internal/cache"
	"github.com/nikhilbhutani/voiceguard/internal/config"
	"github.com/nikhilbhutani/voiceguard/internal/database"
	"github.com/nikhilbhutani/voiceguard/internal/media"
	"github.com/nikhilbhutani/voiceguard/internal/queue"
	"github.com/nikhilbhutani/voiceguard/internal/stt"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// ffmpeg (optional): decoding of non-WAV uploads
	var conv *media.Converter
	if bin, err := media.ResolveFFmpeg(cfg.Media.FFmpegBinary); err != nil {
		slog.Warn("ffmpeg unavailable, uploads are sent undecoded", "error", err)
	} else {
		if err := media.PrependPath(filepath.Dir(bin)); err != nil {
			slog.Warn("failed to update PATH", "error", err)
		}
		conv = media.NewConverter(bin)
		slog.Info("ffmpeg resolved", "path", bin)
	}

	// Transcription backend, built once on first use and shared by all requests
	provider := stt.NewLazy(cfg.STT.Backend, func() (stt.STTProvider, error) {
		slog.Info("loading stt backend", "backend", cfg.STT.Backend)
		return stt.NewProvider(cfg.STT, conv)
	})

	opts := []analysis.Option{analysis.WithTempDir(cfg.Media.TempDir)}

	// Database connection (optional)
	var db *pgxpool.Pool
	var lister handlers.AnalysisLister
	db, err = database.NewPool(ctx, cfg.Database)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		slog.Info("DATABASE_URL not set, analysis log disabled")
	case err != nil:
		slog.Warn("database unavailable, running without analysis log", "error", err)
		db = nil
	default:
		defer db.Close()
		if err := database.RunMigrations(ctx, db); err != nil {
			slog.Warn("migrations failed", "error", err)
		}
		auditSvc := audit.NewService(db)
		lister = auditSvc
		opts = append(opts, analysis.WithRecorder(auditSvc))
	}

	// Redis connection (optional): result cache and alert queue
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable at startup, cache and alerts may fail", "error", err)
		}
		opts = append(opts, analysis.WithCache(cache.NewResultCache(rdb, cfg.Cache.TTL)))

		queueClient := queue.NewClient(cfg.Redis)
		defer queueClient.Close()
		opts = append(opts, analysis.WithAlerter(queueClient))
	} else {
		slog.Info("REDIS_ADDR not set, cache and distress alerts disabled")
	}

	svc := analysis.NewService(provider, opts...)

	// Setup router
	router := api.NewRouter(db, rdb, cfg, svc, lister)
	handler := router.Setup()
	defer router.Close()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr(), "stt_backend", cfg.STT.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
