package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transcribe-gateway/config"
	"transcribe-gateway/internal/application"
	"transcribe-gateway/internal/httpapi"
	"transcribe-gateway/internal/infra/audio"
	"transcribe-gateway/internal/infra/elevenlabs"
	"transcribe-gateway/internal/infra/metrics"
	"transcribe-gateway/internal/infra/mongodb"
	"transcribe-gateway/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("loading .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := mongodb.Connect(ctx, cfg.Store.URI, cfg.Store.ConnectTimeout, logger)
	if err != nil {
		logger.Error("connecting to mongodb", "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("closing mongodb", "error", err)
		}
	}()

	m := metrics.NewMetrics()

	var stt application.SpeechToText
	if cfg.Provider.Enabled() {
		stt = elevenlabs.NewSTTClient(cfg.Provider.APIKey, cfg.Provider.Model, cfg.Provider.Timeout, cfg.Provider.BaseURL)
	} else {
		logger.Warn("provider API key not set, transcription is disabled")
	}

	rateLimiter := audio.NewRateLimiter(cfg.RateLimit.PerMinute, time.Minute)
	rateLimiter.StartPruning(ctx)

	handler := httpapi.NewRouter(httpapi.Deps{
		Receiver:       audio.NewReceiver(cfg.Upload.FieldName, cfg.Upload.MaxBytes),
		Relay:          application.NewRelay(stt, m, logger),
		Health:         application.NewHealthReporter(store),
		Metrics:        m,
		RateLimiter:    rateLimiter,
		APIPrefix:      cfg.Server.APIPrefix,
		CORSOrigin:     cfg.Server.CORSOrigin,
		TrustedProxies: cfg.Server.TrustedProxies,
		Logger:         logger,
	})

	logger.Info("starting transcription gateway",
		"addr", cfg.Server.Addr,
		"api_prefix", cfg.Server.APIPrefix,
		"provider_enabled", cfg.Provider.Enabled(),
		"model", cfg.Provider.Model,
	)

	srv := server.New(cfg.Server.Addr, handler, cfg.Server.ShutdownTimeout, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("shut down")
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
