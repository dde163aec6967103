package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rkuma140394/vox-veritas-api/api/internal/app"
	"github.com/rkuma140394/vox-veritas-api/api/internal/config"
	"github.com/rkuma140394/vox-veritas-api/api/internal/detect"
	"github.com/rkuma140394/vox-veritas-api/api/internal/handle"
	"github.com/rkuma140394/vox-veritas-api/api/internal/httpserver"
	"github.com/rkuma140394/vox-veritas-api/api/internal/ratelimit"
	"github.com/rkuma140394/vox-veritas-api/api/internal/telemetry"
)

var version = "dev"

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, err := app.BuildGateway(cfg, logger)
	if err != nil {
		logger.Error("failed to build engines", "error", err)
		os.Exit(1)
	}

	rdb := app.OpenRedis(ctx, cfg, logger)
	if rdb != nil {
		defer rdb.Close()
	}
	audit, db := app.OpenAudit(ctx, cfg, logger)
	if db != nil {
		defer db.Close()
		go app.RunRetention(ctx, audit, cfg.AuditRetention, logger)
	}

	metrics := telemetry.NewMetrics()
	h := handle.New(gw, detect.NewNormalizer(cfg.MinAudioLength), handle.Options{
		Timeout:   cfg.RequestTimeout,
		BodyLimit: int64(cfg.BodyLimitMB) << 20,
		Verbose:   cfg.VerboseErrors,
		PromptDir: cfg.PromptDir,
		Engines:   gw.Engines().Names(),
		Version:   version,
		Recorder:  audit,
		Metrics:   metrics,
		Logger:    logger,
	})

	router := httpserver.NewRouter(h, httpserver.Deps{
		ClientKey:   cfg.ClientKey,
		CORSOrigins: cfg.CORSOrigins,
		Limiter:     ratelimit.NewLimiter(rdb, cfg.RateLimitRPM, logger),
		Metrics:     metrics,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("voxveritas starting",
		"version", version,
		"engines", gw.Engines().Names(),
		"max_retries", cfg.MaxRetries,
		"rate_limit_rpm", cfg.RateLimitRPM,
		"audit", audit.Enabled())

	if err := httpserver.Serve(ctx, srv, 15*time.Second, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	h.Wait()
	logger.Info("voxveritas stopped")
}
