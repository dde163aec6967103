package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rkuma140394/vox-veritas-api/api/internal/app"
	"github.com/rkuma140394/vox-veritas-api/api/internal/config"
	"github.com/rkuma140394/vox-veritas-api/api/internal/detect"
	"github.com/rkuma140394/vox-veritas-api/api/internal/httpserver"
	"github.com/rkuma140394/vox-veritas-api/api/internal/telegram"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.TelegramBotToken == "" {
		logger.Error("TELEGRAM_BOT_TOKEN is not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, err := app.BuildGateway(cfg, logger)
	if err != nil {
		logger.Error("failed to build engines", "error", err)
		os.Exit(1)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Error("telegram login failed", "error", err)
		os.Exit(1)
	}
	bot.Debug = false

	r := &telegram.Router{
		Bot:        bot,
		Classifier: gw,
		Normalizer: detect.NewNormalizer(cfg.MinAudioLength),
		Engines:    gw.Engines().Names(),
		Timeout:    cfg.RequestTimeout,
		MaxBytes:   cfg.BodyLimitMB << 20,
		Log:        logger,
	}

	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	if base := strings.TrimSpace(cfg.WebhookURL); base != "" {
		path := telegram.WebhookPath(bot.Token)
		wh, err := tgbotapi.NewWebhook(strings.TrimRight(base, "/") + path)
		if err != nil {
			logger.Error("webhook config", "error", err)
			os.Exit(1)
		}
		wh.DropPendingUpdates = true
		if _, err := bot.Request(wh); err != nil {
			logger.Error("set webhook", "error", err)
			os.Exit(1)
		}
		mux.Post(path, telegram.WebhookHandler(bot.HandleUpdate, r.Dispatch, logger))
		logger.Info("telegram webhook mode", "bot", bot.Self.UserName)
	} else {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			logger.Warn("delete webhook", "error", err)
		}
		go telegram.RunPolling(ctx, bot, r.Dispatch, logger)
		logger.Info("telegram polling mode", "bot", bot.Self.UserName)
	}

	srv := &http.Server{Addr: "0.0.0.0:" + cfg.Port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	if err := httpserver.Serve(ctx, srv, 10*time.Second, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	r.Wait()
	logger.Info("bot stopped")
}
