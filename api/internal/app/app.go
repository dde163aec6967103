// Package app assembles the detection pipeline from configuration; both the
// HTTP server and the Telegram bot start from here.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rkuma140394/vox-veritas-api/api/internal/config"
	"github.com/rkuma140394/vox-veritas-api/api/internal/detect"
	"github.com/rkuma140394/vox-veritas-api/api/internal/detect/gemini"
	"github.com/rkuma140394/vox-veritas-api/api/internal/detect/gpt"
	"github.com/rkuma140394/vox-veritas-api/api/internal/ratelimit"
	"github.com/rkuma140394/vox-veritas-api/api/internal/store"
)

// BuildEngines registers every engine that has an API key. When the
// configured default has no key, the first available engine becomes default.
func BuildEngines(cfg *config.Config, logger *slog.Logger) (*detect.Engines, error) {
	var engs []detect.Engine
	if cfg.GeminiAPIKey != "" {
		g := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
		g.PromptDir = cfg.PromptDir
		g.SafetyOff = cfg.GeminiNoSafe
		engs = append(engs, g)
	}
	if cfg.OpenAIAPIKey != "" {
		o := gpt.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		o.PromptDir = cfg.PromptDir
		engs = append(engs, o)
	}
	if len(engs) == 0 {
		return nil, fmt.Errorf("no engine configured")
	}

	def := cfg.DefaultEngine
	names := make([]string, 0, len(engs))
	for _, e := range engs {
		names = append(names, e.Name())
	}
	if def == "openai" {
		def = "gpt"
	}
	if !slices.Contains(names, def) {
		logger.Warn("default engine has no API key, falling back", "wanted", def, "using", names[0])
		def = names[0]
	}
	return detect.NewEngines(def, engs...), nil
}

func BuildGateway(cfg *config.Config, logger *slog.Logger) (*detect.Gateway, error) {
	engines, err := BuildEngines(cfg, logger)
	if err != nil {
		return nil, err
	}
	return detect.NewGateway(engines, detect.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBaseDelay,
	}, logger), nil
}

// OpenRedis returns nil when rate limiting is off or Redis is unreachable.
func OpenRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) *redis.Client {
	if cfg.RedisURL == "" || cfg.RateLimitRPM <= 0 {
		return nil
	}
	rdb := ratelimit.NewClient(cfg.RedisURL)
	if err := ratelimit.Ping(ctx, rdb); err != nil {
		logger.Warn("redis not reachable (rate limiting disabled)", "error", err)
		_ = rdb.Close()
		return nil
	}
	logger.Info("redis connected", "rpm", cfg.RateLimitRPM)
	return rdb
}

// OpenAudit returns a disabled repo when DATABASE_URL is unset or the
// database is unreachable.
func OpenAudit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.DetectionRepo, *sql.DB) {
	if cfg.DatabaseURL == "" {
		return store.NewDetectionRepo(nil), nil
	}
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Warn("database not reachable (audit log disabled)", "error", err)
		return store.NewDetectionRepo(nil), nil
	}
	repo := store.NewDetectionRepo(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Warn("audit schema failed (audit log disabled)", "error", err)
		_ = db.Close()
		return store.NewDetectionRepo(nil), nil
	}
	logger.Info("db connected", "dsn", store.SafeDSNSummary(cfg.DatabaseURL))
	return repo, db
}

// RunRetention purges audit rows older than cfg.AuditRetention every hour
// until ctx is done.
func RunRetention(ctx context.Context, repo *store.DetectionRepo, age time.Duration, logger *slog.Logger) {
	if !repo.Enabled() || age <= 0 {
		return
	}
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		n, err := repo.PurgeOlderThan(ctx, age)
		if err != nil {
			logger.Warn("audit purge failed", "error", err)
		} else if n > 0 {
			logger.Info("audit purged", "rows", n, "older_than", age.String())
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
