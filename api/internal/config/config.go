package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// ClientKey is the shared secret expected in x-api-key.
	ClientKey string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiNoSafe  bool
	OpenAIAPIKey  string
	OpenAIModel   string
	DefaultEngine string
	PromptDir     string

	MinAudioLength int
	MaxRetries     int
	RetryBaseDelay time.Duration
	RequestTimeout time.Duration
	BodyLimitMB    int
	VerboseErrors  bool
	CORSOrigins    []string

	RedisURL       string
	RateLimitRPM   int
	DatabaseURL    string
	AuditRetention time.Duration

	TelegramBotToken string
	WebhookURL       string
}

// Load reads .env (if present) and the process environment.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	cfg := &Config{
		Port:      getEnv("PORT", "3000"),
		ClientKey: getEnv("CLIENT_KEY", "my_voice_key_123"),

		GeminiAPIKey:  firstEnv("GEMINI_API_KEY", "API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiNoSafe:  getBool("GEMINI_SAFETY_OFF", false),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-audio-preview"),
		DefaultEngine: getEnv("DEFAULT_ENGINE", "gemini"),
		PromptDir:     os.Getenv("PROMPT_DIR"),

		MinAudioLength: getInt("MIN_AUDIO_LENGTH", 100),
		MaxRetries:     getInt("MAX_RETRIES", 2),
		RetryBaseDelay: getDuration("RETRY_BASE_DELAY", time.Second),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 120*time.Second),
		BodyLimitMB:    getInt("BODY_LIMIT_MB", 50),
		VerboseErrors:  getBool("VERBOSE_ERRORS", false),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),

		RedisURL:       os.Getenv("REDIS_URL"),
		RateLimitRPM:   getInt("RATE_LIMIT_RPM", 0),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AuditRetention: getDuration("AUDIT_RETENTION", 30*24*time.Hour),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		WebhookURL:       os.Getenv("WEBHOOK_URL"),
	}
	return cfg, cfg.Validate()
}

// Validate ensures at least one engine is usable and numbers are sane.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.ClientKey) == "" {
		problems = append(problems, "CLIENT_KEY is empty")
	}
	if c.GeminiAPIKey == "" && c.OpenAIAPIKey == "" {
		problems = append(problems, "set GEMINI_API_KEY (or API_KEY) and/or OPENAI_API_KEY")
	}
	if c.MinAudioLength <= 0 {
		problems = append(problems, "MIN_AUDIO_LENGTH must be > 0")
	}
	if c.MaxRetries < 0 {
		problems = append(problems, "MAX_RETRIES must be >= 0")
	}
	if c.BodyLimitMB <= 0 {
		problems = append(problems, "BODY_LIMIT_MB must be > 0")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func getInt(k string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k))); err == nil {
		return v
	}
	return def
}

func getBool(k string, def bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(k))); err == nil {
		return v
	}
	return def
}

// getDuration accepts Go durations ("1500ms") or plain seconds ("2").
func getDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(n * float64(time.Second))
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
