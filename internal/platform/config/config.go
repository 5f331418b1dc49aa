// Package config loads application configuration from the environment,
// with optional .env file support for local development.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`

	// Admin / moderation bot
	BotToken     string  `env:"BOT_TOKEN"`
	AdminIDs     []int64 `env:"ADMIN_IDS" envSeparator:","`
	TargetChatID int64   `env:"TARGET_CHAT_ID"`
	AdminChatID  int64   `env:"ADMIN_CHAT_ID"`

	// MTProto reader
	TGAPIID       int    `env:"TG_API_ID"`
	TGAPIHash     string `env:"TG_API_HASH"`
	TGPhone       string `env:"TG_PHONE"`
	TG2FAPassword string `env:"TG_2FA_PASSWORD"`
	TGSessionPath string `env:"TG_SESSION_PATH" envDefault:"./tg.session"`

	// LLM collaborator
	LLMBaseURL    string `env:"LLM_BASE_URL"`
	LLMAPIKey     string `env:"LLM_API_KEY"`
	LLMModel      string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMMaxRetries int    `env:"LLM_MAX_RETRIES" envDefault:"2"`
	RateLimitRPS  int    `env:"RATE_LIMIT_RPS" envDefault:"1"`

	// Canonicalization
	DedupWindowDays int     `env:"DEDUP_WINDOW_DAYS" envDefault:"7"`
	SimThreshold    float64 `env:"SIM_THRESHOLD" envDefault:"0.85"`

	// Digest
	DigestTimezone      string `env:"DIGEST_TIMEZONE" envDefault:"UTC"`
	MorningTime         string `env:"MORNING_TIME" envDefault:"09:00"`
	EveningTime         string `env:"EVENING_TIME" envDefault:"19:00"`
	MaxItemsPerDigest   int    `env:"MAX_ITEMS_PER_DIGEST" envDefault:"10"`
	MaxItemsPerCategory int    `env:"MAX_ITEMS_PER_CATEGORY" envDefault:"3"`

	AutoPublishAfter time.Duration `env:"AUTO_PUBLISH_AFTER" envDefault:"120m"`

	// Loops
	IngestInterval     time.Duration `env:"INGEST_INTERVAL" envDefault:"15m"`
	WorkerPollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"1m"`
	SchedulerTick      time.Duration `env:"SCHEDULER_TICK" envDefault:"1m"`
	ReaderFetchLimit   int           `env:"READER_FETCH_LIMIT" envDefault:"200"`

	// Link previews for digest citations
	LinkPreviewEnabled bool          `env:"LINK_PREVIEW_ENABLED" envDefault:"false"`
	WebFetchTimeout    time.Duration `env:"WEB_FETCH_TIMEOUT" envDefault:"30s"`

	HealthPort int `env:"HEALTH_PORT" envDefault:"8080"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
