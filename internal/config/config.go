// Package config loads application configuration from the process environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config is the root application configuration.
type Config struct {
	Log      LogConfig
	Telegram TelegramConfig
	Postgres PostgresConfig
	Bot      BotConfig
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// TelegramConfig holds the bot credential, the owner account, and the
// outbound call timeout.
type TelegramConfig struct {
	BotToken       string        `env:"TELEGRAM_BOT_TOKEN,required,notEmpty"`
	OwnerID        string        `env:"TELEGRAM_BOT_OWNER_ID,required,notEmpty"`
	RequestTimeout time.Duration `env:"TELEGRAM_REQUEST_TIMEOUT" envDefault:"10s"`
}

// PostgresConfig holds the ledger database connection settings.
type PostgresConfig struct {
	Host     string `env:"PG_HOST" envDefault:"127.0.0.1"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER" envDefault:"postgres"`
	Password string `env:"PG_PASSWORD" envDefault:""`
	Database string `env:"PG_DATABASE" envDefault:"builderbot"`
	SSLMode  string `env:"PG_SSLMODE" envDefault:"disable"`
}

// BotConfig holds dispatcher tunables.
type BotConfig struct {
	FanoutLimit int `env:"BOT_FANOUT_LIMIT" envDefault:"4"`
}

// Load reads configuration from the environment. A local .env file is
// applied first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Bot.FanoutLimit < 1 {
		cfg.Bot.FanoutLimit = 1
	}
	return cfg, nil
}
