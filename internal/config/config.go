// Package config loads the bulkpay-api process configuration from the
// environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config is the process configuration.
type Config struct {
	API struct {
		Port int `env:"API_PORT" envDefault:"8080"`
	}
	Chain struct {
		RPCURL     string `env:"NEAR_RPC_URL" envDefault:"http://localhost:3030"`
		ContractID string `env:"BULK_PAYMENT_CONTRACT_ID" envDefault:"bulk-payment.test.near"`
	}
	Worker struct {
		CallerID     string        `env:"WORKER_CALLER_ID" envDefault:"test.near"`
		PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`
		BatchBudget  uint64        `env:"BATCH_BUDGET" envDefault:"300"`
		Concurrency  int           `env:"WORKER_CONCURRENCY" envDefault:"4"`
	}
	App struct {
		LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`
	}
}

// Load parses the environment.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if c.Worker.BatchBudget == 0 {
		return Config{}, fmt.Errorf("config: BATCH_BUDGET must be greater than zero")
	}
	return c, nil
}

// Level maps LOG_LEVEL to a slog level. Unknown values fall back to info.
func (c Config) Level() slog.Level {
	switch strings.ToUpper(c.App.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
