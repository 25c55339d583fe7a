package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/bulkpay/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	c, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if c.API.Port != 8080 {
		t.Errorf("Port = %d, want 8080", c.API.Port)
	}
	if c.Chain.RPCURL != "http://localhost:3030" {
		t.Errorf("RPCURL = %q", c.Chain.RPCURL)
	}
	if c.Chain.ContractID != "bulk-payment.test.near" {
		t.Errorf("ContractID = %q", c.Chain.ContractID)
	}
	if c.Worker.CallerID != "test.near" {
		t.Errorf("CallerID = %q", c.Worker.CallerID)
	}
	if c.Worker.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %s", c.Worker.PollInterval)
	}
	if c.Worker.BatchBudget != 300 || c.Worker.Concurrency != 4 {
		t.Errorf("BatchBudget = %d, Concurrency = %d", c.Worker.BatchBudget, c.Worker.Concurrency)
	}
	if c.Level() != slog.LevelInfo {
		t.Errorf("Level = %s", c.Level())
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("API_PORT", "9000")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("BATCH_BUDGET", "1000")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.API.Port != 9000 {
		t.Errorf("Port = %d, want 9000", c.API.Port)
	}
	if c.Worker.PollInterval != 250*time.Millisecond {
		t.Errorf("PollInterval = %s", c.Worker.PollInterval)
	}
	if c.Worker.BatchBudget != 1000 {
		t.Errorf("BatchBudget = %d", c.Worker.BatchBudget)
	}
	if c.Level() != slog.LevelDebug {
		t.Errorf("Level = %s", c.Level())
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"API_PORT", "not-a-port"},
		{"POLL_INTERVAL", "soon"},
		{"BATCH_BUDGET", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := config.Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
