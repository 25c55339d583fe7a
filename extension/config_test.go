package extension

import (
	"testing"
	"time"
)

func TestMergeWithDefaults(t *testing.T) {
	got := mergeWithDefaults(Config{BatchBudget: 500})
	if got.BatchBudget != 500 {
		t.Errorf("BatchBudget = %d, want 500", got.BatchBudget)
	}
	if got.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %s, want 5s", got.PollInterval)
	}
	if got.WorkerConcurrency != 4 {
		t.Errorf("WorkerConcurrency = %d, want 4", got.WorkerConcurrency)
	}
}

func TestMergeConfigurations(t *testing.T) {
	yaml := Config{SystemIdentity: "from-file.near", PollInterval: time.Second}
	prog := Config{
		SystemIdentity:    "from-code.near",
		PollInterval:      time.Minute,
		WorkerConcurrency: 8,
		DisableWorker:     true,
	}

	got := mergeConfigurations(yaml, prog)

	if got.SystemIdentity != "from-file.near" {
		t.Errorf("SystemIdentity = %q, file value should win", got.SystemIdentity)
	}
	if got.PollInterval != time.Second {
		t.Errorf("PollInterval = %s, file value should win", got.PollInterval)
	}
	if got.WorkerConcurrency != 8 {
		t.Errorf("WorkerConcurrency = %d, programmatic value should fill the gap", got.WorkerConcurrency)
	}
	if !got.DisableWorker {
		t.Error("programmatic DisableWorker should be kept")
	}
	if got.BatchBudget != 300 {
		t.Errorf("BatchBudget = %d, want default 300", got.BatchBudget)
	}
}
