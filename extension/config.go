package extension

import "time"

// Config holds the bulkpay extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.bulkpay" or "bulkpay" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// DisableWorker prevents the payout worker from starting.
	DisableWorker bool `json:"disable_worker" mapstructure:"disable_worker" yaml:"disable_worker"`

	// SystemIdentity is the account allowed to submit lists on behalf of
	// other submitters.
	SystemIdentity string `json:"system_identity" mapstructure:"system_identity" yaml:"system_identity"`

	// PollInterval is how often the payout worker visits tracked lists
	// (default: 5s).
	PollInterval time.Duration `json:"poll_interval" mapstructure:"poll_interval" yaml:"poll_interval"`

	// BatchBudget is the execution budget of every payout batch the worker
	// runs (default: 300).
	BatchBudget uint64 `json:"batch_budget" mapstructure:"batch_budget" yaml:"batch_budget"`

	// WorkerConcurrency bounds how many lists are paid out at once
	// (default: 4).
	WorkerConcurrency int `json:"worker_concurrency" mapstructure:"worker_concurrency" yaml:"worker_concurrency"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:      5 * time.Second,
		BatchBudget:       300,
		WorkerConcurrency: 4,
	}
}
