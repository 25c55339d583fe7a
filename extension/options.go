package extension

import (
	"time"

	"github.com/xraph/bulkpay"
	"github.com/xraph/bulkpay/plugin"
	"github.com/xraph/bulkpay/store"
)

// Option configures the bulkpay Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a bulkpay.Option through to the underlying engine.
func WithEngineOption(opt bulkpay.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an engine plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, bulkpay.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithDisableWorker prevents the payout worker from starting.
func WithDisableWorker() Option {
	return func(e *Extension) { e.config.DisableWorker = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithSystemIdentity sets the account allowed to submit on behalf of others.
func WithSystemIdentity(account string) Option {
	return func(e *Extension) { e.config.SystemIdentity = account }
}

// WithPollInterval sets how often the payout worker polls.
func WithPollInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.PollInterval = d }
}

// WithBatchBudget sets the budget of every worker payout batch.
func WithBatchBudget(units uint64) Option {
	return func(e *Extension) { e.config.BatchBudget = units }
}

// WithWorkerConcurrency bounds how many lists the worker pays out at once.
func WithWorkerConcurrency(n int) Option {
	return func(e *Extension) { e.config.WorkerConcurrency = n }
}
