// Package extension provides the Forge extension adapter for bulkpay.
//
// It implements the forge.Extension interface to integrate the settlement
// engine and its payout worker into a Forge application with DI
// registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.bulkpay" or "bulkpay" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/bulkpay"
	"github.com/xraph/bulkpay/store"
	"github.com/xraph/bulkpay/store/memory"
	"github.com/xraph/bulkpay/worker"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "bulkpay"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Bulk treasury payment settlement engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the bulkpay engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *bulkpay.Engine
	worker     *worker.Worker
	store      store.Store
	engineOpts []bulkpay.Option
}

// New creates a new bulkpay Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine.
// This is nil until Register is called.
func (e *Extension) Engine() *bulkpay.Engine { return e.engine }

// Worker returns the payout worker.
// This is nil until Register is called.
func (e *Extension) Worker() *worker.Worker { return e.worker }

// Config returns the resolved configuration.
func (e *Extension) Config() Config { return e.config }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine and worker, and registers them in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	e.engine = bulkpay.New(e.store, e.buildEngineOpts()...)
	e.worker = worker.New(e.engine,
		worker.WithPollInterval(e.config.PollInterval),
		worker.WithBudget(e.config.BatchBudget),
		worker.WithConcurrency(e.config.WorkerConcurrency),
	)
	if err := e.engine.Plugins().Register(e.worker); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*bulkpay.Engine, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}
	return vessel.Provide(fapp.Container(), func() (*worker.Worker, error) {
		return e.worker, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("bulkpay: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	if !e.config.DisableWorker {
		if err := e.worker.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.worker != nil {
		e.worker.Stop()
	}
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("bulkpay: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs bulkpay.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []bulkpay.Option {
	opts := make([]bulkpay.Option, 0, len(e.engineOpts)+2)

	if e.config.SystemIdentity != "" {
		opts = append(opts, bulkpay.WithSystemIdentity(e.config.SystemIdentity))
	}
	opts = append(opts, bulkpay.WithAutoMigrate(!e.config.DisableMigrate))

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("bulkpay: configuration is required but not found in config files; " +
				"ensure 'extensions.bulkpay' or 'bulkpay' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("bulkpay: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("disable_worker", e.config.DisableWorker),
		forge.F("system_identity", e.config.SystemIdentity),
		forge.F("poll_interval", e.config.PollInterval),
		forge.F("batch_budget", e.config.BatchBudget),
		forge.F("worker_concurrency", e.config.WorkerConcurrency),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.bulkpay", "bulkpay"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("bulkpay: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("bulkpay: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.BatchBudget == 0 {
		cfg.BatchBudget = defaults.BatchBudget
	}
	if cfg.WorkerConcurrency == 0 {
		cfg.WorkerConcurrency = defaults.WorkerConcurrency
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.DisableWorker {
		yamlConfig.DisableWorker = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.SystemIdentity == "" && programmaticConfig.SystemIdentity != "" {
		yamlConfig.SystemIdentity = programmaticConfig.SystemIdentity
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.PollInterval == 0 && programmaticConfig.PollInterval != 0 {
		yamlConfig.PollInterval = programmaticConfig.PollInterval
	}
	if yamlConfig.BatchBudget == 0 && programmaticConfig.BatchBudget != 0 {
		yamlConfig.BatchBudget = programmaticConfig.BatchBudget
	}
	if yamlConfig.WorkerConcurrency == 0 && programmaticConfig.WorkerConcurrency != 0 {
		yamlConfig.WorkerConcurrency = programmaticConfig.WorkerConcurrency
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
