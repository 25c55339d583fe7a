package bulkpay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v2"

	"github.com/xraph/bulkpay/plugin"
	"github.com/xraph/bulkpay/rail"
	"github.com/xraph/bulkpay/settle"
	"github.com/xraph/bulkpay/store"
)

// Engine is the bulk payment settlement engine.
//
// All mutations of one list are serialized by a per-list lock, and all
// credit changes of one account by a per-account lock, so an Engine is safe
// for concurrent use. Several engines sharing a store rely on the store's
// conditional credit debit instead.
type Engine struct {
	store      store.Store
	plugins    *plugin.Registry
	logger     *slog.Logger
	dispatcher rail.Dispatcher
	sequencer  settle.Sequencer
	clock      func() time.Time

	// systemIdentity may submit lists on behalf of any submitter.
	systemIdentity string
	autoMigrate    bool

	listLocks   *xsync.MapOf[string, *sync.Mutex]
	creditLocks *xsync.MapOf[string, *sync.Mutex]
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:       s,
		plugins:     plugin.NewRegistry(),
		logger:      slog.Default(),
		sequencer:   settle.NewCounter(0),
		clock:       func() time.Time { return time.Now().UTC() },
		autoMigrate: true,
		listLocks:   xsync.NewMapOf[*sync.Mutex](),
		creditLocks: xsync.NewMapOf[*sync.Mutex](),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.dispatcher == nil {
		e.dispatcher = rail.NewRecorder()
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithDispatcher sets the rail dispatcher used by PayoutBatch. Without one
// the engine records instructions in memory and sends nothing.
func WithDispatcher(d rail.Dispatcher) Option {
	return func(e *Engine) {
		e.dispatcher = d
	}
}

// WithSequencer sets the source of settlement markers.
func WithSequencer(s settle.Sequencer) Option {
	return func(e *Engine) {
		e.sequencer = s
	}
}

// WithSystemIdentity sets the account allowed to submit on behalf of others.
func WithSystemIdentity(account string) Option {
	return func(e *Engine) {
		e.systemIdentity = account
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.clock = now
	}
}

// WithAutoMigrate controls whether Start runs store migrations (default true).
func WithAutoMigrate(enabled bool) Option {
	return func(e *Engine) {
		e.autoMigrate = enabled
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if e.autoMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return err
		}
	}

	e.plugins.EmitInit(ctx, e)

	if _, ok := e.dispatcher.(*rail.Recorder); ok {
		e.logger.Warn("no rail dispatcher configured, payments are only recorded")
	}
	e.logger.Info("bulkpay engine started",
		"system_identity", e.systemIdentity,
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Dispatcher returns the rail dispatcher.
func (e *Engine) Dispatcher() rail.Dispatcher { return e.dispatcher }

// SystemIdentity returns the account allowed to submit on behalf of others.
func (e *Engine) SystemIdentity() string { return e.systemIdentity }

func (e *Engine) lockList(listID string) func() {
	mu, _ := e.listLocks.LoadOrStore(listID, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}

func (e *Engine) lockCredits(account string) func() {
	mu, _ := e.creditLocks.LoadOrStore(account, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}
