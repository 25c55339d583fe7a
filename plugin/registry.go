package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/bulkpay/credit"
	"github.com/xraph/bulkpay/paylist"
	"github.com/xraph/bulkpay/rail"
	"github.com/xraph/bulkpay/settle"
)

// DefaultTimeout bounds every hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit             []OnInit
	onShutdown         []OnShutdown
	onStoragePurchased []OnStoragePurchased
	onListSubmitted    []OnListSubmitted
	onListApproved     []OnListApproved
	onListRejected     []OnListRejected
	onBatchProcessed   []OnBatchProcessed
	onListSettled      []OnListSettled
	onDispatchDropped  []OnDispatchDropped
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets how long a single hook may run.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnStoragePurchased); ok {
		r.onStoragePurchased = append(r.onStoragePurchased, v)
	}
	if v, ok := p.(OnListSubmitted); ok {
		r.onListSubmitted = append(r.onListSubmitted, v)
	}
	if v, ok := p.(OnListApproved); ok {
		r.onListApproved = append(r.onListApproved, v)
	}
	if v, ok := p.(OnListRejected); ok {
		r.onListRejected = append(r.onListRejected, v)
	}
	if v, ok := p.(OnBatchProcessed); ok {
		r.onBatchProcessed = append(r.onBatchProcessed, v)
	}
	if v, ok := p.(OnListSettled); ok {
		r.onListSettled = append(r.onListSettled, v)
	}
	if v, ok := p.(OnDispatchDropped); ok {
		r.onDispatchDropped = append(r.onDispatchDropped, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	typ  reflect.Type
	name string
}{
	{reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit"},
	{reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown"},
	{reflect.TypeOf((*OnStoragePurchased)(nil)).Elem(), "OnStoragePurchased"},
	{reflect.TypeOf((*OnListSubmitted)(nil)).Elem(), "OnListSubmitted"},
	{reflect.TypeOf((*OnListApproved)(nil)).Elem(), "OnListApproved"},
	{reflect.TypeOf((*OnListRejected)(nil)).Elem(), "OnListRejected"},
	{reflect.TypeOf((*OnBatchProcessed)(nil)).Elem(), "OnBatchProcessed"},
	{reflect.TypeOf((*OnListSettled)(nil)).Elem(), "OnListSettled"},
	{reflect.TypeOf((*OnDispatchDropped)(nil)).Elem(), "OnDispatchDropped"},
}

// implementedInterfaces returns the hook interfaces implemented by p.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			interfaces = append(interfaces, h.name)
		}
	}
	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit runs call for every hook in hooks, logging failures.
func emit[H Plugin](ctx context.Context, r *Registry, event string, hooks []H, call func(H) error) {
	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return call(h)
		}); err != nil {
			r.logger.Warn("plugin "+event+" failed",
				"plugin", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	emit(ctx, r, "OnInit", plugins, func(p OnInit) error { return p.OnInit(ctx, engine) })
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	emit(ctx, r, "OnShutdown", plugins, func(p OnShutdown) error { return p.OnShutdown(ctx) })
}

// EmitStoragePurchased emits a storage purchased event.
func (r *Registry) EmitStoragePurchased(ctx context.Context, purchase *credit.Purchase) {
	r.mu.RLock()
	plugins := r.onStoragePurchased
	r.mu.RUnlock()

	emit(ctx, r, "OnStoragePurchased", plugins, func(p OnStoragePurchased) error {
		return p.OnStoragePurchased(ctx, purchase)
	})
}

// EmitListSubmitted emits a list submitted event.
func (r *Registry) EmitListSubmitted(ctx context.Context, l *paylist.List) {
	r.mu.RLock()
	plugins := r.onListSubmitted
	r.mu.RUnlock()

	emit(ctx, r, "OnListSubmitted", plugins, func(p OnListSubmitted) error {
		return p.OnListSubmitted(ctx, l)
	})
}

// EmitListApproved emits a list approved event.
func (r *Registry) EmitListApproved(ctx context.Context, l *paylist.List, via string) {
	r.mu.RLock()
	plugins := r.onListApproved
	r.mu.RUnlock()

	emit(ctx, r, "OnListApproved", plugins, func(p OnListApproved) error {
		return p.OnListApproved(ctx, l, via)
	})
}

// EmitListRejected emits a list rejected event.
func (r *Registry) EmitListRejected(ctx context.Context, l *paylist.List) {
	r.mu.RLock()
	plugins := r.onListRejected
	r.mu.RUnlock()

	emit(ctx, r, "OnListRejected", plugins, func(p OnListRejected) error {
		return p.OnListRejected(ctx, l)
	})
}

// EmitBatchProcessed emits a batch processed event.
func (r *Registry) EmitBatchProcessed(ctx context.Context, b *settle.Batch) {
	r.mu.RLock()
	plugins := r.onBatchProcessed
	r.mu.RUnlock()

	emit(ctx, r, "OnBatchProcessed", plugins, func(p OnBatchProcessed) error {
		return p.OnBatchProcessed(ctx, b)
	})
}

// EmitListSettled emits a list settled event.
func (r *Registry) EmitListSettled(ctx context.Context, l *paylist.List) {
	r.mu.RLock()
	plugins := r.onListSettled
	r.mu.RUnlock()

	emit(ctx, r, "OnListSettled", plugins, func(p OnListSettled) error {
		return p.OnListSettled(ctx, l)
	})
}

// EmitDispatchDropped emits a dispatch dropped event.
func (r *Registry) EmitDispatchDropped(ctx context.Context, ins rail.Instruction, dropErr error) {
	r.mu.RLock()
	plugins := r.onDispatchDropped
	r.mu.RUnlock()

	emit(ctx, r, "OnDispatchDropped", plugins, func(p OnDispatchDropped) error {
		return p.OnDispatchDropped(ctx, ins, dropErr)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the settlement pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
