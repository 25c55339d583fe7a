// Package worker drives settlement of approved payment lists in the
// background.
//
// A Worker keeps a set of tracked list ids and, on every poll, calls
// PayoutBatch for each approved list that still has pending payments. Lists
// are dropped from the set once they are rejected or fully paid.
package worker

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v2"
	"github.com/sourcegraph/conc/iter"

	"github.com/xraph/bulkpay/paylist"
	"github.com/xraph/bulkpay/plugin"
)

// Defaults applied by New.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultBudget       = 300
	DefaultConcurrency  = 4
)

// Engine is the subset of the settlement engine the worker drives.
type Engine interface {
	ViewList(ctx context.Context, listID string) (*paylist.List, error)
	PayoutBatch(ctx context.Context, listID string, budget uint64) (uint64, error)
	ListLists(ctx context.Context, opts paylist.ListOpts) ([]*paylist.List, error)
}

var (
	_ plugin.Plugin         = (*Worker)(nil)
	_ plugin.OnListApproved = (*Worker)(nil)
)

// Worker polls tracked lists and pays them out in batches.
type Worker struct {
	engine      Engine
	logger      *slog.Logger
	interval    time.Duration
	budget      uint64
	concurrency int

	tracked *xsync.MapOf[string, struct{}]

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

// WithPollInterval sets the time between polls.
func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithBudget sets the execution budget passed to every PayoutBatch call.
func WithBudget(units uint64) Option {
	return func(w *Worker) {
		if units > 0 {
			w.budget = units
		}
	}
}

// WithConcurrency bounds how many lists are processed at once.
func WithConcurrency(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// New creates a Worker. Call Start to begin polling.
func New(engine Engine, opts ...Option) *Worker {
	w := &Worker{
		engine:      engine,
		logger:      slog.Default(),
		interval:    DefaultPollInterval,
		budget:      DefaultBudget,
		concurrency: DefaultConcurrency,
		tracked:     xsync.NewMapOf[struct{}](),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Track adds a list to the polling set.
func (w *Worker) Track(listID string) {
	if _, loaded := w.tracked.LoadOrStore(listID, struct{}{}); !loaded {
		w.logger.Debug("tracking payment list", "list_id", listID)
	}
}

// Name implements plugin.Plugin.
func (w *Worker) Name() string { return "payout-worker" }

// OnListApproved tracks every approved list, whichever path submitted it.
// Register the worker with the engine's plugin registry to receive it.
func (w *Worker) OnListApproved(_ context.Context, l *paylist.List, _ string) error {
	w.Track(l.ID)
	return nil
}

// Untrack removes a list from the polling set.
func (w *Worker) Untrack(listID string) {
	w.tracked.Delete(listID)
}

// Tracked returns the tracked list ids in sorted order.
func (w *Worker) Tracked() []string {
	ids := make([]string, 0, w.tracked.Size())
	w.tracked.Range(func(id string, _ struct{}) bool {
		ids = append(ids, id)
		return true
	})
	sort.Strings(ids)
	return ids
}

// Resume tracks every stored list that is approved and not fully paid, so a
// restarted process picks up where it stopped.
func (w *Worker) Resume(ctx context.Context) error {
	lists, err := w.engine.ListLists(ctx, paylist.ListOpts{Status: paylist.StatusApproved})
	if err != nil {
		return err
	}
	for _, l := range lists {
		if l.PendingCount() > 0 {
			w.Track(l.ID)
		}
	}
	return nil
}

// Start resumes unfinished lists and begins polling until Stop is called or
// ctx is done.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if err := w.Resume(ctx); err != nil {
		return err
	}

	w.running = true
	w.stopCh = make(chan struct{})
	w.wg.Add(1)
	go w.run(ctx, w.stopCh)

	w.logger.Info("payout worker started",
		"poll_interval", w.interval,
		"budget", w.budget,
		"concurrency", w.concurrency,
		"tracked", w.tracked.Size(),
	)
	return nil
}

// Stop ends polling and waits for the current poll to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info("payout worker stopped")
}

func (w *Worker) run(ctx context.Context, stop <-chan struct{}) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll processes every tracked list once.
func (w *Worker) Poll(ctx context.Context) {
	ids := w.Tracked()
	if len(ids) == 0 {
		return
	}

	it := iter.Iterator[string]{MaxGoroutines: w.concurrency}
	it.ForEach(ids, func(listID *string) {
		w.process(ctx, *listID)
	})
}

func (w *Worker) process(ctx context.Context, listID string) {
	l, err := w.engine.ViewList(ctx, listID)
	if err != nil {
		w.logger.Error("failed to load payment list", "list_id", listID, "error", err)
		return
	}

	switch l.Status {
	case paylist.StatusPending:
		return
	case paylist.StatusRejected:
		w.logger.Info("payment list rejected, untracking", "list_id", listID)
		w.Untrack(listID)
		return
	}

	if l.PendingCount() == 0 {
		w.Untrack(listID)
		return
	}

	remaining, err := w.engine.PayoutBatch(ctx, listID, w.budget)
	if err != nil {
		w.logger.Error("payout batch failed", "list_id", listID, "error", err)
		return
	}

	w.logger.Debug("payout batch completed", "list_id", listID, "remaining", remaining)
	if remaining == 0 {
		w.logger.Info("payment list fully settled", "list_id", listID)
		w.Untrack(listID)
	}
}
