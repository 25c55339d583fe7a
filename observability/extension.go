// Package observability provides a metrics extension for bulkpay that records
// lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/bulkpay/credit"
	"github.com/xraph/bulkpay/paylist"
	"github.com/xraph/bulkpay/plugin"
	"github.com/xraph/bulkpay/rail"
	"github.com/xraph/bulkpay/settle"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnStoragePurchased = (*MetricsExtension)(nil)
	_ plugin.OnListSubmitted    = (*MetricsExtension)(nil)
	_ plugin.OnListApproved     = (*MetricsExtension)(nil)
	_ plugin.OnListRejected     = (*MetricsExtension)(nil)
	_ plugin.OnBatchProcessed   = (*MetricsExtension)(nil)
	_ plugin.OnListSettled      = (*MetricsExtension)(nil)
	_ plugin.OnDispatchDropped  = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a bulkpay plugin to automatically track settlement metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Credit metrics
	StoragePurchases Counter
	CreditsPurchased Counter

	// Payment list metrics
	ListSubmitted Counter
	ListApproved  Counter
	ListRejected  Counter
	ListSettled   Counter
	ListSize      Histogram

	// Settlement metrics
	BatchProcessed     Counter
	BatchInterrupted   Counter
	PaymentsDispatched Counter
	BatchBudgetUsed    Histogram
	DispatchDropped    Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Credit metrics
		StoragePurchases: factory.Counter("bulkpay.storage.purchases"),
		CreditsPurchased: factory.Counter("bulkpay.storage.credits"),

		// Payment list metrics
		ListSubmitted: factory.Counter("bulkpay.list.submitted"),
		ListApproved:  factory.Counter("bulkpay.list.approved"),
		ListRejected:  factory.Counter("bulkpay.list.rejected"),
		ListSettled:   factory.Counter("bulkpay.list.settled"),
		ListSize:      factory.Histogram("bulkpay.list.records"),

		// Settlement metrics
		BatchProcessed:     factory.Counter("bulkpay.batch.processed"),
		BatchInterrupted:   factory.Counter("bulkpay.batch.interrupted"),
		PaymentsDispatched: factory.Counter("bulkpay.payments.dispatched"),
		BatchBudgetUsed:    factory.Histogram("bulkpay.batch.budget_used"),
		DispatchDropped:    factory.Counter("bulkpay.dispatch.dropped"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// OnStoragePurchased implements plugin.OnStoragePurchased.
func (m *MetricsExtension) OnStoragePurchased(_ context.Context, p *credit.Purchase) error {
	m.StoragePurchases.Inc()
	m.CreditsPurchased.Add(float64(p.Records))
	return nil
}

// ──────────────────────────────────────────────────
// Payment list lifecycle hooks
// ──────────────────────────────────────────────────

// OnListSubmitted implements plugin.OnListSubmitted.
func (m *MetricsExtension) OnListSubmitted(_ context.Context, l *paylist.List) error {
	m.ListSubmitted.Inc()
	m.ListSize.Observe(float64(len(l.Payments)))
	return nil
}

// OnListApproved implements plugin.OnListApproved.
func (m *MetricsExtension) OnListApproved(_ context.Context, _ *paylist.List, _ string) error {
	m.ListApproved.Inc()
	return nil
}

// OnListRejected implements plugin.OnListRejected.
func (m *MetricsExtension) OnListRejected(_ context.Context, _ *paylist.List) error {
	m.ListRejected.Inc()
	return nil
}

// OnListSettled implements plugin.OnListSettled.
func (m *MetricsExtension) OnListSettled(_ context.Context, _ *paylist.List) error {
	m.ListSettled.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnBatchProcessed implements plugin.OnBatchProcessed.
func (m *MetricsExtension) OnBatchProcessed(_ context.Context, b *settle.Batch) error {
	m.BatchProcessed.Inc()
	if b.Outcome == settle.OutcomeInterrupted {
		m.BatchInterrupted.Inc()
	}
	m.PaymentsDispatched.Add(float64(b.Dispatched))
	m.BatchBudgetUsed.Observe(float64(b.Used))
	return nil
}

// OnDispatchDropped implements plugin.OnDispatchDropped.
func (m *MetricsExtension) OnDispatchDropped(_ context.Context, _ rail.Instruction, _ error) error {
	m.DispatchDropped.Inc()
	return nil
}
