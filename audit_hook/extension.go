// Package audithook bridges bulkpay lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/bulkpay/credit"
	"github.com/xraph/bulkpay/paylist"
	"github.com/xraph/bulkpay/plugin"
	"github.com/xraph/bulkpay/rail"
	"github.com/xraph/bulkpay/settle"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnStoragePurchased = (*Extension)(nil)
	_ plugin.OnListSubmitted    = (*Extension)(nil)
	_ plugin.OnListApproved     = (*Extension)(nil)
	_ plugin.OnListRejected     = (*Extension)(nil)
	_ plugin.OnBatchProcessed   = (*Extension)(nil)
	_ plugin.OnListSettled      = (*Extension)(nil)
	_ plugin.OnDispatchDropped  = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges bulkpay lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Credit hooks
// ──────────────────────────────────────────────────

// OnStoragePurchased implements plugin.OnStoragePurchased.
func (e *Extension) OnStoragePurchased(ctx context.Context, p *credit.Purchase) error {
	return e.record(ctx, ActionStoragePurchased, SeverityInfo, OutcomeSuccess,
		ResourceCredit, p.ID.String(), CategoryBilling, nil,
		"buyer", p.Buyer,
		"beneficiary", p.Beneficiary,
		"records", p.Records,
		"cost", p.Cost.String(),
		"balance", p.Balance,
	)
}

// ──────────────────────────────────────────────────
// Payment list lifecycle hooks
// ──────────────────────────────────────────────────

// OnListSubmitted implements plugin.OnListSubmitted.
func (e *Extension) OnListSubmitted(ctx context.Context, l *paylist.List) error {
	return e.record(ctx, ActionListSubmitted, SeverityInfo, OutcomeSuccess,
		ResourceList, l.ID, CategoryGovernance, nil,
		"submitter", l.Submitter,
		"token_id", l.TokenID,
		"records", len(l.Payments),
	)
}

// OnListApproved implements plugin.OnListApproved.
func (e *Extension) OnListApproved(ctx context.Context, l *paylist.List, via string) error {
	total, err := l.Total()
	if err != nil {
		return e.record(ctx, ActionListApproved, SeverityError, OutcomeFailure,
			ResourceList, l.ID, CategoryGovernance, err,
			"via", via,
		)
	}
	return e.record(ctx, ActionListApproved, SeverityInfo, OutcomeSuccess,
		ResourceList, l.ID, CategoryGovernance, nil,
		"via", via,
		"token_id", l.TokenID,
		"total", total.String(),
	)
}

// OnListRejected implements plugin.OnListRejected.
func (e *Extension) OnListRejected(ctx context.Context, l *paylist.List) error {
	return e.record(ctx, ActionListRejected, SeverityInfo, OutcomeSuccess,
		ResourceList, l.ID, CategoryGovernance, nil,
		"submitter", l.Submitter,
	)
}

// OnListSettled implements plugin.OnListSettled.
func (e *Extension) OnListSettled(ctx context.Context, l *paylist.List) error {
	return e.record(ctx, ActionListSettled, SeverityInfo, OutcomeSuccess,
		ResourceList, l.ID, CategorySettlement, nil,
		"records", len(l.Payments),
	)
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnBatchProcessed implements plugin.OnBatchProcessed. An interrupted batch
// is recorded as a partial outcome.
func (e *Extension) OnBatchProcessed(ctx context.Context, b *settle.Batch) error {
	severity, outcome := SeverityInfo, OutcomeSuccess
	var err error
	if b.Outcome == settle.OutcomeInterrupted {
		severity, outcome = SeverityWarning, OutcomePartial
		err = errors.New(b.Error)
	}
	return e.record(ctx, ActionBatchProcessed, severity, outcome,
		ResourceBatch, b.ID.String(), CategorySettlement, err,
		"list_id", b.ListID,
		"dispatched", b.Dispatched,
		"remaining", b.Remaining,
		"used", b.Used,
		"marker", b.Marker,
	)
}

// OnDispatchDropped implements plugin.OnDispatchDropped.
func (e *Extension) OnDispatchDropped(ctx context.Context, ins rail.Instruction, dropErr error) error {
	return e.record(ctx, ActionDispatchDropped, SeverityCritical, OutcomeFailure,
		ResourceDispatch, ins.ID.String(), CategorySettlement, dropErr,
		"kind", string(ins.Kind),
		"receiver", ins.Receiver,
		"recipient", ins.Recipient,
		"amount", ins.Amount.String(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
