// Package plugin provides an extensible plugin system for bulkpay.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"

	"github.com/xraph/bulkpay/credit"
	"github.com/xraph/bulkpay/paylist"
	"github.com/xraph/bulkpay/rail"
	"github.com/xraph/bulkpay/settle"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Credit hooks
// ──────────────────────────────────────────────────

// OnStoragePurchased is called after credits were bought.
type OnStoragePurchased interface {
	Plugin
	OnStoragePurchased(ctx context.Context, p *credit.Purchase) error
}

// ──────────────────────────────────────────────────
// Payment list lifecycle hooks
// ──────────────────────────────────────────────────

// OnListSubmitted is called when a new list is stored.
type OnListSubmitted interface {
	Plugin
	OnListSubmitted(ctx context.Context, l *paylist.List) error
}

// OnListApproved is called when a list is funded and approved. via names the
// funding path: "deposit", "ft_transfer_call" or "mt_transfer_call".
type OnListApproved interface {
	Plugin
	OnListApproved(ctx context.Context, l *paylist.List, via string) error
}

// OnListRejected is called when the submitter rejects a list.
type OnListRejected interface {
	Plugin
	OnListRejected(ctx context.Context, l *paylist.List) error
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnBatchProcessed is called after every batch that dispatched payments.
type OnBatchProcessed interface {
	Plugin
	OnBatchProcessed(ctx context.Context, b *settle.Batch) error
}

// OnListSettled is called once the last pending payment of a list is paid.
type OnListSettled interface {
	Plugin
	OnListSettled(ctx context.Context, l *paylist.List) error
}

// OnDispatchDropped is called when a rail instruction was abandoned after
// retries.
type OnDispatchDropped interface {
	Plugin
	OnDispatchDropped(ctx context.Context, ins rail.Instruction, err error) error
}
