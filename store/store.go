package store

import (
	"context"

	"github.com/xraph/bulkpay/paylist"
)

// Store is the unified storage interface for all bulkpay entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Payment list methods
	CreateList(ctx context.Context, l *paylist.List) error
	GetList(ctx context.Context, listID string) (*paylist.List, error)
	UpdateList(ctx context.Context, l *paylist.List) error
	ListLists(ctx context.Context, opts paylist.ListOpts) ([]*paylist.List, error)

	// Credit methods
	GetCredits(ctx context.Context, account string) (uint64, error)
	AddCredits(ctx context.Context, account string, n uint64) (uint64, error)
	DebitCredits(ctx context.Context, account string, n uint64) (uint64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
