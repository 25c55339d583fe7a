package bulkpay

import (
	"context"

	"github.com/xraph/bulkpay/paylist"
)

// ViewList returns a stored list.
func (e *Engine) ViewList(ctx context.Context, listID string) (*paylist.List, error) {
	return e.store.GetList(ctx, listID)
}

// ViewCredits returns the credit balance of account.
func (e *Engine) ViewCredits(ctx context.Context, account string) (uint64, error) {
	return e.Credits(ctx, account)
}

// ViewSettled returns the paid records of a list in stored order.
func (e *Engine) ViewSettled(ctx context.Context, listID string) ([]paylist.Settlement, error) {
	l, err := e.store.GetList(ctx, listID)
	if err != nil {
		return nil, err
	}
	return l.Settled(), nil
}

// ListLists returns stored lists matching opts.
func (e *Engine) ListLists(ctx context.Context, opts paylist.ListOpts) ([]*paylist.List, error) {
	return e.store.ListLists(ctx, opts)
}
