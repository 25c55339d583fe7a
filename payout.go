package bulkpay

import (
	"context"
	"fmt"

	"github.com/xraph/bulkpay/paylist"
	"github.com/xraph/bulkpay/settle"
)

// PayoutBatch dispatches as many pending payments of an approved list as
// budget allows and returns how many remain pending.
//
// Selected payments are saved as paid before any of them is dispatched. A
// payment that could not be dispatched is saved back as pending; if that
// second write fails it stays paid and is never sent twice.
//
// A list with nothing pending returns 0 without dispatching, writing or
// emitting anything, so callers may invoke it again after completion.
func (e *Engine) PayoutBatch(ctx context.Context, listID string, budget uint64) (uint64, error) {
	unlock := e.lockList(listID)
	defer unlock()

	l, err := e.store.GetList(ctx, listID)
	if err != nil {
		return 0, err
	}
	if l.Status != paylist.StatusApproved {
		return 0, &StateError{ListID: listID, Op: "pay out", Status: l.Status}
	}
	if l.PendingCount() == 0 {
		return 0, nil
	}

	marker, err := e.sequencer.Next(ctx)
	if err != nil {
		return 0, fmt.Errorf("bulkpay: next settlement marker: %w", err)
	}

	res, err := settle.Plan(l, budget, marker)
	if err != nil {
		return 0, err
	}

	// Persist before dispatching so a failed write never leaves sent
	// payments pending.
	res.List.UpdatedAt = e.clock()
	if err := e.store.UpdateList(ctx, res.List); err != nil {
		return 0, err
	}

	// The restoring writes below must survive a cancelled ctx.
	planned := len(res.Payouts)
	if err := res.Dispatch(ctx, e.dispatcher); err != nil {
		if rerr := e.store.UpdateList(context.WithoutCancel(ctx), l); rerr != nil {
			e.logger.Error("payout batch left undispatched payments paid",
				"list_id", listID,
				"count", planned,
				"error", rerr,
			)
		}
		return 0, err
	}
	if res.Err != nil {
		res.List.UpdatedAt = e.clock()
		if err := e.store.UpdateList(context.WithoutCancel(ctx), res.List); err != nil {
			e.logger.Error("payout batch left undispatched payments paid",
				"list_id", listID,
				"count", planned-res.Dispatched,
				"error", err,
			)
			return 0, fmt.Errorf("bulkpay: restore undispatched payments: %w", err)
		}
	}

	if res.Err != nil {
		e.logger.Warn("payout batch interrupted by dispatch failure",
			"list_id", listID,
			"dispatched", res.Dispatched,
			"remaining", res.Remaining,
			"error", res.Err,
		)
	} else {
		e.logger.Info("payout batch processed",
			"list_id", listID,
			"marker", marker,
			"dispatched", res.Dispatched,
			"used", res.Used,
			"remaining", res.Remaining,
		)
	}

	e.plugins.EmitBatchProcessed(ctx, settle.NewBatch(listID, budget, marker, res, e.clock()))
	if res.Remaining == 0 {
		e.plugins.EmitListSettled(ctx, res.List)
	}

	return uint64(res.Remaining), nil
}
