// Package settle implements one budget-bounded settlement step over a
// payment list.
//
// A step runs in two stages. Plan is pure: it takes a list and a budget,
// marks as many pending payments as the budget allows and returns the
// updated copy together with the payouts it selected. The caller persists
// that copy and only then calls Dispatch, so a payment is never handed to a
// rail while the store still shows it pending.
package settle

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/bulkpay/paylist"
	"github.com/xraph/bulkpay/rail"
	"github.com/xraph/bulkpay/types"
)

// Reserve is the budget kept back on every call for persisting the list.
const Reserve uint64 = 15

// ErrInsufficientBudget is returned when a step cannot dispatch even one
// payment.
var ErrInsufficientBudget = errors.New("bulkpay: insufficient execution budget")

// BudgetError carries the budget needed for one payment and what was left.
type BudgetError struct {
	Need uint64
	Have uint64
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("bulkpay: insufficient budget to process payments. Need at least %d units, have %d units remaining",
		e.Need, e.Have)
}

func (e *BudgetError) Unwrap() error { return ErrInsufficientBudget }

// Outcome describes why a step stopped.
type Outcome string

const (
	// OutcomeCompleted means no pending payments remain.
	OutcomeCompleted Outcome = "completed"
	// OutcomeExhausted means the budget ran out with payments still pending.
	OutcomeExhausted Outcome = "exhausted"
	// OutcomeInterrupted means a dispatch failed after earlier ones succeeded.
	OutcomeInterrupted Outcome = "interrupted"
)

// Payout is one payment selected by Plan. Index points into List.Payments.
type Payout struct {
	Index     int
	Recipient string
	Amount    types.Amount
}

// Result is the outcome of one step.
type Result struct {
	List       *paylist.List
	Payouts    []Payout
	Dispatched int
	Used       uint64
	Remaining  int
	Outcome    Outcome

	// Err is the dispatch error that interrupted the step, if any.
	Err error

	cost uint64
}

// Plan selects pending payments of l in stored order until the budget cannot
// cover another payment plus Reserve. Each selected record is marked paid
// with marker as its settlement reference. l itself is not modified.
//
// If not a single payment fits the budget Plan fails with a BudgetError.
func Plan(l *paylist.List, budget, marker uint64) (Result, error) {
	cost := rail.Cost(rail.Classify(l.TokenID))
	updated := l.Clone()

	res := Result{List: updated, Outcome: OutcomeCompleted, cost: cost}

	for i := range updated.Payments {
		rec := &updated.Payments[i]
		if rec.IsPaid() {
			continue
		}

		remaining := budget - res.Used
		if remaining < cost+Reserve {
			if res.Dispatched == 0 {
				return Result{}, &BudgetError{Need: cost + Reserve, Have: remaining}
			}
			res.Outcome = OutcomeExhausted
			break
		}

		rec.Status = paylist.RecordPaid
		rec.Reference = marker
		res.Payouts = append(res.Payouts, Payout{Index: i, Recipient: rec.Recipient, Amount: rec.Amount})
		res.Used += cost
		res.Dispatched++
	}

	res.Remaining = updated.PendingCount()
	if res.Remaining == 0 {
		res.Outcome = OutcomeCompleted
	}
	return res, nil
}

// Dispatch hands the planned payouts to d in order.
//
// When a dispatch fails the payouts from that point on are returned to
// pending in r.List and the counters are adjusted. If nothing went out the
// error is returned; otherwise the step ends as interrupted with r.Err set.
func (r *Result) Dispatch(ctx context.Context, d rail.Dispatcher) error {
	for k, p := range r.Payouts {
		err := ctx.Err()
		if err == nil {
			err = rail.Pay(ctx, d, r.List.TokenID, p.Recipient, p.Amount)
		}
		if err == nil {
			continue
		}

		r.unwind(k)
		if k == 0 {
			return fmt.Errorf("settle: dispatch to %s: %w", p.Recipient, err)
		}
		r.Outcome = OutcomeInterrupted
		r.Err = err
		return nil
	}
	return nil
}

// unwind returns payouts[k:] to pending.
func (r *Result) unwind(k int) {
	for _, p := range r.Payouts[k:] {
		rec := &r.List.Payments[p.Index]
		rec.Status = paylist.RecordPending
		rec.Reference = 0
	}
	r.Payouts = r.Payouts[:k]
	r.Dispatched = k
	r.Used = uint64(k) * r.cost
	r.Remaining = r.List.PendingCount()
}
