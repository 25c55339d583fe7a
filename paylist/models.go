// Package paylist defines payment lists and the records they contain.
package paylist

import (
	"github.com/xraph/bulkpay/types"
)

// Status is the lifecycle state of a list. The only transitions are
// Pending to Approved and Pending to Rejected.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// RecordStatus is the settlement state of a single payment.
type RecordStatus string

const (
	RecordPending RecordStatus = "pending"
	RecordPaid    RecordStatus = "paid"
)

// Record is one payment inside a list. Reference is the sequence marker
// (block height) at which the payment was dispatched and is zero while the
// record is pending.
type Record struct {
	Recipient string       `json:"recipient"`
	Amount    types.Amount `json:"amount"`
	Status    RecordStatus `json:"status"`
	Reference uint64       `json:"settlement_reference,omitempty"`
}

// IsPaid reports whether the record has been dispatched.
func (r Record) IsPaid() bool { return r.Status == RecordPaid }

// List is a submitted payment list keyed by its content hash.
type List struct {
	types.Entity
	ID        string   `json:"id"`
	TokenID   string   `json:"token_id"`
	Submitter string   `json:"submitter"`
	Status    Status   `json:"status"`
	Payments  []Record `json:"payments"`
}

// Settlement describes a paid record.
type Settlement struct {
	Recipient string       `json:"recipient"`
	Amount    types.Amount `json:"amount"`
	Reference uint64       `json:"block_height"`
}

// Total returns the sum of all payment amounts.
func (l *List) Total() (types.Amount, error) {
	total := types.ZeroAmount
	for _, p := range l.Payments {
		next, err := total.Add(p.Amount)
		if err != nil {
			return types.ZeroAmount, err
		}
		total = next
	}
	return total, nil
}

// PendingCount returns how many records are still pending.
func (l *List) PendingCount() int {
	n := 0
	for _, p := range l.Payments {
		if !p.IsPaid() {
			n++
		}
	}
	return n
}

// PaidCount returns how many records have been dispatched.
func (l *List) PaidCount() int { return len(l.Payments) - l.PendingCount() }

// Settled returns the paid records in stored order.
func (l *List) Settled() []Settlement {
	out := make([]Settlement, 0, l.PaidCount())
	for _, p := range l.Payments {
		if p.IsPaid() {
			out = append(out, Settlement{Recipient: p.Recipient, Amount: p.Amount, Reference: p.Reference})
		}
	}
	return out
}

// Clone returns a deep copy so callers never alias a stored list.
func (l *List) Clone() *List {
	cp := *l
	cp.Payments = append([]Record(nil), l.Payments...)
	return &cp
}
