package bulkpay

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/bulkpay/listid"
	"github.com/xraph/bulkpay/paylist"
	"github.com/xraph/bulkpay/types"
)

// Approval channels reported to OnListApproved.
const (
	ViaDeposit    = "deposit"
	ViaFungible   = "ft_transfer_call"
	ViaMultiToken = "mt_transfer_call"
)

// SubmitInput is a payment list submission.
type SubmitInput struct {
	ListID    string
	TokenID   string
	Payments  []listid.Payment
	Submitter string

	// Caller is the authenticated account making the call. It must be the
	// submitter or the engine's system identity.
	Caller string
}

func (in SubmitInput) validate() error {
	if !listid.Validate(in.ListID) {
		return ValidationError{Field: "list_id", Message: "must be 64 hexadecimal characters"}
	}
	if in.TokenID == "" {
		return ValidationError{Field: "token_id", Message: "is required"}
	}
	if in.Submitter == "" {
		return ValidationError{Field: "submitter", Message: "is required"}
	}
	if len(in.Payments) == 0 {
		return ValidationError{Field: "payments", Message: "cannot be empty"}
	}
	amounts := make([]types.Amount, len(in.Payments))
	for i, p := range in.Payments {
		if p.Recipient == "" {
			return ValidationError{Field: fmt.Sprintf("payments[%d].recipient", i), Message: "is required"}
		}
		if p.Amount.IsZero() {
			return ValidationError{Field: fmt.Sprintf("payments[%d].amount", i), Message: "must be greater than zero"}
		}
		amounts[i] = p.Amount
	}
	// A list that cannot be totalled could never be approved.
	if _, err := types.Sum(amounts...); err != nil {
		return fmt.Errorf("bulkpay: payments total: %w", err)
	}
	return nil
}

// Submit stores a new pending payment list and consumes one storage credit
// of the submitter per payment.
func (e *Engine) Submit(ctx context.Context, in SubmitInput) (*paylist.List, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.Caller != in.Submitter && (e.systemIdentity == "" || in.Caller != e.systemIdentity) {
		return nil, &AuthError{Caller: in.Caller, Op: "submit", Reason: "only the submitter or the system identity may submit"}
	}

	unlock := e.lockList(in.ListID)
	defer unlock()

	if _, err := e.store.GetList(ctx, in.ListID); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrListExists, in.ListID)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	n := uint64(len(in.Payments))
	if err := e.debit(ctx, in.Submitter, n); err != nil {
		return nil, err
	}

	now := e.clock()
	l := &paylist.List{
		Entity:    types.Entity{CreatedAt: now, UpdatedAt: now},
		ID:        in.ListID,
		TokenID:   in.TokenID,
		Submitter: in.Submitter,
		Status:    paylist.StatusPending,
		Payments:  make([]paylist.Record, len(in.Payments)),
	}
	for i, p := range in.Payments {
		l.Payments[i] = paylist.Record{Recipient: p.Recipient, Amount: p.Amount, Status: paylist.RecordPending}
	}

	if err := e.store.CreateList(ctx, l); err != nil {
		e.refund(ctx, in.Submitter, n)
		return nil, err
	}

	e.logger.Info("payment list submitted",
		"list_id", l.ID,
		"submitter", l.Submitter,
		"token_id", l.TokenID,
		"payments", len(l.Payments),
	)
	e.plugins.EmitListSubmitted(ctx, l)

	return l, nil
}

// Approve funds a pending list with a native deposit. attached must equal
// the list total exactly.
func (e *Engine) Approve(ctx context.Context, listID, caller string, attached types.Amount) error {
	_, err := e.approve(ctx, listID, ViaDeposit, func(l *paylist.List) error {
		if caller != l.Submitter {
			return &AuthError{Caller: caller, Op: "approve", Reason: "only the submitter can approve"}
		}
		return nil
	}, attached)
	return err
}

// FungibleDeposit is a fungible token transfer that funds a list. Msg
// carries the list id.
type FungibleDeposit struct {
	Sender string
	Amount types.Amount
	Msg    string

	// Contract is the token contract that made the transfer. When set it
	// must match the list's token id.
	Contract string
}

// ApproveWithTransfer approves a list funded by a fungible token transfer
// and returns the amount to refund to the sender, which is always zero on
// success.
func (e *Engine) ApproveWithTransfer(ctx context.Context, dep FungibleDeposit) (types.Amount, error) {
	if !listid.Validate(dep.Msg) {
		return types.ZeroAmount, ValidationError{Field: "msg", Message: "must be a payment list id"}
	}

	_, err := e.approve(ctx, dep.Msg, ViaFungible, func(l *paylist.List) error {
		if dep.Sender != l.Submitter {
			return &AuthError{Caller: dep.Sender, Op: "approve", Reason: "only the submitter can approve"}
		}
		if dep.Contract != "" && dep.Contract != l.TokenID {
			return &ValueMismatchError{What: "token_id", Expected: l.TokenID, Actual: dep.Contract}
		}
		return nil
	}, dep.Amount)
	if err != nil {
		return types.ZeroAmount, err
	}
	return types.ZeroAmount, nil
}

// MultiTokenDeposit is a multi-token transfer that funds a list. Exactly one
// token must be transferred.
type MultiTokenDeposit struct {
	Sender   string
	TokenIDs []string
	Amounts  []types.Amount
	Msg      string
}

// ApproveWithMultiToken approves a list funded by a multi-token transfer and
// returns one refund per transferred token. Any sender may fund a list this
// way.
func (e *Engine) ApproveWithMultiToken(ctx context.Context, dep MultiTokenDeposit) ([]types.Amount, error) {
	if len(dep.TokenIDs) != 1 || len(dep.Amounts) != 1 {
		return nil, ValidationError{Field: "token_ids", Message: "exactly one token and one amount are required"}
	}
	if !listid.Validate(dep.Msg) {
		return nil, ValidationError{Field: "msg", Message: "must be a payment list id"}
	}

	tokenID := dep.TokenIDs[0]
	_, err := e.approve(ctx, dep.Msg, ViaMultiToken, func(l *paylist.List) error {
		if tokenID != l.TokenID {
			return &ValueMismatchError{What: "token_id", Expected: l.TokenID, Actual: tokenID}
		}
		return nil
	}, dep.Amounts[0])
	if err != nil {
		return nil, err
	}
	return []types.Amount{types.ZeroAmount}, nil
}

func (e *Engine) approve(ctx context.Context, listID, via string, authorize func(*paylist.List) error, attached types.Amount) (*paylist.List, error) {
	unlock := e.lockList(listID)
	defer unlock()

	l, err := e.store.GetList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := authorize(l); err != nil {
		return nil, err
	}
	if l.Status != paylist.StatusPending {
		return nil, &StateError{ListID: listID, Op: "approve", Status: l.Status}
	}

	total, err := l.Total()
	if err != nil {
		return nil, err
	}
	if !attached.Equal(total) {
		return nil, &ValueMismatchError{What: "deposit", Expected: total.String(), Actual: attached.String()}
	}

	l.Status = paylist.StatusApproved
	l.UpdatedAt = e.clock()
	if err := e.store.UpdateList(ctx, l); err != nil {
		return nil, err
	}

	e.logger.Info("payment list approved",
		"list_id", l.ID,
		"via", via,
		"total", total.String(),
	)
	e.plugins.EmitListApproved(ctx, l, via)

	return l, nil
}

// Reject closes a pending list without paying it.
func (e *Engine) Reject(ctx context.Context, listID, caller string) error {
	unlock := e.lockList(listID)
	defer unlock()

	l, err := e.store.GetList(ctx, listID)
	if err != nil {
		return err
	}
	if caller != l.Submitter {
		return &AuthError{Caller: caller, Op: "reject", Reason: "only the submitter can reject"}
	}
	if l.Status != paylist.StatusPending {
		return &StateError{ListID: listID, Op: "reject", Status: l.Status}
	}

	l.Status = paylist.StatusRejected
	l.UpdatedAt = e.clock()
	if err := e.store.UpdateList(ctx, l); err != nil {
		return err
	}

	e.logger.Info("payment list rejected", "list_id", l.ID)
	e.plugins.EmitListRejected(ctx, l)

	return nil
}
