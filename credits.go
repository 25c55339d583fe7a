package bulkpay

import (
	"context"
	"fmt"

	"github.com/xraph/bulkpay/credit"
	"github.com/xraph/bulkpay/id"
	"github.com/xraph/bulkpay/types"
)

// Quote returns the exact deposit required to buy storage for n records.
func (e *Engine) Quote(n uint64) (types.Amount, error) {
	if n == 0 {
		return types.ZeroAmount, ValidationError{Field: "records", Message: "must be greater than zero"}
	}
	return credit.Cost(n)
}

// BuyStorage credits beneficiary with n records of storage. attached must be
// exactly Quote(n). An empty beneficiary credits the buyer.
func (e *Engine) BuyStorage(ctx context.Context, buyer, beneficiary string, n uint64, attached types.Amount) (*credit.Purchase, error) {
	if buyer == "" {
		return nil, ValidationError{Field: "buyer", Message: "is required"}
	}

	cost, err := e.Quote(n)
	if err != nil {
		return nil, err
	}
	if !attached.Equal(cost) {
		return nil, &ValueMismatchError{What: "deposit", Expected: cost.String(), Actual: attached.String()}
	}

	if beneficiary == "" {
		beneficiary = buyer
	}

	unlock := e.lockCredits(beneficiary)
	balance, err := e.store.AddCredits(ctx, beneficiary, n)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("bulkpay: add credits for %s: %w", beneficiary, err)
	}

	p := &credit.Purchase{
		ID:          id.NewPurchaseID(),
		Buyer:       buyer,
		Beneficiary: beneficiary,
		Records:     n,
		Cost:        cost,
		Balance:     balance,
	}

	e.logger.Info("storage purchased",
		"purchase_id", p.ID.String(),
		"buyer", buyer,
		"beneficiary", beneficiary,
		"records", n,
		"cost", cost.String(),
	)
	e.plugins.EmitStoragePurchased(ctx, p)

	return p, nil
}

// Credits returns the credit balance of account. Unknown accounts hold zero.
func (e *Engine) Credits(ctx context.Context, account string) (uint64, error) {
	return e.store.GetCredits(ctx, account)
}

// debit takes n credits from account under the account lock.
func (e *Engine) debit(ctx context.Context, account string, n uint64) error {
	unlock := e.lockCredits(account)
	defer unlock()

	_, err := e.store.DebitCredits(ctx, account, n)
	return err
}

// refund returns credits taken by debit. A failed refund is logged: the
// caller is already reporting the error that made it necessary.
func (e *Engine) refund(ctx context.Context, account string, n uint64) {
	unlock := e.lockCredits(account)
	defer unlock()

	if _, err := e.store.AddCredits(ctx, account, n); err != nil {
		e.logger.Error("failed to refund storage credits",
			"account", account,
			"credits", n,
			"error", err,
		)
	}
}
