// Package credit models prepaid storage credits and their price.
//
// One credit pays for one payment record. Credits are bought at the storage
// cost of a record plus a fixed revenue margin and consumed when a list is
// submitted.
package credit

import (
	"github.com/xraph/bulkpay/id"
	"github.com/xraph/bulkpay/types"
)

// Balance is the credit count held by one account.
type Balance struct {
	types.Entity
	Account string `json:"account"`
	Credits uint64 `json:"credits"`
}

// Purchase is the receipt returned for a storage purchase.
type Purchase struct {
	ID          id.ID        `json:"id"`
	Buyer       string       `json:"buyer"`
	Beneficiary string       `json:"beneficiary"`
	Records     uint64       `json:"records"`
	Cost        types.Amount `json:"cost"`
	Balance     uint64       `json:"balance"`
}
