package bulkpay

import (
	"github.com/xraph/bulkpay/listid"
	"github.com/xraph/bulkpay/paylist"
	"github.com/xraph/bulkpay/types"
)

// Re-export common types for convenience so users don't have to import the
// leaf packages.

// Amount is re-exported from types package.
type Amount = types.Amount

// Entity is re-exported from types package.
type Entity = types.Entity

// Payment is a single payment of a submission.
type Payment = listid.Payment

// List and Settlement are re-exported from paylist package.
type (
	List       = paylist.List
	Settlement = paylist.Settlement
)

// Re-export Amount constructors
var (
	NewAmount   = types.NewAmount
	ParseAmount = types.ParseAmount
	ZeroAmount  = types.ZeroAmount
	Sum         = types.Sum
)

// Re-export list identifier helpers
var (
	ComputeListID  = listid.Compute
	ValidateListID = listid.Validate
	VerifyListID   = listid.Verify
)
