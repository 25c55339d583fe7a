// Package rail classifies payment tokens into delivery rails and builds the
// one-way instructions that move funds on each rail.
//
// Dispatch is fire and forget: a Dispatcher accepts an instruction and
// returns without waiting for the destination ledger to confirm it.
package rail

import (
	"context"
	"strings"

	"github.com/xraph/bulkpay/types"
)

// Kind identifies a delivery rail.
type Kind string

const (
	// KindNative is a direct transfer of the native asset.
	KindNative Kind = "native"
	// KindMultiAsset is a withdrawal through the intents multi-asset ledger.
	KindMultiAsset Kind = "multi_asset"
	// KindFungible is a standard fungible token transfer.
	KindFungible Kind = "fungible"
)

// Execution budget units consumed by one payment on each rail.
const (
	CostNative     uint64 = 3
	CostMultiAsset uint64 = 50
	CostFungible   uint64 = 50
)

const (
	// MultiAssetPrefix marks a token id routed through the intents ledger.
	MultiAssetPrefix = "nep141:"

	// IntentsContract receives multi-asset withdrawals.
	IntentsContract = "intents.near"

	// BridgedSuffix marks assets that leave the chain through a bridge and
	// need an explicit withdrawal address.
	BridgedSuffix = ".omft.near"

	// WithdrawMemoPrefix precedes the external address in a bridged memo.
	WithdrawMemoPrefix = "WITHDRAW_TO:"
)

// Classify returns the rail for a token id.
func Classify(tokenID string) Kind {
	switch {
	case strings.HasPrefix(tokenID, MultiAssetPrefix):
		return KindMultiAsset
	case strings.EqualFold(tokenID, "native"), strings.EqualFold(tokenID, "near"):
		return KindNative
	default:
		return KindFungible
	}
}

// Cost returns the budget units needed per payment on a rail.
func Cost(k Kind) uint64 {
	switch k {
	case KindNative:
		return CostNative
	case KindMultiAsset:
		return CostMultiAsset
	default:
		return CostFungible
	}
}

// Dispatcher sends payments. Implementations must not block on the
// destination ledger; returning nil means the instruction was accepted.
type Dispatcher interface {
	NativeTransfer(ctx context.Context, recipient string, amount types.Amount) error
	MultiAssetWithdraw(ctx context.Context, asset, recipient string, amount types.Amount, memo string) error
	FungibleTransfer(ctx context.Context, contract, recipient string, amount types.Amount) error
}

// Pay routes a single payment for tokenID to the matching Dispatcher call.
// Bridged assets are withdrawn to the token contract itself with the real
// recipient carried in the memo.
func Pay(ctx context.Context, d Dispatcher, tokenID, recipient string, amount types.Amount) error {
	switch Classify(tokenID) {
	case KindNative:
		return d.NativeTransfer(ctx, recipient, amount)
	case KindMultiAsset:
		asset := strings.TrimPrefix(tokenID, MultiAssetPrefix)
		memo := ""
		if strings.HasSuffix(asset, BridgedSuffix) {
			memo = WithdrawMemoPrefix + recipient
		}
		return d.MultiAssetWithdraw(ctx, asset, recipient, amount, memo)
	default:
		return d.FungibleTransfer(ctx, tokenID, recipient, amount)
	}
}
