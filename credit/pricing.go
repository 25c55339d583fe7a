package credit

import (
	"fmt"
	"math/bits"

	"github.com/xraph/bulkpay/types"
)

const (
	// BytesPerRecord is the storage reserved for one record: a 100 byte
	// account id, a 16 byte amount, ~50 bytes of status and ~50 bytes of
	// vector overhead.
	BytesPerRecord uint64 = 216

	// PricePerByte is the storage price of one byte in yoctoNEAR (10^19).
	PricePerByte uint64 = 10_000_000_000_000_000_000

	// Margin is applied as cost * MarginNumerator / MarginDenominator.
	MarginNumerator   uint64 = 11
	MarginDenominator uint64 = 10
)

// Cost returns the price of n records including the margin. Every step is
// overflow checked; Cost(0) is zero.
func Cost(n uint64) (types.Amount, error) {
	hi, storageBytes := bits.Mul64(BytesPerRecord, n)
	if hi != 0 {
		return types.ZeroAmount, fmt.Errorf("%w: storage bytes for %d records", types.ErrOverflow, n)
	}

	base, err := types.NewAmount(storageBytes).Mul64(PricePerByte)
	if err != nil {
		return types.ZeroAmount, err
	}

	marked, err := base.Mul64(MarginNumerator)
	if err != nil {
		return types.ZeroAmount, err
	}
	return marked.Div64(MarginDenominator), nil
}
