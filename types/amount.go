package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/shopspring/decimal"
	"lukechampine.com/uint128"
)

// NativeDecimals is the number of fractional digits of the native asset
// (1 NEAR = 10^24 yoctoNEAR).
const NativeDecimals = 24

var (
	// ErrOverflow is returned when an amount computation exceeds 128 bits.
	ErrOverflow = errors.New("bulkpay: arithmetic overflow")

	// ErrInvalidAmount is returned when an amount cannot be parsed.
	ErrInvalidAmount = errors.New("bulkpay: invalid amount")
)

// Amount is an unsigned 128-bit quantity in the smallest unit of an asset.
// All arithmetic is checked and fails closed with ErrOverflow.
//
// Amounts serialize as decimal strings so that values above 2^53 survive
// JSON round trips through other languages.
//
//nolint:recvcheck // Value receivers for arithmetic, pointer receivers for decoding.
type Amount struct {
	v uint128.Uint128
}

// maxDigits is 2^128-1 in base 10.
const maxDigits = "340282366920938463463374607431768211455"

func notDigit(r rune) bool { return r < '0' || r > '9' }

// ZeroAmount is the zero Amount.
var ZeroAmount Amount

// NewAmount creates an Amount from a uint64.
func NewAmount(n uint64) Amount { return Amount{v: uint128.From64(n)} }

// ParseAmount parses a base-10 string.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.IndexFunc(s, notDigit) >= 0 {
		return ZeroAmount, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if trimmed := strings.TrimLeft(s, "0"); len(trimmed) > len(maxDigits) ||
		(len(trimmed) == len(maxDigits) && trimmed > maxDigits) {
		return ZeroAmount, fmt.Errorf("%w: %q exceeds 128 bits", ErrInvalidAmount, s)
	}
	v, err := uint128.FromString(s)
	if err != nil {
		return ZeroAmount, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	return Amount{v: v}, nil
}

// MustParseAmount is like ParseAmount but panics on error.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Add returns a+b.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := a.v.AddWrap(b.v)
	if sum.Cmp(a.v) < 0 {
		return ZeroAmount, fmt.Errorf("%w: %s + %s", ErrOverflow, a, b)
	}
	return Amount{v: sum}, nil
}

// Mul64 returns a*n.
func (a Amount) Mul64(n uint64) (Amount, error) {
	hiLo, lo := bits.Mul64(a.v.Lo, n)
	hiHi, mid := bits.Mul64(a.v.Hi, n)
	hi, carry := bits.Add64(hiLo, mid, 0)
	if hiHi != 0 || carry != 0 {
		return ZeroAmount, fmt.Errorf("%w: %s * %d", ErrOverflow, a, n)
	}
	return Amount{v: uint128.New(lo, hi)}, nil
}

// Div64 returns a/n, truncated. It panics if n is zero.
func (a Amount) Div64(n uint64) Amount {
	if n == 0 {
		panic("amount: division by zero")
	}
	return Amount{v: a.v.Div64(n)}
}

// Sum adds all values, failing on the first overflow.
func Sum(values ...Amount) (Amount, error) {
	total := ZeroAmount
	for _, v := range values {
		next, err := total.Add(v)
		if err != nil {
			return ZeroAmount, err
		}
		total = next
	}
	return total, nil
}

// Comparison methods

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(b.v) }

// Equal reports whether a == b.
func (a Amount) Equal(b Amount) bool { return a.v.Equals(b.v) }

// IsZero reports whether a is zero.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// Formatting methods

// String returns the base-10 representation.
func (a Amount) String() string { return a.v.String() }

// Format renders a in major units with the given number of decimals,
// trimming trailing zeros: 1500000000000000000000000 with 24 decimals is "1.5".
func (a Amount) Format(decimals int32) string {
	return decimal.NewFromBigInt(a.v.Big(), -decimals).String()
}

// FormatNative renders a as whole NEAR.
func (a Amount) FormatNative() string { return a.Format(NativeDecimals) }

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts both "123" and 123.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		return nil
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer. Amounts are stored as text.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = ZeroAmount
		return nil
	case string:
		return a.UnmarshalJSON([]byte(v))
	case []byte:
		return a.UnmarshalJSON(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidAmount, v)
		}
		*a = NewAmount(uint64(v))
		return nil
	default:
		return fmt.Errorf("amount: cannot scan %T into Amount", src)
	}
}
