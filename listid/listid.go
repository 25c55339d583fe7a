// Package listid derives and validates payment list identifiers.
//
// A list identifier is the lowercase hex SHA-256 of a canonical JSON document
// describing the list. Because the identifier depends only on content, a
// governance proposal can reference a list before the list is submitted, and
// any party can re-derive it to check that a stored list matches what was
// approved.
package listid

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/xraph/bulkpay/types"
)

// Length is the number of hex characters in an identifier.
const Length = 64

// Payment is the content of a single payment as it enters the hash.
type Payment struct {
	Recipient string       `json:"recipient"`
	Amount    types.Amount `json:"amount"`
}

// canonicalPayment and canonicalList declare fields in alphabetical order so
// encoding/json emits keys sorted, matching other implementations that hash
// a key-sorted JSON object.
type canonicalPayment struct {
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
}

type canonicalList struct {
	Payments  []canonicalPayment `json:"payments"`
	Submitter string             `json:"submitter"`
	TokenID   string             `json:"token_id"`
}

// Canonical returns the exact bytes that Compute hashes.
func Canonical(submitter, tokenID string, payments []Payment) []byte {
	sorted := make([]canonicalPayment, len(payments))
	for i, p := range payments {
		sorted[i] = canonicalPayment{Amount: p.Amount.String(), Recipient: p.Recipient}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Recipient < sorted[j].Recipient })

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding plain strings into a fixed struct cannot fail.
	_ = enc.Encode(canonicalList{Payments: sorted, Submitter: submitter, TokenID: tokenID})

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

// Compute returns the identifier for a list. The result does not depend on
// the order of payments.
func Compute(submitter, tokenID string, payments []Payment) string {
	sum := sha256.Sum256(Canonical(submitter, tokenID, payments))
	return hex.EncodeToString(sum[:])
}

// Validate reports whether s is exactly 64 hex characters. Upper and mixed
// case are accepted.
func Validate(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// ErrHashMismatch is matched by every MismatchError.
var ErrHashMismatch = errors.New("listid: hash mismatch")

// MismatchError reports a supplied identifier that differs from the one
// derived from the payload.
type MismatchError struct {
	Provided string
	Computed string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("listid: provided hash %s does not match computed hash %s of the payload", e.Provided, e.Computed)
}

func (e *MismatchError) Unwrap() error { return ErrHashMismatch }

// Verify recomputes the identifier and compares it with provided.
func Verify(provided, submitter, tokenID string, payments []Payment) error {
	computed := Compute(submitter, tokenID, payments)
	if provided != computed {
		return &MismatchError{Provided: provided, Computed: computed}
	}
	return nil
}
