package bulkpay

import (
	"errors"
	"fmt"

	"github.com/xraph/bulkpay/listid"
	"github.com/xraph/bulkpay/paylist"
	"github.com/xraph/bulkpay/settle"
	"github.com/xraph/bulkpay/types"
)

// Sentinel errors. Every failure returned by the Engine matches one of these
// with errors.Is; the detail types below carry the values needed to correct
// the request.
var (
	ErrNotFound            = errors.New("bulkpay: not found")
	ErrAlreadyExists       = errors.New("bulkpay: already exists")
	ErrInvalidInput        = errors.New("bulkpay: invalid input")
	ErrUnauthorized        = errors.New("bulkpay: unauthorized")
	ErrInvalidState        = errors.New("bulkpay: invalid state")
	ErrExactValueMismatch  = errors.New("bulkpay: exact value required")
	ErrInsufficientCredits = errors.New("bulkpay: insufficient storage credits")

	// ErrOverflow is shared with the types package so amount arithmetic and
	// engine checks report the same sentinel.
	ErrOverflow = types.ErrOverflow

	// ErrInsufficientBudget is returned only when a batch call could not
	// dispatch a single payment.
	ErrInsufficientBudget = settle.ErrInsufficientBudget

	// ErrHashMismatch is returned when a supplied list id does not match
	// its payload.
	ErrHashMismatch = listid.ErrHashMismatch

	// Payment list errors
	ErrListNotFound = fmt.Errorf("%w: payment list", ErrNotFound)
	ErrListExists   = fmt.Errorf("%w: payment list with this id", ErrAlreadyExists)

	// Store errors
	ErrStoreClosed = errors.New("bulkpay: store is closed")
)

// BudgetError is the detail carried by ErrInsufficientBudget.
type BudgetError = settle.BudgetError

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("bulkpay: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// ValueMismatchError reports an attached value or token that differs from
// the one required.
type ValueMismatchError struct {
	What     string
	Expected string
	Actual   string
}

func (e *ValueMismatchError) Error() string {
	return fmt.Sprintf("bulkpay: exact %s required: %s, attached: %s", e.What, e.Expected, e.Actual)
}

func (e *ValueMismatchError) Unwrap() error { return ErrExactValueMismatch }

// CreditShortfallError reports a submission larger than the submitter's
// prepaid credit balance.
type CreditShortfallError struct {
	Account   string
	Required  uint64
	Available uint64
}

func (e *CreditShortfallError) Error() string {
	return fmt.Sprintf("bulkpay: insufficient storage credits for %s. Required: %d, Available: %d",
		e.Account, e.Required, e.Available)
}

func (e *CreditShortfallError) Unwrap() error { return ErrInsufficientCredits }

// StateError reports an operation attempted in the wrong lifecycle state.
type StateError struct {
	ListID string
	Op     string
	Status paylist.Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("bulkpay: cannot %s list %s in status %s", e.Op, e.ListID, e.Status)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

// AuthError reports a caller that may not perform an operation.
type AuthError struct {
	Caller string
	Op     string
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("bulkpay: %s may not %s: %s", e.Caller, e.Op, e.Reason)
}

func (e *AuthError) Unwrap() error { return ErrUnauthorized }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError reports whether err was caused by the request rather than
// by the engine or its store, so the caller can correct and resubmit.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, types.ErrInvalidAmount) ||
		errors.Is(err, ErrOverflow) ||
		errors.Is(err, ErrExactValueMismatch) ||
		errors.Is(err, ErrInsufficientCredits) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrHashMismatch) ||
		errors.Is(err, ErrInsufficientBudget)
}
