package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountBlocked     = errors.New("account is blocked")
	ErrNoActiveStake      = errors.New("account has no active stake")
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
	ErrActivationNotFound = errors.New("no trade activation for today")
)

// ValidationError rejects a request before any ledger mutation.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvalidErr wraps a sentinel as a ValidationError so errors.Is keeps working.
func InvalidErr(field string, err error) error {
	return &ValidationError{Field: field, Message: err.Error(), Err: err}
}

// StateConflictError reports a transition attempted from a state that no
// longer allows it, e.g. resolving an already resolved withdrawal.
type StateConflictError struct {
	Entity  string
	ID      string
	Current string
	Wanted  string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s %s is %s, cannot move to %s", e.Entity, e.ID, e.Current, e.Wanted)
}

// PartialLedgerFailure is returned when the receiving leg of a cross-account
// transfer failed after the sending leg was applied. The transfer intent stays
// in the debited state until the reconciliation worker replays it.
type PartialLedgerFailure struct {
	TransferID uuid.UUID
	Err        error
}

func (e *PartialLedgerFailure) Error() string {
	return fmt.Sprintf("transfer %s partially applied: %v", e.TransferID, e.Err)
}

func (e *PartialLedgerFailure) Unwrap() error { return e.Err }

// UpstreamDependencyError wraps a failure of a collaborator (store, cache).
type UpstreamDependencyError struct {
	Op  string
	Err error
}

func (e *UpstreamDependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamDependencyError) Unwrap() error { return e.Err }

// Upstream wraps err as an UpstreamDependencyError unless it already carries
// a domain classification.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ve *ValidationError
		ce *StateConflictError
		pe *PartialLedgerFailure
		ue *UpstreamDependencyError
	)
	if errors.As(err, &ve) || errors.As(err, &ce) || errors.As(err, &pe) || errors.As(err, &ue) {
		return err
	}
	for _, sentinel := range []error{
		ErrInsufficientFunds,
		ErrAccountNotFound,
		ErrAccountBlocked,
		ErrNoActiveStake,
		ErrWithdrawalNotFound,
		ErrActivationNotFound,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return &UpstreamDependencyError{Op: op, Err: err}
}
