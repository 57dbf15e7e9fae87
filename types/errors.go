package types

import (
	"fmt"

	"github.com/tendermint/tendermint/crypto"
)

type (
	// ValidationError reports an out-of-range amount, score or multiplier.
	ValidationError struct {
		Field  string
		Reason string
	}

	// AuthorizationError reports a missing role, a blacklisted caller or a
	// paused market.
	AuthorizationError struct {
		Addr   crypto.Address
		Reason string
	}

	// StateError reports an operation that is not allowed in the current
	// state of a project, e.g. double initialization or re-validation.
	StateError struct {
		ProjectID uint64
		Reason    string
	}

	// InsufficientFundsError reports collateral or payment below what the
	// operation requires.
	InsufficientFundsError struct {
		Required uint64
		Provided uint64
	}

	// ReentrancyError reports a nested entry into a guarded operation.
	ReentrancyError struct {
		Op     string
		Active string
	}
)

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e AuthorizationError) Error() string {
	if len(e.Addr) == 0 {
		return fmt.Sprintf("unauthorized: %s", e.Reason)
	}
	return fmt.Sprintf("unauthorized %X: %s", []byte(e.Addr), e.Reason)
}

func (e StateError) Error() string {
	return fmt.Sprintf("project %d: %s", e.ProjectID, e.Reason)
}

func (e InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %d, provided %d", e.Required, e.Provided)
}

func (e ReentrancyError) Error() string {
	return fmt.Sprintf("reentrant call to %s while %s is executing", e.Op, e.Active)
}

// ErrInvalid is shorthand for a ValidationError.
func ErrInvalid(field, format string, args ...interface{}) error {
	return ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ErrAmountOutOfRange is returned for trade amounts outside
// [MinTradeAmount, MaxTradeAmount].
func ErrAmountOutOfRange(amount uint64) error {
	return ErrInvalid("amount", "%d not in [%d, %d]", amount, MinTradeAmount, MaxTradeAmount)
}

// BadNonceError reports a transaction whose sequence does not match the
// signer's account.
type BadNonceError struct {
	Expected uint64
	Got      uint64
}

func (e BadNonceError) Error() string {
	return fmt.Sprintf("bad sequence: expected %d, got %d", e.Expected, e.Got)
}
