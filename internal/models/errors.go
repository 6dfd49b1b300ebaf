package models

import (
	"errors"
	"fmt"
)

// ValidationError covers bad or missing input. Handlers re-render with the
// message and nothing is persisted.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidationError creates a validation error
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// RuleError is a business-rule violation, carrying the voucher reason so the
// caller can surface a specific message.
type RuleError struct {
	Reason VoucherReason
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("voucher rejected: %s", e.Reason)
}

// Message returns the user-facing message for the reason.
func (e *RuleError) Message() string {
	switch e.Reason {
	case VoucherNotFound:
		return "Voucher code is invalid or no longer active"
	case VoucherNotStarted:
		return "Voucher is not valid yet"
	case VoucherExpired:
		return "Voucher has expired"
	case VoucherQuotaExhausted:
		return "Voucher has no uses left"
	case VoucherBelowMinimum:
		return "Order does not meet the voucher minimum amount"
	}
	return "Voucher cannot be applied"
}

// GatewayError is a payment gateway failure. Declined separates an explicit
// refusal from a transport or gateway-side fault; both leave the cart intact
// and create no order, but logs must tell them apart.
type GatewayError struct {
	Gateway  string
	Code     string
	Declined bool
	Err      error
}

func (e *GatewayError) Error() string {
	if e.Declined {
		return fmt.Sprintf("%s declined payment (code=%s)", e.Gateway, e.Code)
	}
	return fmt.Sprintf("%s gateway failure: %v", e.Gateway, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Helpers for the handler layer.

// AsValidation reports err as a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// AsRule reports err as a *RuleError if it is one.
func AsRule(err error) (*RuleError, bool) {
	var re *RuleError
	ok := errors.As(err, &re)
	return re, ok
}

// AsGateway reports err as a *GatewayError if it is one.
func AsGateway(err error) (*GatewayError, bool) {
	var ge *GatewayError
	ok := errors.As(err, &ge)
	return ge, ok
}

// ErrEmptyCart rejects checkout before anything else runs.
var ErrEmptyCart = &ValidationError{Msg: "cart is empty"}
