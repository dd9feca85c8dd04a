package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a protocol-level failure with a stable code
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeGatewayRejected   = "GATEWAY_REJECTED"
	ErrCodeTokenMismatch     = "TOKEN_MISMATCH"
	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeTransportFailure  = "TRANSPORT_FAILURE"
	ErrCodeReplayedCallback  = "REPLAYED_CALLBACK"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
)

// IsErrorCode reports whether err (or anything it wraps) is a DomainError
// carrying the given code.
func IsErrorCode(err error, code string) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}

func NewInvalidTransitionError(from, to PaymentState) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

func NewOrderNotPayableError(id int64, state PaymentState) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("order %d is not payable in state %s", id, state),
	}
}

// NewOrderNotPendingError reports a guarded update that found the order no
// longer pending, typically a lost race with another finalizer.
func NewOrderNotPendingError(id int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("order %d is not pending", id),
	}
}

func NewOrderNotFoundError(id int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeOrderNotFound,
		Message: fmt.Sprintf("order %d not found", id),
	}
}

// NewGatewayRejectedError records a non-zero result code returned by the
// gateway to either remote operation.
func NewGatewayRejectedError(resCod int, message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeGatewayRejected,
		Message: fmt.Sprintf("gateway rejected request (ResCod %d): %s", resCod, message),
	}
}

// NewTokenMismatchError marks a callback whose token does not match the one
// stored on the order. The message is intentionally generic: it must not leak
// whether the order exists or what its real token is.
func NewTokenMismatchError() *DomainError {
	return &DomainError{
		Code:    ErrCodeTokenMismatch,
		Message: "payment verification failed",
	}
}

// NewReplayedCallbackError marks a callback for an order that has already
// been resolved. Treated identically to a token mismatch.
func NewReplayedCallbackError() *DomainError {
	return &DomainError{
		Code:    ErrCodeReplayedCallback,
		Message: "payment verification failed",
	}
}

func NewTransportFailureError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeTransportFailure,
		Message: "gateway unreachable",
		Err:     err,
	}
}
