package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrOfferNotFound     = errors.New("offer not found")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrInvalidTerms      = errors.New("invalid offer terms")
	ErrInvalidTransition = errors.New("transition not allowed from current status")
	ErrTerminalState     = errors.New("offer is in a terminal status")
	ErrUnauthorized      = errors.New("actor is not authorized for this operation")
	ErrInvalidState      = errors.New("offer is not in the required status")
	ErrAlreadyReviewed   = errors.New("payment has already been reviewed")
	ErrVersionConflict   = errors.New("record was modified concurrently")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeOfferNotFound     = "OFFER_NOT_FOUND"
	ErrCodePaymentNotFound   = "PAYMENT_NOT_FOUND"
	ErrCodeInvalidTerms      = "INVALID_TERMS"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeTerminalState     = "TERMINAL_STATE_VIOLATION"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInvalidState      = "INVALID_STATE"
	ErrCodeAlreadyReviewed   = "ALREADY_REVIEWED"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeDatabaseError     = "DATABASE_ERROR"
	ErrCodeCacheError        = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapOfferNotFound(offerID string) *BusinessError {
	return NewBusinessError(
		ErrCodeOfferNotFound,
		fmt.Sprintf("Offer with ID %s not found", offerID),
		ErrOfferNotFound,
	)
}

func WrapPaymentNotFound(paymentID string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentNotFound,
		fmt.Sprintf("Payment with ID %s not found", paymentID),
		ErrPaymentNotFound,
	)
}

func WrapInvalidTerms(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidTerms,
		fmt.Sprintf("Invalid offer terms: %s", reason),
		ErrInvalidTerms,
	)
}

func WrapInvalidTransition(status, event string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidTransition,
		fmt.Sprintf("Cannot %s an offer in status %s", event, status),
		ErrInvalidTransition,
	)
}

func WrapTerminalState(status, event string) *BusinessError {
	return NewBusinessError(
		ErrCodeTerminalState,
		fmt.Sprintf("Cannot %s an offer in terminal status %s", event, status),
		ErrTerminalState,
	)
}

func WrapUnauthorized(action string) *BusinessError {
	return NewBusinessError(
		ErrCodeUnauthorized,
		fmt.Sprintf("Actor is not allowed to %s", action),
		ErrUnauthorized,
	)
}

func WrapInvalidState(status, action string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidState,
		fmt.Sprintf("Cannot %s while offer is in status %s", action, status),
		ErrInvalidState,
	)
}

func WrapAlreadyReviewed(paymentID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeAlreadyReviewed,
		fmt.Sprintf("Payment with ID %s was already reviewed as %s", paymentID, status),
		ErrAlreadyReviewed,
	)
}

func WrapConflict(entity, id string) *BusinessError {
	return NewBusinessError(
		ErrCodeConflict,
		fmt.Sprintf("%s %s was modified concurrently, retries exhausted", entity, id),
		ErrVersionConflict,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}
