package errors

import (
	"errors"
	"fmt"
)

var (
	// Session errors
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionExpired    = errors.New("session expired")
	ErrSessionConversion = errors.New("session conversion failed")

	// Purchase process errors
	ErrIllegalStateTransition = errors.New("illegal state transition")
	ErrInvalidState           = errors.New("invalid state")
	ErrMissingRequiredFields  = errors.New("missing required fields")
	ErrNoMainItem             = errors.New("purchase must have exactly one main item")
	ErrItemNotFound           = errors.New("initialized item not found")

	// Transaction errors
	ErrTransactionNotFound         = errors.New("transaction not found")
	ErrTransactionAlreadyProcessed = errors.New("transaction already processed")

	// Cascade errors
	ErrCascadeExhausted  = errors.New("cascade billers exhausted")
	ErrEmptyCascade      = errors.New("cascade must contain at least one biller")
	ErrMaxSubmitsReached = errors.New("max submits reached for current biller")

	// Biller errors
	ErrBillerNotFound    = errors.New("biller not found")
	ErrBillerUnavailable = errors.New("biller unavailable")
	ErrBillerTimeout     = errors.New("biller request timeout")

	// Command errors
	ErrInvalidCommand = errors.New("invalid command")

	// Digest errors
	ErrUnknownKeyIndex = errors.New("unknown public key index")
	ErrDigestMismatch  = errors.New("digest verification failed")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
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

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// TransientError marks a dependency failure as safe to retry with backoff,
// as opposed to a permanent rejection.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err with the transient capability tag.
func NewTransientError(err error) *TransientError {
	return &TransientError{Err: err}
}

// IsTransient reports whether err carries the transient tag anywhere in its chain.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
