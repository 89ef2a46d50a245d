// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNoCurrentContext     = errors.New("no current context of the requested kind")
	ErrContextNotEntered    = errors.New("context has not been entered")
	ErrResultPendingInScope = errors.New("result requested inside its own open pricing scope")
	ErrFutureAlreadySet     = errors.New("future has already been resolved")
	ErrResultMissing        = errors.New("provider returned no result for a requested entry")
	ErrProviderNotFound     = errors.New("provider not registered")
	ErrPollTimeout          = errors.New("timed out polling for batch results")
	ErrTimeout              = errors.New("operation timed out")
	ErrCircuitOpen          = errors.New("provider circuit breaker is open")
	ErrRedactedCoordinate   = errors.New("coordinate is redacted and rejects overrides")
	ErrConfigInvalid        = errors.New("invalid configuration")
	ErrJournalDisabled      = errors.New("result journal is disabled")
)

// DispatchError represents a transport-level failure dispatching one
// provider's batches. Every future in the affected batches is failed
// with the same DispatchError.
type DispatchError struct {
	Provider string
	Batches  int
	Err      error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch error [%s] %d batch(es): %v", e.Provider, e.Batches, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// NewDispatchError creates a new DispatchError.
func NewDispatchError(provider string, batches int, err error) *DispatchError {
	return &DispatchError{
		Provider: provider,
		Batches:  batches,
		Err:      err,
	}
}

// ProviderError represents an error reported by a calculation provider.
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider error [%s/%s]: %s: %v", e.Provider, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("provider error [%s/%s]: %s", e.Provider, e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider, code, message string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Code:     code,
		Message:  message,
		Err:      err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
