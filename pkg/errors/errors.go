// Package errors defines the error taxonomy for the shared sequencer.
// All failures surfaced to callers are synchronous and recoverable: they are
// caused by caller input or authorization, abort the whole operation, and
// leave no partial state behind.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Callers match these with errors.Is.
var (
	// ErrNotFound means no receipt exists for the given identifier.
	ErrNotFound = errors.New("receipt not found")
	// ErrUnauthorized means a non-administrator attempted a privileged call.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMalformedInput means the payload was empty or otherwise unusable.
	ErrMalformedInput = errors.New("malformed input")
	// ErrServiceUnavailable means admission is paused.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrInsufficientFee means the attached payment was below the minimum.
	// The concrete value carries an *InsufficientFeeError.
	ErrInsufficientFee = errors.New("insufficient fee")
	// ErrAlreadyFinalized means a privileged transition targeted a receipt
	// that already reached a terminal state.
	ErrAlreadyFinalized = errors.New("receipt already finalized")
)

// Unwrap provides compatibility with the standard errors package.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Is provides compatibility with the standard errors package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As provides compatibility with the standard errors package.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Errorf creates a new error from a format string.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// Error is a domain error with additional context.
type Error struct {
	// Original is the underlying error.
	Original error
	// Domain is the area of the system the error belongs to
	// (e.g. "sequencer", "storage", "api").
	Domain string
	// Code is a machine-readable error code.
	Code string
	// Message is a human-readable description.
	Message string
	// Operation is the operation that failed (e.g. "Submit", "Confirm").
	Operation string
}

// Error implements the error interface.
// Format: [Domain.Operation] Code=...: Message: Original
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString("[")
	if e.Domain != "" {
		sb.WriteString(e.Domain)
		if e.Operation != "" {
			sb.WriteString(".")
			sb.WriteString(e.Operation)
		}
	} else if e.Operation != "" {
		sb.WriteString(e.Operation)
	}
	sb.WriteString("] ")

	if e.Code != "" {
		sb.WriteString("Code=")
		sb.WriteString(e.Code)
		sb.WriteString(": ")
	}

	if e.Message != "" {
		sb.WriteString(e.Message)
	}

	if e.Original != nil {
		if e.Message != "" {
			sb.WriteString(": ")
		}
		sb.WriteString(e.Original.Error())
	}

	return sb.String()
}

// Unwrap implements the errors.Unwrapper interface.
func (e *Error) Unwrap() error {
	return e.Original
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	var domainErr *Error
	if errors.As(err, &domainErr) {
		return &Error{
			Original:  domainErr.Original,
			Domain:    domainErr.Domain,
			Code:      domainErr.Code,
			Message:   message,
			Operation: domainErr.Operation,
		}
	}

	return &Error{
		Original: err,
		Message:  message,
	}
}

// WrapWithOperation wraps an error with the domain and operation that failed.
func WrapWithOperation(err error, domain, operation string) error {
	if err == nil {
		return nil
	}

	var domainErr *Error
	if errors.As(err, &domainErr) {
		return &Error{
			Original:  domainErr.Original,
			Domain:    domain,
			Code:      domainErr.Code,
			Message:   domainErr.Message,
			Operation: operation,
		}
	}

	return &Error{
		Original:  err,
		Domain:    domain,
		Operation: operation,
	}
}
