// Package apperr defines the error taxonomy shared by the simulation engine
// and the HTTP layer. Callers branch on Kind, never on message text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the client
type Kind string

const (
	KindInvalidInput     Kind = "invalid_input"
	KindDataUnavailable  Kind = "data_unavailable"
	KindInsufficientData Kind = "insufficient_data"
	KindInternal         Kind = "internal"
)

// Error is a classified error
type Error struct {
	Kind      Kind
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidInput reports a request that can never succeed as sent
func InvalidInput(err error, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...), Err: err}
}

// DataUnavailable reports a market data failure. retryable marks transient
// causes (timeouts, vendor 5xx).
func DataUnavailable(err error, retryable bool, format string, args ...any) *Error {
	return &Error{Kind: KindDataUnavailable, Message: fmt.Sprintf(format, args...), Retryable: retryable, Err: err}
}

// InsufficientData reports too few observations for a statistic
func InsufficientData(err error, format string, args ...any) *Error {
	return &Error{Kind: KindInsufficientData, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, KindInternal when unclassified
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable reports whether err is a transient failure
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// Message returns the client-facing message of err
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}
