package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed lifecycle operation so the transport layer
// can map it to a stable status code without string matching.
type ErrorKind string

const (
	KindDenied              ErrorKind = "denied"
	KindNotFound            ErrorKind = "not_found"
	KindAmbiguousSupplier   ErrorKind = "ambiguous_supplier"
	KindValidation          ErrorKind = "validation"
	KindExternalUnavailable ErrorKind = "external_unavailable"
)

// DomainError is the typed result every lifecycle operation returns on
// failure. Message is safe to surface to the caller.
type DomainError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func Denied(message string) *DomainError {
	return &DomainError{Kind: KindDenied, Message: message}
}

func NotFound(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func AmbiguousSupplier(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindAmbiguousSupplier, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func ExternalUnavailable(message string, err error) *DomainError {
	return &DomainError{Kind: KindExternalUnavailable, Message: message, Err: err}
}

// KindOf extracts the ErrorKind from err, or "" when err is not a DomainError.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
