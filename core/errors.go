package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrForbidden is returned by services when the acting user may not perform an operation.
var ErrForbidden = errors.New("permission denied")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

// FailureKind classifies errors of remote calls.
type FailureKind int

const (
	UnknownFailure FailureKind = iota
	NetworkFailure             // no response: offline, timeout
	ValidationFailure          // request rejected (4xx)
	NotFoundFailure            // referenced object no longer exists
	ServerFailure              // 5xx
)

func (k FailureKind) String() string {
	switch k {
	case NetworkFailure:
		return "network failure"
	case ValidationFailure:
		return "validation failure"
	case NotFoundFailure:
		return "not found"
	case ServerFailure:
		return "server failure"
	default:
		return "unknown failure"
	}
}

// Failure is a classified error of a remote call.
type Failure struct {
	Kind    FailureKind
	Status  int    // HTTP status, 0 when no response was received
	Message string // server supplied message, if any
	Err     error
}

func NewFailure(kind FailureKind, status int, msg string, err error) error {
	return &Failure{Kind: kind, Status: status, Message: msg, Err: err}
}

func (f *Failure) Error() string {
	switch {
	case f.Message != "" && f.Status != 0:
		return fmt.Sprintf("%s (%d): %s", f.Kind, f.Status, f.Message)
	case f.Err != nil:
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	default:
		return f.Kind.String()
	}
}

func (f *Failure) Unwrap() error { return f.Err }

// FailureKindOf returns the kind of the first *Failure in err's chain.
// Validation errors count as ValidationFailure; anything else is UnknownFailure.
func FailureKindOf(err error) FailureKind {
	if err == nil {
		return UnknownFailure
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return ValidationFailure
	}
	return UnknownFailure
}
