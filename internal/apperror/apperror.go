// Package apperror defines the error taxonomy shared by every catalog
// operation. Handlers translate the kind into a transport status; usecases
// construct these at the boundary where a failure is classified.
package apperror

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindValidation marks malformed or missing input; nothing was written.
	KindValidation Kind = iota + 1
	// KindNotFound marks an absent category/product/variant/request.
	KindNotFound
	// KindConflict marks uniqueness violations, dependent-inventory blocks and
	// terminal state transitions.
	KindConflict
	// KindInternal marks unexpected store or media failures.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Internal(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf classifies any error; non-taxonomy errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }

func IsConflict(err error) bool { return IsKind(err, KindConflict) }

func IsValidation(err error) bool { return IsKind(err, KindValidation) }

// Message returns the user-facing message for taxonomy errors and a generic
// one otherwise, so internal details never leak to callers.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
