package errs

import (
	"errors"
	"fmt"
	"reflect"
)

// Code categorizes errors raised by the core.
type Code string

const (
	// CodeKeyNotFound indicates an indexed read of an absent key.
	CodeKeyNotFound Code = "KEY_NOT_FOUND"

	// CodeUniquenessViolation indicates an add of an entity that already
	// exists in a unique index.
	CodeUniquenessViolation Code = "UNIQUENESS_VIOLATION"

	// CodeInvalidArgument indicates a value of the wrong runtime type, or an
	// argument the operation cannot accept.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

// Sentinels for errors.Is. They match any *Error with the same Code.
var (
	ErrKeyNotFound         = &Error{Code: CodeKeyNotFound, Message: "key not found"}
	ErrUniquenessViolation = &Error{Code: CodeUniquenessViolation, Message: "entity already indexed"}
	ErrInvalidArgument     = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
)

// Error is the error type returned by the store, the index and the
// untyped adapters.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Key is the offending key, if any.
	Key any

	// Entity is the offending entity (uniqueness violations) or the value
	// that failed a type check (invalid arguments).
	Entity any
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Key != nil && e.Entity != nil:
		return fmt.Sprintf("%s: %s (key=%v, entity=%v)", e.Code, e.Message, e.Key, e.Entity)
	case e.Key != nil:
		return fmt.Sprintf("%s: %s (key=%v)", e.Code, e.Message, e.Key)
	case e.Entity != nil:
		return fmt.Sprintf("%s: %s (value=%v)", e.Code, e.Message, e.Entity)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code, so that the
// package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewKeyNotFound creates an Error for a missing key.
func NewKeyNotFound(key any) *Error {
	return &Error{
		Code:    CodeKeyNotFound,
		Message: "key not found",
		Key:     key,
	}
}

// NewUniquenessViolation creates an Error for an entity that is already
// present somewhere in a unique index.
func NewUniquenessViolation(key, entity any) *Error {
	return &Error{
		Code:    CodeUniquenessViolation,
		Message: "entity already indexed",
		Key:     key,
		Entity:  entity,
	}
}

// NewInvalidArgument creates an Error for a rejected argument. got is the
// offending value and may be nil.
func NewInvalidArgument(message string, got any) *Error {
	return &Error{
		Code:    CodeInvalidArgument,
		Message: message,
		Entity:  got,
	}
}

// NewTypeMismatch creates an InvalidArgument error for a value whose
// runtime type is not the one the adapter expects.
func NewTypeMismatch(param string, want string, got any) *Error {
	return &Error{
		Code:    CodeInvalidArgument,
		Message: fmt.Sprintf("%s: expected %s, got %T", param, want, got),
		Entity:  got,
	}
}

// Cast asserts that v holds a T. On failure it returns a type-mismatch
// error naming param.
func Cast[T any](param string, v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		return t, NewTypeMismatch(param, reflect.TypeFor[T]().String(), v)
	}
	return t, nil
}

// IsKeyNotFound returns true if err is, or wraps, a KeyNotFound error.
func IsKeyNotFound(err error) bool {
	return hasCode(err, CodeKeyNotFound)
}

// IsUniquenessViolation returns true if err is, or wraps, a
// UniquenessViolation error.
func IsUniquenessViolation(err error) bool {
	return hasCode(err, CodeUniquenessViolation)
}

// IsInvalidArgument returns true if err is, or wraps, an InvalidArgument
// error.
func IsInvalidArgument(err error) bool {
	return hasCode(err, CodeInvalidArgument)
}

func hasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
