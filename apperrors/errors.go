// Package apperrors defines the error kinds the core services return.
// Every kind is recoverable at the HTTP boundary; handlers translate them
// with StatusCode instead of inspecting error strings.
package apperrors

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindInvalidState
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidState, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches an underlying cause while keeping the kind.
func Wrap(kind Kind, err error, msg string) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func IsValidation(err error) bool   { return Is(err, KindValidation) }
func IsNotFound(err error) bool     { return Is(err, KindNotFound) }
func IsForbidden(err error) bool    { return Is(err, KindForbidden) }
func IsConflict(err error) bool     { return Is(err, KindConflict) }
func IsInvalidState(err error) bool { return Is(err, KindInvalidState) }

// StatusCode maps an error to the HTTP status the boundary should answer with.
func StatusCode(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return 500
	}
	switch e.Kind {
	case KindValidation:
		return 400
	case KindForbidden:
		return 403
	case KindNotFound:
		return 404
	case KindConflict:
		return 409
	case KindInvalidState:
		return 422
	default:
		return 500
	}
}
