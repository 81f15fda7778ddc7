package services

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindNotFound  ErrorKind = "NotFound"
	KindForbidden ErrorKind = "Forbidden"
	KindConflict  ErrorKind = "Conflict"
	KindExpired   ErrorKind = "Expired"
	KindInternal  ErrorKind = "Internal"
	KindInvalid   ErrorKind = "Invalid"
)

// Error is returned by every engine operation that a client can get wrong.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Status maps the kind to the HTTP status the handlers answer with.
func (e *Error) Status() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindExpired:
		return http.StatusGone
	case KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) *Error  { return newError(KindNotFound, format, args...) }
func forbidden(format string, args ...any) *Error { return newError(KindForbidden, format, args...) }
func conflict(format string, args ...any) *Error  { return newError(KindConflict, format, args...) }
func expired(format string, args ...any) *Error   { return newError(KindExpired, format, args...) }
func internal(format string, args ...any) *Error  { return newError(KindInternal, format, args...) }

// Invalid is for malformed client input caught before it reaches the engine.
func Invalid(format string, args ...any) *Error { return newError(KindInvalid, format, args...) }

// KindOf reports the kind of err, or Internal for anything that is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ErrEngineStopped is returned by calls made after the engine loop exited.
var ErrEngineStopped = &Error{Kind: KindInternal, Message: "engine is not running"}
