// Package apperr defines the error kinds surfaced at the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the caller.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindValidation
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindUpstream:
		return "upstream"
	}
	return "internal"
}

// ErrDuplicate is returned by repositories when a uniqueness constraint
// rejects a write.
var ErrDuplicate = errors.New("duplicate key")

// Error carries a caller-safe message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

func Unauthenticated(msg string) *Error { return newErr(KindUnauthenticated, msg) }
func Forbidden(msg string) *Error       { return newErr(KindForbidden, msg) }
func NotFound(msg string) *Error        { return newErr(KindNotFound, msg) }
func Conflict(msg string) *Error        { return newErr(KindConflict, msg) }
func Validation(msg string) *Error      { return newErr(KindValidation, msg) }

// Upstream wraps a failure of an external collaborator.
func Upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Msg: msg, Err: err}
}

// KindOf returns the kind of err, KindInternal for anything unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the caller-safe message of err, or fallback when err is
// not an *Error.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return fallback
}
