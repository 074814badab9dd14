// Package errors augments the standard errors package with sentinel
// errors that can carry a wrapped cause without resorting to
// fmt.Errorf("%w", err).
package errors

import (
	stderr "errors"
)

var _ error = New("")

// New creates a sentinel Error with a fixed message.
func New(msg string) *Error {
	return &Error{msg: msg}
}

// Error is a message-identified error that may wrap a cause.
//
// Unlike github.com/pkg/errors, wrapping attaches an error to an error,
// not text to an error: the sentinel stays the identity and the cause
// stays reachable through Unwrap.
type Error struct {
	msg string
	err error
}

// Error message
func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

// Unwrap the nested cause, if any
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Wrap returns a copy of the sentinel carrying err as its cause. The
// receiver is not mutated, so package-level sentinels stay pristine.
func (e *Error) Wrap(err error) *Error {
	return &Error{msg: e.msg, err: err}
}

// Is matches either the sentinel identity or anything in the cause chain.
func (e *Error) Is(target error) bool {
	if e == target {
		return true
	}
	if o, ok := target.(*Error); ok && o.msg == e.msg {
		return true
	}
	return e.err != nil && stderr.Is(e.err, target)
}

// As finds the first error in err's chain that matches target
// (a shortcut to the standard lib errors.As).
func As(err error, target interface{}) bool {
	return stderr.As(err, target)
}

// Is reports whether any error in err's chain matches target
// (a shortcut to the standard lib errors.Is).
func Is(err, target error) bool {
	return stderr.Is(err, target)
}
