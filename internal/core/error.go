/*
Package core extracts the published hostnames from a Traefik configuration document.
It ties together the document tree, the rule tokenizers, the hostname validator and
the blacklist. Everything in this package is pure: no I/O, no logging and no package
level mutable state, so calls are safe from any number of goroutines.
*/
package core

/*
rxhosts — fast tool in Go for publishing the hostnames routed by Traefik
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import "errors"

// customError is an error type that includes a retryable flag.
// Callers running extraction on a schedule use it to decide between backing off
// and retrying soon, or waiting for the input to change.
type customError struct {
	message   string // The error message.
	retryable bool   // True if retrying the same operation may succeed.
	cause     error  // Wrapped error, may be nil.
}

// NewError creates a new customError with the given message and retryable status.
//
// Parameters:
//
//	msg: The textual description of the error.
//	retryable: Whether the condition is potentially transient.
func NewError(msg string, retryable bool) error {
	return &customError{
		message:   msg,
		retryable: retryable,
	}
}

// WrapError annotates err with msg and a retryable flag. errors.Is and errors.As
// still see err through the returned value. A nil err yields nil.
func WrapError(err error, msg string, retryable bool) error {
	if err == nil {
		return nil
	}
	return &customError{
		message:   msg,
		retryable: retryable,
		cause:     err,
	}
}

// Error implements the standard Go `error` interface.
func (e *customError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

// Unwrap returns the wrapped cause.
func (e *customError) Unwrap() error { return e.cause }

// IsRetryable returns true if the error is designated as retryable.
func (e *customError) IsRetryable() bool {
	return e.retryable
}

// IsRetryable reports whether any error in err's chain is a retryable
// *customError. Unknown error types are not retryable.
func IsRetryable(err error) bool {
	var e *customError
	if errors.As(err, &e) {
		return e.IsRetryable()
	}
	return false
}

// ErrMalformedDocument matches every ParseError through errors.Is.
var ErrMalformedDocument = NewError("malformed configuration document", false)

// ParseError reports configuration text that is not valid JSON.
// It is the only error the extraction entry points return.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return ErrMalformedDocument.Error() + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrMalformedDocument) true for every ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedDocument
}
