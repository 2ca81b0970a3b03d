/*
 * Copyright (c) 2026, Psiphon Inc.
 * All rights reserved.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package proxyserver

import (
	"fmt"
	"net"
	"syscall"

	"github.com/Psiphon-Labs/proxyserver-client/proxyserver/common/errors"
)

// ErrorKind classifies an operation failure. ErrorKind implements error so
// that callers may test with errors.Is(err, proxyserver.InvalidPort).
type ErrorKind int

const (
	// MissingArgument, InvalidPort and InvalidHandle are input validation
	// failures, detected before any OS interaction.
	MissingArgument ErrorKind = iota + 1
	InvalidPort
	InvalidHandle

	// ResolutionFailed indicates the name lookup itself failed. Error.Code
	// holds a ResolveCode.
	ResolutionFailed

	// ConnectionFailed indicates that resolution succeeded but no candidate
	// address accepted a connection.
	ConnectionFailed

	// IOError is an OS level read, write or close failure on an established
	// connection. Error.Code holds the errno, when one is available.
	IOError

	// OutOfMemory indicates receive buffer growth failed. It is fatal to the
	// receive call only.
	OutOfMemory
)

func (kind ErrorKind) Error() string {
	switch kind {
	case MissingArgument:
		return "missing argument"
	case InvalidPort:
		return "invalid port"
	case InvalidHandle:
		return "invalid handle"
	case ResolutionFailed:
		return "resolution failed"
	case ConnectionFailed:
		return "connection failed"
	case IOError:
		return "I/O error"
	case OutOfMemory:
		return "out of memory"
	default:
		return fmt.Sprintf("unknown error kind: %d", int(kind))
	}
}

// ResolveCode is the diagnostic carried by a ResolutionFailed error.
type ResolveCode int

const (
	ResolveFail ResolveCode = iota + 1
	ResolveNoName
	ResolveAgain
	ResolveNoData
)

func (code ResolveCode) String() string {
	switch code {
	case ResolveFail:
		return "non-recoverable resolver failure"
	case ResolveNoName:
		return "name not known"
	case ResolveAgain:
		return "temporary resolver failure"
	case ResolveNoData:
		return "no address associated with name"
	default:
		return fmt.Sprintf("resolver code %d", int(code))
	}
}

// Error is the structured failure returned by every operation.
type Error struct {
	Kind ErrorKind

	// Code is the kind specific diagnostic: a ResolveCode for
	// ResolutionFailed, an errno for IOError, otherwise 0.
	Code int

	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind.Error(), e.Err)
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// newIOError wraps an OS error, extracting the errno as the diagnostic code.
func newIOError(err error) *Error {
	e := &Error{Kind: IOError, Err: err}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		e.Code = int(errno)
	}
	return e
}

// newResolutionError classifies a resolver error. Resolvers report failures
// as *net.DNSError; anything else is a generic failure.
func newResolutionError(err error) *Error {
	code := ResolveFail
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			code = ResolveNoName
		case dnsErr.IsTimeout || dnsErr.IsTemporary:
			code = ResolveAgain
		}
	}
	var resolveErr *noAddressError
	if errors.As(err, &resolveErr) {
		code = ResolveNoData
	}
	return &Error{Kind: ResolutionFailed, Code: int(code), Err: err}
}

// ErrorKindOf returns the kind of a failure returned by this package, or 0.
func ErrorKindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// ErrorCode returns the diagnostic code of a failure returned by this
// package, or 0.
func ErrorCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}
