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

/*

Package errors wraps errors with the calling function and line number. All
wrapping uses %w, so errors.Is and errors.As see through the added context.

*/
package errors

import (
	std_errors "errors"
	"fmt"

	"github.com/Psiphon-Labs/proxyserver-client/proxyserver/common/stacktrace"
)

// TraceNew returns a new error with the given message, prefixed with the
// caller frame.
func TraceNew(message string) error {
	return fmt.Errorf("%s: %w", stacktrace.Frame(0), std_errors.New(message))
}

// Tracef returns a new formatted error, prefixed with the caller frame.
func Tracef(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", stacktrace.Frame(0), fmt.Errorf(format, args...))
}

// Trace wraps err with the caller frame. Trace(nil) is nil.
func Trace(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", stacktrace.Frame(0), err)
}

// TraceMsg wraps err with the caller frame and message. TraceMsg(nil, ...)
// is nil.
func TraceMsg(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %s: %w", stacktrace.Frame(0), message, err)
}

// Is and As are re-exported so callers need only one errors import.
func Is(err, target error) bool {
	return std_errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return std_errors.As(err, target)
}
