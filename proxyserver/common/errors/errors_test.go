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

package errors

import (
	std_errors "errors"
	"io"
	"strings"
	"testing"
)

func TestTraceNew(t *testing.T) {
	err := TraceNew("test error")
	if !strings.HasPrefix(err.Error(), "errors.TestTraceNew#") {
		t.Fatalf("unexpected frame: %s", err.Error())
	}
	if !strings.HasSuffix(err.Error(), ": test error") {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestTrace(t *testing.T) {

	if Trace(nil) != nil {
		t.Fatalf("Trace(nil) is not nil")
	}
	if TraceMsg(nil, "message") != nil {
		t.Fatalf("TraceMsg(nil) is not nil")
	}

	err := Trace(io.EOF)
	if !Is(err, io.EOF) {
		t.Fatalf("wrapped error not found: %s", err.Error())
	}

	err = TraceMsg(err, "reading")
	if !Is(err, io.EOF) {
		t.Fatalf("wrapped error not found: %s", err.Error())
	}
	if !strings.Contains(err.Error(), ": reading: ") {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if strings.Count(err.Error(), "errors.TestTrace#") != 2 {
		t.Fatalf("unexpected frames: %s", err.Error())
	}
}

type testError struct {
	code int
}

func (e *testError) Error() string {
	return "test error"
}

func TestAs(t *testing.T) {
	err := Tracef("context: %w", &testError{code: 42})
	var target *testError
	if !As(err, &target) {
		t.Fatalf("As failed: %s", err.Error())
	}
	if target.code != 42 {
		t.Fatalf("unexpected code: %d", target.code)
	}
	if As(TraceNew("other"), &target) {
		t.Fatalf("unexpected As match")
	}
	if std_errors.Unwrap(Trace(io.EOF)) != io.EOF {
		t.Fatalf("unexpected Unwrap")
	}
}
