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

Package stacktrace provides caller frame helpers used to annotate errors and
log entries with "package.Function#line".

*/
package stacktrace

import (
	"fmt"
	"runtime"
	"strings"
)

// GetFunctionName returns the function name for pc with the import path
// prefix removed, e.g. "proxyserver.(*Client).Connect".
func GetFunctionName(pc uintptr) string {
	f := runtime.FuncForPC(pc)
	if f == nil {
		return "unknown"
	}
	funcName := f.Name()
	if index := strings.LastIndex(funcName, "/"); index != -1 {
		funcName = funcName[index+1:]
	}
	return funcName
}

// Frame returns "function#line" for a frame above the function calling
// Frame. Frame(0) describes that function's caller; each increment of skip
// moves one frame further up.
func Frame(skip int) string {
	pc, _, line, ok := runtime.Caller(skip + 2)
	if !ok {
		return "unknown#0"
	}
	return fmt.Sprintf("%s#%d", GetFunctionName(pc), line)
}

// GetParentFunctionName returns the frame of the caller's caller, e.g. the
// function that called a logging helper.
func GetParentFunctionName() string {
	return Frame(1)
}
