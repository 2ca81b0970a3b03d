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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	rotate "github.com/Psiphon-Inc/rotate-safe-writer"
	"github.com/Psiphon-Labs/proxyserver-client/proxyserver/common/errors"
	"github.com/Psiphon-Labs/proxyserver-client/proxyserver/common/stacktrace"
	"github.com/sirupsen/logrus"
)

// ContextLogger adds trace context to the underlying logrus logger.
type ContextLogger struct {
	*logrus.Logger
}

// LogFields is an alias for the field struct in the underlying logging
// package.
type LogFields logrus.Fields

// WithTrace adds a "trace" field containing the caller's function name and
// source file line number. Use this function when the log has no fields.
func (logger *ContextLogger) WithTrace() *logrus.Entry {
	return logger.WithFields(
		logrus.Fields{
			"trace": stacktrace.GetParentFunctionName(),
		})
}

// WithTraceFields adds a "trace" field containing the caller's function
// name and source file line number. Any existing "trace" field is renamed
// to "fields.trace".
func (logger *ContextLogger) WithTraceFields(fields LogFields) *logrus.Entry {
	if trace, ok := fields["trace"]; ok {
		fields["fields.trace"] = trace
	}
	fields["trace"] = stacktrace.GetParentFunctionName()
	return logger.WithFields(logrus.Fields(fields))
}

const timestampFormat = time.RFC3339

// CustomJSONFormatter emits one JSON object per line. It differs from
// logrus.JSONFormatter in that "time" is named "timestamp" and error values
// are logged as their message.
type CustomJSONFormatter struct {
}

// Format implements logrus.Formatter.
func (f *CustomJSONFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	data := make(logrus.Fields, len(entry.Data)+3)
	for k, v := range entry.Data {
		switch v := v.(type) {
		case error:
			// Otherwise errors are ignored by encoding/json.
			data[k] = v.Error()
		default:
			data[k] = v
		}
	}

	for _, name := range []string{"timestamp", "msg", "level"} {
		if v, ok := data[name]; ok {
			data["fields."+name] = v
		}
	}

	data["timestamp"] = entry.Time.Format(timestampFormat)
	data["msg"] = entry.Message
	data["level"] = entry.Level.String()

	serialized, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fields to JSON: %v", err)
	}

	return append(serialized, '\n'), nil
}

var log *ContextLogger

// logFile is the rotatable log file opened by InitLogging, if any.
var logFile io.Closer

// InitLogging configures the package logger according to config. If not
// called, the default logger set by the package init() is used, which logs
// warnings and above to stderr.
//
// InitLogging should only be called from the main goroutine, before any
// other package function.
func InitLogging(config *Config) error {

	levelName := config.LogLevel
	if levelName == "" {
		levelName = DEFAULT_LOG_LEVEL
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return errors.Trace(err)
	}

	var logWriter io.Writer = os.Stderr

	if config.LogFilename != "" {
		retries, create, mode := 10, true, os.FileMode(0600)
		rotatableWriter, err := rotate.NewRotatableFileWriter(
			config.LogFilename, retries, create, mode)
		if err != nil {
			return errors.Trace(err)
		}
		if logFile != nil {
			logFile.Close()
		}
		logFile = rotatableWriter
		logWriter = rotatableWriter
	}

	log = newContextLogger(logWriter, level)

	return nil
}

func newContextLogger(writer io.Writer, level logrus.Level) *ContextLogger {
	return &ContextLogger{
		&logrus.Logger{
			Out:       writer,
			Formatter: &CustomJSONFormatter{},
			Hooks:     make(logrus.LevelHooks),
			Level:     level,
		},
	}
}

// Logger returns the package logger, for use by front ends.
func Logger() *ContextLogger {
	return log
}

func init() {
	log = newContextLogger(os.Stderr, logrus.WarnLevel)
}
