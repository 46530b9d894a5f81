/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package util has a few logging conveniences.
package util

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// Logging is a clumsy switch that affects what Logf does.
//
// If Logging is true, then Logf logs at the debug level.
var Logging = false

var logger atomic.Pointer[slog.Logger]

func init() {
	SetOutput(os.Stderr, slog.LevelInfo)
}

// SetOutput replaces the package's logger with a text logger that
// writes to w at the given level.
func SetOutput(w io.Writer, level slog.Level) {
	logger.Store(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})))
}

// SetLogger replaces the package's logger.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger.Store(l)
	}
}

// Logger returns the package's logger.
func Logger() *slog.Logger {
	return logger.Load()
}

// Verbose turns on Logging and debug-level output to stderr.
func Verbose() {
	Logging = true
	SetOutput(os.Stderr, slog.LevelDebug)
}

// Logf is a silly utility function that logs the formatted message
// at the debug level if Logging is true.
func Logf(format string, args ...interface{}) {
	if !Logging {
		return
	}
	Logger().Debug(fmt.Sprintf(format, args...))
}
