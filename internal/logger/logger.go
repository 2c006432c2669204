// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package logger provides a thin wrapper around zerolog.Logger that adds
// convenience constructors and context-aware helpers used by the launcher's
// server daemon, client daemon and administrative commands.
//
// The Logger type embeds zerolog.Logger so all standard zerolog methods
// (Debug, Info, Warn, Error, Fatal, etc.) are available directly on *Logger.
// Session-scoped loggers are attached to a context.Context and recovered with
// FromContext.
package logger

import (
	"context"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is a thin wrapper around zerolog.Logger.
type Logger struct {
	zerolog.Logger
}

func init() {
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return runtime.FuncForPC(pc).Name() // return function name
	}
	zerolog.CallerFieldName = "func"
}

// NewLogger constructs a JSON *Logger for long-running daemons. Every entry
// carries the "role" field (e.g. "server", "client"), a timestamp and the
// fully-qualified name of the calling function in the "func" field.
//
// Output is written to os.Stdout.
func NewLogger(role string) *Logger {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	logger := zerolog.New(os.Stdout).With().
		Str("role", role).
		Timestamp().
		Caller().
		Logger()

	return &Logger{logger}
}

// NewConsoleLogger constructs a human-readable *Logger writing to w. It is
// used by short-lived administrative commands where JSON lines would only
// get in the way of the printed result.
func NewConsoleLogger(role string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}

	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	logger := zerolog.New(output).With().
		Str("role", role).
		Timestamp().
		Logger().
		Level(zerolog.WarnLevel)

	return &Logger{logger}
}

// Nop returns a *Logger that discards all log output.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// SetLevel adjusts the global zerolog level. Unknown or empty names leave the
// level unchanged and report false.
func SetLevel(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}

	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return false
	}

	zerolog.SetGlobalLevel(level)
	return true
}

// ValidLevel reports whether name is a zerolog level name.
func ValidLevel(name string) bool {
	_, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	return err == nil && strings.TrimSpace(name) != ""
}

// GetChildLogger returns a new *Logger that inherits all fields of the
// receiver. The child can be enriched without affecting the parent.
func (l *Logger) GetChildLogger() *Logger {
	return &Logger{l.With().Logger()}
}

// WithFields returns a child logger carrying the given string fields, given as
// key/value pairs. A trailing key without a value is ignored.
func (l *Logger) WithFields(kv ...string) *Logger {
	ctx := l.With()
	for i := 0; i+1 < len(kv); i += 2 {
		ctx = ctx.Str(kv[i], kv[i+1])
	}

	return &Logger{ctx.Logger()}
}

// FromRequest extracts the zerolog.Logger stored in the request's context by
// the status API's trace middleware.
func FromRequest(r *http.Request) *Logger {
	return &Logger{*log.Ctx(r.Context())}
}

// FromContext extracts the zerolog.Logger stored in ctx by zerolog's log.Ctx
// helper and returns it as a *Logger.
//
// If no logger has been attached to ctx, zerolog returns its default logger,
// so this function never returns nil.
func FromContext(ctx context.Context) *Logger {
	return &Logger{*log.Ctx(ctx)}
}
