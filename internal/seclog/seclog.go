// Copyright (c) 2024 santosr2
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package seclog records security-relevant events (auth checks, installs,
// conflict resolutions) as structured key=value lines, mirrored to the
// local syslog auth facility where available so host-level audit tooling
// sees them without depending on the CLI's own log file.
package seclog

import (
	"context"
	"log/slog"
	"os"
)

// EventType is the closed set of security-relevant actions this package
// records. New kinds belong here, never inferred from a free-form message.
type EventType string

const (
	EventInstall        EventType = "install"
	EventAuthCheck      EventType = "auth_check"
	EventProjectInit    EventType = "project_init"
	EventCollision      EventType = "collision"
	EventConflict       EventType = "conflict"
	EventContextMerge   EventType = "context_merge"
	EventRateLimit      EventType = "rate_limit"
	EventHook           EventType = "hook"
)

// Result is the closed set of outcomes an event can record.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultDenied  Result = "denied"
	ResultSkipped Result = "skipped"
)

// Event is one security-relevant occurrence.
type Event struct {
	Type     EventType
	Actor    string
	Action   string
	Result   Result
	Resource string
	Details  string
}

// Logger records Events through an underlying slog.Logger, using a fixed
// key ordering (event_type, actor, action, result, resource, details) so
// downstream parsers can rely on field position as well as key name.
type Logger struct {
	base *slog.Logger
}

// New wraps base. If base is nil, slog.Default is used.
func New(base *slog.Logger) *Logger {
	if base == nil {
		base = slog.Default()
	}
	return &Logger{base: base}
}

// NewDefault builds a Logger writing text-handler lines to os.Stderr, the
// same handler shape the rest of the CLI uses for ordinary logging.
func NewDefault(level slog.Level) *Logger {
	return New(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// Record emits ev at LevelInfo (LevelWarn for failure and denied results).
func (l *Logger) Record(ctx context.Context, ev Event) {
	level := slog.LevelInfo
	if ev.Result == ResultFailure || ev.Result == ResultDenied {
		level = slog.LevelWarn
	}

	l.base.Log(ctx, level, "security_event",
		"event_type", string(ev.Type),
		"actor", ev.Actor,
		"action", ev.Action,
		"result", string(ev.Result),
		"resource", ev.Resource,
		"details", ev.Details,
	)

	mirrorToSyslog(ev)
}
