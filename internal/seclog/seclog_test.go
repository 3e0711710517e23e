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

package seclog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestRecordWritesExpectedFields(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	l := New(base)

	l.Record(context.Background(), Event{
		Type:     EventInstall,
		Actor:    "cli",
		Action:   "install_extension",
		Result:   ResultSuccess,
		Resource: "claude-code",
		Details:  "method=script",
	})

	out := buf.String()
	for _, want := range []string{
		"event_type=install",
		"actor=cli",
		"action=install_extension",
		"result=success",
		"resource=claude-code",
		"details=\"method=script\"",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q, got: %s", want, out)
		}
	}
}

func TestRecordUsesWarnLevelForFailure(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	l := New(base)

	l.Record(context.Background(), Event{Type: EventAuthCheck, Result: ResultFailure})
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("expected WARN level output, got: %s", buf.String())
	}
}

func TestRecordSuccessOmittedAtWarnLevel(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	l := New(base)

	l.Record(context.Background(), Event{Type: EventInstall, Result: ResultSuccess})
	if buf.Len() != 0 {
		t.Errorf("expected no output for a success event at Warn level, got: %s", buf.String())
	}
}

func TestNewDefaultsToSlogDefault(t *testing.T) {
	l := New(nil)
	if l.base == nil {
		t.Fatal("expected New(nil) to fall back to slog.Default()")
	}
}
