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

// Package ratelimit throttles install attempts across concurrent sindri
// invocations using a flock-guarded counter file, since the limit must hold
// across process boundaries, not just within one execution.
package ratelimit

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pacphi/sindri/internal/sinderr"
)

// Limiter enforces a sliding-window cap on install operations.
type Limiter struct {
	path    string
	max     int
	window  time.Duration
	exempt  map[string]bool
}

const (
	// DefaultMax and DefaultWindow match the operator-facing default in
	// spec.md §4.4: 10 installs per 5 minutes.
	DefaultMax    = 10
	DefaultWindow = 5 * time.Minute
)

// New creates a Limiter backed by a counter file at path. exemptNames lists
// extension names that bypass the limit entirely; a nil list exempts
// nothing. (Profile installs skip limiting altogether by giving the install
// executor a nil *Limiter.)
func New(path string, max int, window time.Duration, exemptNames []string) *Limiter {
	exempt := make(map[string]bool, len(exemptNames))
	for _, n := range exemptNames {
		exempt[n] = true
	}
	return &Limiter{path: path, max: max, window: window, exempt: exempt}
}

// Acquire records one operation for name, returning sinderr.RateLimited if
// the sliding window is already at capacity. It is safe for concurrent use
// across processes: the counter file is exclusively locked for the
// duration of the read-prune-write cycle.
func (l *Limiter) Acquire(name string) error {
	if l.exempt[name] {
		return nil
	}

	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return sinderr.Wrap(sinderr.InstallFailed, "open rate limit state", err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return sinderr.Wrap(sinderr.InstallFailed, "lock rate limit state", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	now := time.Now()
	timestamps, err := readTimestamps(f)
	if err != nil {
		return sinderr.Wrap(sinderr.StateCorrupt, l.path, err)
	}

	kept := make([]time.Time, 0, len(timestamps))
	for _, ts := range timestamps {
		if now.Sub(ts) < l.window {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.max {
		return sinderr.New(sinderr.RateLimited, fmt.Sprintf("%d installs within %s, retry later", l.max, l.window))
	}

	kept = append(kept, now)
	return writeTimestamps(f, kept)
}

func readTimestamps(f *os.File) ([]time.Time, error) {
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, info.Size())
	if _, err := f.Read(buf); err != nil && info.Size() > 0 {
		return nil, err
	}

	var out []time.Time
	for _, line := range strings.Split(strings.TrimSpace(string(buf)), "\n") {
		if line == "" {
			continue
		}
		unix, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			continue // tolerate a stray malformed line rather than failing the whole window
		}
		out = append(out, time.Unix(unix, 0))
	}
	return out, nil
}

func writeTimestamps(f *os.File, timestamps []time.Time) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	var b strings.Builder
	for _, ts := range timestamps {
		fmt.Fprintf(&b, "%d\n", ts.Unix())
	}
	_, err := f.WriteString(b.String())
	return err
}
