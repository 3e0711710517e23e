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

//go:build unix

package seclog

import (
	"fmt"
	"log/syslog"
	"sync"
)

var (
	syslogOnce sync.Once
	syslogW    *syslog.Writer
)

// mirrorToSyslog writes ev to the local syslog auth facility, best effort.
// A host without a syslog daemon (most CI containers) simply never gets a
// writer and this becomes a silent no-op.
func mirrorToSyslog(ev Event) {
	syslogOnce.Do(func() {
		w, err := syslog.New(syslog.LOG_AUTH|syslog.LOG_NOTICE, "sindri")
		if err == nil {
			syslogW = w
		}
	})
	if syslogW == nil {
		return
	}

	line := fmt.Sprintf("event_type=%s actor=%s action=%s result=%s resource=%s details=%s",
		ev.Type, ev.Actor, ev.Action, ev.Result, ev.Resource, ev.Details)

	switch ev.Result {
	case ResultFailure, ResultDenied:
		_ = syslogW.Warning(line)
	default:
		_ = syslogW.Notice(line)
	}
}
