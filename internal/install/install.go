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

// Package install carries out an extension's install recipe: pre-checks
// (DNS, rate limiting), method dispatch (mise/apt/script/binary/npm), and
// result reporting.
package install

import (
	"context"
	"log/slog"
	"time"

	"github.com/pacphi/sindri/internal/exec"
	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/ratelimit"
	"github.com/pacphi/sindri/internal/sinderr"
)

// Output is the typed result of an install attempt.
type Output struct {
	OK         bool
	DurationMs int64
	LogLines   []string
}

// Executor runs install recipes for extensions.
type Executor struct {
	logger   *slog.Logger
	limiter  *ratelimit.Limiter
	scriptTO time.Duration
	miseTO   time.Duration
}

// NewExecutor creates an Executor. limiter may be nil, in which case the
// rate-limit pre-check is skipped (used for profile installs, which spec.md
// §4.4 exempts).
func NewExecutor(logger *slog.Logger, limiter *ratelimit.Limiter) *Executor {
	return &Executor{
		logger:   logger,
		limiter:  limiter,
		scriptTO: 600 * time.Second,
		miseTO:   600 * time.Second,
	}
}

// Install enacts ext's install recipe against a project directory used as
// CWD for script-based methods.
func (e *Executor) Install(ctx context.Context, ext *manifest.Extension, projectDir string) (Output, error) {
	start := time.Now()
	var lines []string

	if e.limiter != nil {
		if err := e.limiter.Acquire(ext.Metadata.Name); err != nil {
			return Output{OK: false, DurationMs: time.Since(start).Milliseconds()}, err
		}
	}

	if err := precheckDomains(ctx, ext.Requirements); err != nil {
		return Output{OK: false, DurationMs: time.Since(start).Milliseconds()}, err
	}

	var err error
	switch ext.Install.Method {
	case manifest.InstallMise:
		lines, err = e.installMise(ctx, ext)
	case manifest.InstallAPT:
		lines, err = e.installAPT(ctx, ext)
	case manifest.InstallScript:
		lines, err = e.installScript(ctx, ext, projectDir)
	case manifest.InstallBinary:
		lines, err = e.installBinary(ctx, ext)
	case manifest.InstallNPM:
		lines, err = e.installNPM(ctx, ext)
	default:
		err = sinderr.New(sinderr.InstallFailed, "unsupported install method: "+string(ext.Install.Method))
	}

	out := Output{
		OK:         err == nil,
		DurationMs: time.Since(start).Milliseconds(),
		LogLines:   lines,
	}
	return out, err
}

func (e *Executor) run(ctx context.Context, inv exec.Invocation) (exec.Result, error) {
	res, err := exec.Run(ctx, inv)
	if res.TimedOut {
		return res, sinderr.Wrap(sinderr.InstallTimeout, inv.Command, err)
	}
	if err != nil {
		return res, sinderr.Wrap(sinderr.InstallFailed, inv.Command, err)
	}
	if res.ExitCode != 0 {
		return res, sinderr.New(sinderr.InstallFailed, inv.Command)
	}
	return res, nil
}
