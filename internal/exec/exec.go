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

// Package exec provides the shared external-process execution primitive used
// by every component that shells out (the installation executor, the
// project-init dispatcher, the auth manager, and the lifecycle hooks
// manager). Callers pass the working directory and environment in an
// Invocation; when they leave them empty, the command runs in the calling
// process's current directory and inherits its environment.
package exec

import (
	"bytes"
	"context"
	"os/exec"
	"syscall"
	"time"
)

// Invocation describes a single external command to run. A non-nil Env
// replaces the calling process's environment entirely; a nil Env inherits
// it. An empty Cwd runs the command in the calling process's current
// directory.
type Invocation struct {
	// Command is the full shell command line, already resolved and
	// path-escape-checked by the caller.
	Command string
	Cwd     string
	Env     []string
	Timeout time.Duration
}

// Result is the typed record every external invocation returns, replacing
// ad hoc interleaving of exit codes and success sentinels.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
}

// Run executes an Invocation through /bin/sh -c, honouring the timeout by
// sending SIGTERM to the shell process and, if it has not exited 5s later,
// SIGKILL. Only the shell process itself is signalled, not its process group.
func Run(ctx context.Context, inv Invocation) (Result, error) {
	start := time.Now()

	runCtx := ctx
	var cancel context.CancelFunc
	if inv.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", inv.Command) // #nosec G204 - command pre-validated by caller
	cmd.Dir = inv.Cwd
	if inv.Env != nil {
		cmd.Env = inv.Env
	}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	if runCtx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		res.ExitCode = -1
		return res, runCtx.Err()
	}

	if err != nil {
		var exitErr *exec.ExitError
		if ok := asExitError(err, &exitErr); ok {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}

	res.ExitCode = 0
	return res, nil
}

func asExitError(err error, target **exec.ExitError) bool {
	ee, ok := err.(*exec.ExitError)
	if ok {
		*target = ee
	}
	return ok
}
