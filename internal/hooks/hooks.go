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

// Package hooks runs an extension's lifecycle hook commands (pre/post
// install, pre/post project-init). A hook that is not declared is silently
// skipped; a hook that fails is reported to the caller, which decides
// whether the failure should abort the surrounding operation.
package hooks

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pacphi/sindri/internal/exec"
	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/sinderr"
)

// Kind is the closed set of lifecycle hook points.
type Kind string

const (
	PreInstall      Kind = "pre-install"
	PostInstall     Kind = "post-install"
	PreProjectInit  Kind = "pre-project-init"
	PostProjectInit Kind = "post-project-init"
)

const defaultTimeout = 120 * time.Second

// Outcome is the result of running a single hook.
type Outcome struct {
	Kind     Kind
	Ran      bool
	Result   exec.Result
	Err      error
}

// Manager runs lifecycle hooks for extensions.
type Manager struct{}

// NewManager creates a hooks Manager.
func NewManager() *Manager { return &Manager{} }

// Run executes the named hook kind for ext against cwd, if declared. A hook
// that is absent produces a zero-value Outcome with Ran=false and a nil
// error: callers must not treat "no hook" as a failure.
func (m *Manager) Run(ctx context.Context, ext *manifest.Extension, kind Kind, cwd string) Outcome {
	hook := lookup(ext.Capabilities.Hooks, kind)
	if hook == nil || hook.Command == "" {
		return Outcome{Kind: kind}
	}

	res, err := exec.Run(ctx, exec.Invocation{
		Command: hook.Command,
		Cwd:     cwd,
		Env:     []string{"PATH=" + os.Getenv("PATH"), "HOME=" + os.Getenv("HOME")},
		Timeout: defaultTimeout,
	})

	outcome := Outcome{Kind: kind, Ran: true, Result: res}
	if err != nil {
		outcome.Err = err
	} else if res.ExitCode != 0 {
		outcome.Err = sinderr.New(sinderr.CommandFailed, fmt.Sprintf("%s: exit code %d", hook.Command, res.ExitCode))
	}
	return outcome
}

func lookup(h manifest.Hooks, kind Kind) *manifest.Hook {
	switch kind {
	case PreInstall:
		return h.PreInstall
	case PostInstall:
		return h.PostInstall
	case PreProjectInit:
		return h.PreProjectInit
	case PostProjectInit:
		return h.PostProjectInit
	default:
		return nil
	}
}
