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

// Package projectinit runs an extension's project-init commands against a
// freshly created project directory, in declared order, one extension at a
// time. Concurrency is deliberately not offered here: project-init commands
// commonly write to the same files (.gitignore, README, CI config) and
// interleaving them would race.
package projectinit

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/pacphi/sindri/internal/auth"
	"github.com/pacphi/sindri/internal/exec"
	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/secureio"
	"github.com/pacphi/sindri/internal/sinderr"
)

const defaultCommandTimeout = 300 * time.Second
const validationTimeout = 60 * time.Second

// CommandResult records the outcome of one project-init command.
type CommandResult struct {
	Command string
	Skipped bool
	Reason  string
	Result  exec.Result
}

// ExtensionResult is the full outcome of running one extension's project-init.
type ExtensionResult struct {
	Extension string
	AlreadyInitialized bool
	Commands           []CommandResult
	ValidationPassed   bool
}

// Dispatcher runs project-init commands for extensions against a project
// directory.
type Dispatcher struct {
	authMgr *auth.Manager
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(authMgr *auth.Manager) *Dispatcher {
	return &Dispatcher{authMgr: authMgr}
}

// Run executes ext's project-init commands in declared order against
// projectDir. If every declared state marker already exists, the extension
// is treated as already initialized and no commands run.
func (d *Dispatcher) Run(ctx context.Context, ext *manifest.Extension, projectDir string) (ExtensionResult, error) {
	pi := ext.Capabilities.ProjectInit
	result := ExtensionResult{Extension: ext.Metadata.Name}

	if alreadyInitialized(pi.StateMarkers, projectDir) {
		result.AlreadyInitialized = true
		return result, nil
	}

	for _, cmd := range pi.Commands {
		cr, err := d.runCommand(ctx, ext, cmd, projectDir)
		result.Commands = append(result.Commands, cr)
		if err != nil {
			return result, err
		}
	}

	if pi.Validation != nil {
		ok, err := d.validate(ctx, *pi.Validation, projectDir)
		if err != nil {
			return result, err
		}
		result.ValidationPassed = ok
		if !ok {
			return result, sinderr.New(sinderr.ValidationFailed, fmt.Sprintf("%s: project-init validation failed", ext.Metadata.Name))
		}
	} else {
		result.ValidationPassed = true
	}

	return result, nil
}

func (d *Dispatcher) runCommand(ctx context.Context, ext *manifest.Extension, cmd manifest.ProjectInitCommand, projectDir string) (CommandResult, error) {
	cr := CommandResult{Command: cmd.Run}

	if cmd.RequiresAuth != "" && cmd.RequiresAuth != "none" {
		status := d.authMgr.CheckProvider(ctx, auth.Provider(cmd.RequiresAuth), ext.Capabilities.Auth)
		if !status.OK {
			if cmd.Conditional {
				cr.Skipped = true
				cr.Reason = status.Reason
				return cr, nil
			}
			return cr, sinderr.New(sinderr.AuthMissing, fmt.Sprintf("%s: %s", status.Provider, status.Reason))
		}
	}

	run, err := rewriteScriptInvocation(cmd.Run, ext.Dir)
	if err != nil {
		return cr, err
	}

	res, err := exec.Run(ctx, exec.Invocation{
		Command: run,
		Cwd:     projectDir,
		Env:     []string{"PATH=" + os.Getenv("PATH"), "HOME=" + os.Getenv("HOME")},
		Timeout: defaultCommandTimeout,
	})
	cr.Result = res

	if err != nil {
		if cmd.Conditional {
			cr.Skipped = true
			cr.Reason = err.Error()
			return cr, nil
		}
		return cr, sinderr.Wrap(sinderr.CommandFailed, cmd.Run, err)
	}
	if res.ExitCode != 0 {
		if cmd.Conditional {
			cr.Skipped = true
			cr.Reason = fmt.Sprintf("exit code %d", res.ExitCode)
			return cr, nil
		}
		return cr, sinderr.New(sinderr.CommandFailed, fmt.Sprintf("%s: exit code %d", cmd.Run, res.ExitCode))
	}

	return cr, nil
}

// scriptInvocation matches a project-init command that invokes a script
// relative to the extension directory (bash scripts/x.sh, sh scripts/x.sh),
// rewriting it to an absolute path so the command does not depend on the
// caller's working directory.
var scriptInvocation = regexp.MustCompile(`^(bash|sh)\s+(scripts/\S+)(.*)$`)

func rewriteScriptInvocation(run, extDir string) (string, error) {
	m := scriptInvocation.FindStringSubmatch(run)
	if m == nil {
		return run, nil
	}
	shell, rel, rest := m[1], m[2], m[3]
	abs, err := secureio.ValidateWithin(extDir, rel)
	if err != nil {
		return "", sinderr.Wrap(sinderr.PathEscape, rel, err)
	}
	return fmt.Sprintf("%s %s%s", shell, abs, rest), nil
}

func alreadyInitialized(markers []manifest.StateMarker, projectDir string) bool {
	if len(markers) == 0 {
		return false
	}
	for _, marker := range markers {
		path, err := secureio.ValidateWithin(projectDir, marker.Path)
		if err != nil {
			return false
		}
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		switch marker.Type {
		case "directory":
			if !info.IsDir() {
				return false
			}
		case "file":
			if info.IsDir() {
				return false
			}
		}
	}
	return true
}

func (d *Dispatcher) validate(ctx context.Context, v manifest.ProjectInitValidation, projectDir string) (bool, error) {
	res, err := exec.Run(ctx, exec.Invocation{
		Command: v.Command,
		Cwd:     projectDir,
		Env:     []string{"PATH=" + os.Getenv("PATH")},
		Timeout: validationTimeout,
	})
	if err != nil {
		return false, sinderr.Wrap(sinderr.CommandFailed, v.Command, err)
	}
	if res.ExitCode != v.ExpectedExitCode {
		return false, nil
	}

	pattern := v.ExpectedPattern
	if pattern == "" {
		pattern = ".*"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, sinderr.Wrap(sinderr.ValidationFailed, "invalid expectedPattern", err)
	}
	return re.MatchString(res.Stdout), nil
}
