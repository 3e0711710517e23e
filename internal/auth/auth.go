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

// Package auth checks whether an extension's declared auth provider is
// usable before a project-init command that requires it runs.
package auth

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pacphi/sindri/internal/exec"
	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/sinderr"
)

const (
	validatorTimeout = 30 * time.Second
	cliProbeTimeout  = 10 * time.Second
)

// Provider is the closed set of auth providers a manifest may declare.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGitHub    Provider = "github"
	ProviderCustom    Provider = "custom"
	ProviderNone      Provider = "none"
)

// Status is the result of checking one extension's auth capability.
type Status struct {
	Provider Provider
	Required bool
	OK       bool
	Reason   string
}

// Manager checks auth capabilities against the process environment and,
// for the custom provider, a validator command.
type Manager struct{}

// NewManager creates an auth Manager.
func NewManager() *Manager { return &Manager{} }

// CheckExtensionAuth evaluates ext's auth capability, if any. It first walks
// ac.EnvVars (the manifest's own declared credential vars): an unset var
// fails the check outright when the capability is required, or is recorded
// as a warning reason otherwise. It then validates the declared provider
// itself (the five built-in kinds plus custom). A missing or invalid
// provider check is only fatal via RequireOK when Required is true;
// otherwise the check is advisory and the caller decides whether to warn.
func (m *Manager) CheckExtensionAuth(ctx context.Context, ac manifest.AuthCapability) Status {
	provider := Provider(ac.Provider)
	status := Status{Provider: provider, Required: ac.Required}

	var warning string
	for _, name := range ac.EnvVars {
		if os.Getenv(name) != "" {
			continue
		}
		if ac.Required {
			status.Reason = fmt.Sprintf("required env var %s is not set", name)
			return status
		}
		warning = fmt.Sprintf("env var %s is not set", name)
	}

	ok, reason := m.validateProvider(ctx, provider, ac)
	status.OK = ok
	switch {
	case reason != "":
		status.Reason = reason
	case warning != "":
		status.Reason = warning
	}
	return status
}

// CheckProvider validates provider directly, independent of any
// extension-level auth capability's Required flag: this is what C5 consults
// for a command's own `requiresAuth`, which names the provider the command
// needs regardless of whether the extension's `auth` capability is itself
// required. ac supplies provider-specific configuration (the custom
// provider's validator command) when present.
func (m *Manager) CheckProvider(ctx context.Context, provider Provider, ac manifest.AuthCapability) Status {
	ok, reason := m.validateProvider(ctx, provider, ac)
	return Status{Provider: provider, Required: true, OK: ok, Reason: reason}
}

func (m *Manager) validateProvider(ctx context.Context, provider Provider, ac manifest.AuthCapability) (bool, string) {
	switch provider {
	case ProviderNone:
		return true, ""
	case ProviderAnthropic:
		return m.checkAnthropic(ctx)
	case ProviderOpenAI:
		return m.checkOpenAI()
	case ProviderGitHub:
		return m.checkGitHub(ctx)
	case ProviderCustom:
		return m.checkCustom(ctx, ac)
	default:
		return false, fmt.Sprintf("unknown auth provider %q", provider)
	}
}

// checkAnthropic requires ANTHROPIC_API_KEY to be set and the claude CLI to
// be present and responsive to --version.
func (m *Manager) checkAnthropic(ctx context.Context) (bool, string) {
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return false, "ANTHROPIC_API_KEY is not set"
	}
	res, err := exec.Run(ctx, exec.Invocation{Command: "claude --version", Timeout: cliProbeTimeout})
	if err != nil {
		return false, fmt.Sprintf("claude CLI probe failed: %v", err)
	}
	if res.ExitCode != 0 {
		return false, fmt.Sprintf("claude --version exited %d", res.ExitCode)
	}
	return true, ""
}

// checkOpenAI requires only the env var; the spec explicitly calls out no
// upstream call for this provider.
func (m *Manager) checkOpenAI() (bool, string) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return false, "OPENAI_API_KEY is not set"
	}
	return true, ""
}

// checkGitHub requires the gh CLI to report an authenticated session.
func (m *Manager) checkGitHub(ctx context.Context) (bool, string) {
	res, err := exec.Run(ctx, exec.Invocation{Command: "gh auth status", Timeout: cliProbeTimeout})
	if err != nil {
		return false, fmt.Sprintf("gh CLI probe failed: %v", err)
	}
	if res.ExitCode != 0 {
		return false, "gh auth status reports no authenticated session"
	}
	return true, ""
}

func (m *Manager) checkCustom(ctx context.Context, ac manifest.AuthCapability) (bool, string) {
	if ac.Validator == nil || ac.Validator.Command == "" {
		return false, "custom provider declares no validator command"
	}

	res, err := exec.Run(ctx, exec.Invocation{Command: ac.Validator.Command, Timeout: validatorTimeout})
	if err != nil {
		return false, err.Error()
	}

	expected := ac.Validator.ExpectedExitCode
	if res.ExitCode != expected {
		return false, fmt.Sprintf("validator exited %d, want %d", res.ExitCode, expected)
	}
	return true, ""
}

// RequireOK returns an AuthMissing error iff status reports a required
// capability that failed its check.
func RequireOK(status Status) error {
	if status.OK || !status.Required {
		return nil
	}
	return sinderr.New(sinderr.AuthMissing, fmt.Sprintf("%s: %s", status.Provider, status.Reason))
}
