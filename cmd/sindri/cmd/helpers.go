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

package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pacphi/sindri/internal/display"
	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/orchestrate"
)

// setupEngine loads the registry and extension tree rooted at the
// persistent-flag paths and wires every component into an orchestrate.Engine.
func setupEngine() (*orchestrate.Engine, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: GetLogLevel(),
	}))

	absExtensionsDir, err := filepath.Abs(extensionsDir)
	if err != nil {
		return nil, err
	}
	absRegistryPath, err := filepath.Abs(registryPath)
	if err != nil {
		return nil, err
	}
	absStatePath, err := filepath.Abs(statePath)
	if err != nil {
		return nil, err
	}
	absProfilesDir, err := filepath.Abs(profilesDir)
	if err != nil {
		return nil, err
	}

	absConfigPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, err
	}
	sindriConfig, err := manifest.LoadConfig(absConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load sindri.yaml: %w", err)
	}

	cfg := orchestrate.Config{
		ExtensionsRoot:  absExtensionsDir,
		RegistryPath:    absRegistryPath,
		StatePath:       absStatePath,
		ProfilesRoot:    absProfilesDir,
		RateLimitPath:   filepath.Join(filepath.Dir(absStatePath), "ratelimit.state"),
		RateLimitMax:    sindriConfig.RateLimit.Max,
		RateLimitWindow: time.Duration(sindriConfig.RateLimit.WindowSecs) * time.Second,
		RateLimitExempt: sindriConfig.RateLimit.ExemptNames,
	}

	eng, err := orchestrate.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("load extensions: %w", err)
	}

	for _, loadErr := range eng.LoadErrors() {
		logger.Warn("skipped extension manifest", "error", loadErr)
	}

	return eng, nil
}

// printReport renders an install/remove report as a status table, then
// returns an error if any extension in it failed.
func printReport(w io.Writer, report *orchestrate.Report) error {
	rows := make([]display.Row, 0, len(report.Order))
	var failed []string
	for _, name := range report.Order {
		oc := report.Outcomes[name]
		status := "ok"
		if oc.Err != nil {
			status = "failed: " + oc.Err.Error()
			failed = append(failed, name)
		} else if len(oc.Warnings) > 0 {
			status = "ok (" + fmt.Sprint(len(oc.Warnings)) + " warning(s))"
		}
		rows = append(rows, display.Row{name, oc.Reason, status})
	}
	display.Table(w, display.Row{"EXTENSION", "REASON", "STATUS"}, rows)

	for _, name := range report.Order {
		for _, warn := range report.Outcomes[name].Warnings {
			fmt.Fprintf(w, "  %s: %s\n", name, warn)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed: %v", failed)
	}
	return nil
}
