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

// Package capability provides typed, stateless accessors over an extension
// manifest's capability bundle. Every accessor returns (value, ok) rather
// than a populated-but-meaningless zero value, so callers never have to
// guess whether an empty capability means "absent" or "declared empty".
package capability

import "github.com/pacphi/sindri/internal/manifest"

// Reader is a thin, stateless view over one extension's capabilities.
type Reader struct {
	ext *manifest.Extension
}

// NewReader wraps an extension for capability access.
func NewReader(ext *manifest.Extension) Reader {
	return Reader{ext: ext}
}

// ProjectInit returns the project-init capability iff it is enabled.
func (r Reader) ProjectInit() (manifest.ProjectInit, bool) {
	pi := r.ext.Capabilities.ProjectInit
	if !pi.Enabled {
		return manifest.ProjectInit{}, false
	}
	return pi, true
}

// Auth returns the auth capability iff a provider is declared. Per spec.md
// §3, auth has no `enabled` flag: presence of its required sub-fields is the
// enablement signal.
func (r Reader) Auth() (manifest.AuthCapability, bool) {
	a := r.ext.Capabilities.Auth
	if !a.Enabled() {
		return manifest.AuthCapability{}, false
	}
	return a, true
}

// Hook returns one of the four lifecycle hook kinds iff declared.
func (r Reader) Hook(kind string) (manifest.Hook, bool) {
	h := r.ext.Capabilities.Hooks
	var hook *manifest.Hook
	switch kind {
	case "pre-install":
		hook = h.PreInstall
	case "post-install":
		hook = h.PostInstall
	case "pre-project-init":
		hook = h.PreProjectInit
	case "post-project-init":
		hook = h.PostProjectInit
	}
	if hook == nil || hook.Command == "" {
		return manifest.Hook{}, false
	}
	return *hook, true
}

// MCP returns the mcp capability iff enabled.
func (r Reader) MCP() (manifest.MCP, bool) {
	m := r.ext.Capabilities.MCP
	if !m.Enabled {
		return manifest.MCP{}, false
	}
	return m, true
}

// CollisionHandling returns the collision-handling capability iff it
// declares at least one version marker, scenario, or conflict rule.
func (r Reader) CollisionHandling() (manifest.CollisionHandling, bool) {
	ch := r.ext.Capabilities.CollisionHandling
	if len(ch.VersionMarkers) == 0 && len(ch.Scenarios) == 0 && len(ch.ConflictRules) == 0 {
		return manifest.CollisionHandling{}, false
	}
	return ch, true
}

// ProjectContext returns the project-context capability iff enabled.
func (r Reader) ProjectContext() (manifest.ProjectContext, bool) {
	pc := r.ext.Capabilities.ProjectContext
	if !pc.Enabled() {
		return manifest.ProjectContext{}, false
	}
	return pc, true
}

// Priority returns the effective discovery priority for a named capability
// kind, defaulting to 100 when absent, matching C1.Discover's ordering rule.
func (r Reader) Priority(kind string) int {
	switch kind {
	case "project-init":
		if pi, ok := r.ProjectInit(); ok {
			return pi.EffectivePriority()
		}
	}
	return 100
}
