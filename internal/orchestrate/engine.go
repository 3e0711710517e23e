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

// Package orchestrate wires the ten lettered components (C1-C10) together
// into the top-level operations the CLI exposes: install, install-profile,
// remove, validate, status, info, list, list-profiles, bom. It owns no
// business logic of its own beyond sequencing - every decision (collision
// action, conflict strategy, auth outcome) is made by the component that
// owns that concern, the way the teacher's internal/engine.Engine sequences
// Integration.Scan/Plan/Update without second-guessing their results.
package orchestrate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pacphi/sindri/internal/auth"
	"github.com/pacphi/sindri/internal/capability"
	"github.com/pacphi/sindri/internal/collision"
	ctxmerge "github.com/pacphi/sindri/internal/context"
	"github.com/pacphi/sindri/internal/hooks"
	"github.com/pacphi/sindri/internal/install"
	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/projectinit"
	"github.com/pacphi/sindri/internal/ratelimit"
	"github.com/pacphi/sindri/internal/resolve"
	"github.com/pacphi/sindri/internal/rewrite"
	"github.com/pacphi/sindri/internal/seclog"
	"github.com/pacphi/sindri/internal/secureio"
	"github.com/pacphi/sindri/internal/sinderr"
	"github.com/pacphi/sindri/internal/state"
)

// Config locates the on-disk trees the engine reads and writes.
type Config struct {
	ExtensionsRoot string
	RegistryPath   string
	StatePath      string
	ProfilesRoot   string
	RateLimitPath  string

	// RateLimitMax and RateLimitWindow override the rate limiter's sliding
	// window. Zero values fall back to ratelimit.DefaultMax/DefaultWindow.
	RateLimitMax    int
	RateLimitWindow time.Duration
	RateLimitExempt []string
}

// Engine holds the loaded extension collection and every component
// constructed from it, ready to carry out CLI-level operations.
type Engine struct {
	cfg   Config
	col   *manifest.Collection
	reg   *manifest.Registry
	store *state.Store

	installer   *install.Executor
	projectInit *projectinit.Dispatcher
	authMgr     *auth.Manager
	hooksMgr    *hooks.Manager

	logger *slog.Logger
	sec    *seclog.Logger

	loadErrors []error
}

// New loads the registry and every extension manifest under cfg, and wires
// the components that need no per-operation state.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reg, err := manifest.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		return nil, err
	}

	loader := manifest.NewLoader(cfg.ExtensionsRoot)
	extensions, loadErrors := loader.LoadAll()
	col := manifest.NewCollection(extensions)

	authMgr := auth.NewManager()
	max := cfg.RateLimitMax
	if max <= 0 {
		max = ratelimit.DefaultMax
	}
	window := cfg.RateLimitWindow
	if window <= 0 {
		window = ratelimit.DefaultWindow
	}
	limiter := ratelimit.New(cfg.RateLimitPath, max, window, cfg.RateLimitExempt)

	return &Engine{
		cfg:         cfg,
		col:         col,
		reg:         reg,
		store:       state.Open(cfg.StatePath),
		installer:   install.NewExecutor(logger, limiter),
		projectInit: projectinit.NewDispatcher(authMgr),
		authMgr:     authMgr,
		hooksMgr:    hooks.NewManager(),
		logger:      logger,
		sec:         seclog.New(logger),
		loadErrors:  loadErrors,
	}, nil
}

// LoadErrors returns the per-manifest errors collected while loading the
// extension tree; a non-empty result does not mean New failed, since C1
// aggregates manifest failures instead of aborting.
func (e *Engine) LoadErrors() []error { return e.loadErrors }

// priorityLookup adapts the loaded collection to resolve.PriorityLookup.
func (e *Engine) priorityLookup(name string) int {
	ext, err := e.col.Get(name)
	if err != nil {
		return 100
	}
	return ext.Capabilities.ProjectInit.EffectivePriority()
}

// ExtensionOutcome is the per-extension result of an install/remove/init
// operation, returned to the CLI layer for rendering.
type ExtensionOutcome struct {
	Name                string
	Reason              string
	Installed           bool
	AlreadyInitialized  bool
	ProjectInitialized  bool
	CollisionAction     string
	Warnings            []string
	Err                 error
}

// Report is the full result of a resolved multi-extension operation.
type Report struct {
	Order    []string
	Outcomes map[string]*ExtensionOutcome
}

func newReport() *Report {
	return &Report{Outcomes: map[string]*ExtensionOutcome{}}
}

func (r *Report) outcome(name, reason string) *ExtensionOutcome {
	o := &ExtensionOutcome{Name: name, Reason: reason}
	r.Order = append(r.Order, name)
	r.Outcomes[name] = o
	return o
}

// resolveClosure runs C3 against the registry for names requested either
// directly or via a profile.
func (e *Engine) resolveClosure(names []string) ([]resolve.Resolution, error) {
	return resolve.Resolve(names, e.reg, e.priorityLookup)
}

// InstallExtensions installs every extension in the resolved closure of
// names, in resolver order, then (for extensions with an enabled
// project-init capability) initializes projectDir. profileExempt mirrors
// spec.md §4.4: profile installs are exempt from the per-extension rate
// limiter.
func (e *Engine) InstallExtensions(ctx context.Context, names []string, projectDir string, profileExempt bool) (*Report, error) {
	order, err := e.resolveClosure(names)
	if err != nil {
		return nil, err
	}

	report := newReport()
	for _, r := range order {
		oc := report.outcome(r.Name, r.Reason)
		ext, err := e.col.Get(r.Name)
		if err != nil {
			oc.Err = err
			continue
		}

		if err := e.installOne(ctx, ext, projectDir, profileExempt, oc); err != nil {
			oc.Err = err
			e.logger.Error("install failed", "extension", ext.Metadata.Name, "error", err)
			continue
		}

		if projectDir != "" && ext.Capabilities.ProjectInit.Enabled {
			if err := e.initOne(ctx, ext, projectDir, oc); err != nil {
				oc.Err = err
				e.logger.Error("project-init failed", "extension", ext.Metadata.Name, "error", err)
			}
		}
	}
	return report, nil
}

// InstallProfile loads a named profile and installs its extensions as one
// resolved operation (profile installs are exempt from the per-extension
// rate limiter).
func (e *Engine) InstallProfile(ctx context.Context, profileName, projectDir string) (*Report, error) {
	prof, err := manifest.LoadProfile(filepath.Join(e.cfg.ProfilesRoot, profileName+".yaml"))
	if err != nil {
		return nil, err
	}
	return e.InstallExtensions(ctx, prof.Extensions, projectDir, true)
}

func (e *Engine) installOne(ctx context.Context, ext *manifest.Extension, projectDir string, profileExempt bool, oc *ExtensionOutcome) error {
	name := ext.Metadata.Name

	installed, err := e.store.IsInstalled(name)
	if err != nil {
		return err
	}
	if installed {
		oc.Installed = true
		oc.Warnings = append(oc.Warnings, "already installed, skipping recipe")
		return nil
	}

	preOutcome := e.hooksMgr.Run(ctx, ext, hooks.PreInstall, ".")
	if preOutcome.Ran && preOutcome.Err != nil {
		return sinderr.Wrap(sinderr.InstallFailed, name+": pre-install hook", preOutcome.Err)
	}

	installer := e.installer
	if profileExempt {
		installer = install.NewExecutor(e.logger, nil)
	}

	out, err := installer.Install(ctx, ext, projectDir)
	e.sec.Record(ctx, seclog.Event{
		Type: seclog.EventInstall, Actor: "sindri", Action: "install", Resource: name,
		Result:  resultOf(err == nil && out.OK),
		Details: fmt.Sprintf("duration_ms=%d", out.DurationMs),
	})
	if err != nil {
		return err
	}
	if !out.OK {
		return sinderr.New(sinderr.InstallFailed, name)
	}

	if _, err := installer.ApplyTemplates(ext, projectDir); err != nil {
		oc.Warnings = append(oc.Warnings, "template apply failed: "+err.Error())
	}

	postOutcome := e.hooksMgr.Run(ctx, ext, hooks.PostInstall, ".")
	if postOutcome.Ran && postOutcome.Err != nil {
		oc.Warnings = append(oc.Warnings, "post-install hook failed: "+postOutcome.Err.Error())
	}

	if err := e.store.Add(state.InstalledExtension{
		Name:        name,
		Version:     ext.Metadata.Version,
		InstalledAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	oc.Installed = true
	return nil
}

// initOne runs C6/C7/C5/C9/C8 for a single extension's project-init
// capability against projectDir, per spec.md §2's control flow.
func (e *Engine) initOne(ctx context.Context, ext *manifest.Extension, projectDir string, oc *ExtensionOutcome) error {
	name := ext.Metadata.Name
	ch := ext.Capabilities.CollisionHandling

	if len(ch.VersionMarkers) > 0 {
		detected, err := collision.DetectVersion(ch.VersionMarkers, projectDir)
		if err != nil {
			return err
		}
		if detected != "none" && detected != "" {
			markerPath, err := collision.DetectVersionMarkerPath(ch.VersionMarkers, projectDir)
			if err != nil {
				return err
			}
			decision, err := collision.HandleCollision(ch.Scenarios, detected, ext.Metadata.Version, markerPath)
			if err != nil {
				return err
			}
			oc.CollisionAction = string(decision.Action)
			e.sec.Record(ctx, seclog.Event{
				Type: seclog.EventCollision, Actor: "sindri", Action: string(decision.Action),
				Resource: name, Result: seclog.ResultSuccess, Details: decision.Message,
			})
			if decision.Action == manifest.ActionStop || decision.Action == manifest.ActionSkip || decision.Action == manifest.ActionPrompt {
				oc.Warnings = append(oc.Warnings, "collision: "+decision.Message)
				return nil
			}
		}
	}

	preOutcome := e.hooksMgr.Run(ctx, ext, hooks.PreProjectInit, projectDir)
	if preOutcome.Ran && preOutcome.Err != nil {
		return sinderr.Wrap(sinderr.CommandFailed, name+": pre-project-init hook", preOutcome.Err)
	}

	result, err := e.projectInit.Run(ctx, ext, projectDir)
	e.sec.Record(ctx, seclog.Event{
		Type: seclog.EventProjectInit, Actor: "sindri", Action: "init", Resource: name,
		Result: resultOf(err == nil),
	})
	oc.AlreadyInitialized = result.AlreadyInitialized
	if err != nil {
		return err
	}
	oc.ProjectInitialized = !result.AlreadyInitialized

	if rules := ch.ConflictRules; len(rules) > 0 && !result.AlreadyInitialized {
		if err := e.resolveProjectInitConflicts(ctx, name, rules, projectDir, oc); err != nil {
			return err
		}
	}

	pc := ext.Capabilities.ProjectContext
	if pc.Enabled() {
		mergeResult, err := ctxmerge.Merge(pc.MergeFile, ext.Dir, projectDir)
		details := ""
		if err == nil && mergeResult.Diff != "" {
			additions, deletions := rewrite.CountChanges(mergeResult.Diff)
			details = fmt.Sprintf("+%d -%d", additions, deletions)
		}
		e.sec.Record(ctx, seclog.Event{
			Type: seclog.EventContextMerge, Actor: "sindri", Action: string(pc.MergeFile.Strategy),
			Resource: pc.MergeFile.Target, Result: resultOf(err == nil), Details: details,
		})
		if err != nil {
			oc.Warnings = append(oc.Warnings, "context merge failed: "+err.Error())
		} else if mergeResult.Warning != "" {
			oc.Warnings = append(oc.Warnings, mergeResult.Warning)
		}
	}

	postOutcome := e.hooksMgr.Run(ctx, ext, hooks.PostProjectInit, projectDir)
	if postOutcome.Ran && postOutcome.Err != nil {
		oc.Warnings = append(oc.Warnings, "post-project-init hook failed: "+postOutcome.Err.Error())
	}

	return nil
}

// resolveProjectInitConflicts runs C7's post-init conflict resolution: the
// extension's project-init commands have just finished writing to
// projectDir, so for every declared file rule the file at its path (if any)
// now holds this extension's own output, which ResolveConflicts reconciles
// against whatever a prior extension already wrote there.
func (e *Engine) resolveProjectInitConflicts(ctx context.Context, name string, rules []manifest.ConflictRule, projectDir string, oc *ExtensionOutcome) error {
	newContent := make(map[string][]byte, len(rules))
	for _, rule := range rules {
		if rule.IsDir {
			continue
		}
		abs, err := secureio.ValidateWithin(projectDir, rule.Path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(abs) // #nosec G304 - path confined to projectDir by ValidateWithin
		if err != nil {
			if os.IsNotExist(err) {
				continue // the command did not write this path this run
			}
			return sinderr.Wrap(sinderr.CollisionUnresolved, abs, err)
		}
		newContent[rule.Path] = data
	}

	results, err := collision.ResolveConflicts(rules, projectDir, newContent)
	if err != nil {
		return err
	}
	for _, r := range results {
		details := ""
		if r.Diff != "" {
			additions, deletions := rewrite.CountChanges(r.Diff)
			details = fmt.Sprintf("+%d -%d", additions, deletions)
		}
		e.sec.Record(ctx, seclog.Event{
			Type: seclog.EventCollision, Actor: "sindri", Action: r.Action,
			Resource: r.Path, Result: seclog.ResultSuccess, Details: details,
		})
		if r.Skipped {
			oc.Warnings = append(oc.Warnings, fmt.Sprintf("%s: conflict rule for %s reverted to original", name, r.Path))
		}
		if r.Warning != "" {
			oc.Warnings = append(oc.Warnings, fmt.Sprintf("%s: %s", name, r.Warning))
		}
	}
	return nil
}

// RemoveExtensions removes every extension in the dependents-first closure
// of names: protected extensions are rejected by C3's Remove, the paths
// named by each extension's remove recipe are deleted best effort, and the
// state store entry is deleted. The remove recipe's apt packages and script
// are not run.
func (e *Engine) RemoveExtensions(ctx context.Context, names []string) (*Report, error) {
	ordered, err := resolve.Remove(names, e.reg)
	if err != nil {
		return nil, err
	}

	report := newReport()
	for _, name := range ordered {
		oc := report.outcome(name, "requested")
		ext, err := e.col.Get(name)
		if err != nil {
			// No local manifest any more: still remove the state entry.
			if rmErr := e.store.Remove(name); rmErr != nil {
				oc.Err = rmErr
			}
			continue
		}

		if ext.Remove != nil {
			for _, p := range ext.Remove.Paths {
				if rmErr := os.RemoveAll(p); rmErr != nil {
					oc.Warnings = append(oc.Warnings, "remove path failed: "+rmErr.Error())
				}
			}
		}

		if err := e.store.Remove(name); err != nil {
			oc.Err = err
			continue
		}
		oc.Installed = false
	}
	return report, nil
}

// UpgradeExtensions upgrades already-installed extensions according to each
// one's declared upgrade.strategy: "manual" is a no-op the caller is told
// about, "in-place" rewrites the extension's content-match version marker in
// place instead of rerunning the install recipe, and "reinstall"/"automatic"
// (and extensions with no upgrade block at all) fall back to remove-then-
// install.
func (e *Engine) UpgradeExtensions(ctx context.Context, names []string, projectDir string) (*Report, error) {
	report := newReport()
	for _, name := range names {
		oc := report.outcome(name, "requested")
		ext, err := e.col.Get(name)
		if err != nil {
			oc.Err = err
			continue
		}
		installed, err := e.store.IsInstalled(name)
		if err != nil {
			oc.Err = err
			continue
		}
		if !installed {
			oc.Err = sinderr.New(sinderr.ValidationFailed, name+": not installed, nothing to upgrade")
			continue
		}

		strategy := manifest.UpgradeReinstall
		if ext.Upgrade != nil && ext.Upgrade.Strategy != "" {
			strategy = ext.Upgrade.Strategy
		}

		switch strategy {
		case manifest.UpgradeManual:
			oc.Warnings = append(oc.Warnings, "manual upgrade strategy: run the extension's own upgrade steps")
		case manifest.UpgradeInPlace:
			if err := e.upgradeInPlace(ext, projectDir); err != nil {
				oc.Err = err
				continue
			}
			oc.Installed = true
		default: // reinstall, automatic
			if err := e.store.Remove(name); err != nil {
				oc.Err = err
				continue
			}
			if err := e.installOne(ctx, ext, projectDir, false, oc); err != nil {
				oc.Err = err
				continue
			}
		}
	}
	return report, nil
}

// upgradeInPlace rewrites the first content-match version marker to the
// manifest's current version without rerunning the install recipe, then
// updates the state store to match.
func (e *Engine) upgradeInPlace(ext *manifest.Extension, projectDir string) error {
	name := ext.Metadata.Name
	var marker *manifest.VersionMarker
	for i := range ext.Capabilities.CollisionHandling.VersionMarkers {
		if ext.Capabilities.CollisionHandling.VersionMarkers[i].Method == manifest.MarkerContentMatch {
			marker = &ext.Capabilities.CollisionHandling.VersionMarkers[i]
			break
		}
	}
	if marker == nil {
		return sinderr.New(sinderr.ValidationFailed, name+": in-place upgrade requires a content-match version marker")
	}

	markerPath, err := secureio.ValidateWithin(projectDir, marker.Path)
	if err != nil {
		return err
	}
	content, err := secureio.ReadFile(markerPath)
	if err != nil {
		return sinderr.Wrap(sinderr.InstallFailed, "read version marker", err)
	}

	updated, err := rewrite.UpdateYAMLField(string(content), []string{"version"}, ext.Metadata.Version)
	if err != nil {
		return sinderr.Wrap(sinderr.InstallFailed, "rewrite version marker", err)
	}
	if err := secureio.WriteFile(markerPath, []byte(updated), 0o644); err != nil {
		return sinderr.Wrap(sinderr.InstallFailed, "write version marker", err)
	}

	return e.store.Add(state.InstalledExtension{
		Name: name, Version: ext.Metadata.Version, InstalledAt: time.Now().UTC(),
	})
}

// ValidateExtension re-parses and re-validates a single extension by name.
func (e *Engine) ValidateExtension(name string) error {
	_, err := e.col.Get(name)
	return err
}

// ValidateAll resolves every extension that loaded against the registry
// (unknown dependencies, conflicts, cycles) and returns the failures keyed
// by extension name. Manifests that failed to load are not included;
// LoadErrors carries those.
func (e *Engine) ValidateAll() map[string]error {
	results := map[string]error{}
	for name := range e.col.All() {
		if _, err := e.resolveClosure([]string{name}); err != nil {
			results[name] = err
		}
	}
	return results
}

// Status returns every currently installed extension.
func (e *Engine) Status() ([]state.InstalledExtension, error) {
	return e.store.List()
}

// Info returns the full parsed manifest for name.
func (e *Engine) Info(name string) (*manifest.Extension, error) {
	return e.col.Get(name)
}

// List returns every known extension name, optionally filtered to those
// with an enabled capability of the given kind ("" returns every extension).
func (e *Engine) List(capabilityKind string) []string {
	if capabilityKind == "" {
		names := make([]string, 0, len(e.col.All()))
		for name := range e.col.All() {
			names = append(names, name)
		}
		return names
	}
	return e.col.Discover(capabilityKind)
}

// ListProfiles returns every profile under the configured profiles root.
func (e *Engine) ListProfiles() ([]manifest.Profile, error) {
	return manifest.LoadProfiles(e.cfg.ProfilesRoot)
}

// BOM aggregates bill-of-materials entries across every currently installed
// extension.
func (e *Engine) BOM() ([]manifest.BOMTool, error) {
	installed, err := e.store.List()
	if err != nil {
		return nil, err
	}

	var tools []manifest.BOMTool
	for _, inst := range installed {
		ext, err := e.col.Get(inst.Name)
		if err != nil {
			continue
		}
		tools = append(tools, ext.BOM.Tools...)
	}
	return tools, nil
}

// CapabilityOf exposes C2's typed accessor for a loaded extension, so the
// CLI's `info` rendering does not need to reach into manifest internals.
func CapabilityOf(ext *manifest.Extension) capability.Reader {
	return capability.NewReader(ext)
}

func resultOf(ok bool) seclog.Result {
	if ok {
		return seclog.ResultSuccess
	}
	return seclog.ResultFailure
}
