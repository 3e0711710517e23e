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

package orchestrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const registryYAML = `
extensions:
  x:
    category: base
    description: test extension
    protected: false
`

const extensionYAML = `
metadata:
  name: x
  version: "1.0.0"
  description: test extension
  category: base
install:
  method: script
  script:
    path: scripts/install.sh
capabilities:
  project-init:
    enabled: true
    commands:
      - run: mkdir .claude
    state-markers:
      - path: .claude
        type: directory
`

func setupFixture(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()

	extDir := filepath.Join(root, "extensions", "x")
	if err := os.MkdirAll(filepath.Join(extDir, "scripts"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(extDir, "extension.yaml"), []byte(extensionYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(extDir, "scripts", "install.sh"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	regPath := filepath.Join(root, "registry.yaml")
	if err := os.WriteFile(regPath, []byte(registryYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	return Config{
		ExtensionsRoot: filepath.Join(root, "extensions"),
		RegistryPath:   regPath,
		StatePath:      filepath.Join(root, "manifest.yaml"),
		ProfilesRoot:   filepath.Join(root, "profiles"),
		RateLimitPath:  filepath.Join(root, "ratelimit.state"),
	}
}

func TestInstallExtensionsRunsProjectInitAndIsIdempotent(t *testing.T) {
	cfg := setupFixture(t)
	eng, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(eng.LoadErrors()) != 0 {
		t.Fatalf("unexpected load errors: %v", eng.LoadErrors())
	}

	projectDir := t.TempDir()
	ctx := context.Background()

	report, err := eng.InstallExtensions(ctx, []string{"x"}, projectDir, false)
	if err != nil {
		t.Fatalf("InstallExtensions: %v", err)
	}
	oc := report.Outcomes["x"]
	if oc == nil || oc.Err != nil {
		t.Fatalf("expected successful outcome, got %+v", oc)
	}
	if !oc.Installed {
		t.Fatal("expected extension to be marked installed")
	}
	if !oc.ProjectInitialized {
		t.Fatal("expected project-init to have run on first install")
	}
	if _, err := os.Stat(filepath.Join(projectDir, ".claude")); err != nil {
		t.Fatalf("expected state marker directory to exist: %v", err)
	}

	installed, err := eng.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(installed) != 1 || installed[0].Name != "x" {
		t.Fatalf("expected one installed extension, got %+v", installed)
	}

	// Second install: already installed and already initialized, so the
	// recipe and project-init commands do not run again.
	report2, err := eng.InstallExtensions(ctx, []string{"x"}, projectDir, false)
	if err != nil {
		t.Fatalf("second InstallExtensions: %v", err)
	}
	oc2 := report2.Outcomes["x"]
	if oc2 == nil || oc2.Err != nil {
		t.Fatalf("expected successful second outcome, got %+v", oc2)
	}
	if oc2.ProjectInitialized {
		t.Fatal("expected second project-init to be a no-op (state marker short-circuit)")
	}
}

const conflictRegistryYAML = `
extensions:
  x:
    category: base
    description: first writer
    protected: false
  y:
    category: base
    description: second writer
    protected: false
`

func extensionYAMLWritingShared(name, content, action string) string {
	return `
metadata:
  name: ` + name + `
  version: "1.0.0"
  description: writes shared.txt
  category: base
install:
  method: script
  script:
    path: scripts/install.sh
capabilities:
  project-init:
    enabled: true
    commands:
      - run: echo -n "` + content + `" > shared.txt
    state-markers:
      - path: .` + name + `-done
        type: file
  collision-handling:
    conflict-rules:
      - path: shared.txt
        action: ` + action + `
`
}

func setupConflictFixture(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()

	for _, spec := range []struct {
		name, content, action string
	}{
		{"x", "first", "overwrite"},
		{"y", "second", "append"},
	} {
		extDir := filepath.Join(root, "extensions", spec.name)
		if err := os.MkdirAll(filepath.Join(extDir, "scripts"), 0o755); err != nil {
			t.Fatal(err)
		}
		yamlContent := extensionYAMLWritingShared(spec.name, spec.content, spec.action)
		if err := os.WriteFile(filepath.Join(extDir, "extension.yaml"), []byte(yamlContent), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(extDir, "scripts", "install.sh"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	regPath := filepath.Join(root, "registry.yaml")
	if err := os.WriteFile(regPath, []byte(conflictRegistryYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	return Config{
		ExtensionsRoot: filepath.Join(root, "extensions"),
		RegistryPath:   regPath,
		StatePath:      filepath.Join(root, "manifest.yaml"),
		ProfilesRoot:   filepath.Join(root, "profiles"),
		RateLimitPath:  filepath.Join(root, "ratelimit.state"),
	}
}

func TestInstallExtensionsResolvesPostInitConflicts(t *testing.T) {
	cfg := setupConflictFixture(t)
	eng, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	projectDir := t.TempDir()
	ctx := context.Background()

	if _, err := eng.InstallExtensions(ctx, []string{"x"}, projectDir, false); err != nil {
		t.Fatalf("install x: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(projectDir, "shared.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "first" {
		t.Fatalf("after first writer, shared.txt = %q, want %q", got, "first")
	}
	if _, err := os.Stat(filepath.Join(projectDir, "shared.txt.original")); err != nil {
		t.Fatalf("expected shared.txt.original after first writer: %v", err)
	}

	if _, err := eng.InstallExtensions(ctx, []string{"y"}, projectDir, false); err != nil {
		t.Fatalf("install y: %v", err)
	}
	got, err = os.ReadFile(filepath.Join(projectDir, "shared.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "first\nsecond" {
		t.Errorf("after second writer's append rule, shared.txt = %q, want %q", got, "first\nsecond")
	}
}

const collisionBackupExtensionYAML = `
metadata:
  name: z
  version: "2.0.0"
  description: collision backup test
  category: base
install:
  method: script
  script:
    path: scripts/install.sh
capabilities:
  project-init:
    enabled: true
    commands:
      - run: mkdir .claude
    state-markers:
      - path: .claude
        type: directory
  collision-handling:
    version-markers:
      - path: .claude
        method: directory-exists
        version: "1.0.0"
    scenarios:
      - detected-version: "1.0.0"
        installing-version: "2.0.0"
        action: backup
        message: upgrading from v1
`

func setupCollisionBackupFixture(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()

	extDir := filepath.Join(root, "extensions", "z")
	if err := os.MkdirAll(filepath.Join(extDir, "scripts"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(extDir, "extension.yaml"), []byte(collisionBackupExtensionYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(extDir, "scripts", "install.sh"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	registry := `
extensions:
  z:
    category: base
    description: collision backup test
    protected: false
`
	regPath := filepath.Join(root, "registry.yaml")
	if err := os.WriteFile(regPath, []byte(registry), 0o644); err != nil {
		t.Fatal(err)
	}

	return Config{
		ExtensionsRoot: filepath.Join(root, "extensions"),
		RegistryPath:   regPath,
		StatePath:      filepath.Join(root, "manifest.yaml"),
		ProfilesRoot:   filepath.Join(root, "profiles"),
		RateLimitPath:  filepath.Join(root, "ratelimit.state"),
	}
}

// TestInstallExtensionsCollisionBackupRenamesOnlyMarkerPath proves a
// "backup" collision scenario renames the matched state-marker path alone
// (per spec.md's `.claude` → `.claude.backup.<ts>` example), not the whole
// project directory, and that project-init then runs fresh against the
// now-empty marker path.
func TestInstallExtensionsCollisionBackupRenamesOnlyMarkerPath(t *testing.T) {
	cfg := setupCollisionBackupFixture(t)
	eng, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	projectDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(projectDir, ".claude"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, ".claude", "memory.db"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, "README.md"), []byte("keep me"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if _, err := eng.InstallExtensions(ctx, []string{"z"}, projectDir, false); err != nil {
		t.Fatalf("InstallExtensions: %v", err)
	}

	entries, err := os.ReadDir(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	var backupFound bool
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".claude.backup.") {
			backupFound = true
		}
	}
	if !backupFound {
		t.Fatalf("expected a .claude.backup.<ts> directory among %v", entries)
	}
	if _, err := os.Stat(filepath.Join(projectDir, "README.md")); err != nil {
		t.Errorf("expected rest of project directory to survive the backup untouched: %v", err)
	}
	if _, err := os.Stat(filepath.Join(projectDir, ".claude")); err != nil {
		t.Errorf("expected project-init to recreate .claude after the collision backup: %v", err)
	}
}

func TestListAndInfo(t *testing.T) {
	cfg := setupFixture(t)
	eng, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	names := eng.List("")
	if len(names) != 1 || names[0] != "x" {
		t.Fatalf("expected [x], got %v", names)
	}

	piNames := eng.List("project-init")
	if len(piNames) != 1 || piNames[0] != "x" {
		t.Fatalf("expected project-init discovery [x], got %v", piNames)
	}

	ext, err := eng.Info("x")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if ext.Metadata.Version != "1.0.0" {
		t.Fatalf("unexpected version: %s", ext.Metadata.Version)
	}

	if _, err := eng.Info("missing"); err == nil {
		t.Fatal("expected UnknownExtension error")
	}
}

const inPlaceExtensionYAML = `
metadata:
  name: y
  version: "2.0.0"
  description: in-place upgrade test
  category: base
install:
  method: script
  script:
    path: scripts/install.sh
upgrade:
  strategy: in-place
capabilities:
  collision-handling:
    version-markers:
      - path: .y-version.yaml
        method: content-match
        patterns: ["version"]
`

func TestUpgradeExtensionsInPlaceRewritesVersionMarker(t *testing.T) {
	cfg := setupFixture(t)
	extDir := filepath.Join(cfg.ExtensionsRoot, "y")
	if err := os.MkdirAll(filepath.Join(extDir, "scripts"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(extDir, "extension.yaml"), []byte(inPlaceExtensionYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(extDir, "scripts", "install.sh"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	registryWithY := registryYAML + `
  y:
    category: base
    description: in-place upgrade test
    protected: false
`
	if err := os.WriteFile(cfg.RegistryPath, []byte(registryWithY), 0o644); err != nil {
		t.Fatal(err)
	}

	eng, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(eng.LoadErrors()) != 0 {
		t.Fatalf("unexpected load errors: %v", eng.LoadErrors())
	}

	projectDir := t.TempDir()
	markerPath := filepath.Join(projectDir, ".y-version.yaml")
	if err := os.WriteFile(markerPath, []byte("version: 1.0.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if _, err := eng.InstallExtensions(ctx, []string{"y"}, "", false); err != nil {
		t.Fatalf("InstallExtensions: %v", err)
	}

	report, err := eng.UpgradeExtensions(ctx, []string{"y"}, projectDir)
	if err != nil {
		t.Fatalf("UpgradeExtensions: %v", err)
	}
	oc := report.Outcomes["y"]
	if oc == nil || oc.Err != nil {
		t.Fatalf("expected successful upgrade outcome, got %+v", oc)
	}

	content, err := os.ReadFile(markerPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "2.0.0") {
		t.Fatalf("expected version marker rewritten to 2.0.0, got %q", content)
	}

	installed, err := eng.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	var found bool
	for _, inst := range installed {
		if inst.Name == "y" {
			found = true
			if inst.Version != "2.0.0" {
				t.Fatalf("expected state version 2.0.0, got %s", inst.Version)
			}
		}
	}
	if !found {
		t.Fatal("expected y to remain in state store after in-place upgrade")
	}
}

func TestUpgradeExtensionsRejectsNotInstalled(t *testing.T) {
	cfg := setupFixture(t)
	eng, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	report, err := eng.UpgradeExtensions(context.Background(), []string{"x"}, t.TempDir())
	if err != nil {
		t.Fatalf("UpgradeExtensions: %v", err)
	}
	if report.Outcomes["x"].Err == nil {
		t.Fatal("expected upgrading a non-installed extension to fail")
	}
}

func TestRemoveExtensionsRejectsProtected(t *testing.T) {
	cfg := setupFixture(t)
	// Add a protected entry to the registry alongside x.
	protectedRegistry := registryYAML + `
  core:
    category: base
    description: protected core
    protected: true
`
	if err := os.WriteFile(cfg.RegistryPath, []byte(protectedRegistry), 0o644); err != nil {
		t.Fatal(err)
	}

	eng, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := eng.RemoveExtensions(context.Background(), []string{"core"}); err == nil {
		t.Fatal("expected removing a protected extension to fail")
	}
}
