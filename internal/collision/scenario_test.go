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

package collision

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pacphi/sindri/internal/manifest"
)

func TestHandleCollisionExactMatch(t *testing.T) {
	scenarios := []manifest.CollisionScenario{
		{DetectedVersion: "1.0.0", InstallingVersion: "2.0.0", Action: manifest.ActionStop, Message: "downgrade not allowed"},
	}
	d, err := HandleCollision(scenarios, "1.0.0", "2.0.0", "")
	if err != nil {
		t.Fatal(err)
	}
	if d.Action != manifest.ActionStop {
		t.Errorf("Action = %s, want stop", d.Action)
	}
}

func TestHandleCollisionWildcardMatch(t *testing.T) {
	scenarios := []manifest.CollisionScenario{
		{DetectedVersion: "*", InstallingVersion: "*", Action: manifest.ActionSkip},
	}
	d, err := HandleCollision(scenarios, "9.9.9", "1.2.3", "")
	if err != nil {
		t.Fatal(err)
	}
	if d.Action != manifest.ActionSkip {
		t.Errorf("Action = %s, want skip", d.Action)
	}
}

func TestHandleCollisionNoMatchDefaultsToProceed(t *testing.T) {
	d, err := HandleCollision(nil, "1.0.0", "2.0.0", "")
	if err != nil {
		t.Fatal(err)
	}
	if d.Action != manifest.ActionProceed {
		t.Errorf("Action = %s, want proceed", d.Action)
	}
}

func TestHandleCollisionBackupRenamesMarkerPath(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(target, []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	scenarios := []manifest.CollisionScenario{
		{DetectedVersion: "1.0.0", InstallingVersion: "1.1.0", Action: manifest.ActionBackup},
	}
	d, err := HandleCollision(scenarios, "1.0.0", "1.1.0", target)
	if err != nil {
		t.Fatalf("HandleCollision() error = %v", err)
	}
	if !d.DidBackup {
		t.Fatal("expected DidBackup = true")
	}
	if !strings.Contains(d.BackupPath, ".backup.") {
		t.Errorf("BackupPath = %q, want a \".backup.<timestamp>\" suffix", d.BackupPath)
	}
	if _, err := os.Stat(d.BackupPath); err != nil {
		t.Errorf("expected backup file to exist at %s: %v", d.BackupPath, err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("expected original marker path to be renamed away, not left in place")
	}
}
