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

// writeOriginal seeds both a file and its ".original" sibling, simulating
// a prior extension having already written this path once.
func writeOriginal(t *testing.T, dir, name, content string) string {
	t.Helper()
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target+".original", []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return target
}

func TestResolveConflictsFirstWriterHasNoConflict(t *testing.T) {
	dir := t.TempDir()

	rules := []manifest.ConflictRule{{Path: "file.txt", Action: string(manifest.FileSkip)}}
	results, err := ResolveConflicts(rules, dir, map[string][]byte{"file.txt": []byte("new")})
	if err != nil {
		t.Fatalf("ResolveConflicts() error = %v", err)
	}
	if results[0].Skipped {
		t.Error("first writer must not be skipped even when the rule's action is skip")
	}

	got, _ := os.ReadFile(filepath.Join(dir, "file.txt"))
	if string(got) != "new" {
		t.Errorf("first writer content = %q, want %q", got, "new")
	}
	if _, err := os.Stat(filepath.Join(dir, "file.txt.original")); err != nil {
		t.Errorf("expected .original sibling to be created: %v", err)
	}
}

func TestResolveConflictsOverwrite(t *testing.T) {
	dir := t.TempDir()
	target := writeOriginal(t, dir, "file.txt", "old")

	rules := []manifest.ConflictRule{{Path: "file.txt", Action: string(manifest.FileOverwrite)}}
	results, err := ResolveConflicts(rules, dir, map[string][]byte{"file.txt": []byte("new")})
	if err != nil {
		t.Fatalf("ResolveConflicts() error = %v", err)
	}
	if len(results) != 1 || results[0].Skipped {
		t.Fatalf("unexpected results: %+v", results)
	}

	got, _ := os.ReadFile(target)
	if string(got) != "new" {
		t.Errorf("content = %q, want %q", got, "new")
	}
}

func TestResolveConflictsAppend(t *testing.T) {
	dir := t.TempDir()
	target := writeOriginal(t, dir, "file.txt", "old")

	rules := []manifest.ConflictRule{{Path: "file.txt", Action: string(manifest.FileAppend)}}
	results, err := ResolveConflicts(rules, dir, map[string][]byte{"file.txt": []byte("new")})
	if err != nil {
		t.Fatalf("ResolveConflicts() error = %v", err)
	}

	got, _ := os.ReadFile(target)
	if string(got) != "old\nnew" {
		t.Errorf("content = %q, want %q", got, "old\nnew")
	}
	if !strings.Contains(results[0].Diff, "+new") {
		t.Errorf("Diff = %q, want it to show the appended line as an addition", results[0].Diff)
	}
}

func TestResolveConflictsMergeJSON(t *testing.T) {
	dir := t.TempDir()
	target := writeOriginal(t, dir, "settings.json", `{"a":1,"nested":{"x":1}}`)

	rules := []manifest.ConflictRule{{Path: "settings.json", Action: string(manifest.FileMergeJSON)}}
	if _, err := ResolveConflicts(rules, dir, map[string][]byte{"settings.json": []byte(`{"b":2,"nested":{"y":2}}`)}); err != nil {
		t.Fatalf("ResolveConflicts() error = %v", err)
	}

	got, _ := os.ReadFile(target)
	s := string(got)
	for _, want := range []string{`"a": 1`, `"b": 2`, `"x": 1`, `"y": 2`} {
		if !strings.Contains(s, want) {
			t.Errorf("merged JSON missing %q: %s", want, s)
		}
	}
}

func TestResolveConflictsMergeJSONFailureKeepsNewContent(t *testing.T) {
	dir := t.TempDir()
	target := writeOriginal(t, dir, "settings.json", `not valid json`)

	rules := []manifest.ConflictRule{{Path: "settings.json", Action: string(manifest.FileMergeJSON)}}
	results, err := ResolveConflicts(rules, dir, map[string][]byte{"settings.json": []byte(`{"b":2}`)})
	if err != nil {
		t.Fatalf("ResolveConflicts() error = %v", err)
	}
	if results[0].Warning == "" {
		t.Error("expected a warning when merge-json fails")
	}

	got, _ := os.ReadFile(target)
	if string(got) != `{"b":2}` {
		t.Errorf("content = %q, want new content kept as-is on merge failure", got)
	}
}

func TestResolveConflictsSkip(t *testing.T) {
	dir := t.TempDir()
	target := writeOriginal(t, dir, "file.txt", "old")

	rules := []manifest.ConflictRule{{Path: "file.txt", Action: string(manifest.FileSkip)}}
	results, err := ResolveConflicts(rules, dir, map[string][]byte{"file.txt": []byte("new")})
	if err != nil {
		t.Fatal(err)
	}
	if !results[0].Skipped {
		t.Error("expected skipped = true")
	}

	got, _ := os.ReadFile(target)
	if string(got) != "old" {
		t.Error("skip should leave existing content untouched")
	}
}

func TestResolveConflictsEnvOverrideStrategy(t *testing.T) {
	t.Setenv("EXTENSION_CONFLICT_STRATEGY", "skip")
	dir := t.TempDir()
	writeOriginal(t, dir, "file.txt", "old")

	rules := []manifest.ConflictRule{{Path: "file.txt", Action: string(manifest.FileOverwrite)}}
	results, err := ResolveConflicts(rules, dir, map[string][]byte{"file.txt": []byte("new")})
	if err != nil {
		t.Fatal(err)
	}
	if !results[0].Skipped {
		t.Error("expected env override to force skip despite rule declaring overwrite")
	}
}

func TestResolveConflictsDirBackupAndReplace(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "plugin")
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	rules := []manifest.ConflictRule{{Path: "plugin", IsDir: true, Action: string(manifest.DirBackupAndReplace)}}
	results, err := ResolveConflicts(rules, dir, nil)
	if err != nil {
		t.Fatalf("ResolveConflicts() error = %v", err)
	}
	if results[0].BackupPath == "" {
		t.Error("expected a backup path to be recorded")
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("expected original directory to be removed after backup-and-replace")
	}
	if _, err := os.Stat(filepath.Join(results[0].BackupPath, "a.txt")); err != nil {
		t.Errorf("expected backup to contain a.txt: %v", err)
	}
}
