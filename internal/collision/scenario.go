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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/sinderr"
)

// Decision is the outcome of matching a detected/installing version pair
// against an extension's declared scenarios.
type Decision struct {
	Action       manifest.CollisionAction
	Message      string
	BackupPath   string
	DidBackup    bool
}

// HandleCollision matches detectedVersion/installingVersion against the
// extension's declared scenarios in order, returning the first match.
// Per spec.md's explicit open-question resolution, matching uses exact
// string equality on both fields; "*" matches any value for either field.
// markerPath is the on-disk path of whichever version marker detected the
// prior install (see DetectVersionMarkerPath); a "backup" action renames
// that path out of the way rather than the whole project directory.
func HandleCollision(scenarios []manifest.CollisionScenario, detectedVersion, installingVersion string, markerPath string) (Decision, error) {
	for _, s := range scenarios {
		if !matches(s.DetectedVersion, detectedVersion) || !matches(s.InstallingVersion, installingVersion) {
			continue
		}

		d := Decision{Action: s.Action, Message: s.Message}
		if s.Action == manifest.ActionBackup {
			backupPath, err := renameToBackup(markerPath)
			if err != nil {
				return d, err
			}
			d.BackupPath = backupPath
			d.DidBackup = true
		}
		return d, nil
	}

	// No scenario matched: default to proceed, the same as installing into
	// an untouched project directory.
	return Decision{Action: manifest.ActionProceed}, nil
}

func matches(pattern, value string) bool {
	return pattern == "*" || pattern == value
}

// backup copies path to a sibling file suffixed with a UTC timestamp and
// returns the backup's path.
func backup(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", sinderr.Wrap(sinderr.InstallFailed, path, err)
	}

	backupPath := timestampedName(path)
	if info.IsDir() {
		if err := copyDir(path, backupPath); err != nil {
			return "", sinderr.Wrap(sinderr.InstallFailed, backupPath, err)
		}
		return backupPath, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 - path supplied by the collision-handling caller, already project-confined
	if err != nil {
		return "", sinderr.Wrap(sinderr.InstallFailed, path, err)
	}
	if err := os.WriteFile(backupPath, data, info.Mode()); err != nil {
		return "", sinderr.Wrap(sinderr.InstallFailed, backupPath, err)
	}
	return backupPath, nil
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode())
		}

		data, err := os.ReadFile(path) // #nosec G304 - path enumerated from the directory being backed up
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode())
	})
}

// renameToBackup moves path to "<path>.backup.<UTC-yyyymmdd_HHMMSS>" and
// returns the new path. Unlike backup (used for directory-rule copies),
// this removes the original: a collision scenario's "backup" action is
// meant to clear the state marker so project-init commands that follow run
// against a clean target, the same as a fresh install.
func renameToBackup(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", sinderr.Wrap(sinderr.InstallFailed, path, err)
	}
	backupPath := timestampedName(path)
	if err := os.Rename(path, backupPath); err != nil {
		return "", sinderr.Wrap(sinderr.InstallFailed, backupPath, err)
	}
	return backupPath, nil
}

func timestampedName(path string) string {
	ts := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s.backup.%s", path, ts)
}
