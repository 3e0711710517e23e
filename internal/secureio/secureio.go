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

// Package secureio provides secure file I/O operations with path validation,
// and the path-confinement checks every component relies on to satisfy the
// "no executed script path resolves outside its extension directory; no
// write path resolves outside the project directory" invariant.
package secureio

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pacphi/sindri/internal/sinderr"
)

// ValidateFilePath validates that a file path is safe to read/write: no
// directory-traversal components and an absolute final form.
func ValidateFilePath(path string) error {
	if strings.Contains(path, "..") {
		return sinderr.New(sinderr.PathEscape, "path contains directory traversal: "+path)
	}

	cleanPath := filepath.Clean(path)
	if !filepath.IsAbs(cleanPath) {
		return sinderr.New(sinderr.PathEscape, "path must be absolute: "+path)
	}

	return nil
}

// ValidateWithin resolves candidate relative to root and fails with
// PathEscape unless the resolved, cleaned path stays inside root. Used to
// confine extension script paths to their extension directory (C4/C5) and
// write targets to a project directory (C7/C9).
func ValidateWithin(root, candidate string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", sinderr.Wrap(sinderr.PathEscape, "resolve root", err)
	}

	var resolved string
	if filepath.IsAbs(candidate) {
		resolved = filepath.Clean(candidate)
	} else {
		resolved = filepath.Clean(filepath.Join(absRoot, candidate))
	}

	rel, err := filepath.Rel(absRoot, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", sinderr.New(sinderr.PathEscape, "path escapes confinement root: "+candidate)
	}

	return resolved, nil
}

// ValidateBasename rejects a name intended for use as a file basename (e.g.
// an apt keyring file derived from an extension name) if it contains a path
// separator or traversal component.
func ValidateBasename(name string) error {
	base := filepath.Base(name)
	if base != name || name == "." || name == ".." || name == "" {
		return sinderr.New(sinderr.PathEscape, "name is not a safe basename: "+name)
	}
	return nil
}

// ReadFile safely reads a file after validating the path.
func ReadFile(path string) ([]byte, error) {
	if err := ValidateFilePath(path); err != nil {
		return nil, err
	}
	return os.ReadFile(path) // #nosec G304 - path validated above
}

// WriteFile safely writes a file after validating the path.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	if err := ValidateFilePath(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, perm) // #nosec G306 - secure permissions enforced
}

// Create safely creates a file after validating the path.
func Create(path string) (*os.File, error) {
	if err := ValidateFilePath(path); err != nil {
		return nil, err
	}
	return os.Create(path) // #nosec G304 - path validated above
}

// TempFile creates an owner-only-permission temp file under dir (the OS
// default temp directory when dir is empty) and returns it along with a
// cleanup func that overwrites its content with zeros before unlinking it.
// Callers should `defer` the returned cleanup on every exit path, per
// spec.md §5's "Temp files are created per operation with owner-only
// permissions; on any exit path they are overwritten with zeros before
// unlink."
func TempFile(dir, pattern string) (*os.File, func(), error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, nil, sinderr.Wrap(sinderr.InstallFailed, "create temp file", err)
	}
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, nil, sinderr.Wrap(sinderr.InstallFailed, "chmod temp file", err)
	}

	cleanup := func() {
		name := f.Name()
		if info, err := os.Stat(name); err == nil {
			if zeros := make([]byte, info.Size()); len(zeros) > 0 {
				_ = os.WriteFile(name, zeros, 0o600) // #nosec G306 - overwriting our own 0600 temp file
			}
		}
		f.Close()
		os.Remove(name)
	}
	return f, cleanup, nil
}
