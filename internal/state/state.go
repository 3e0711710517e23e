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

// Package state persists the set of extensions currently installed in a
// project: a YAML document of extensions[] plus a free-form config block,
// guarded by a cross-process file lock for the duration of any mutation.
package state

import (
	"os"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/secureio"
	"github.com/pacphi/sindri/internal/sinderr"
)

// InstalledExtension is one entry in the manifest's extensions[] list.
type InstalledExtension struct {
	Name        string            `yaml:"name"`
	Version     string            `yaml:"version"`
	InstalledAt time.Time         `yaml:"installedAt"`
	Profile     string            `yaml:"profile,omitempty"`
	Metadata    map[string]string `yaml:"metadata,omitempty"`
}

// Document is the on-disk manifest/state shape.
type Document struct {
	Extensions []InstalledExtension   `yaml:"extensions"`
	Config     map[string]interface{} `yaml:"config,omitempty"`
}

// Store manages a Document persisted at path, guarded by an exclusive file
// lock across every mutating operation so concurrent sindri invocations
// never interleave writes.
type Store struct {
	path string
}

// Open returns a Store backed by path. The file need not exist yet: the
// first mutating call creates it.
func Open(path string) *Store {
	return &Store{path: path}
}

// Add inserts or replaces ext's entry, then persists the document.
func (s *Store) Add(ext InstalledExtension) error {
	if !manifest.NamePattern.MatchString(ext.Name) {
		return sinderr.New(sinderr.PathEscape, "invalid extension name: "+ext.Name)
	}

	return s.withLock(func(doc *Document) error {
		for i, e := range doc.Extensions {
			if e.Name == ext.Name {
				doc.Extensions[i] = ext
				return nil
			}
		}
		doc.Extensions = append(doc.Extensions, ext)
		return nil
	})
}

// Remove deletes name's entry, if present, then persists the document.
func (s *Store) Remove(name string) error {
	return s.withLock(func(doc *Document) error {
		out := doc.Extensions[:0]
		for _, e := range doc.Extensions {
			if e.Name != name {
				out = append(out, e)
			}
		}
		doc.Extensions = out
		return nil
	})
}

// IsInstalled reports whether name has an entry in the store.
func (s *Store) IsInstalled(name string) (bool, error) {
	doc, err := s.read()
	if err != nil {
		return false, err
	}
	for _, e := range doc.Extensions {
		if e.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// List returns every installed extension entry.
func (s *Store) List() ([]InstalledExtension, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return doc.Extensions, nil
}

func (s *Store) read() (*Document, error) {
	data, err := os.ReadFile(s.path) // #nosec G304 - path supplied by the caller that constructed this Store
	if os.IsNotExist(err) {
		return &Document{}, nil
	}
	if err != nil {
		return nil, sinderr.Wrap(sinderr.StateCorrupt, s.path, err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, sinderr.Wrap(sinderr.StateCorrupt, s.path, err)
	}
	return &doc, nil
}

func (s *Store) write(doc *Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return sinderr.Wrap(sinderr.StateCorrupt, s.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return sinderr.Wrap(sinderr.StateCorrupt, s.path, err)
	}
	return secureio.WriteFile(s.path, data, 0o600)
}

// withLock opens (creating if needed) the state file, takes an exclusive
// flock for the duration of mutate, and persists whatever mutate left in
// the document.
func (s *Store) withLock(mutate func(doc *Document) error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return sinderr.Wrap(sinderr.StateCorrupt, s.path, err)
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return sinderr.Wrap(sinderr.StateCorrupt, s.path, err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return sinderr.Wrap(sinderr.StateCorrupt, s.path, err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	doc, err := s.read()
	if err != nil {
		return err
	}
	if err := mutate(doc); err != nil {
		return err
	}
	return s.write(doc)
}
