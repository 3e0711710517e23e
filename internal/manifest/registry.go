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

package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pacphi/sindri/internal/secureio"
	"github.com/pacphi/sindri/internal/sinderr"
)

// RegistryEntry is the authoritative record for one extension name,
// independent of whether it is currently installed.
type RegistryEntry struct {
	Category     Category `yaml:"category"`
	Description  string   `yaml:"description"`
	Protected    bool     `yaml:"protected"`
	Dependencies []string `yaml:"dependencies,omitempty"`
	Conflicts    []string `yaml:"conflicts,omitempty"`
}

// Registry is the parsed registry.yaml document: the authoritative
// enumeration of every extension name the system knows about.
type Registry struct {
	Extensions map[string]RegistryEntry `yaml:"extensions"`
}

// LoadRegistry reads and validates the registry file at path.
func LoadRegistry(path string) (*Registry, error) {
	data, err := secureio.ReadFile(path)
	if err != nil {
		return nil, sinderr.Wrap(sinderr.ManifestParse, path, err)
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, sinderr.Wrap(sinderr.ManifestParse, path, err)
	}

	for name := range reg.Extensions {
		if !NamePattern.MatchString(name) {
			return nil, sinderr.New(sinderr.PathEscape, fmt.Sprintf("registry entry name %q is invalid", name))
		}
	}

	return &reg, nil
}

// Protected returns the names of every registry entry marked protected
// (the reserved, unremovable extensions).
func (r *Registry) Protected() []string {
	var names []string
	for name, entry := range r.Extensions {
		if entry.Protected {
			names = append(names, name)
		}
	}
	return names
}

// Get returns the registry entry for name, or UnknownExtension.
func (r *Registry) Get(name string) (RegistryEntry, error) {
	entry, ok := r.Extensions[name]
	if !ok {
		return RegistryEntry{}, sinderr.New(sinderr.UnknownExtension, name)
	}
	return entry, nil
}
