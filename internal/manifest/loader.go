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
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/pacphi/sindri/internal/sinderr"
)

// NamePattern is the required shape of metadata.name (and every stored
// extension name in the manifest/state store).
var NamePattern = regexp.MustCompile(`^[a-z0-9-]+$`)

const (
	manifestFileName = "extension.yaml"
	maxManifestBytes = 10 << 20 // 10 MiB
	parseTimeout     = 5 * time.Second
)

// Loader enumerates extensions under a root directory.
type Loader struct {
	root string
}

// NewLoader creates a Loader rooted at the given extensions directory.
func NewLoader(root string) *Loader {
	return &Loader{root: root}
}

// LoadAll parses every extension.yaml under root, independently. A failed
// manifest does not abort loading of the others; its error is collected and
// returned alongside the extensions that did parse. Parsing runs in
// parallel across extension directories, mirroring the teacher engine's
// scan/plan/update goroutine-and-waitgroup pattern.
func (l *Loader) LoadAll() (map[string]*Extension, []error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, []error{fmt.Errorf("read extensions root: %w", err)}
	}

	type result struct {
		ext *Extension
		err error
	}

	results := make(chan result, len(entries))
	var wg sync.WaitGroup

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(l.root, entry.Name())
		wg.Add(1)
		go func(dir string) {
			defer wg.Done()
			ext, err := parseOne(dir)
			results <- result{ext: ext, err: err}
		}(dir)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	extensions := make(map[string]*Extension)
	var errs []error
	seen := make(map[string]bool)

	for r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		if r.ext == nil {
			continue
		}
		name := r.ext.Metadata.Name
		if seen[name] {
			errs = append(errs, sinderr.New(sinderr.ManifestSchema, fmt.Sprintf("duplicate extension name: %s", name)))
			continue
		}
		seen[name] = true
		extensions[name] = r.ext
	}

	return extensions, errs
}

// parseOne reads and validates a single extension directory's manifest.
func parseOne(dir string) (*Extension, error) {
	manifestPath := filepath.Join(dir, manifestFileName)

	info, err := os.Stat(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // not an extension directory, ignore
		}
		return nil, sinderr.Wrap(sinderr.ManifestParse, manifestPath, err)
	}
	if info.Size() > maxManifestBytes {
		return nil, sinderr.New(sinderr.ManifestParse, fmt.Sprintf("%s exceeds %d bytes", manifestPath, maxManifestBytes))
	}

	done := make(chan struct {
		ext *Extension
		err error
	}, 1)

	go func() {
		data, err := os.ReadFile(manifestPath) // #nosec G304 - path built from a directory we enumerated ourselves
		if err != nil {
			done <- struct {
				ext *Extension
				err error
			}{nil, sinderr.Wrap(sinderr.ManifestParse, manifestPath, err)}
			return
		}

		var ext Extension
		if err := yaml.Unmarshal(data, &ext); err != nil {
			done <- struct {
				ext *Extension
				err error
			}{nil, sinderr.Wrap(sinderr.ManifestParse, manifestPath, err)}
			return
		}

		if err := validate(&ext); err != nil {
			done <- struct {
				ext *Extension
				err error
			}{nil, err}
			return
		}

		ext.Dir = dir
		done <- struct {
			ext *Extension
			err error
		}{&ext, nil}
	}()

	select {
	case r := <-done:
		return r.ext, r.err
	case <-time.After(parseTimeout):
		return nil, sinderr.New(sinderr.ManifestParse, fmt.Sprintf("%s: parse exceeded %s", manifestPath, parseTimeout))
	}
}

// validate enforces the rules beyond plain YAML/schema shape: name pattern,
// category closed enum, and exactly-one-install-method.
func validate(ext *Extension) error {
	if !NamePattern.MatchString(ext.Metadata.Name) {
		return sinderr.New(sinderr.PathEscape, fmt.Sprintf("invalid extension name %q", ext.Metadata.Name))
	}
	if !ValidCategories[ext.Metadata.Category] {
		return sinderr.New(sinderr.ManifestSchema, fmt.Sprintf("%s: unknown category %q", ext.Metadata.Name, ext.Metadata.Category))
	}
	if _, err := semver.NewVersion(ext.Metadata.Version); err != nil {
		return sinderr.Wrap(sinderr.ManifestSchema, fmt.Sprintf("%s: invalid version %q", ext.Metadata.Name, ext.Metadata.Version), err)
	}
	if err := validateInstall(ext.Install); err != nil {
		return sinderr.Wrap(sinderr.ManifestSchema, ext.Metadata.Name, err)
	}
	return nil
}

func validateInstall(inst Install) error {
	present := 0
	if inst.Mise != nil {
		present++
	}
	if inst.APT != nil {
		present++
	}
	if inst.Script != nil {
		present++
	}
	if inst.Binary != nil {
		present++
	}
	if inst.NPM != nil {
		present++
	}
	if present != 1 {
		return fmt.Errorf("install must declare exactly one method payload, found %d", present)
	}
	payloadFor := map[InstallMethod]bool{
		InstallMise: inst.Mise != nil, InstallAPT: inst.APT != nil, InstallScript: inst.Script != nil,
		InstallBinary: inst.Binary != nil, InstallNPM: inst.NPM != nil,
	}
	if has, known := payloadFor[inst.Method]; known && !has {
		return fmt.Errorf("install method %q has no %q payload", inst.Method, inst.Method)
	}
	return nil
}

// Collection is the loaded, queryable set of extensions.
type Collection struct {
	extensions map[string]*Extension
}

// NewCollection wraps a loaded extension map for Get/Discover queries.
func NewCollection(extensions map[string]*Extension) *Collection {
	return &Collection{extensions: extensions}
}

// Get returns the named extension or UnknownExtension.
func (c *Collection) Get(name string) (*Extension, error) {
	ext, ok := c.extensions[name]
	if !ok {
		return nil, sinderr.New(sinderr.UnknownExtension, name)
	}
	return ext, nil
}

// All returns every loaded extension.
func (c *Collection) All() map[string]*Extension {
	return c.extensions
}

// priorityName pairs an extension name with its priority for Discover's sort.
type priorityName struct {
	name     string
	priority int
}

// Discover returns extension names whose named capability is enabled,
// ordered by declared priority (ascending, default 100) then alphabetically.
func (c *Collection) Discover(kind string) []string {
	var candidates []priorityName

	for name, ext := range c.extensions {
		enabled, priority := capabilityEnabled(ext, kind)
		if !enabled {
			continue
		}
		candidates = append(candidates, priorityName{name: name, priority: priority})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].priority != candidates[j].priority {
			return candidates[i].priority < candidates[j].priority
		}
		return candidates[i].name < candidates[j].name
	})

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.name
	}
	return names
}

func capabilityEnabled(ext *Extension, kind string) (enabled bool, priority int) {
	switch kind {
	case "project-init":
		pi := ext.Capabilities.ProjectInit
		return pi.Enabled, pi.EffectivePriority()
	case "auth":
		return ext.Capabilities.Auth.Enabled(), defaultPriority
	case "hooks":
		h := ext.Capabilities.Hooks
		return h.PreInstall != nil || h.PostInstall != nil || h.PreProjectInit != nil || h.PostProjectInit != nil, defaultPriority
	case "mcp":
		return ext.Capabilities.MCP.Enabled, defaultPriority
	case "collision-handling":
		ch := ext.Capabilities.CollisionHandling
		return len(ch.VersionMarkers) > 0 || len(ch.Scenarios) > 0 || len(ch.ConflictRules) > 0, defaultPriority
	case "project-context":
		return ext.Capabilities.ProjectContext.Enabled(), defaultPriority
	default:
		return false, defaultPriority
	}
}
