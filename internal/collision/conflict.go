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
	"encoding/json"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/rewrite"
	"github.com/pacphi/sindri/internal/secureio"
	"github.com/pacphi/sindri/internal/sinderr"
)

// ConflictResult records what happened for one conflict rule. Diff is a
// unified diff of the "<file>.original" baseline against whatever the rule's
// action produced, populated for every action that actually rewrites the
// file's content (empty for skip and first-writer results, where there is
// nothing to compare against).
type ConflictResult struct {
	Path       string
	Action     string
	BackupPath string
	Skipped    bool
	Diff       string
	Warning    string
}

// ResolveConflicts applies an extension's conflict rules against files and
// directories already present under projectDir, writing the extension's
// own copy of newContent (keyed by rule path) according to each rule's
// action. EXTENSION_CONFLICT_STRATEGY overrides every file rule's action.
// An action that resolves to "prompt" is always decided as skip (see
// resolvePromptDecision), whatever EXTENSION_CONFLICT_PROMPT holds, since
// this engine never prompts.
func ResolveConflicts(rules []manifest.ConflictRule, projectDir string, newContent map[string][]byte) ([]ConflictResult, error) {
	var results []ConflictResult

	for _, rule := range rules {
		path, err := secureio.ValidateWithin(projectDir, rule.Path)
		if err != nil {
			return results, err
		}

		if rule.IsDir {
			r, err := resolveDirConflict(rule, path)
			if err != nil {
				return results, err
			}
			results = append(results, r)
			continue
		}

		content, ok := newContent[rule.Path]
		if !ok {
			return results, sinderr.New(sinderr.ManifestSchema, "no new content supplied for conflict rule: "+rule.Path)
		}
		r, err := resolveFileConflict(rule, path, content)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}

	return results, nil
}

// resolveFileConflict implements spec.md's C7 file-rule contract: the
// preserved pristine version of a file lives in a "<file>.original"
// sibling, written by whichever extension wrote the file first. If that
// sibling is absent, this call is the first writer — the new content is
// written as-is (no conflict, the declared action does not apply) and the
// sibling is created so later writers have a baseline to diff against.
// Otherwise the action resolves "<file>.original" (not the possibly
// already-modified target) against newContent.
func resolveFileConflict(rule manifest.ConflictRule, path string, newContent []byte) (ConflictResult, error) {
	action := manifest.FileConflictAction(rule.Action)
	if override := os.Getenv("EXTENSION_CONFLICT_STRATEGY"); override != "" {
		action = manifest.FileConflictAction(override)
	}

	originalPath := path + ".original"
	original, err := os.ReadFile(originalPath) // #nosec G304 - path confined to projectDir by ValidateWithin
	firstWriter := os.IsNotExist(err)
	if err != nil && !firstWriter {
		return ConflictResult{Path: rule.Path}, sinderr.Wrap(sinderr.CollisionUnresolved, originalPath, err)
	}

	if firstWriter {
		result := ConflictResult{Path: rule.Path, Action: "first-writer"}
		if err := writeFile(path, newContent); err != nil {
			return result, err
		}
		if err := writeFile(originalPath, newContent); err != nil {
			return result, err
		}
		return result, nil
	}

	result := ConflictResult{Path: rule.Path, Action: string(action)}

	if action == manifest.FilePrompt {
		action = resolvePromptDecision()
		result.Action = string(action)
	}

	var final []byte

	switch action {
	case manifest.FileSkip:
		result.Skipped = true
		return result, writeFile(path, original)

	case manifest.FileOverwrite:
		final = newContent

	case manifest.FileAppend:
		sep := rule.Separator
		if sep == "" {
			sep = "\n"
		}
		combined := append(append([]byte{}, original...), []byte(sep)...)
		final = append(combined, newContent...)

	case manifest.FilePrepend:
		sep := rule.Separator
		if sep == "" {
			sep = "\n"
		}
		combined := append(append([]byte{}, newContent...), []byte(sep)...)
		final = append(combined, original...)

	case manifest.FileMergeJSON:
		merged, err := mergeJSON(original, newContent)
		if err != nil {
			result.Warning = "merge-json failed, keeping new content: " + err.Error()
			final = newContent
		} else {
			final = merged
		}

	case manifest.FileMergeYAML:
		merged, err := mergeYAML(original, newContent)
		if err != nil {
			result.Warning = "merge-yaml failed, keeping new content: " + err.Error()
			final = newContent
		} else {
			final = merged
		}

	default:
		return result, sinderr.New(sinderr.ManifestSchema, "unknown file conflict action: "+string(action))
	}

	if diff, err := rewrite.GenerateUnifiedDiff(rule.Path, string(original), string(final)); err == nil {
		result.Diff = diff
	}
	return result, writeFile(path, final)
}

func resolveDirConflict(rule manifest.ConflictRule, path string) (ConflictResult, error) {
	action := manifest.DirConflictAction(rule.Action)
	result := ConflictResult{Path: rule.Path, Action: string(action)}

	switch action {
	case manifest.DirSkip:
		result.Skipped = true
		return result, nil

	case manifest.DirBackup, manifest.DirBackupAndReplace:
		if _, err := os.Stat(path); err == nil {
			backupPath, err := backup(path)
			if err != nil {
				return result, err
			}
			result.BackupPath = backupPath
		}
		if action == manifest.DirBackupAndReplace {
			if err := os.RemoveAll(path); err != nil {
				return result, sinderr.Wrap(sinderr.CollisionUnresolved, path, err)
			}
		}
		return result, nil

	case manifest.DirMerge, manifest.DirPromptPerFile:
		// Per-file disposition inside a directory is handled by the caller
		// issuing one file-scoped ConflictRule per entry; this engine does
		// not recurse into directory contents on its own.
		return result, nil

	default:
		return result, sinderr.New(sinderr.ManifestSchema, "unknown directory conflict action: "+string(action))
	}
}

// resolvePromptDecision is the non-interactive stand-in for a `prompt`
// action. Per spec.md §4.7/§6, EXTENSION_CONFLICT_PROMPT is the boolean
// "=false" override, not an action name: it exists only to make the default
// safe-skip explicit in scripts/CI. Any other value, including unset,
// resolves the same way, since this engine never actually prompts.
func resolvePromptDecision() manifest.FileConflictAction {
	return manifest.FileSkip
}

func writeFile(path string, content []byte) error {
	if err := secureio.WriteFile(path, content, 0o644); err != nil {
		return sinderr.Wrap(sinderr.CollisionUnresolved, path, err)
	}
	return nil
}

func mergeJSON(existing, incoming []byte) ([]byte, error) {
	return MergeJSON(existing, incoming)
}

// MergeJSON deep-merges incoming over existing (new keys override, nested
// objects merge recursively). Exported so other components that need the
// same "original * new" merge (the configure.templates[] merge mode) reuse
// one implementation instead of a second JSON-merge utility.
func MergeJSON(existing, incoming []byte) ([]byte, error) {
	base := map[string]any{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &base); err != nil {
			return nil, sinderr.Wrap(sinderr.MergeFailed, "parse existing JSON", err)
		}
	}
	overlay := map[string]any{}
	if err := json.Unmarshal(incoming, &overlay); err != nil {
		return nil, sinderr.Wrap(sinderr.MergeFailed, "parse incoming JSON", err)
	}

	deepMerge(base, overlay)

	out, err := json.MarshalIndent(base, "", "  ")
	if err != nil {
		return nil, sinderr.Wrap(sinderr.MergeFailed, "encode merged JSON", err)
	}
	return append(out, '\n'), nil
}

func mergeYAML(existing, incoming []byte) ([]byte, error) {
	base := map[string]any{}
	if len(existing) > 0 {
		if err := yaml.Unmarshal(existing, &base); err != nil {
			return nil, sinderr.Wrap(sinderr.MergeFailed, "parse existing YAML", err)
		}
	}
	overlay := map[string]any{}
	if err := yaml.Unmarshal(incoming, &overlay); err != nil {
		return nil, sinderr.Wrap(sinderr.MergeFailed, "parse incoming YAML", err)
	}

	deepMerge(base, overlay)

	out, err := yaml.Marshal(base)
	if err != nil {
		return nil, sinderr.Wrap(sinderr.MergeFailed, "encode merged YAML", err)
	}
	return out, nil
}

// deepMerge merges overlay into base in place. Maps merge key-wise and
// recursively; any other value (including slices) in overlay replaces
// base's value outright, matching the predictable "last writer wins except
// for nested objects" rule most config-merge tools use.
func deepMerge(base, overlay map[string]any) {
	for k, v := range overlay {
		if existing, ok := base[k]; ok {
			existingMap, existingIsMap := existing.(map[string]any)
			overlayMap, overlayIsMap := v.(map[string]any)
			if existingIsMap && overlayIsMap {
				deepMerge(existingMap, overlayMap)
				continue
			}
		}
		base[k] = v
	}
}
