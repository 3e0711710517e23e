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

// Package context merges an extension's project-context source file into a
// target file already present in the project directory (commonly an AI
// assistant's instruction file such as CLAUDE.md).
package context

import (
	"os"
	"strings"

	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/rewrite"
	"github.com/pacphi/sindri/internal/secureio"
	"github.com/pacphi/sindri/internal/sinderr"
)

// Result records what a merge actually did, including a unified diff useful
// for preview/audit output. Warning is set when the merge was skipped for a
// reason worth surfacing to the caller even though no error is returned.
type Result struct {
	Applied bool
	Skipped bool
	Diff    string
	Warning string
}

// Merge applies mf against projectDir: mf.Source is read from the
// extension directory, mf.Target is resolved against projectDir, and the
// two are combined per mf.Strategy. A missing source file is a soft
// failure: Merge reports it via Result.Warning rather than an error so the
// caller can log it and continue processing the rest of the extension.
func Merge(mf manifest.MergeFile, extDir, projectDir string) (Result, error) {
	srcPath, err := secureio.ValidateWithin(extDir, mf.Source)
	if err != nil {
		return Result{}, err
	}
	dstPath, err := secureio.ValidateWithin(projectDir, mf.Target)
	if err != nil {
		return Result{}, err
	}

	source, err := secureio.ReadFile(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Skipped: true, Warning: "context source not found: " + mf.Source}, nil
		}
		return Result{}, sinderr.Wrap(sinderr.MergeFailed, srcPath, err)
	}

	existing, err := os.ReadFile(dstPath) // #nosec G304 - path confined to projectDir by ValidateWithin
	targetMissing := os.IsNotExist(err)
	if err != nil && !targetMissing {
		return Result{}, sinderr.Wrap(sinderr.MergeFailed, dstPath, err)
	}

	merged, changed, err := apply(mf.Strategy, string(existing), string(source))
	if err != nil {
		return Result{}, err
	}
	if !changed {
		return Result{Skipped: true}, nil
	}

	diff, err := rewrite.GenerateUnifiedDiff(mf.Target, string(existing), merged)
	if err != nil {
		diff = ""
	}

	if err := secureio.WriteFile(dstPath, []byte(merged), 0o644); err != nil {
		return Result{}, sinderr.Wrap(sinderr.MergeFailed, dstPath, err)
	}

	return Result{Applied: true, Diff: diff}, nil
}

func apply(strategy manifest.MergeStrategy, existing, incoming string) (string, bool, error) {
	switch strategy {
	case manifest.MergeReplace:
		return incoming, existing != incoming, nil

	case manifest.MergeAppend:
		if existing == "" {
			return incoming, true, nil
		}
		return existing + "\n" + incoming, true, nil

	case manifest.MergePrepend:
		if existing == "" {
			return incoming, true, nil
		}
		return incoming + "\n" + existing, true, nil

	case manifest.MergeAppendIfMissing:
		if strings.Contains(existing, incoming) {
			return existing, false, nil
		}
		if existing == "" {
			return incoming, true, nil
		}
		return existing + "\n" + incoming, true, nil

	case manifest.MergeLineUnion:
		return lineUnion(existing, incoming)

	default:
		return "", false, sinderr.New(sinderr.MergeFailed, "unknown merge strategy: "+string(strategy))
	}
}

// lineUnion appends every incoming line not already present in existing,
// preserving existing's line order and incoming's ordering for new lines.
func lineUnion(existing, incoming string) (string, bool, error) {
	seen := make(map[string]bool)
	var lines []string
	for _, l := range strings.Split(existing, "\n") {
		lines = append(lines, l)
		seen[l] = true
	}

	changed := false
	for _, l := range strings.Split(incoming, "\n") {
		if l == "" || seen[l] {
			continue
		}
		lines = append(lines, l)
		seen[l] = true
		changed = true
	}

	return strings.Join(lines, "\n"), changed, nil
}
