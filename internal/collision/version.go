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

// Package collision detects an already-installed version of an extension in
// a project directory and resolves file/directory conflicts against what a
// new install would write.
package collision

import (
	"os"
	"regexp"

	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/secureio"
	"github.com/pacphi/sindri/internal/sinderr"
)

// DetectVersion evaluates an extension's version markers against
// projectDir, in declared order, returning the first marker's Version that
// matches. An empty string with a nil error means no marker matched (no
// prior install detected).
func DetectVersion(markers []manifest.VersionMarker, projectDir string) (string, error) {
	m, err := detectMarker(markers, projectDir)
	if err != nil || m == nil {
		return "", err
	}
	return m.Version, nil
}

// DetectVersionMarkerPath returns the confined, on-disk path of whichever
// marker DetectVersion would match, so callers that need to act on that
// specific path (for example, backing it up) don't have to re-walk the
// marker list themselves. Empty string with a nil error means no marker
// matched.
func DetectVersionMarkerPath(markers []manifest.VersionMarker, projectDir string) (string, error) {
	m, err := detectMarker(markers, projectDir)
	if err != nil || m == nil {
		return "", err
	}
	return secureio.ValidateWithin(projectDir, m.Path)
}

func detectMarker(markers []manifest.VersionMarker, projectDir string) (*manifest.VersionMarker, error) {
	for i := range markers {
		matched, err := markerMatches(markers[i], projectDir)
		if err != nil {
			return nil, err
		}
		if matched {
			return &markers[i], nil
		}
	}
	return nil, nil
}

func markerMatches(marker manifest.VersionMarker, projectDir string) (bool, error) {
	path, err := secureio.ValidateWithin(projectDir, marker.Path)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	notFound := os.IsNotExist(err)
	if err != nil && !notFound {
		return false, sinderr.Wrap(sinderr.InstallFailed, path, err)
	}

	switch marker.Method {
	case manifest.MarkerFileExists:
		if notFound || info.IsDir() {
			return false, nil
		}
		return !excluded(marker, projectDir), nil

	case manifest.MarkerDirectoryExists:
		if notFound || !info.IsDir() {
			return false, nil
		}
		return !excluded(marker, projectDir), nil

	case manifest.MarkerContentMatch:
		if notFound || info.IsDir() {
			return false, nil
		}
		data, err := secureio.ReadFile(path)
		if err != nil {
			return false, sinderr.Wrap(sinderr.InstallFailed, path, err)
		}
		return contentMatches(string(data), marker)

	default:
		// An unrecognised detection method skips the marker rather than
		// failing version detection outright.
		return false, nil
	}
}

// excluded reports whether any of the marker's exclude-if paths exist,
// which vetoes an otherwise-matching file/directory-exists marker (used to
// distinguish "extension X v1 is here" from "a different extension left a
// same-named file behind").
func excluded(marker manifest.VersionMarker, projectDir string) bool {
	for _, rel := range marker.ExcludeIf {
		path, err := secureio.ValidateWithin(projectDir, rel)
		if err != nil {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}
	return false
}

func contentMatches(content string, marker manifest.VersionMarker) (bool, error) {
	patterns := marker.Patterns
	if len(patterns) == 0 {
		// content-match with no declared patterns never matches; it is
		// skipped rather than treated as an error.
		return false, nil
	}

	matchedAny := false
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return false, sinderr.Wrap(sinderr.ManifestSchema, "invalid pattern: "+p, err)
		}
		if re.MatchString(content) {
			if marker.MatchAny {
				return true, nil
			}
			matchedAny = true
		} else if !marker.MatchAny {
			return false, nil
		}
	}
	return matchedAny, nil
}
