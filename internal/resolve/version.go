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

package resolve

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// IsValidSemver reports whether version parses as a semantic version.
// metadata.version is validated against this at manifest load time; per
// spec.md §9's open question, collision scenarios compare installing-version
// strings by exact equality and never consult this package.
func IsValidSemver(version string) bool {
	_, err := normalizeAndParse(version)
	return err == nil
}

// CompareVersions returns -1, 0, or 1 as v1 is less than, equal to, or
// greater than v2.
func CompareVersions(v1, v2 string) (int, error) {
	a, err := normalizeAndParse(v1)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", v1, err)
	}
	b, err := normalizeAndParse(v2)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", v2, err)
	}
	return a.Compare(b), nil
}

// normalizeAndParse accepts versions with or without a leading "v".
func normalizeAndParse(version string) (*semver.Version, error) {
	version = strings.TrimSpace(version)
	if v, err := semver.NewVersion(version); err == nil {
		return v, nil
	}
	if !strings.HasPrefix(version, "v") {
		if v, err := semver.NewVersion("v" + version); err == nil {
			return v, nil
		}
	} else if v, err := semver.NewVersion(strings.TrimPrefix(version, "v")); err == nil {
		return v, nil
	}
	return nil, fmt.Errorf("invalid version: %s", version)
}
