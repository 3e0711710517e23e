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

package install

import (
	"os"

	"github.com/pacphi/sindri/internal/collision"
	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/secureio"
	"github.com/pacphi/sindri/internal/sinderr"
)

// ApplyTemplates copies ext's configure.templates[] into projectDir under
// their declared mode. Source paths are confined to the extension
// directory; destination paths are confined to projectDir, the same
// confinement invariant C4's script/binary methods enforce.
func (e *Executor) ApplyTemplates(ext *manifest.Extension, projectDir string) ([]string, error) {
	var lines []string
	for _, tpl := range ext.Configure.Templates {
		src, err := secureio.ValidateWithin(ext.Dir, tpl.Source)
		if err != nil {
			return lines, err
		}
		dst, err := secureio.ValidateWithin(projectDir, tpl.Destination)
		if err != nil {
			return lines, err
		}

		content, err := secureio.ReadFile(src)
		if err != nil {
			return lines, sinderr.Wrap(sinderr.InstallFailed, "read template source", err)
		}

		if err := applyTemplate(tpl.Mode, dst, content); err != nil {
			return lines, err
		}
		lines = append(lines, "template "+string(tpl.Mode)+": "+tpl.Destination)
	}
	return lines, nil
}

func applyTemplate(mode manifest.TemplateMode, dst string, content []byte) error {
	switch mode {
	case manifest.TemplateSkipIfExists:
		if _, err := os.Stat(dst); err == nil {
			return nil
		}
		return secureio.WriteFile(dst, content, 0o644)

	case manifest.TemplateOverwrite:
		return secureio.WriteFile(dst, content, 0o644)

	case manifest.TemplateAppend:
		existing, err := os.ReadFile(dst) // #nosec G304 - dst confined above
		if err != nil && !os.IsNotExist(err) {
			return sinderr.Wrap(sinderr.InstallFailed, "read template destination", err)
		}
		return secureio.WriteFile(dst, append(existing, content...), 0o644)

	case manifest.TemplateMerge:
		existing, err := os.ReadFile(dst) // #nosec G304 - dst confined above
		if err != nil {
			if os.IsNotExist(err) {
				return secureio.WriteFile(dst, content, 0o644)
			}
			return sinderr.Wrap(sinderr.InstallFailed, "read template destination", err)
		}
		merged, err := collision.MergeJSON(existing, content)
		if err != nil {
			return sinderr.Wrap(sinderr.MergeFailed, "merge template", err)
		}
		return secureio.WriteFile(dst, merged, 0o644)

	default:
		return sinderr.New(sinderr.InstallFailed, "unknown template mode: "+string(mode))
	}
}
