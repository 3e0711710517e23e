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
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/pacphi/sindri/internal/exec"
	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/secureio"
	"github.com/pacphi/sindri/internal/sinderr"
)

// miseConfig is the subset of a mise.toml this engine needs to validate
// before copying it into place: enough to catch a malformed tool table
// without parsing the rest of mise's schema.
type miseConfig struct {
	Tools map[string]any `toml:"tools"`
}

// installMise validates the extension-supplied mise config file and
// installs it under the user's mise config directory, then runs
// `mise install` to materialize the declared tools.
func (e *Executor) installMise(ctx context.Context, ext *manifest.Extension) ([]string, error) {
	var lines []string

	srcPath, err := secureio.ValidateWithin(ext.Dir, ext.Install.Mise.ConfigFile)
	if err != nil {
		return lines, err
	}

	data, err := secureio.ReadFile(srcPath)
	if err != nil {
		return lines, sinderr.Wrap(sinderr.InstallFailed, srcPath, err)
	}

	var cfg miseConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return lines, sinderr.Wrap(sinderr.ManifestSchema, "invalid mise config", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return lines, sinderr.Wrap(sinderr.InstallFailed, "resolve home directory", err)
	}

	destName := fmt.Sprintf("%s.toml", ext.Metadata.Name)
	if err := secureio.ValidateBasename(destName); err != nil {
		return lines, err
	}

	destDir := filepath.Join(home, ".config", "mise", "conf.d")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return lines, sinderr.Wrap(sinderr.InstallFailed, destDir, err)
	}
	destPath := filepath.Join(destDir, destName)

	if err := secureio.WriteFile(destPath, data, 0o644); err != nil {
		return lines, sinderr.Wrap(sinderr.InstallFailed, destPath, err)
	}
	lines = append(lines, fmt.Sprintf("wrote %s", destPath))

	res, err := e.run(ctx, exec.Invocation{Command: "mise install", Timeout: e.miseTO})
	lines = append(lines, res.Stdout, res.Stderr)
	return lines, err
}
