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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pacphi/sindri/internal/exec"
	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/secureio"
)

const aptSourcesDir = "/etc/apt/sources.list.d"

// installAPT writes every repository line the extension declares to
// /etc/apt/sources.list.d/<name>.list, runs `apt-get update`, then installs
// its packages with `apt-get install -y`. No keyring file is written: the
// keyring name derived for each repository is only checked as a safe
// basename.
func (e *Executor) installAPT(ctx context.Context, ext *manifest.Extension) ([]string, error) {
	var lines []string
	apt := ext.Install.APT

	for i, repo := range apt.Repositories {
		keyringName := fmt.Sprintf("%s-%s.gpg", ext.Metadata.Name, shortHash(repo))
		if err := secureio.ValidateBasename(keyringName); err != nil {
			return lines, err
		}
		sourcesName := fmt.Sprintf("%s.list", ext.Metadata.Name)
		if err := secureio.ValidateBasename(sourcesName); err != nil {
			return lines, err
		}

		// The first repository truncates the list file; later ones append.
		teeFlag := ""
		if i > 0 {
			teeFlag = "-a "
		}
		line := fmt.Sprintf(
			"echo %q | tee %s%s/%s > /dev/null",
			repo,
			teeFlag,
			aptSourcesDir,
			sourcesName,
		)
		res, err := e.run(ctx, exec.Invocation{Command: line, Timeout: e.scriptTO})
		lines = append(lines, res.Stdout, res.Stderr)
		if err != nil {
			return lines, err
		}
	}

	if len(apt.Repositories) > 0 {
		res, err := e.run(ctx, exec.Invocation{Command: "apt-get update", Timeout: e.scriptTO})
		lines = append(lines, res.Stdout, res.Stderr)
		if err != nil {
			return lines, err
		}
	}

	if len(apt.Packages) > 0 {
		cmd := "apt-get install -y " + strings.Join(apt.Packages, " ")
		res, err := e.run(ctx, exec.Invocation{Command: cmd, Timeout: e.scriptTO})
		lines = append(lines, res.Stdout, res.Stderr)
		if err != nil {
			return lines, err
		}
	}

	if apt.Purge {
		cmd := "apt-get autoremove -y"
		res, err := e.run(ctx, exec.Invocation{Command: cmd, Timeout: e.scriptTO})
		lines = append(lines, res.Stdout, res.Stderr)
		if err != nil {
			return lines, err
		}
	}

	return lines, nil
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}
