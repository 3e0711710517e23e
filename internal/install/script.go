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
	"os"
	"time"

	"github.com/pacphi/sindri/internal/exec"
	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/secureio"
)

// installScript runs an extension's install script with its path confined to
// the extension directory and its env built explicitly, never inherited from
// the sindri process.
func (e *Executor) installScript(ctx context.Context, ext *manifest.Extension, projectDir string) ([]string, error) {
	script := ext.Install.Script

	scriptPath, err := secureio.ValidateWithin(ext.Dir, script.Path)
	if err != nil {
		return nil, err
	}

	timeout := e.scriptTO
	if script.Timeout > 0 {
		timeout = time.Duration(script.Timeout) * time.Second
	}

	home, _ := os.UserHomeDir()
	lookup := func(name string) (string, bool) {
		switch name {
		case "HOME":
			return home, true
		case "USER":
			return os.Getenv("USER"), true
		case "WORKSPACE":
			return projectDir, true
		case "PATH":
			return os.Getenv("PATH"), true
		case "SHELL":
			return os.Getenv("SHELL"), true
		default:
			return "", false
		}
	}

	env := make([]string, 0, len(script.Env)+1)
	env = append(env, "PATH="+os.Getenv("PATH"))
	for k, v := range script.Env {
		env = append(env, k+"="+exec.ExpandTemplate(v, lookup))
	}

	cmd := "sh " + scriptPath
	res, err := e.run(ctx, exec.Invocation{
		Command: cmd,
		Cwd:     projectDir,
		Env:     env,
		Timeout: timeout,
	})
	lines := []string{res.Stdout, res.Stderr}
	return lines, err
}
