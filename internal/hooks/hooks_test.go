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

package hooks

import (
	"context"
	"testing"

	"github.com/pacphi/sindri/internal/manifest"
)

func TestRunAbsentHookIsSilentNoOp(t *testing.T) {
	ext := &manifest.Extension{Capabilities: manifest.Capabilities{}}
	m := NewManager()
	outcome := m.Run(context.Background(), ext, PreInstall, t.TempDir())
	if outcome.Ran {
		t.Error("expected Ran = false for an undeclared hook")
	}
	if outcome.Err != nil {
		t.Errorf("expected nil error for an undeclared hook, got %v", outcome.Err)
	}
}

func TestRunExecutesDeclaredHook(t *testing.T) {
	ext := &manifest.Extension{
		Capabilities: manifest.Capabilities{
			Hooks: manifest.Hooks{PostInstall: &manifest.Hook{Command: "echo done"}},
		},
	}
	m := NewManager()
	outcome := m.Run(context.Background(), ext, PostInstall, t.TempDir())
	if !outcome.Ran {
		t.Fatal("expected Ran = true")
	}
	if outcome.Err != nil {
		t.Errorf("expected success, got %v", outcome.Err)
	}
	if outcome.Result.Stdout != "done\n" {
		t.Errorf("Stdout = %q, want %q", outcome.Result.Stdout, "done\n")
	}
}

func TestRunReportsFailureWithoutAborting(t *testing.T) {
	ext := &manifest.Extension{
		Capabilities: manifest.Capabilities{
			Hooks: manifest.Hooks{PreProjectInit: &manifest.Hook{Command: "exit 7"}},
		},
	}
	m := NewManager()
	outcome := m.Run(context.Background(), ext, PreProjectInit, t.TempDir())
	if !outcome.Ran {
		t.Fatal("expected Ran = true even on failure")
	}
	if outcome.Err == nil {
		t.Error("expected an error for a failing hook command")
	}
}
