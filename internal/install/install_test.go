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
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/sinderr"
)

func newExecutor() *Executor {
	return NewExecutor(nil, nil)
}

func TestInstallScriptRejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	ext := &manifest.Extension{
		Metadata: manifest.Metadata{Name: "escape"},
		Dir:      dir,
		Install: manifest.Install{
			Method: manifest.InstallScript,
			Script: &manifest.ScriptInstall{Path: "../../etc/passwd"},
		},
	}

	e := newExecutor()
	_, err := e.installScript(context.Background(), ext, dir)
	if err == nil {
		t.Fatal("expected path escape error")
	}
	var se *sinderr.Error
	if !errors.As(err, &se) || se.Kind != sinderr.PathEscape {
		t.Errorf("error = %v, want PathEscape", err)
	}
}

func TestInstallScriptRunsWithinExtensionDir(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "setup.sh")
	if err := os.WriteFile(scriptPath, []byte("#!/bin/sh\necho ok\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	ext := &manifest.Extension{
		Metadata: manifest.Metadata{Name: "greeter"},
		Dir:      dir,
		Install: manifest.Install{
			Method: manifest.InstallScript,
			Script: &manifest.ScriptInstall{Path: "setup.sh", Timeout: 5},
		},
	}

	e := newExecutor()
	lines, err := e.installScript(context.Background(), ext, t.TempDir())
	if err != nil {
		t.Fatalf("installScript() error = %v", err)
	}
	if len(lines) == 0 {
		t.Error("expected captured output lines")
	}
}

func TestInstallBinaryVerifiesChecksum(t *testing.T) {
	payload := []byte("binary contents")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	sum := sha256.Sum256(payload)

	dir := t.TempDir()
	ext := &manifest.Extension{
		Metadata: manifest.Metadata{Name: "tool"},
		Dir:      dir,
		Install: manifest.Install{
			Method: manifest.InstallBinary,
			Binary: &manifest.BinaryInstall{
				Downloads: []manifest.BinaryDownload{{
					Name:        "tool",
					URL:         srv.URL,
					Destination: "bin/tool",
					Integrity:   &manifest.Integrity{Algorithm: "sha256", Value: hex.EncodeToString(sum[:]), Required: true},
				}},
			},
		},
	}

	e := newExecutor()
	lines, err := e.installBinary(context.Background(), ext)
	if err != nil {
		t.Fatalf("installBinary() error = %v", err)
	}
	if len(lines) != 3 {
		t.Errorf("expected 3 log lines, got %d: %v", len(lines), lines)
	}

	got, err := os.ReadFile(filepath.Join(dir, "bin", "tool"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("written artifact does not match downloaded payload")
	}
}

func TestInstallBinaryRejectsBadChecksum(t *testing.T) {
	payload := []byte("binary contents")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	ext := &manifest.Extension{
		Metadata: manifest.Metadata{Name: "tool"},
		Dir:      dir,
		Install: manifest.Install{
			Method: manifest.InstallBinary,
			Binary: &manifest.BinaryInstall{
				Downloads: []manifest.BinaryDownload{{
					Name:        "tool",
					URL:         srv.URL,
					Destination: "bin/tool",
					Integrity:   &manifest.Integrity{Algorithm: "sha256", Value: hex.EncodeToString(make([]byte, 32)), Required: true},
				}},
			},
		},
	}

	e := newExecutor()
	_, err := e.installBinary(context.Background(), ext)
	if err == nil {
		t.Fatal("expected ChecksumMismatch error")
	}
	var se *sinderr.Error
	if !errors.As(err, &se) || se.Kind != sinderr.ChecksumMismatch {
		t.Errorf("error = %v, want ChecksumMismatch", err)
	}
}

func TestInstallBinaryExtractsTarGzWithinDest(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	content := []byte("hello")
	if err := tw.WriteHeader(&tar.Header{Name: "file.txt", Mode: 0o644, Size: int64(len(content))}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatal(err)
	}
	tw.Close()
	gz.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	dir := t.TempDir()
	ext := &manifest.Extension{
		Metadata: manifest.Metadata{Name: "archive"},
		Dir:      dir,
		Install: manifest.Install{
			Method: manifest.InstallBinary,
			Binary: &manifest.BinaryInstall{
				Downloads: []manifest.BinaryDownload{{
					Name:        "archive",
					URL:         srv.URL,
					Destination: "extracted",
					Extract:     true,
				}},
			},
		},
	}

	e := newExecutor()
	if _, err := e.installBinary(context.Background(), ext); err != nil {
		t.Fatalf("installBinary() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "extracted", "file.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("extracted content = %q, want %q", got, "hello")
	}
}

func TestInstallBinaryExtractionRejectsTraversal(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	if err := tw.WriteHeader(&tar.Header{Name: "../../escape.txt", Mode: 0o644, Size: 0}); err != nil {
		t.Fatal(err)
	}
	tw.Close()
	gz.Close()

	dir := t.TempDir()
	err := extractTarGz(buf.Bytes(), dir)
	if err == nil {
		t.Fatal("expected traversal entry to be rejected")
	}
	var se *sinderr.Error
	if !errors.As(err, &se) || se.Kind != sinderr.PathEscape {
		t.Errorf("error = %v, want PathEscape", err)
	}
}

func TestExecutorRejectsUnsupportedMethod(t *testing.T) {
	ext := &manifest.Extension{
		Metadata: manifest.Metadata{Name: "ghost"},
		Install:  manifest.Install{Method: manifest.InstallHybrid},
	}
	e := newExecutor()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := e.Install(ctx, ext, t.TempDir())
	if err == nil {
		t.Fatal("expected InstallFailed for unsupported method")
	}
}
