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
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/secureio"
	"github.com/pacphi/sindri/internal/sinderr"
)

const maxDownloadBytes = 512 << 20 // 512 MiB

// installBinary fetches each declared artifact, verifies its integrity when
// declared, and extracts it if requested.
func (e *Executor) installBinary(ctx context.Context, ext *manifest.Extension) ([]string, error) {
	var lines []string

	for _, dl := range ext.Install.Binary.Downloads {
		destPath, err := secureio.ValidateWithin(ext.Dir, dl.Destination)
		if err != nil {
			return lines, err
		}

		data, err := fetchToTemp(ctx, dl.URL)
		if err != nil {
			return lines, sinderr.Wrap(sinderr.InstallFailed, dl.URL, err)
		}
		lines = append(lines, fmt.Sprintf("downloaded %s (%d bytes)", dl.Name, len(data)))

		if dl.Integrity != nil {
			if err := verifyIntegrity(data, dl.Integrity); err != nil {
				return lines, err
			}
			lines = append(lines, fmt.Sprintf("%s: checksum verified", dl.Name))
		}

		if dl.Extract {
			if err := extractTarGz(data, destPath); err != nil {
				return lines, err
			}
			lines = append(lines, fmt.Sprintf("extracted %s to %s", dl.Name, destPath))
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return lines, sinderr.Wrap(sinderr.InstallFailed, destPath, err)
		}
		if err := secureio.WriteFile(destPath, data, 0o755); err != nil {
			return lines, sinderr.Wrap(sinderr.InstallFailed, destPath, err)
		}
		lines = append(lines, fmt.Sprintf("wrote %s", destPath))
	}

	return lines, nil
}

// fetchToTemp downloads url into a securely-created (0600), auto-cleaned temp
// file rather than buffering the whole response in memory, per spec.md §4.4's
// "fetch to a securely-created temp file (0600 perms, auto-cleaned on
// exit/failure)". The temp file never survives this call: its content is
// read back into memory (downloads are capped at maxDownloadBytes, a modest
// ceiling for CLI/binary installers) for checksum verification and
// extraction, and the temp file itself is zeroed and unlinked before return.
func fetchToTemp(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp, cleanup, err := secureio.TempFile("", "sindri-download-*")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, err
	}
	if n > maxDownloadBytes {
		return nil, fmt.Errorf("download exceeds %d byte limit", maxDownloadBytes)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(tmp)
}

func verifyIntegrity(data []byte, integrity *manifest.Integrity) error {
	var sum []byte
	switch strings.ToLower(integrity.Algorithm) {
	case "sha256":
		s := sha256.Sum256(data)
		sum = s[:]
	case "sha512":
		s := sha512.Sum512(data)
		sum = s[:]
	default:
		return sinderr.New(sinderr.ChecksumMismatch, "unknown algorithm: "+integrity.Algorithm)
	}

	want, err := hex.DecodeString(integrity.Value)
	if err != nil {
		return sinderr.Wrap(sinderr.ChecksumMismatch, "malformed expected checksum", err)
	}

	if subtle.ConstantTimeCompare(sum, want) != 1 {
		return sinderr.New(sinderr.ChecksumMismatch, "downloaded artifact checksum mismatch")
	}
	return nil
}

// extractTarGz extracts a gzip-compressed tar archive into destDir, refusing
// any entry whose resolved path would escape destDir.
func extractTarGz(data []byte, destDir string) error {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return sinderr.Wrap(sinderr.InstallFailed, "open archive", err)
	}
	defer gz.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return sinderr.Wrap(sinderr.InstallFailed, destDir, err)
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return sinderr.Wrap(sinderr.InstallFailed, "read archive entry", err)
		}

		targetPath, err := secureio.ValidateWithin(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, 0o755); err != nil {
				return sinderr.Wrap(sinderr.InstallFailed, targetPath, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
				return sinderr.Wrap(sinderr.InstallFailed, targetPath, err)
			}
			out, err := secureio.Create(targetPath)
			if err != nil {
				return sinderr.Wrap(sinderr.InstallFailed, targetPath, err)
			}
			if _, err := io.Copy(out, io.LimitReader(tr, maxDownloadBytes)); err != nil {
				out.Close()
				return sinderr.Wrap(sinderr.InstallFailed, targetPath, err)
			}
			out.Close()
			if err := os.Chmod(targetPath, os.FileMode(hdr.Mode)); err != nil { // #nosec G302 - mode comes from the archive's own header
				return sinderr.Wrap(sinderr.InstallFailed, targetPath, err)
			}
		default:
			// skip symlinks, devices, and other special entry types
		}
	}
}
