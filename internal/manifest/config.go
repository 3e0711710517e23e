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

package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pacphi/sindri/internal/secureio"
	"github.com/pacphi/sindri/internal/sinderr"
)

// Config is the root sindri.yaml operational config: paths the CLI defaults
// to and the limits the rate limiter enforces, overridable per command by
// flags.
type Config struct {
	Version       int             `yaml:"version"`
	ExtensionsDir string          `yaml:"extensions-dir,omitempty"`
	RegistryPath  string          `yaml:"registry,omitempty"`
	StatePath     string          `yaml:"state,omitempty"`
	ProfilesDir   string          `yaml:"profiles-dir,omitempty"`
	RateLimit     RateLimitConfig `yaml:"rate-limit,omitempty"`
}

// RateLimitConfig overrides the default sliding-window install rate limit.
type RateLimitConfig struct {
	Max         int      `yaml:"max,omitempty"`
	WindowSecs  int      `yaml:"window-seconds,omitempty"`
	ExemptNames []string `yaml:"exempt,omitempty"`
}

// LoadConfig reads and validates sindri.yaml at path. A missing file is not
// an error: it returns DefaultConfig(), matching the CLI's own flag defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := secureio.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, sinderr.Wrap(sinderr.ManifestParse, path, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, sinderr.Wrap(sinderr.ManifestParse, path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, sinderr.Wrap(sinderr.ManifestSchema, path, err)
	}

	return config, nil
}

// Validate checks that the configuration is well-formed.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported sindri.yaml version: %d (expected 1)", c.Version)
	}
	if c.RateLimit.Max < 0 {
		return fmt.Errorf("rate-limit.max must be non-negative")
	}
	if c.RateLimit.WindowSecs < 0 {
		return fmt.Errorf("rate-limit.window-seconds must be non-negative")
	}
	return nil
}

// DefaultConfig returns the configuration used when no sindri.yaml is present.
func DefaultConfig() *Config {
	return &Config{
		Version:       1,
		ExtensionsDir: "./extensions",
		RegistryPath:  "./registry.yaml",
		StatePath:     "./.sindri/manifest.yaml",
		ProfilesDir:   "./profiles",
	}
}
