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

package cmd

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/version"
)

var (
	quietFlag   bool
	verboseFlag bool
	logLevel    = slog.LevelInfo

	configPath    string
	extensionsDir string
	registryPath  string
	statePath     string
	profilesDir   string

	rootCmd = &cobra.Command{
		Use:   "sindri",
		Short: "Cloud development environment manager",
		Long: `sindri provisions, configures, connects to, and tears down
containerised developer workstations from a declarative extension profile.

Extensions are discovered from a local filesystem tree (EXTENSIONS_DIR);
their dependency graph is resolved, installed, and initialised per project
in a deterministic order.`,
		Version: version.Get(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if quietFlag {
				logLevel = slog.LevelError
			} else if verboseFlag || os.Getenv("DEBUG") != "" {
				logLevel = slog.LevelDebug
			}
			return applyConfigDefaults(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress informational output (errors only)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose debug output")

	def := manifest.DefaultConfig()
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./sindri.yaml", "path to the sindri.yaml operational config")
	defaultExtensions := envOr("EXTENSIONS_DIR", def.ExtensionsDir)
	rootCmd.PersistentFlags().StringVar(&extensionsDir, "extensions-dir", defaultExtensions, "root directory of extension.yaml trees")
	rootCmd.PersistentFlags().StringVar(&registryPath, "registry", def.RegistryPath, "path to the authoritative registry document")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", def.StatePath, "path to the install state store")
	rootCmd.PersistentFlags().StringVar(&profilesDir, "profiles-dir", def.ProfilesDir, "root directory of profile documents")
}

// applyConfigDefaults loads sindri.yaml, if present, and uses its values for
// any path flag the caller did not explicitly set, the same precedence order
// spec.md gives CLI flags over on-disk configuration. A set EXTENSIONS_DIR
// also takes precedence over the file's extensions directory.
func applyConfigDefaults(cmd *cobra.Command) error {
	absConfigPath, err := filepath.Abs(configPath)
	if err != nil {
		return err
	}
	cfg, err := manifest.LoadConfig(absConfigPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if !flags.Changed("extensions-dir") && os.Getenv("EXTENSIONS_DIR") == "" && cfg.ExtensionsDir != "" {
		extensionsDir = cfg.ExtensionsDir
	}
	if !flags.Changed("registry") && cfg.RegistryPath != "" {
		registryPath = cfg.RegistryPath
	}
	if !flags.Changed("state") && cfg.StatePath != "" {
		statePath = cfg.StatePath
	}
	if !flags.Changed("profiles-dir") && cfg.ProfilesDir != "" {
		profilesDir = cfg.ProfilesDir
	}
	return nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetLogLevel returns the current log level based on flags/environment.
func GetLogLevel() slog.Level {
	return logLevel
}
