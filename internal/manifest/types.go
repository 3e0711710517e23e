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

// Package manifest defines the extension manifest data model and the
// registry/loader that turns a directory tree of extension.yaml files into a
// keyed collection of Extension values.
package manifest

import "gopkg.in/yaml.v3"

// Category is the closed set of extension categories.
type Category string

const (
	CategoryBase           Category = "base"
	CategoryLanguage       Category = "language"
	CategoryDevTools       Category = "dev-tools"
	CategoryInfrastructure Category = "infrastructure"
	CategoryAI             Category = "ai"
	CategoryUtilities      Category = "utilities"
	CategoryAgile          Category = "agile"
	CategoryDesktop        Category = "desktop"
	CategoryMonitoring     Category = "monitoring"
	CategoryDatabase       Category = "database"
	CategoryMobile         Category = "mobile"
)

// ValidCategories backs closed-enum validation the way the teacher's
// internal/policy/config.go validates schedule/versioning-strategy fields.
var ValidCategories = map[Category]bool{
	CategoryBase: true, CategoryLanguage: true, CategoryDevTools: true,
	CategoryInfrastructure: true, CategoryAI: true, CategoryUtilities: true,
	CategoryAgile: true, CategoryDesktop: true, CategoryMonitoring: true,
	CategoryDatabase: true, CategoryMobile: true,
}

// Metadata is the extension's identity block.
type Metadata struct {
	Name         string   `yaml:"name"`
	Version      string   `yaml:"version"`
	Description  string   `yaml:"description"`
	Category     Category `yaml:"category"`
	Author       string   `yaml:"author,omitempty"`
	Homepage     string   `yaml:"homepage,omitempty"`
	License      string   `yaml:"license,omitempty"`
	Dependencies []string `yaml:"dependencies,omitempty"`
}

// DomainRequirements splits domains the install contacts into critical
// (failure aborts the install) and optional (failure is a warning).
type DomainRequirements struct {
	Critical []string `yaml:"critical,omitempty"`
	Optional []string `yaml:"optional,omitempty"`
	// Legacy is a flat domains list with no critical/optional split; it is
	// treated as entirely optional unless the extension opts in (see
	// Requirements.PromoteLegacyToCritical).
	Legacy []string `yaml:"-"`
}

// UnmarshalYAML accepts either the critical/optional mapping or a legacy
// flat list of domains, which is stored in Legacy.
func (d *DomainRequirements) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		return node.Decode(&d.Legacy)
	}
	type plain DomainRequirements
	return node.Decode((*plain)(d))
}

// Requirements captures pre-install constraints.
type Requirements struct {
	Domains                 DomainRequirements `yaml:"domains,omitempty"`
	PromoteLegacyToCritical bool               `yaml:"promoteLegacyDomainsToCritical,omitempty"`
	OS                      []string           `yaml:"os,omitempty"`
	Arch                    []string           `yaml:"arch,omitempty"`
}

// InstallMethod is the closed tag of the install recipe variant.
type InstallMethod string

const (
	InstallMise   InstallMethod = "mise"
	InstallAPT    InstallMethod = "apt"
	InstallScript InstallMethod = "script"
	InstallBinary InstallMethod = "binary"
	InstallNPM    InstallMethod = "npm"
	InstallHybrid InstallMethod = "hybrid"
)

// MiseInstall places an external mise.toml-shaped configuration file.
type MiseInstall struct {
	ConfigFile string `yaml:"configFile"`
}

// APTInstall declares apt repository lines and packages, and whether to
// autoremove afterwards.
type APTInstall struct {
	Repositories []string `yaml:"repositories,omitempty"`
	Packages     []string `yaml:"packages"`
	Purge        bool     `yaml:"purge,omitempty"`
}

// ScriptInstall resolves a script relative to the extension directory.
type ScriptInstall struct {
	Path    string            `yaml:"path"`
	Timeout int               `yaml:"timeout,omitempty"` // seconds
	Env     map[string]string `yaml:"env,omitempty"`
}

// Integrity declares an expected checksum for a downloaded artifact.
type Integrity struct {
	Algorithm string `yaml:"algorithm"` // sha256 | sha512
	Value     string `yaml:"value"`
	Required  bool   `yaml:"required,omitempty"`
}

// BinaryDownload is a single artifact fetched and placed by a binary install.
type BinaryDownload struct {
	Name        string     `yaml:"name"`
	URL         string     `yaml:"url"`
	Destination string     `yaml:"destination"`
	Extract     bool       `yaml:"extract,omitempty"`
	Integrity   *Integrity `yaml:"integrity,omitempty"`
}

// BinaryInstall downloads one or more artifacts.
type BinaryInstall struct {
	Downloads []BinaryDownload `yaml:"downloads"`
}

// NPMInstall installs one or more npm packages globally.
type NPMInstall struct {
	Packages []string `yaml:"packages"`
}

// Install is a tagged variant: schema validation guarantees exactly one
// payload field is present for the declared Method.
type Install struct {
	Method InstallMethod  `yaml:"method"`
	Mise   *MiseInstall   `yaml:"mise,omitempty"`
	APT    *APTInstall    `yaml:"apt,omitempty"`
	Script *ScriptInstall `yaml:"script,omitempty"`
	Binary *BinaryInstall `yaml:"binary,omitempty"`
	NPM    *NPMInstall    `yaml:"npm,omitempty"`
}

// TemplateMode is the closed set of configure.templates[] copy modes.
type TemplateMode string

const (
	TemplateOverwrite      TemplateMode = "overwrite"
	TemplateAppend         TemplateMode = "append"
	TemplateMerge          TemplateMode = "merge"
	TemplateSkipIfExists   TemplateMode = "skip-if-exists"
)

// Template is a single file-template copy rule.
type Template struct {
	Source      string       `yaml:"source"`
	Destination string       `yaml:"destination"`
	Mode        TemplateMode `yaml:"mode"`
}

// Configure holds template copy rules applied after install.
type Configure struct {
	Templates []Template `yaml:"templates,omitempty"`
}

// UpgradeStrategy is the closed set of upgrade strategies.
type UpgradeStrategy string

const (
	UpgradeReinstall UpgradeStrategy = "reinstall"
	UpgradeInPlace   UpgradeStrategy = "in-place"
	UpgradeAutomatic UpgradeStrategy = "automatic"
	UpgradeManual    UpgradeStrategy = "manual"
)

// Upgrade declares how an already-installed extension is upgraded.
type Upgrade struct {
	Strategy UpgradeStrategy `yaml:"strategy,omitempty"`
	Mise     *MiseInstall    `yaml:"mise,omitempty"`
	APT      *APTInstall     `yaml:"apt,omitempty"`
	Script   *ScriptInstall  `yaml:"script,omitempty"`
}

// Remove declares how an extension is uninstalled.
type Remove struct {
	Confirmation string         `yaml:"confirmation,omitempty"`
	APT          *APTInstall    `yaml:"apt,omitempty"`
	Paths        []string       `yaml:"paths,omitempty"`
	Script       *ScriptInstall `yaml:"script,omitempty"`
}

// BOMTool is a single bill-of-materials entry.
type BOMTool struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`
}

// BOM is the optional bill-of-materials block.
type BOM struct {
	Tools []BOMTool `yaml:"tools,omitempty"`
}

// Extension is the fully parsed extension manifest.
type Extension struct {
	Metadata     Metadata     `yaml:"metadata"`
	Requirements Requirements `yaml:"requirements,omitempty"`
	Install      Install      `yaml:"install"`
	Configure    Configure    `yaml:"configure,omitempty"`
	Upgrade      *Upgrade     `yaml:"upgrade,omitempty"`
	Remove       *Remove      `yaml:"remove,omitempty"`
	Capabilities Capabilities `yaml:"capabilities,omitempty"`
	BOM          BOM          `yaml:"bom,omitempty"`

	// Dir is the absolute path to the extension's directory, set by the
	// loader, not parsed from YAML.
	Dir string `yaml:"-"`
}

// Profile is a named list of extension names installed together.
type Profile struct {
	Name       string   `yaml:"name"`
	Extensions []string `yaml:"extensions"`
}
