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

// defaultPriority is applied to any capability that does not declare one.
const defaultPriority = 100

// StateMarker is a filesystem artefact whose existence proves an extension
// has initialised a project directory.
type StateMarker struct {
	Path string `yaml:"path"`
	Type string `yaml:"type"` // file | directory | symlink | other
}

// ProjectInitCommand is a single command run during project-init.
type ProjectInitCommand struct {
	Run          string `yaml:"run"`
	Description  string `yaml:"description,omitempty"`
	RequiresAuth string `yaml:"requiresAuth,omitempty"` // provider name, or "none"
	Conditional  bool   `yaml:"conditional,omitempty"`
}

// ProjectInitValidation is an optional post-init check.
type ProjectInitValidation struct {
	Command          string `yaml:"command"`
	ExpectedExitCode int    `yaml:"expectedExitCode,omitempty"`
	ExpectedPattern  string `yaml:"expectedPattern,omitempty"` // default ".*"
}

// ProjectInit is the project-init capability block.
type ProjectInit struct {
	Enabled      bool                   `yaml:"enabled"`
	Priority     int                    `yaml:"priority,omitempty"`
	Commands     []ProjectInitCommand   `yaml:"commands,omitempty"`
	StateMarkers []StateMarker          `yaml:"state-markers,omitempty"`
	Validation   *ProjectInitValidation `yaml:"validation,omitempty"`
}

// EffectivePriority returns the declared priority, defaulting to 100.
func (p ProjectInit) EffectivePriority() int {
	if p.Priority == 0 {
		return defaultPriority
	}
	return p.Priority
}

// AuthCapability is the auth capability block (auth has no `enabled` field;
// it is enabled iff a Provider is declared).
type AuthCapability struct {
	Provider  string            `yaml:"provider,omitempty"`
	Required  bool              `yaml:"required,omitempty"`
	EnvVars   []string          `yaml:"envVars,omitempty"`
	Validator *AuthValidator    `yaml:"validator,omitempty"`
	Extra     map[string]string `yaml:"extra,omitempty"`
}

// Enabled reports whether the auth capability is considered present, per
// spec.md's rule for capabilities without an explicit `enabled` field.
func (a AuthCapability) Enabled() bool {
	return a.Provider != ""
}

// AuthValidator is the custom-provider validator command.
type AuthValidator struct {
	Command          string `yaml:"command"`
	ExpectedExitCode int    `yaml:"expectedExitCode,omitempty"`
}

// Hook is a single lifecycle hook command.
type Hook struct {
	Command     string `yaml:"command"`
	Description string `yaml:"description,omitempty"`
}

// Hooks is the hooks capability block.
type Hooks struct {
	PreInstall       *Hook `yaml:"pre-install,omitempty"`
	PostInstall      *Hook `yaml:"post-install,omitempty"`
	PreProjectInit   *Hook `yaml:"pre-project-init,omitempty"`
	PostProjectInit  *Hook `yaml:"post-project-init,omitempty"`
}

// MCP is the mcp (external-tool registration) capability block. Its exact
// shape is owned by external collaborators (spec.md §1 names "the top-level
// CLI command parser" and provider adapters as out of scope); the engine
// only needs to know whether it is enabled so C1.Discover can order it.
type MCP struct {
	Enabled bool                   `yaml:"enabled"`
	Config  map[string]interface{} `yaml:"config,omitempty"`
}

// VersionMarkerMethod is the closed set of version-detection methods.
type VersionMarkerMethod string

const (
	MarkerFileExists      VersionMarkerMethod = "file-exists"
	MarkerDirectoryExists VersionMarkerMethod = "directory-exists"
	MarkerContentMatch    VersionMarkerMethod = "content-match"
)

// VersionMarker is one entry of collision-handling.version-markers[].
type VersionMarker struct {
	Path       string               `yaml:"path"`
	Version    string               `yaml:"version"`
	Method     VersionMarkerMethod  `yaml:"method"`
	ExcludeIf  []string             `yaml:"exclude-if,omitempty"`
	MatchAny   bool                 `yaml:"match-any,omitempty"`
	Patterns   []string             `yaml:"patterns,omitempty"`
}

// CollisionAction is the closed set of collision-scenario actions.
type CollisionAction string

const (
	ActionStop    CollisionAction = "stop"
	ActionSkip    CollisionAction = "skip"
	ActionProceed CollisionAction = "proceed"
	ActionBackup  CollisionAction = "backup"
	ActionPrompt  CollisionAction = "prompt"
)

// CollisionScenario is one entry of collision-handling.scenarios[].
type CollisionScenario struct {
	DetectedVersion   string          `yaml:"detected-version"`
	InstallingVersion string          `yaml:"installing-version"`
	Action            CollisionAction `yaml:"action"`
	Message           string          `yaml:"message,omitempty"`
}

// FileConflictAction is the closed set of per-file conflict-rule actions.
type FileConflictAction string

const (
	FileOverwrite FileConflictAction = "overwrite"
	FileAppend    FileConflictAction = "append"
	FilePrepend   FileConflictAction = "prepend"
	FileMergeJSON FileConflictAction = "merge-json"
	FileMergeYAML FileConflictAction = "merge-yaml"
	FilePrompt    FileConflictAction = "prompt"
	FileSkip      FileConflictAction = "skip"
)

// DirConflictAction is the closed set of per-directory conflict-rule actions.
type DirConflictAction string

const (
	DirBackup           DirConflictAction = "backup"
	DirBackupAndReplace DirConflictAction = "backup-and-replace"
	DirMerge            DirConflictAction = "merge"
	DirPromptPerFile    DirConflictAction = "prompt-per-file"
	DirSkip             DirConflictAction = "skip"
)

// ConflictRule is one entry of collision-handling.conflict-rules[]. IsDir
// distinguishes a directory rule from a file rule; Action is interpreted
// against the corresponding closed set.
type ConflictRule struct {
	Path      string `yaml:"path"`
	IsDir     bool   `yaml:"isDirectory,omitempty"`
	Action    string `yaml:"action"`
	Separator string `yaml:"separator,omitempty"`
}

// CollisionHandling is the collision-handling capability block.
type CollisionHandling struct {
	VersionMarkers []VersionMarker     `yaml:"version-markers,omitempty"`
	Scenarios      []CollisionScenario `yaml:"scenarios,omitempty"`
	ConflictRules  []ConflictRule      `yaml:"conflict-rules,omitempty"`
}

// MergeStrategy is the closed set of project-context merge strategies.
type MergeStrategy string

const (
	MergeAppend           MergeStrategy = "append"
	MergePrepend          MergeStrategy = "prepend"
	MergeReplace          MergeStrategy = "replace"
	MergeAppendIfMissing  MergeStrategy = "append-if-missing"
	MergeLineUnion        MergeStrategy = "merge"
)

// MergeFile describes a single project-context merge.
type MergeFile struct {
	Source   string        `yaml:"source"`
	Target   string        `yaml:"target"`
	Strategy MergeStrategy `yaml:"strategy"`
}

// ProjectContext is the project-context capability block. It has its own
// `enabled` flag; Enabled() also requires a mergeFile source.
type ProjectContext struct {
	EnabledFlag bool      `yaml:"enabled"`
	MergeFile   MergeFile `yaml:"mergeFile"`
}

// Enabled reports whether the project-context capability applies.
func (pc ProjectContext) Enabled() bool {
	return pc.EnabledFlag && pc.MergeFile.Source != ""
}

// Capabilities is the full capability bundle attached to a manifest.
type Capabilities struct {
	ProjectInit       ProjectInit       `yaml:"project-init,omitempty"`
	Auth              AuthCapability    `yaml:"auth,omitempty"`
	Hooks             Hooks             `yaml:"hooks,omitempty"`
	MCP               MCP               `yaml:"mcp,omitempty"`
	CollisionHandling CollisionHandling `yaml:"collision-handling,omitempty"`
	ProjectContext    ProjectContext    `yaml:"project-context,omitempty"`
}
