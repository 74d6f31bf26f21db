// Package shellfirmconfig loads the user's global settings file, the
// single source of truth for which checks run, how hard they challenge,
// and how the agent/LLM/audit collaborators at the edge of the pipeline
// are configured.
package shellfirmconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kaplanelad/shellfirm-go/internal/rulecontext"
	"github.com/kaplanelad/shellfirm-go/internal/rules"
)

// AgentConfig controls the non-interactive assessment path.
type AgentConfig struct {
	AutoDenySeverity    rules.Severity `yaml:"auto_deny_severity"`
	RequireHumanApproval bool          `yaml:"require_human_approval"`
}

// DefaultAgentConfig matches the source's AgentConfig::default().
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		AutoDenySeverity:     rules.SeverityCritical,
		RequireHumanApproval: false,
	}
}

// LLMConfig describes an optional external provider consulted for
// natural-language alternative suggestions. shellfirm-go never calls
// out to it directly; internal/agentmode and internal/mcpserver treat it
// as a collaborator reachable only at this configuration boundary.
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	TimeoutMs int    `yaml:"timeout_ms"`
	MaxTokens int    `yaml:"max_tokens"`
	BaseURL   string `yaml:"base_url,omitempty"`
}

// Wrapper names one interactive CLI shellfirm-go's PTY proxy can wrap,
// plus the statement delimiter it uses to know when a pasted block ends.
type Wrapper struct {
	Binary    string `yaml:"binary"`
	Delimiter string `yaml:"delimiter"`
}

// BuiltinWrappers is the out-of-the-box table of interactive database
// shells the PTY proxy recognizes by binary name.
func BuiltinWrappers() []Wrapper {
	return []Wrapper{
		{Binary: "psql", Delimiter: ";"},
		{Binary: "mysql", Delimiter: ";"},
		{Binary: "redis-cli", Delimiter: "\n"},
		{Binary: "mongosh", Delimiter: "\n"},
		{Binary: "mongo", Delimiter: "\n"},
	}
}

// Settings is the fully-resolved global configuration for one shellfirm-go
// invocation, loaded from settings.yaml in ~/.shellfirm (or in the
// directory given by --config-dir).
type Settings struct {
	Challenge          rules.Challenge            `yaml:"challenge"`
	EnabledGroups      []string                   `yaml:"enabled_groups"`
	DisabledGroups     []string                   `yaml:"disabled_groups"`
	IgnoresPatternsIDs []string                   `yaml:"ignores_patterns_ids"`
	DenyPatternsIDs    []string                   `yaml:"deny_patterns_ids"`
	MinSeverity        rules.Severity             `yaml:"min_severity"`
	AuditEnabled       bool                       `yaml:"audit_enabled"`
	BlastRadiusEnabled bool                       `yaml:"blast_radius_enabled"`
	SeverityEscalation map[rules.Severity]rules.Challenge `yaml:"severity_escalation"`
	GroupEscalation    map[string]rules.Challenge `yaml:"group_escalation"`
	CheckEscalation    map[string]rules.Challenge `yaml:"check_escalation"`
	Agent              AgentConfig                `yaml:"agent"`
	LLM                *LLMConfig                 `yaml:"llm,omitempty"`
	Wrappers           []Wrapper                  `yaml:"wrappers"`
	Context            rulecontext.Config         `yaml:"context"`

	// ConfigDir is the resolved directory the settings file, custom check
	// catalog, and audit log live under. Not part of the YAML wire format.
	ConfigDir string `yaml:"-"`
	LogPath   string `yaml:"-"`
}

// Default returns the settings a fresh install runs with.
func Default() Settings {
	return Settings{
		Challenge:    rules.ChallengeMath,
		MinSeverity:  rules.SeverityInfo,
		AuditEnabled: true,
		Agent:        DefaultAgentConfig(),
		Wrappers:     BuiltinWrappers(),
		Context:      rulecontext.DefaultConfig(),
	}
}

const defaultDirName = ".shellfirm"

// ResolveConfigDir returns configDirFlag if set, else ~/.shellfirm,
// creating it with 0700 permissions if it does not already exist.
func ResolveConfigDir(configDirFlag string) (string, error) {
	dir := configDirFlag
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		dir = filepath.Join(home, defaultDirName)
	}
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

func ensureDir(dir string) error {
	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", dir)
		}
		return nil
	}
	return os.MkdirAll(dir, 0o700)
}

// Load reads settings.yaml from configDir, applying Default() for any
// field left unset in the file. A missing file is not an error: it
// yields Default() with paths resolved.
func Load(configDirFlag string) (Settings, error) {
	dir, err := ResolveConfigDir(configDirFlag)
	if err != nil {
		return Settings{}, err
	}

	settings := Default()
	settings.ConfigDir = dir
	settings.LogPath = filepath.Join(dir, "audit.jsonl")

	path := filepath.Join(dir, "settings.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return Settings{}, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	settings.ConfigDir = dir
	if settings.LogPath == "" {
		settings.LogPath = filepath.Join(dir, "audit.jsonl")
	}
	if len(settings.Wrappers) == 0 {
		settings.Wrappers = BuiltinWrappers()
	}
	if len(settings.Context.ProtectedBranches) == 0 && len(settings.Context.ProductionK8sPatterns) == 0 {
		settings.Context = rulecontext.DefaultConfig()
	}
	return settings, nil
}

// CustomChecksDir is the directory Load's caller should pass to
// rules.LoadCustomDir for user-defined rule overlays.
func CustomChecksDir(settings Settings) string {
	return filepath.Join(settings.ConfigDir, "checks")
}
