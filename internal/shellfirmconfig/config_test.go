package shellfirmconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kaplanelad/shellfirm-go/internal/rules"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	settings, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Challenge != rules.ChallengeMath {
		t.Errorf("expected default challenge Math, got %v", settings.Challenge)
	}
	if !settings.AuditEnabled {
		t.Errorf("expected audit enabled by default")
	}
	if len(settings.Wrappers) == 0 {
		t.Errorf("expected builtin wrappers populated")
	}
	if settings.LogPath != filepath.Join(dir, "audit.jsonl") {
		t.Errorf("unexpected log path: %s", settings.LogPath)
	}
	if len(settings.Context.ProtectedBranches) == 0 {
		t.Errorf("expected default protected branches populated")
	}
}

func TestLoadParsesSettingsFile(t *testing.T) {
	dir := t.TempDir()
	content := `
challenge: yes
min_severity: high
audit_enabled: false
enabled_groups:
  - fs
  - git
agent:
  auto_deny_severity: critical
  require_human_approval: true
`
	if err := os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	settings, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Challenge != rules.ChallengeYes {
		t.Errorf("expected Yes challenge, got %v", settings.Challenge)
	}
	if settings.MinSeverity != rules.SeverityHigh {
		t.Errorf("expected High min severity, got %v", settings.MinSeverity)
	}
	if settings.AuditEnabled {
		t.Errorf("expected audit disabled")
	}
	if len(settings.EnabledGroups) != 2 {
		t.Errorf("expected two enabled groups, got %v", settings.EnabledGroups)
	}
	if !settings.Agent.RequireHumanApproval {
		t.Errorf("expected require_human_approval true")
	}
}

func TestResolveConfigDirCreatesDirectory(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "nested", "shellfirm")
	resolved, err := ResolveConfigDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != dir {
		t.Errorf("expected %s, got %s", dir, resolved)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("expected directory to be created")
	}
}

func TestCustomChecksDir(t *testing.T) {
	s := Settings{ConfigDir: "/home/u/.shellfirm"}
	if got := CustomChecksDir(s); got != "/home/u/.shellfirm/checks" {
		t.Errorf("unexpected custom checks dir: %s", got)
	}
}
