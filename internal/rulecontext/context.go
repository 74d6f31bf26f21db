// Package rulecontext detects the runtime context a command is about to
// run in — SSH session, root user, protected git branch, production
// kubernetes context, sensitive environment variables — and derives a
// RiskLevel from those signals.
package rulecontext

import (
	"fmt"
	"strings"
	"time"

	"github.com/kaplanelad/shellfirm-go/internal/env"
)

// RiskLevel is a total order: Normal < Elevated < Critical.
type RiskLevel int

const (
	RiskNormal RiskLevel = iota
	RiskElevated
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskElevated:
		return "Elevated"
	case RiskCritical:
		return "Critical"
	default:
		return "Normal"
	}
}

// Config controls which signals count as "production" or "protected". It
// is the decoded shape of settings.yaml's top-level "context" key.
type Config struct {
	ProtectedBranches     []string          `yaml:"protected_branches"`
	ProductionK8sPatterns []string          `yaml:"production_k8s_patterns"`
	ProductionEnvVars     map[string]string `yaml:"production_env_vars"` // name -> expected value (case-insensitive)
	SensitivePaths        []string          `yaml:"sensitive_paths"`
	EscalationElevated    string            `yaml:"escalation_elevated"` // challenge name, e.g. "enter"
	EscalationCritical    string            `yaml:"escalation_critical"` // challenge name, e.g. "yes"
}

// DefaultConfig matches the source's built-in defaults.
func DefaultConfig() Config {
	return Config{
		ProtectedBranches:     []string{"main", "master", "production", "release/*"},
		ProductionK8sPatterns: []string{"prod", "production", "prd", "live"},
		ProductionEnvVars: map[string]string{
			"NODE_ENV":    "production",
			"RAILS_ENV":   "production",
			"ENVIRONMENT": "production",
		},
		EscalationElevated: "enter",
		EscalationCritical: "yes",
	}
}

// RuntimeContext is the detected context for one command invocation.
type RuntimeContext struct {
	IsSSH      bool
	IsRoot     bool
	GitBranch  string
	HasBranch  bool
	K8sContext string
	HasK8s     bool
	EnvSignals []string
	RiskLevel  RiskLevel
	Labels     []string
}

const probeTimeout = 100 * time.Millisecond

// Detect probes e for ssh/root/git/k8s/env signals and computes the
// resulting RuntimeContext.
func Detect(e env.Environment, cfg Config) RuntimeContext {
	var ctx RuntimeContext

	if _, ok := e.Var("SSH_CONNECTION"); ok {
		ctx.IsSSH = true
	}
	if _, ok := e.Var("SSH_TTY"); ok {
		ctx.IsSSH = true
	}

	if euid, ok := e.Var("EUID"); ok && euid == "0" {
		ctx.IsRoot = true
	}

	if out, ok := e.RunCommand("git", []string{"rev-parse", "--abbrev-ref", "HEAD"}, probeTimeout); ok && out != "" {
		ctx.GitBranch = out
		ctx.HasBranch = true
	}

	if out, ok := e.RunCommand("kubectl", []string{"config", "current-context"}, probeTimeout); ok && out != "" {
		ctx.K8sContext = out
		ctx.HasK8s = true
	}

	for name, expected := range cfg.ProductionEnvVars {
		if val, ok := e.Var(name); ok && strings.EqualFold(val, expected) {
			ctx.EnvSignals = append(ctx.EnvSignals, fmt.Sprintf("%s=%s", name, val))
		}
	}

	ctx.RiskLevel = computeRiskLevel(ctx, cfg)
	ctx.Labels = buildLabels(ctx)
	return ctx
}

func computeRiskLevel(ctx RuntimeContext, cfg Config) RiskLevel {
	if ctx.IsRoot ||
		(ctx.HasBranch && branchMatchesAny(ctx.GitBranch, cfg.ProtectedBranches)) ||
		(ctx.HasK8s && matchesAnyPattern(ctx.K8sContext, cfg.ProductionK8sPatterns)) ||
		len(ctx.EnvSignals) > 0 {
		return RiskCritical
	}
	if ctx.IsSSH {
		return RiskElevated
	}
	return RiskNormal
}

// branchMatchesAny reports whether branch matches any pattern: an exact
// string, or a "prefix/*" wildcard meaning branch starts with "prefix/".
func branchMatchesAny(branch string, patterns []string) bool {
	for _, p := range patterns {
		if p == branch {
			return true
		}
		if strings.HasSuffix(p, "/*") {
			prefix := p[:len(p)-1] // keep trailing "/"
			if strings.HasPrefix(branch, prefix) {
				return true
			}
		}
	}
	return false
}

// matchesAnyPattern is a case-insensitive substring containment check.
func matchesAnyPattern(value string, patterns []string) bool {
	lower := strings.ToLower(value)
	for _, p := range patterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func buildLabels(ctx RuntimeContext) []string {
	var labels []string
	if ctx.IsSSH {
		labels = append(labels, "ssh")
	}
	if ctx.IsRoot {
		labels = append(labels, "root")
	}
	if ctx.HasBranch {
		labels = append(labels, "branch="+ctx.GitBranch)
	}
	if ctx.HasK8s {
		labels = append(labels, "k8s="+ctx.K8sContext)
	}
	labels = append(labels, ctx.EnvSignals...)
	return labels
}

// FilterForGroups derives a display context that hides dimensions not
// relevant to what actually matched: git_branch is kept only if "git" is
// among matchedGroups; k8s_context only if "kubernetes" is. Global
// signals (ssh, root, env) are always kept. risk_level is recomputed from
// the filtered context, not copied from the original.
func FilterForGroups(ctx RuntimeContext, matchedGroups []string, cfg Config) RuntimeContext {
	groups := make(map[string]bool, len(matchedGroups))
	for _, g := range matchedGroups {
		groups[g] = true
	}

	filtered := RuntimeContext{
		IsSSH:      ctx.IsSSH,
		IsRoot:     ctx.IsRoot,
		EnvSignals: ctx.EnvSignals,
	}
	if groups["git"] {
		filtered.GitBranch = ctx.GitBranch
		filtered.HasBranch = ctx.HasBranch
	}
	if groups["kubernetes"] {
		filtered.K8sContext = ctx.K8sContext
		filtered.HasK8s = ctx.HasK8s
	}

	filtered.RiskLevel = computeRiskLevel(filtered, cfg)
	filtered.Labels = buildLabels(filtered)
	return filtered
}
