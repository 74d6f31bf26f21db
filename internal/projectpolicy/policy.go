// Package projectpolicy loads and applies .shellfirm.yaml, a project-level
// policy file teams commit alongside their code. Policies are
// additive-only: they can escalate a challenge or deny-list a pattern,
// but a project policy can never weaken a global protection.
package projectpolicy

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kaplanelad/shellfirm-go/internal/env"
	"github.com/kaplanelad/shellfirm-go/internal/rules"
)

// Filename is the canonical name searched for when walking up directories.
const Filename = ".shellfirm.yaml"

// Override escalates the challenge for one existing pattern id, optionally
// gated to specific branches.
type Override struct {
	ID             string   `yaml:"id"`
	Challenge      rules.Challenge `yaml:"challenge"`
	HasChallenge   bool     `yaml:"-"`
	OnBranches     []string `yaml:"on_branches"`
}

// rawOverride distinguishes an absent challenge field from ChallengeMath.
type rawOverride struct {
	ID         string    `yaml:"id"`
	Challenge  *rules.Challenge `yaml:"challenge"`
	OnBranches []string  `yaml:"on_branches"`
}

// Policy is a project-level policy loaded from .shellfirm.yaml.
type Policy struct {
	Version   int           `yaml:"version"`
	Checks    []rules.Rule  `yaml:"-"`
	RawChecks []rawCheck    `yaml:"checks"`
	Overrides []Override    `yaml:"-"`
	Deny      []string      `yaml:"deny"`
}

type rawCheck struct {
	ID              string                `yaml:"id"`
	Test            string                `yaml:"test"`
	Description     string                `yaml:"description"`
	From            string                `yaml:"from"`
	Severity        rules.Severity        `yaml:"severity"`
	Challenge       rules.Challenge       `yaml:"challenge"`
	Alternative     string                `yaml:"alternative"`
	AlternativeInfo string                `yaml:"alternative_info"`
	Filters         map[rules.FilterType]string `yaml:"filters"`
	ValidationMode  rules.ValidationMode  `yaml:"validation_mode"`
}

type rawPolicy struct {
	Version   int           `yaml:"version"`
	Checks    []rawCheck    `yaml:"checks"`
	Overrides []rawOverride `yaml:"overrides"`
	Deny      []string      `yaml:"deny"`
}

// Discover walks upward from startDir looking for a .shellfirm.yaml file
// and parses it. Any error reading or parsing the file is swallowed: a
// broken or absent project policy never blocks the pipeline, it simply
// contributes nothing.
func Discover(e env.Environment, startDir string) (Policy, bool) {
	path, ok := e.FindUpward(startDir, Filename)
	if !ok {
		return Policy{}, false
	}
	content, err := e.ReadFile(path)
	if err != nil {
		return Policy{}, false
	}
	policy, err := Parse(content)
	if err != nil {
		return Policy{}, false
	}
	return policy, true
}

// Parse parses a policy YAML document.
func Parse(content string) (Policy, error) {
	var raw rawPolicy
	if err := yaml.Unmarshal([]byte(content), &raw); err != nil {
		return Policy{}, fmt.Errorf("parsing project policy: %w", err)
	}

	checks := make([]rules.Rule, 0, len(raw.Checks))
	for _, c := range raw.Checks {
		compiled, err := compileRawCheck(c)
		if err != nil {
			return Policy{}, err
		}
		checks = append(checks, compiled)
	}

	overrides := make([]Override, 0, len(raw.Overrides))
	for _, o := range raw.Overrides {
		ov := Override{ID: o.ID, OnBranches: o.OnBranches}
		if o.Challenge != nil {
			ov.Challenge = *o.Challenge
			ov.HasChallenge = true
		}
		overrides = append(overrides, ov)
	}

	return Policy{
		Version:   raw.Version,
		Checks:    checks,
		Overrides: overrides,
		Deny:      raw.Deny,
	}, nil
}

func compileRawCheck(c rawCheck) (rules.Rule, error) {
	// Project-defined checks reuse the same compiled shape as the built-in
	// catalog; regex compilation errors surface to the caller rather than
	// being swallowed, since a malformed project check is a policy-authoring
	// mistake worth surfacing loudly at validate time.
	re, err := regexp.Compile(c.Test)
	if err != nil {
		return rules.Rule{}, fmt.Errorf("project check %s: %w", c.ID, err)
	}
	mode := c.ValidationMode
	if mode == "" {
		mode = rules.ValidationSplit
	}
	return rules.Rule{
		ID:              c.ID,
		TestRe:          re,
		Description:     c.Description,
		From:            c.From,
		Severity:        c.Severity,
		Challenge:       c.Challenge,
		Alternative:     c.Alternative,
		AlternativeInfo: c.AlternativeInfo,
		Filters:         c.Filters,
		ValidationMode:  mode,
	}, nil
}

// Merged is the result of merging a project policy against the current
// branch. It is consumed by internal/pipeline and internal/challenge.
type Merged struct {
	ExtraChecks        []rules.Rule
	ExtraDeny          []string
	ChallengeOverrides map[string]rules.Challenge
}

// MergeIntoSettings merges policy against the currently checked-out
// branch (if known). Branch-gated overrides (on_branches) apply only
// when currentBranch matches one of the listed branches or wildcards;
// an override with on_branches set but no known branch never applies.
func MergeIntoSettings(policy Policy, currentBranch string, hasBranch bool) Merged {
	overrides := map[string]rules.Challenge{}
	for _, ov := range policy.Overrides {
		if len(ov.OnBranches) > 0 {
			if !hasBranch || !branchMatchesAny(currentBranch, ov.OnBranches) {
				continue
			}
		}
		if ov.HasChallenge {
			overrides[ov.ID] = ov.Challenge
		}
	}
	return Merged{
		ExtraChecks:        policy.Checks,
		ExtraDeny:          policy.Deny,
		ChallengeOverrides: overrides,
	}
}

// EffectiveChallenge returns the stricter of base and any policy override
// for patternID, honoring the additive-only rule: an override can never
// weaken base.
func (m Merged) EffectiveChallenge(patternID string, base rules.Challenge) rules.Challenge {
	if override, ok := m.ChallengeOverrides[patternID]; ok {
		return rules.Max(base, override)
	}
	return base
}

// IsDenied reports whether patternID is unconditionally denied by this
// project's policy.
func (m Merged) IsDenied(patternID string) bool {
	for _, id := range m.ExtraDeny {
		if id == patternID {
			return true
		}
	}
	return false
}

func branchMatchesAny(branch string, patterns []string) bool {
	for _, p := range patterns {
		if p == branch {
			return true
		}
		if strings.HasSuffix(p, "/*") {
			prefix := p[:len(p)-1]
			if strings.HasPrefix(branch, prefix) {
				return true
			}
		}
	}
	return false
}

// Scaffold returns a commented starter .shellfirm.yaml template, the
// Go-side equivalent of a "shellfirm policy init" command's output.
func Scaffold() string {
	return `# shellfirm project policy
version: 1

# Additional patterns specific to this project
checks: []

# Raise the challenge for existing patterns
# overrides:
#   - id: git:force_push
#     challenge: yes
#   - id: git:reset
#     on_branches: [main, master]
#     challenge: yes

# Patterns that are unconditionally denied in this project
deny: []
#   - git:force_push
#   - kubernetes:delete_namespace
`
}

// Validate parses content and returns a list of human-readable warnings
// about likely authoring mistakes. It does not error on warnings; it
// errors only if the YAML itself cannot be parsed.
func Validate(content string) ([]string, error) {
	var raw rawPolicy
	if err := yaml.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parsing project policy: %w", err)
	}

	var warnings []string
	if raw.Version != 1 {
		warnings = append(warnings, fmt.Sprintf("unknown policy version: %d (only version 1 is supported)", raw.Version))
	}
	for _, c := range raw.Checks {
		if c.ID == "" {
			warnings = append(warnings, "check pattern has empty id")
		}
		if c.Description == "" {
			warnings = append(warnings, fmt.Sprintf("check pattern %q has empty description", c.ID))
		}
	}
	for _, o := range raw.Overrides {
		if o.ID == "" {
			warnings = append(warnings, "override has empty id")
		}
	}
	return warnings, nil
}
