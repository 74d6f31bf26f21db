// Package agentmode implements the non-interactive assessment surface
// consumed by AI coding agents: no user input is taken, a deny-listed
// match is always Denied, and everything else is decided by comparing
// the maximum matched severity against a configured auto-deny
// threshold. Ported closely from the source's agent.rs AgentPrompter /
// assess_command / build_assessment.
package agentmode

import (
	"fmt"

	"github.com/kaplanelad/shellfirm-go/internal/env"
	"github.com/kaplanelad/shellfirm-go/internal/pipeline"
	"github.com/kaplanelad/shellfirm-go/internal/rules"
	"github.com/kaplanelad/shellfirm-go/internal/shellfirmconfig"
)

// Outcome is the binary result an AgentPrompter returns instead of
// prompting: Passed when allowed, Denied when not.
type Outcome int

const (
	Passed Outcome = iota
	Denied
)

func (o Outcome) String() string {
	if o == Denied {
		return "Denied"
	}
	return "Passed"
}

// Run decides Passed/Denied for one assessment with no user interaction:
// a denied assessment is Denied, everything else is Passed.
func Run(a RiskAssessment) Outcome {
	if !a.Allowed {
		return Denied
	}
	return Passed
}

// MatchedRule is the collapsed shape of one active match reported back
// to the agent.
type MatchedRule struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Severity    rules.Severity `json:"severity"`
	Group       string         `json:"group"`
}

// Alternative is a safer-command suggestion surfaced to the agent.
type Alternative struct {
	Command     string `json:"command"`
	Explanation string `json:"explanation"`
	Source      string `json:"source"`
}

// AssessmentContext is the subset of RuntimeContext relevant to an agent.
type AssessmentContext struct {
	RiskLevel string   `json:"risk_level"`
	Labels    []string `json:"labels"`
}

// RiskAssessment is the full non-interactive decision returned to the
// calling agent.
type RiskAssessment struct {
	Allowed               bool              `json:"allowed"`
	RiskLevel             string            `json:"risk_level"`
	Severity              rules.Severity    `json:"severity"`
	MatchedRules          []MatchedRule     `json:"matched_rules"`
	Alternatives          []Alternative     `json:"alternatives"`
	Context               AssessmentContext `json:"context"`
	Explanation           string            `json:"explanation"`
	RequiresHumanApproval bool              `json:"requires_human_approval"`
	DenialReason          string            `json:"denial_reason,omitempty"`
}

// AssessCommand runs the pipeline over command and translates its
// PipelineResult into a RiskAssessment an agent can act on.
func AssessCommand(e env.Environment, command string, opts pipeline.Options) RiskAssessment {
	result := pipeline.AnalyzeCommand(e, command, opts)
	return BuildAssessment(result, opts.Settings)
}

// BuildAssessment maps a pipeline.Result into the agent-facing shape,
// computing allowed/denial_reason/requires_human_approval.
func BuildAssessment(result pipeline.Result, settings shellfirmconfig.Settings) RiskAssessment {
	matched := make([]MatchedRule, 0, len(result.ActiveMatches))
	for _, m := range result.ActiveMatches {
		matched = append(matched, MatchedRule{
			ID:          m.Rule.ID,
			Description: m.Rule.Description,
			Severity:    m.Rule.Severity,
			Group:       m.Rule.From,
		})
	}

	alternatives := make([]Alternative, 0, len(result.Alternatives))
	for _, alt := range result.Alternatives {
		alternatives = append(alternatives, Alternative{
			Command:     alt.Command,
			Explanation: alt.Explanation,
			Source:      "regex-pattern",
		})
	}

	allowed := true
	denialReason := ""
	switch {
	case result.IsDenied:
		allowed = false
		denialReason = "command matches a project or global deny-listed pattern"
	case len(result.ActiveMatches) == 0:
		allowed = true
	case result.MaxSeverity >= settings.Agent.AutoDenySeverity:
		allowed = false
		denialReason = fmt.Sprintf(
			"maximum matched severity %s meets or exceeds the configured auto-deny threshold %s",
			result.MaxSeverity, settings.Agent.AutoDenySeverity,
		)
	}

	requiresApproval := settings.Agent.RequireHumanApproval && !allowed

	return RiskAssessment{
		Allowed:      allowed,
		RiskLevel:    result.RelevantContext.RiskLevel.String(),
		Severity:     result.MaxSeverity,
		MatchedRules: matched,
		Alternatives: alternatives,
		Context: AssessmentContext{
			RiskLevel: result.RelevantContext.RiskLevel.String(),
			Labels:    result.RelevantContext.Labels,
		},
		Explanation:           explain(result),
		RequiresHumanApproval: requiresApproval,
		DenialReason:          denialReason,
	}
}

func explain(result pipeline.Result) string {
	if len(result.ActiveMatches) == 0 {
		return "no risky patterns matched"
	}
	if result.IsDenied {
		return "command is denied by policy"
	}
	return fmt.Sprintf("%d risky pattern(s) matched, highest severity %s", len(result.ActiveMatches), result.MaxSeverity)
}
