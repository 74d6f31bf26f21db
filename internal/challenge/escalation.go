// Package challenge implements the escalation ladder (Math < Enter < Yes)
// and the combination rule that produces one effective challenge per
// matched rule from several independent escalation sources: a
// most-restrictive-of-several-signals strategy applied to a total order
// instead of a plain decision enum.
package challenge

import (
	"github.com/kaplanelad/shellfirm-go/internal/rulecontext"
	"github.com/kaplanelad/shellfirm-go/internal/rules"
)

// SeverityEscalation maps each severity to a minimum challenge, applied
// only when enabled.
type SeverityEscalation struct {
	Enabled bool
	Table   map[rules.Severity]rules.Challenge
}

func (s SeverityEscalation) For(sev rules.Severity) (rules.Challenge, bool) {
	if !s.Enabled {
		return 0, false
	}
	c, ok := s.Table[sev]
	return c, ok
}

// Sources bundles every input the escalation combination needs.
type Sources struct {
	Base               rules.Challenge
	RuleDefault        rules.Challenge
	Severity           SeverityEscalation
	GroupOverrides     map[string]rules.Challenge
	CheckOverrides     map[string]rules.Challenge
	ContextConfig      rulecontext.Config
	RiskLevel          rulecontext.RiskLevel
	PolicyOverride     rules.Challenge
	HasPolicyOverride  bool
}

// Effective computes the maximum, on the Math<Enter<Yes ladder, of every
// escalation source for one matched rule.
func Effective(r rules.Rule, s Sources) rules.Challenge {
	effective := s.Base
	effective = rules.Max(effective, r.Challenge)

	if c, ok := s.Severity.For(r.Severity); ok {
		effective = rules.Max(effective, c)
	}

	if c, ok := s.GroupOverrides[r.From]; ok {
		effective = rules.Max(effective, c)
	}

	if c, ok := s.CheckOverrides[r.ID]; ok {
		effective = rules.Max(effective, c)
	}

	effective = rules.Max(effective, contextEscalation(s.RiskLevel, s.ContextConfig))

	if s.HasPolicyOverride {
		effective = rules.Max(effective, s.PolicyOverride)
	}

	return effective
}

func contextEscalation(risk rulecontext.RiskLevel, cfg rulecontext.Config) rules.Challenge {
	switch risk {
	case rulecontext.RiskElevated:
		return rules.ParseChallenge(cfg.EscalationElevated)
	case rulecontext.RiskCritical:
		return rules.ParseChallenge(cfg.EscalationCritical)
	default:
		return rules.ChallengeMath
	}
}
