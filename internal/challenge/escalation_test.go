package challenge

import (
	"testing"

	"github.com/kaplanelad/shellfirm-go/internal/rulecontext"
	"github.com/kaplanelad/shellfirm-go/internal/rules"
)

func TestEffectiveNeverLowersBelowBase(t *testing.T) {
	r := rules.Rule{ID: "test:1", Challenge: rules.ChallengeMath, Severity: rules.SeverityLow}
	s := Sources{
		Base:          rules.ChallengeYes,
		ContextConfig: rulecontext.DefaultConfig(),
	}
	got := Effective(r, s)
	if got != rules.ChallengeYes {
		t.Errorf("expected base Yes to dominate, got %v", got)
	}
}

func TestEffectiveSeverityEscalation(t *testing.T) {
	r := rules.Rule{ID: "test:1", Challenge: rules.ChallengeMath, Severity: rules.SeverityCritical}
	s := Sources{
		Base: rules.ChallengeMath,
		Severity: SeverityEscalation{
			Enabled: true,
			Table:   map[rules.Severity]rules.Challenge{rules.SeverityCritical: rules.ChallengeYes},
		},
		ContextConfig: rulecontext.DefaultConfig(),
	}
	got := Effective(r, s)
	if got != rules.ChallengeYes {
		t.Errorf("expected severity escalation to Yes, got %v", got)
	}
}

func TestEffectiveContextEscalationCritical(t *testing.T) {
	r := rules.Rule{ID: "test:1", Challenge: rules.ChallengeMath}
	s := Sources{
		Base:          rules.ChallengeMath,
		ContextConfig: rulecontext.DefaultConfig(),
		RiskLevel:     rulecontext.RiskCritical,
	}
	got := Effective(r, s)
	if got != rules.ChallengeYes {
		t.Errorf("expected context escalation to Yes on Critical risk, got %v", got)
	}
}

func TestEffectivePolicyOverrideCannotWeaken(t *testing.T) {
	r := rules.Rule{ID: "test:1", Challenge: rules.ChallengeYes}
	s := Sources{
		Base:              rules.ChallengeMath,
		ContextConfig:     rulecontext.DefaultConfig(),
		PolicyOverride:    rules.ChallengeEnter,
		HasPolicyOverride: true,
	}
	got := Effective(r, s)
	if got != rules.ChallengeYes {
		t.Errorf("expected rule default Yes to dominate weaker policy override Enter, got %v", got)
	}
}

func TestEffectiveCheckIDOverride(t *testing.T) {
	r := rules.Rule{ID: "git:force_push", Challenge: rules.ChallengeMath}
	s := Sources{
		Base:           rules.ChallengeMath,
		ContextConfig:  rulecontext.DefaultConfig(),
		CheckOverrides: map[string]rules.Challenge{"git:force_push": rules.ChallengeEnter},
	}
	got := Effective(r, s)
	if got != rules.ChallengeEnter {
		t.Errorf("expected check-id override to Enter, got %v", got)
	}
}
