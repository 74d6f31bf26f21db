// Package pipeline wires the segmenter, rule engine, context detector,
// project policy, challenge escalation, and blast radius estimator into
// one deterministic AnalyzeCommand call, composing several independent
// risk dimensions into one PipelineResult the way a registry of
// independent analyzer stages composes into one pass.
package pipeline

import (
	"sort"

	"github.com/kaplanelad/shellfirm-go/internal/blastradius"
	"github.com/kaplanelad/shellfirm-go/internal/challenge"
	"github.com/kaplanelad/shellfirm-go/internal/env"
	"github.com/kaplanelad/shellfirm-go/internal/projectpolicy"
	"github.com/kaplanelad/shellfirm-go/internal/rulecontext"
	"github.com/kaplanelad/shellfirm-go/internal/ruleengine"
	"github.com/kaplanelad/shellfirm-go/internal/rules"
	"github.com/kaplanelad/shellfirm-go/internal/segment"
	"github.com/kaplanelad/shellfirm-go/internal/shellfirmconfig"
)

// MatchResult pairs a matched rule with the segment it matched and its
// effective challenge and blast radius.
type MatchResult struct {
	Rule             rules.Rule
	Segment          string
	EffectiveChallenge rules.Challenge
	BlastRadius      *blastradius.Info
}

// Result is the pipeline's full output for one command invocation.
type Result struct {
	StrippedCommand string
	ActiveMatches   []MatchResult
	SkippedMatches  []MatchResult
	MaxSeverity     rules.Severity
	HasMatches      bool
	Context         rulecontext.RuntimeContext
	RelevantContext rulecontext.RuntimeContext
	MergedPolicy    projectpolicy.Merged
	IsDenied        bool
	Alternatives    []Alternative
}

// Alternative is a deduplicated safer-command suggestion drawn from a
// matched rule.
type Alternative struct {
	RuleID      string
	Command     string
	Explanation string
}

// Options carries everything AnalyzeCommand needs beyond the command
// text itself.
type Options struct {
	Catalog     []rules.Rule
	Settings    shellfirmconfig.Settings
	ContextCfg  rulecontext.Config
	GroupOverrides map[string]rules.Challenge
}

// AnalyzeCommand runs the ten-step pipeline described for one command
// line against one working directory.
func AnalyzeCommand(e env.Environment, command string, opts Options) Result {
	stripped := ruleengine.Strip(command)

	segments := segment.Split(command)

	// Project policy is discovered before matching so its extra checks
	// (§4.6: "appended to the pipeline's rule catalog for this invocation
	// only") are actually exercised by the rule engine below, not just
	// available for challenge overrides/deny-list lookups afterward.
	cwd, _ := e.Cwd()
	policy, hasPolicy := projectpolicy.Discover(e, cwd)

	catalog := opts.Catalog
	if hasPolicy && len(policy.Checks) > 0 {
		catalog = append(append([]rules.Rule{}, opts.Catalog...), policy.Checks...)
	}

	active := activeCatalog(catalog, opts.Settings)
	rawMatches := ruleengine.Run(e, active, command, segments)

	var allResults []MatchResult
	for _, m := range rawMatches {
		allResults = append(allResults, MatchResult{Rule: m.Rule, Segment: m.Segment})
	}
	sort.Slice(allResults, func(i, j int) bool { return allResults[i].Rule.ID < allResults[j].Rule.ID })

	var activeMatches, skippedMatches []MatchResult
	maxSeverity := rules.SeverityInfo
	hasMatches := len(allResults) > 0
	matchedGroups := map[string]bool{}
	for _, m := range allResults {
		if m.Rule.Severity >= opts.Settings.MinSeverity {
			activeMatches = append(activeMatches, m)
			if m.Rule.Severity > maxSeverity {
				maxSeverity = m.Rule.Severity
			}
			matchedGroups[m.Rule.From] = true
		} else {
			skippedMatches = append(skippedMatches, m)
		}
	}

	var groups []string
	for g := range matchedGroups {
		groups = append(groups, g)
	}

	ctx := rulecontext.Detect(e, opts.ContextCfg)
	relevant := rulecontext.FilterForGroups(ctx, groups, opts.ContextCfg)

	var merged projectpolicy.Merged
	if hasPolicy {
		merged = projectpolicy.MergeIntoSettings(policy, ctx.GitBranch, ctx.HasBranch)
	}

	severityTable := challenge.SeverityEscalation{
		Enabled: opts.Settings.SeverityEscalation != nil,
		Table:   opts.Settings.SeverityEscalation,
	}

	isDenied := false
	for i := range activeMatches {
		m := &activeMatches[i]
		sources := challenge.Sources{
			Base:           opts.Settings.Challenge,
			Severity:       severityTable,
			GroupOverrides: groupOverrides(opts),
			CheckOverrides: opts.Settings.CheckEscalation,
			ContextConfig:  opts.ContextCfg,
			RiskLevel:      relevant.RiskLevel,
		}
		if override, ok := merged.ChallengeOverrides[m.Rule.ID]; ok {
			sources.PolicyOverride = override
			sources.HasPolicyOverride = true
		}
		m.EffectiveChallenge = challenge.Effective(m.Rule, sources)

		if isDeniedRule(m.Rule.ID, opts.Settings.DenyPatternsIDs) || merged.IsDenied(m.Rule.ID) {
			isDenied = true
		}

		if opts.Settings.BlastRadiusEnabled {
			if info, ok := blastradius.Compute(m.Rule.ID, m.Rule.TestRe, m.Segment, e); ok {
				m.BlastRadius = &info
			}
		}
	}

	alternatives := collectAlternatives(activeMatches)

	return Result{
		StrippedCommand: stripped,
		ActiveMatches:   activeMatches,
		SkippedMatches:  skippedMatches,
		MaxSeverity:     maxSeverity,
		HasMatches:      hasMatches,
		Context:         ctx,
		RelevantContext: relevant,
		MergedPolicy:    merged,
		IsDenied:        isDenied,
		Alternatives:    alternatives,
	}
}

// activeCatalog narrows catalog to the rules this invocation matches
// against: group enable/disable and the ignore list, per rules.ActiveFilter
// (§4.2). It deliberately omits rules.ActiveFilter's MinSeverity cut so
// below-threshold rules still reach the rule engine — the orchestrator
// partitions them into SkippedMatches afterward (§4.9 step 5) instead of
// excluding them from matching outright, keeping SkippedMatches populated
// the way the invariant in §8 and TestAnalyzeCommandMinSeverityPartitionsSkipped
// expect.
func activeCatalog(catalog []rules.Rule, settings shellfirmconfig.Settings) []rules.Rule {
	filter := rules.ActiveFilter{
		EnabledGroups:  settings.EnabledGroups,
		DisabledGroups: settings.DisabledGroups,
		IgnoredIDs:     settings.IgnoresPatternsIDs,
	}
	return filter.Active(catalog)
}

func groupOverrides(opts Options) map[string]rules.Challenge {
	if opts.GroupOverrides != nil {
		return opts.GroupOverrides
	}
	return opts.Settings.GroupEscalation
}

func isDeniedRule(id string, denyList []string) bool {
	for _, d := range denyList {
		if d == id {
			return true
		}
	}
	return false
}

func collectAlternatives(matches []MatchResult) []Alternative {
	seen := map[string]bool{}
	var out []Alternative
	for _, m := range matches {
		if !m.Rule.HasAlternative() || seen[m.Rule.ID] {
			continue
		}
		seen[m.Rule.ID] = true
		out = append(out, Alternative{
			RuleID:      m.Rule.ID,
			Command:     m.Rule.Alternative,
			Explanation: m.Rule.AlternativeInfo,
		})
	}
	return out
}
