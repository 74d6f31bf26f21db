package cli

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kaplanelad/shellfirm-go/internal/audit"
	"github.com/kaplanelad/shellfirm-go/internal/blastradius"
	"github.com/kaplanelad/shellfirm-go/internal/pipeline"
	"github.com/kaplanelad/shellfirm-go/internal/rules"
	"github.com/kaplanelad/shellfirm-go/internal/shellfirmconfig"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check -- <command>",
	Short: "The pre-command shell hook entry point: analyze, challenge, decide",
	Long: `check is what a shell hook invokes before letting a command run. Exit
code 0 means "let this command run"; a non-zero exit means "block it" —
this is the convention shell hooks depend on.

On a configuration or rule-engine error this command fails closed: it
prints the error and exits non-zero, since an unusable shell is safer
than a silently-disabled guardrail.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		command := strings.Join(args, " ")

		settings, opts, err := loadOptions()
		if err != nil {
			return err
		}

		result := pipeline.AnalyzeCommand(realEnv, command, opts)
		logger := openAuditLogger(settings)
		if logger != nil {
			defer logger.Close()
		}

		writeSkippedAudit(logger, result, settings)

		if result.IsDenied {
			writeAudit(logger, result, settings, "", audit.OutcomeDenied)
			fmt.Fprintln(os.Stderr, "shellfirm: command is denied by policy, blocking")
			os.Exit(1)
		}

		if len(result.ActiveMatches) == 0 {
			return nil
		}

		effective := rules.ChallengeMath
		for _, m := range result.ActiveMatches {
			effective = rules.Max(effective, m.EffectiveChallenge)
		}

		printWarnings(result)

		if runInteractiveChallenge(effective) {
			writeAudit(logger, result, settings, effective.String(), audit.OutcomeAllowed)
			return nil
		}

		writeAudit(logger, result, settings, effective.String(), audit.OutcomeCancelled)
		fmt.Fprintln(os.Stderr, "shellfirm: challenge failed, blocking command")
		os.Exit(1)
		return nil
	},
}

func openAuditLogger(settings shellfirmconfig.Settings) *audit.Logger {
	if !settings.AuditEnabled {
		return nil
	}
	logger, err := audit.New(settings.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shellfirm: warning: could not open audit log: %v\n", err)
		return nil
	}
	return logger
}

func writeAudit(logger *audit.Logger, result pipeline.Result, settings shellfirmconfig.Settings, challengeType string, outcome audit.Outcome) {
	writeAgentAudit(logger, result, challengeType, outcome, "", "")
}

// writeAgentAudit is writeAudit plus the calling agent's identity, for
// callers (like "assess") that run on an agent's behalf rather than
// interactively.
func writeAgentAudit(logger *audit.Logger, result pipeline.Result, challengeType string, outcome audit.Outcome, agentName, agentSessionID string) {
	if logger == nil {
		return
	}
	ids := make([]string, 0, len(result.ActiveMatches))
	for _, m := range result.ActiveMatches {
		ids = append(ids, m.Rule.ID)
	}
	event := audit.Event{
		EventID:        newEventID(),
		Timestamp:      audit.NowTimestamp(),
		Command:        result.StrippedCommand,
		MatchedIDs:     ids,
		ChallengeType:  challengeType,
		Outcome:        outcome,
		ContextLabels:  result.RelevantContext.Labels,
		Severity:       result.MaxSeverity,
		AgentName:      agentName,
		AgentSessionID: agentSessionID,
	}
	if worst, ok := worstBlastRadius(result); ok {
		event.BlastRadiusScope = worst.Scope.String()
		event.BlastRadiusDetail = worst.Description
	}
	if err := logger.Log(event); err != nil {
		fmt.Fprintf(os.Stderr, "shellfirm: warning: could not append audit log: %v\n", err)
	}
}

// writeSkippedAudit records every below-min-severity rule match that
// never reaches the challenge ladder at all, as its own audit entry —
// independent of whatever the active matches or the denylist end up
// deciding for this same invocation. Mirrors the source's own "audit
// log skipped checks" step: unconditional whenever the audit log is
// open and the pipeline actually skipped something, not gated on
// whether there were also active matches.
func writeSkippedAudit(logger *audit.Logger, result pipeline.Result, settings shellfirmconfig.Settings) {
	if logger == nil || len(result.SkippedMatches) == 0 {
		return
	}
	ids := make([]string, 0, len(result.SkippedMatches))
	severity := rules.SeverityInfo
	for _, m := range result.SkippedMatches {
		ids = append(ids, m.Rule.ID)
		if m.Rule.Severity > severity {
			severity = m.Rule.Severity
		}
	}
	event := audit.Event{
		EventID:       newEventID(),
		Timestamp:     audit.NowTimestamp(),
		Command:       result.StrippedCommand,
		MatchedIDs:    ids,
		ChallengeType: settings.Challenge.String(),
		Outcome:       audit.OutcomeSkipped,
		ContextLabels: result.RelevantContext.Labels,
		Severity:      severity,
	}
	if err := logger.Log(event); err != nil {
		fmt.Fprintf(os.Stderr, "shellfirm: warning: could not append audit log: %v\n", err)
	}
}

func printWarnings(result pipeline.Result) {
	for _, m := range result.ActiveMatches {
		fmt.Fprintf(os.Stderr, "[%s] %s (severity=%s)\n", m.Rule.ID, m.Rule.Description, m.Rule.Severity)
		if m.BlastRadius != nil {
			fmt.Fprintf(os.Stderr, "  blast radius: %s\n", m.BlastRadius.Description)
		}
		if m.Rule.HasAlternative() {
			fmt.Fprintf(os.Stderr, "  try instead: %s — %s\n", m.Rule.Alternative, m.Rule.AlternativeInfo)
		}
	}
	if len(result.RelevantContext.Labels) > 0 {
		fmt.Fprintln(os.Stderr, "context:", strings.Join(result.RelevantContext.Labels, ", "))
	}
}

// runInteractiveChallenge drives the Math/Enter/Yes challenge ladder on
// the controlling terminal. Deliberately minimal: not a polished
// completion UI, just enough friction to stop a reflexive keystroke.
func runInteractiveChallenge(ch rules.Challenge) bool {
	reader := bufio.NewReader(os.Stdin)
	switch ch {
	case rules.ChallengeEnter:
		fmt.Fprint(os.Stderr, "Press Enter to continue, Ctrl-C to cancel: ")
		_, _ = reader.ReadString('\n')
		return true
	case rules.ChallengeYes:
		fmt.Fprint(os.Stderr, `Type "yes" to continue: `)
		line, _ := reader.ReadString('\n')
		return strings.TrimSpace(line) == "yes"
	default:
		a, b := rand.Intn(20)+1, rand.Intn(20)+1
		fmt.Fprintf(os.Stderr, "What is %d + %d? ", a, b)
		line, _ := reader.ReadString('\n')
		answer, err := strconv.Atoi(strings.TrimSpace(line))
		return err == nil && answer == a+b
	}
}

// worstBlastRadius picks the matched blast-radius record with the
// broadest scope (Resource < Project < Namespace < Machine), the single
// representative value an audit event carries.
func worstBlastRadius(result pipeline.Result) (blastradius.Info, bool) {
	var worst blastradius.Info
	found := false
	for _, m := range result.ActiveMatches {
		if m.BlastRadius == nil {
			continue
		}
		if !found || m.BlastRadius.Scope > worst.Scope {
			worst = *m.BlastRadius
			found = true
		}
	}
	return worst, found
}

func newEventID() string {
	return strconv.FormatInt(int64(rand.Uint32()), 16) + strconv.FormatInt(int64(rand.Uint32()), 16)
}
