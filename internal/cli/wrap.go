//go:build linux

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaplanelad/shellfirm-go/internal/agentmode"
	"github.com/kaplanelad/shellfirm-go/internal/ptyproxy"
	"github.com/kaplanelad/shellfirm-go/internal/rules"
)

var wrapDelimiter string

func init() {
	wrapCmd.Flags().StringVar(&wrapDelimiter, "delimiter", "", `Statement delimiter (";" or "\n"); overrides the configured/builtin default`)
	rootCmd.AddCommand(wrapCmd)
}

var wrapCmd = &cobra.Command{
	Use:   "wrap <binary> [args...]",
	Short: "Wrap an interactive database shell in a PTY and challenge risky statements",
	Long: `wrap opens a pseudo-terminal, spawns <binary> as its child (psql, mysql,
redis-cli, mongosh, mongo, or any other interactive tool), and reuses the
analysis pipeline on each terminated statement before it reaches the
child. Fails open: any analysis or challenge error forwards the
statement rather than breaking the interactive session.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		binary := args[0]
		childArgs := args[1:]

		settings, opts, err := loadOptions()
		if err != nil {
			return err
		}

		wrapper := ptyproxy.LookupWrapper(binary, settings.Wrappers)
		if wrapDelimiter != "" {
			wrapper.Delimiter = wrapDelimiter
		}

		proxy := &ptyproxy.Proxy{
			Env:      realEnv,
			Settings: settings,
			Catalog:  opts.Catalog,
			Options:  opts,
			Wrapper:  wrapper,
			Prompt:   interactivePrompter,
		}

		code, err := proxy.Run(binary, childArgs)
		if err != nil {
			return fmt.Errorf("running wrapped process: %w", err)
		}
		os.Exit(code)
		return nil
	},
}

// interactivePrompter adapts the cooked-mode terminal challenge (the
// same ladder "check" drives) to the PTY proxy's Prompter signature. The
// proxy always calls this in cooked mode, around which it re-enters raw
// mode itself.
func interactivePrompter(assessment agentmode.RiskAssessment) ptyproxy.Decision {
	if !assessment.Allowed {
		fmt.Fprintln(os.Stderr, "shellfirm: statement denied by policy")
		return ptyproxy.DecisionBlock
	}
	if len(assessment.MatchedRules) == 0 {
		return ptyproxy.DecisionForward
	}

	for _, m := range assessment.MatchedRules {
		fmt.Fprintf(os.Stderr, "[%s] %s (severity=%s)\n", m.ID, m.Description, m.Severity)
	}

	if runInteractiveChallenge(challengeForSeverity(assessment.Severity)) {
		return ptyproxy.DecisionForward
	}
	return ptyproxy.DecisionBlock
}

// challengeForSeverity maps the assessment's maximum matched severity to
// a challenge tier: agentmode.RiskAssessment is built for non-interactive
// callers and carries no per-rule effective challenge of its own, so the
// PTY proxy's interactive prompt falls back to severity as its signal.
func challengeForSeverity(sev rules.Severity) rules.Challenge {
	switch {
	case sev >= rules.SeverityCritical:
		return rules.ChallengeYes
	case sev >= rules.SeverityHigh:
		return rules.ChallengeEnter
	default:
		return rules.ChallengeMath
	}
}
