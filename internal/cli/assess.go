package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kaplanelad/shellfirm-go/internal/agentmode"
	"github.com/kaplanelad/shellfirm-go/internal/audit"
	"github.com/kaplanelad/shellfirm-go/internal/pipeline"
)

var (
	assessAgentName      string
	assessAgentSessionID string
)

func init() {
	assessCmd.Flags().StringVar(&assessAgentName, "agent-name", "", "Name of the calling agent, echoed into the audit event")
	assessCmd.Flags().StringVar(&assessAgentSessionID, "agent-session-id", "", "Session id of the calling agent, echoed into the audit event")
	rootCmd.AddCommand(assessCmd)
}

var assessCmd = &cobra.Command{
	Use:   "assess -- <command>",
	Short: "Non-interactive risk assessment for AI coding agents",
	Long: `assess runs the same pipeline as "check" but never prompts: a
deny-listed match is always denied, everything else is decided by
comparing the maximum matched severity against the configured
auto-deny threshold. Prints a RiskAssessment as JSON to stdout and
exits 0 when allowed, 1 when denied.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		command := strings.Join(args, " ")

		settings, opts, err := loadOptions()
		if err != nil {
			return err
		}

		result := pipeline.AnalyzeCommand(realEnv, command, opts)
		assessment := agentmode.BuildAssessment(result, settings)
		outcome := agentmode.Run(assessment)

		logger := openAuditLogger(settings)
		if logger != nil {
			defer logger.Close()
		}
		auditOutcome := audit.OutcomeAllowed
		if outcome == agentmode.Denied {
			auditOutcome = audit.OutcomeDenied
		}
		writeAgentAudit(logger, result, "", auditOutcome, assessAgentName, assessAgentSessionID)

		data, err := json.MarshalIndent(assessment, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling assessment: %w", err)
		}
		fmt.Println(string(data))

		if outcome == agentmode.Denied {
			return errDenied
		}
		return nil
	},
}

var errDenied = fmt.Errorf("command denied")
