package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kaplanelad/shellfirm-go/internal/mcpserver"
	"github.com/kaplanelad/shellfirm-go/internal/pipeline"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP JSON-RPC 2.0 stdio server exposing the pipeline to agents",
	Long: `mcp speaks JSON-RPC 2.0 over stdin/stdout, handling the mandatory MCP
handshake (initialize, notifications/initialized) and exposing four
tools: check_command, suggest_alternative, get_policy, explain_risk.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, opts, err := loadOptions()
		if err != nil {
			return err
		}
		server := &mcpserver.Server{
			Env:      realEnv,
			Settings: settings,
			Rules:    optionsSource{opts},
		}
		return server.RunStdio(os.Stdin, os.Stdout)
	},
}

// optionsSource adapts a fixed pipeline.Options to mcpserver.RuleSource.
type optionsSource struct {
	opts pipeline.Options
}

func (o optionsSource) Options() pipeline.Options {
	return o.opts
}
