// Package cli assembles shellfirm-go's cobra command tree: check (the
// pre-command hook entry point), wrap (the PTY statement proxy), mcp (the
// JSON-RPC stdio server), assess (the agent non-interactive surface), and
// policy (project-policy scaffold/validate/groups). One root command,
// persistent flags resolved to defaults, subcommands registered in
// init().
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kaplanelad/shellfirm-go/internal/env"
	"github.com/kaplanelad/shellfirm-go/internal/pipeline"
	"github.com/kaplanelad/shellfirm-go/internal/rules"
	"github.com/kaplanelad/shellfirm-go/internal/shellfirmconfig"
)

var configDirFlag string

var rootCmd = &cobra.Command{
	Use:   "shellfirm",
	Short: "A pre-execution guardrail for dangerous shell commands",
	Long: `shellfirm inspects a shell command before it runs, classifies its risk
against a rule catalog enriched with runtime context (SSH, root, protected
git branches, production kubernetes contexts, sensitive env vars), and
either forwards it, challenges the operator to confirm, or blocks it.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "Path to the shellfirm config directory (default: ~/.shellfirm)")
}

// Execute runs the root command, returning the error (if any) that a
// subcommand returned.
func Execute() error {
	return rootCmd.Execute()
}

// loadOptions loads Settings and the merged rule catalog (built-in +
// custom directory) and assembles pipeline.Options, the shared setup
// every subcommand that touches the pipeline needs.
func loadOptions() (shellfirmconfig.Settings, pipeline.Options, error) {
	settings, err := shellfirmconfig.Load(configDirFlag)
	if err != nil {
		return shellfirmconfig.Settings{}, pipeline.Options{}, fmt.Errorf("loading settings: %w", err)
	}

	catalog, err := rules.GetAll()
	if err != nil {
		return shellfirmconfig.Settings{}, pipeline.Options{}, fmt.Errorf("loading built-in rule catalog: %w", err)
	}
	catalog, err = rules.LoadCustomDir(shellfirmconfig.CustomChecksDir(settings), catalog)
	if err != nil {
		return shellfirmconfig.Settings{}, pipeline.Options{}, fmt.Errorf("loading custom rules: %w", err)
	}

	opts := pipeline.Options{
		Catalog:    catalog,
		Settings:   settings,
		ContextCfg: settings.Context,
	}
	return settings, opts, nil
}

// realEnv is shared by every subcommand; tests inject env.NewMock()
// directly against the lower-level packages instead.
var realEnv env.Environment = env.NewReal()
