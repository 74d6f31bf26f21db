//go:build !linux

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(wrapCmd)
}

var wrapCmd = &cobra.Command{
	Use:    "wrap <binary> [args...]",
	Short:  "Wrap an interactive database shell in a PTY (Linux only)",
	Hidden: true,
	Args:   cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("wrap is only implemented for Linux in this build")
	},
}
