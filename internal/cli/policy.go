package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaplanelad/shellfirm-go/internal/projectpolicy"
	"github.com/kaplanelad/shellfirm-go/internal/rules"
	"github.com/kaplanelad/shellfirm-go/internal/taxonomy"
)

func init() {
	policyCmd.AddCommand(policyInitCmd, policyValidateCmd, policyGroupsCmd)
	rootCmd.AddCommand(policyCmd)
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Project-policy scaffold, validation, and rule-group reference",
}

var policyInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented .shellfirm.yaml template to the current directory",
	Long: `init never overwrites an existing .shellfirm.yaml — run it once per
project, then edit the generated file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		const filename = projectpolicy.Filename
		if _, err := os.Stat(filename); err == nil {
			return fmt.Errorf("%s already exists, not overwriting", filename)
		}
		if err := os.WriteFile(filename, []byte(projectpolicy.Scaffold()), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", filename, err)
		}
		fmt.Println("wrote", filename)
		return nil
	},
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Parse a project policy and print warnings about likely authoring mistakes",
	Long: `validate never fails the pipeline itself — a project policy that
fails to parse is silently ignored at discovery time, while one that
only carries these warnings is still applied. This command surfaces
both cases.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := projectpolicy.Filename
		if len(args) == 1 {
			path = args[0]
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		warnings, err := projectpolicy.Validate(string(data))
		if err != nil {
			return err
		}
		if len(warnings) == 0 {
			fmt.Println(path, "looks valid")
			return nil
		}
		for _, w := range warnings {
			fmt.Println("warning:", w)
		}
		return nil
	},
}

var policyGroupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List every rule group present in the session's active catalog with its description",
	Long: `groups applies the same enabled/disabled-group, ignore-list, and
min-severity filtering the §4.2 active-check filter describes (everything
"check" and "assess" run against) and lists only the groups that survive
it — a project that disables the "docker" group, for instance, won't show
it here even though the built-in catalog still embeds its rules.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, opts, err := loadOptions()
		if err != nil {
			return err
		}
		cat, err := taxonomy.Load()
		if err != nil {
			return fmt.Errorf("loading taxonomy: %w", err)
		}
		filter := rules.ActiveFilter{
			EnabledGroups:  settings.EnabledGroups,
			DisabledGroups: settings.DisabledGroups,
			IgnoredIDs:     settings.IgnoresPatternsIDs,
			MinSeverity:    settings.MinSeverity,
		}
		active := filter.Active(opts.Catalog)
		for _, name := range rules.Groups(active) {
			g := cat.Describe(name)
			fmt.Printf("%-12s %s\n", g.Name, g.Description)
		}
		return nil
	},
}
