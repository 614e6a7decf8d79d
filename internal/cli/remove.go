package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stacksmith-labs/stacksmith/internal/branding"
	"github.com/stacksmith-labs/stacksmith/internal/project"
)

var removeTarget string

var removeCmd = &cobra.Command{
	Use:   "remove <sdk/template>...",
	Short: "Drop templates from the project record",
	Long: `Remove template entries from .stacksmith/project.yaml.

Only the record changes: files the template materialized and dependencies
it contributed to package.json stay in place and must be cleaned up by
hand if unwanted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().StringVarP(&removeTarget, "target", "t", ".", "Target project directory")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	target, err := filepath.Abs(removeTarget)
	if err != nil {
		return fmt.Errorf("resolving target directory: %w", err)
	}

	rec, err := project.Load(target)
	if errors.Is(err, project.ErrNoRecord) {
		return fmt.Errorf("%s is not a composed project (no %s)", target, project.Path(target))
	}
	if err != nil {
		return err
	}

	for _, arg := range args {
		sdk, name, err := parseSelector(arg)
		if err != nil {
			return err
		}
		if err := rec.Remove(sdk, name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s/%s from the project record.\n", sdk, name)
	}

	if err := project.Save(target, rec); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), color.YellowString(
		"Materialized files and package.json entries are untouched; remove them by hand or rerun '%s create' in a fresh directory.",
		branding.CLIName()))
	return nil
}
