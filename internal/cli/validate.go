package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stacksmith-labs/stacksmith/internal/manifest"
)

var validateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Validate a template manifest",
	Long: `Validate a template manifest against the schema.

The path may be a manifest file or a template directory containing
template.json or template.yaml.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if info.IsDir() {
		path, err = manifest.FindManifest(path)
		if err != nil {
			return err
		}
	}

	result, err := manifest.ValidateFile(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.Valid {
		fmt.Fprintf(out, "%s %s is valid\n", color.GreenString("✓"), path)
		return nil
	}

	fmt.Fprintf(out, "%s %s has %d issue(s):\n", color.RedString("✗"), path, len(result.Issues))
	for _, issue := range result.Issues {
		fmt.Fprintf(out, "  - %s\n", issue.String())
	}
	return fmt.Errorf("%s failed validation", path)
}
