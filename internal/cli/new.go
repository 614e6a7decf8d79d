package cli

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/stacksmith-labs/stacksmith/internal/scaffold"
)

// segmentPattern mirrors the manifest schema's name rule, applied to both
// selector halves so the scaffolded directory is immediately loadable.
var segmentPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

var newDir string

func init() {
	newCmd.Flags().StringVar(&newDir, "dir", "", "Library root to scaffold into (default: the resolved template library)")
	rootCmd.AddCommand(newCmd)
}

var newCmd = &cobra.Command{
	Use:   "new <sdk/template>",
	Short: "Scaffold a starter template directory",
	Long: `Scaffold a starter template (manifest, payload file, README) you can edit into a real template.

Examples:
  stacksmith new database/postgres
  stacksmith new cache/redis --dir ./templates`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

func runNew(cmd *cobra.Command, args []string) error {
	sdk, name, err := parseSelector(args[0])
	if err != nil {
		return err
	}
	if err := validateSegment("sdk", sdk); err != nil {
		return err
	}
	if err := validateSegment("template name", name); err != nil {
		return err
	}

	root := newDir
	if root == "" {
		if root, err = resolveLibrary(); err != nil {
			return fmt.Errorf("no library to scaffold into (pass --dir): %w", err)
		}
	}

	outDir := filepath.Join(root, sdk, name)
	result, err := scaffold.Generate(scaffold.NewStubData(sdk, name), outDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created template %s/%s at %s\n", sdk, name, result.OutputDir)
	for _, f := range result.Files {
		fmt.Fprintf(out, "  %s\n", f)
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(out, "\nWarnings:")
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Edit template.json to declare packages, env vars, and files")
	fmt.Fprintln(out, "  2. Replace config.example.json with the real payload files")
	fmt.Fprintf(out, "  3. Check the result with '%s info %s/%s'\n", rootCmd.Name(), sdk, name)
	return nil
}

func validateSegment(what, s string) error {
	if !segmentPattern.MatchString(s) {
		return fmt.Errorf("invalid %s %q: must match [a-z0-9][a-z0-9._-]*", what, s)
	}
	return nil
}
