package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stacksmith-labs/stacksmith/internal/library"
	"github.com/stacksmith-labs/stacksmith/internal/manifest"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info <sdk/template>",
	Short: "Show a template's manifest",
	Long:  `Show everything a template declares: packages, environment variables, file mappings, and docs.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	sources, err := templateSources()
	if err != nil {
		return err
	}

	sdk, name, err := parseSelector(args[0])
	if err != nil {
		return err
	}

	hit, err := library.Resolve(sdk, name, sources)
	if err != nil {
		return err
	}

	tpl, err := manifest.NewStore().Load(hit.Root, sdk, name)
	if err != nil {
		return err
	}

	if infoJSON {
		data, err := json.MarshalIndent(tpl, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", color.CyanString(tpl.DisplayName), tpl.Key())
	fmt.Fprintln(out, tpl.Description)
	if hit.SourceName != defaultSourceName {
		fmt.Fprintf(out, "Source: %s\n", hit.SourceName)
	}
	if len(tpl.Tags) > 0 {
		fmt.Fprintf(out, "Tags: %v\n", tpl.Tags)
	}
	if !tpl.Visible {
		fmt.Fprintln(out, color.YellowString("Hidden from listings."))
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	if len(tpl.Packages) > 0 {
		fmt.Fprintln(out, "\nDependencies:")
		for _, p := range tpl.Packages {
			fmt.Fprintf(w, "  %s\t%s\n", p.Name, p.Version)
		}
		w.Flush()
	}
	if len(tpl.DevPackages) > 0 {
		fmt.Fprintln(out, "\nDev dependencies:")
		for _, p := range tpl.DevPackages {
			fmt.Fprintf(w, "  %s\t%s\n", p.Name, p.Version)
		}
		w.Flush()
	}
	if len(tpl.EnvVars) > 0 {
		fmt.Fprintln(out, "\nEnvironment variables:")
		for _, v := range tpl.EnvVars {
			marker := "optional"
			if v.Required {
				marker = "required"
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\n", v.Name, marker, v.Description)
		}
		w.Flush()
	}
	if len(tpl.Files) > 0 {
		fmt.Fprintln(out, "\nFiles:")
		for _, f := range tpl.Files {
			fmt.Fprintf(w, "  %s\t→ %s\n", f.Source, f.Dest)
		}
		w.Flush()
	}
	if !tpl.Docs.Empty() {
		fmt.Fprintln(out, "\nDocs: see setup.md after composing.")
	}

	return nil
}
