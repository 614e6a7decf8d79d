package cli

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stacksmith-labs/stacksmith/internal/branding"
	"github.com/stacksmith-labs/stacksmith/internal/catalog"
	"github.com/stacksmith-labs/stacksmith/internal/config"
	"github.com/stacksmith-labs/stacksmith/internal/library"
)

func init() {
	libraryCmd.AddCommand(libraryAddCmd)
	libraryCmd.AddCommand(libraryRemoveCmd)
	libraryCmd.AddCommand(libraryListCmd)
	rootCmd.AddCommand(libraryCmd)
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage template library sources",
	Long: `Manage the named template library sources in ` + library.ConfigFile + `.

Sources are searched in declared order after the default library root;
the first source carrying a template wins.`,
}

var libraryAddCmd = &cobra.Command{
	Use:   "add <name> <path>",
	Short: "Register a template library source",
	Long: `Register a directory of templates as a named source.

Example:
  ` + branding.CLIName() + ` library add company /srv/stacksmith-templates`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		path, err := filepath.Abs(args[1])
		if err != nil {
			return fmt.Errorf("resolving source path: %w", err)
		}

		cfg, err := library.Load(config.Dir())
		if err != nil {
			return err
		}
		if err := cfg.Add(library.Source{Name: name, Path: path}); err != nil {
			return err
		}
		if err := library.Save(config.Dir(), cfg); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Source %q added (%s).\n", name, path)
		return nil
	},
}

var libraryRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a template library source",
	Long: `Remove a named source from the registry. The directory itself is
left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := library.Load(config.Dir())
		if err != nil {
			return err
		}
		if err := cfg.Remove(args[0]); err != nil {
			return err
		}
		if err := library.Save(config.Dir(), cfg); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Source %q removed.\n", args[0])
		return nil
	},
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List template library sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := templateSources()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "SOURCE\tPATH\tTEMPLATES")
		for _, src := range sources {
			count := "?"
			if entries, err := catalog.Discover(src.Path); err == nil {
				count = fmt.Sprintf("%d", len(entries))
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", src.Name, src.Path, count)
		}
		return w.Flush()
	},
}
