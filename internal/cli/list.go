package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stacksmith-labs/stacksmith/internal/catalog"
)

var (
	listSDKFilter string
	listTagFilter string
	listAll       bool
	listJSON      bool
	listNoCache   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available templates",
	Long:  `List the templates across all library sources, grouped by SDK.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listSDKFilter, "sdk", "", "Filter by SDK (e.g. database, auth)")
	listCmd.Flags().StringVar(&listTagFilter, "tag", "", "Filter by manifest tag")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Include templates marked hidden")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVar(&listNoCache, "no-cache", false, "Bypass the listing index and rescan the library")
	rootCmd.AddCommand(listCmd)
}

// listedEntry is one catalog entry tagged with the source that owns it.
type listedEntry struct {
	catalog.Entry
	Source string `json:"source,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	sources, err := templateSources()
	if err != nil {
		return err
	}

	// Templates shadowed by an earlier source are dropped, matching
	// resolution order.
	seen := map[string]bool{}
	var listed []listedEntry
	for i, src := range sources {
		var entries []catalog.Entry
		var err error
		// Only the default root gets the listing index; named sources
		// are rescanned every time.
		if i == 0 && src.Name == defaultSourceName && !listNoCache {
			entries, err = catalog.DiscoverCached(src.Path, catalog.DefaultIndexPath())
		} else {
			entries, err = catalog.Discover(src.Path)
		}
		if err != nil {
			return fmt.Errorf("discovering templates in source %s: %w", src.Name, err)
		}

		if !listAll {
			entries = catalog.VisibleOnly(entries)
		}
		for _, e := range entries {
			if seen[e.Key()] || !matchesListing(e, listSDKFilter, listTagFilter) {
				continue
			}
			seen[e.Key()] = true
			listed = append(listed, listedEntry{Entry: e, Source: src.Name})
		}
	}

	if len(listed) == 0 {
		if listSDKFilter != "" || listTagFilter != "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No templates match the filter.")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "No templates found.")
		}
		return nil
	}

	if listJSON {
		data, err := json.MarshalIndent(listed, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	multiSource := len(sources) > 1
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	if multiSource {
		fmt.Fprintln(w, "TEMPLATE\tNAME\tDESCRIPTION\tPACKAGES\tSOURCE")
	} else {
		fmt.Fprintln(w, "TEMPLATE\tNAME\tDESCRIPTION\tPACKAGES")
	}
	for _, e := range listed {
		if multiSource {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", e.Key(), e.DisplayName, e.Description, e.Packages, e.Source)
		} else {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", e.Key(), e.DisplayName, e.Description, e.Packages)
		}
	}
	return w.Flush()
}

// matchesListing applies the --sdk and --tag filters to one entry.
func matchesListing(e catalog.Entry, sdkFilter, tagFilter string) bool {
	if sdkFilter != "" && !strings.EqualFold(e.SDK, sdkFilter) {
		return false
	}
	if tagFilter != "" && !hasTag(e.Tags, tagFilter) {
		return false
	}
	return true
}

// hasTag reports whether tags contains the filter, case-insensitively.
func hasTag(tags []string, filter string) bool {
	for _, tag := range tags {
		if strings.EqualFold(tag, filter) {
			return true
		}
	}
	return false
}
