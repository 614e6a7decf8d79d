package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stacksmith-labs/stacksmith/internal/catalog"
	"github.com/stacksmith-labs/stacksmith/internal/config"
	"github.com/stacksmith-labs/stacksmith/internal/peers"
)

func init() {
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the on-disk caches",
	Long:  `Inspect or clear the peer-dependency cache and the template listing index.`,
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cache contents and freshness",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache := peers.NewCache(config.CacheDir(), config.CacheTTL())
		stats, err := cache.Stats()
		if err != nil {
			return fmt.Errorf("reading peer cache: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintf(w, "Peer cache\t%s\n", stats.Path)
		fmt.Fprintf(w, "Entries\t%d (%d fresh, %d stale)\n", stats.Entries, stats.Fresh, stats.Stale)
		fmt.Fprintf(w, "Size\t%d bytes\n", stats.Size)
		fmt.Fprintf(w, "TTL\t%s\n", config.CacheTTL())
		fmt.Fprintf(w, "Listing index\t%s\n", catalog.DefaultIndexPath())
		return w.Flush()
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the peer cache and listing index",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache := peers.NewCache(config.CacheDir(), config.CacheTTL())
		if err := cache.Clear(); err != nil {
			return fmt.Errorf("clearing peer cache: %w", err)
		}
		if err := catalog.ClearIndex(catalog.DefaultIndexPath()); err != nil {
			return fmt.Errorf("clearing listing index: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Caches cleared.")
		return nil
	},
}
