package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stacksmith-labs/stacksmith/internal/branding"
	"github.com/stacksmith-labs/stacksmith/internal/config"
	"github.com/stacksmith-labs/stacksmith/internal/updater"
)

var updateVersion string

func init() {
	updateCmd.Flags().StringVar(&updateVersion, "version", "", "Check a specific release tag (e.g., 1.2.0)")
	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check for a newer release",
	Long: `Checks GitHub releases for a newer version and prints upgrade
instructions. The running binary is never modified; upgrade through the
package manager that installed it.

  ` + branding.CLIName() + ` update                 # check the latest release
  ` + branding.CLIName() + ` update --version 1.2.0 # inspect a specific release`,
	RunE: func(cmd *cobra.Command, args []string) error {
		u := updater.New(buildVersion)

		var release *updater.Release
		var err error
		if updateVersion != "" {
			fmt.Fprintf(os.Stderr, "Checking release %s...\n", updateVersion)
			release, err = u.CheckSpecificVersion(updateVersion)
		} else {
			fmt.Fprintln(os.Stderr, "Checking for updates...")
			release, err = u.CheckLatestVersion()
		}
		if err != nil {
			return fmt.Errorf("checking for updates: %w", err)
		}

		available, err := updater.IsUpdateAvailable(buildVersion, release.Version)
		if err != nil {
			// Dev builds have no comparable version; always show the release.
			if buildVersion == "dev" {
				available = true
			} else {
				return fmt.Errorf("comparing versions: %w", err)
			}
		}

		// Record the check so the startup banner stays accurate.
		_ = updater.SaveCache(config.Dir(), &updater.VersionCache{
			LatestVersion:   release.Version,
			CurrentVersion:  buildVersion,
			ReleaseURL:      release.HTMLURL,
			CheckedAt:       time.Now(),
			UpdateAvailable: available,
		})

		out := cmd.OutOrStdout()
		if !available {
			fmt.Fprintf(out, "You are on the latest version (%s)\n", buildVersion)
			return nil
		}

		fmt.Fprintln(out, color.YellowString("Update available: %s -> %s", buildVersion, release.Version))
		if release.HTMLURL != "" {
			fmt.Fprintf(out, "Release notes: %s\n", release.HTMLURL)
		}
		fmt.Fprintf(out, "\nUpgrade with the package manager that installed %s, e.g.:\n", branding.CLIName())
		fmt.Fprintf(out, "  brew upgrade %s\n", branding.CLIName())
		fmt.Fprintf(out, "  go install %s@%s\n", branding.GoModule(), release.Version)
		return nil
	},
}
