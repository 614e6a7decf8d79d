package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stacksmith-labs/stacksmith/internal/branding"
	"github.com/stacksmith-labs/stacksmith/internal/config"
	"github.com/stacksmith-labs/stacksmith/internal/doctor"
	"github.com/stacksmith-labs/stacksmith/internal/library"
	"github.com/stacksmith-labs/stacksmith/internal/manifest"
	"github.com/stacksmith-labs/stacksmith/internal/peers"
)

var (
	checkConfig   bool
	checkCache    bool
	checkSources  bool
	checkManagers bool
	checkRegistry bool
	checkManifest string
	doctorOffline bool
)

func init() {
	doctorCmd.Flags().BoolVar(&checkConfig, "check-config", false, "Verify the config directory and source registry")
	doctorCmd.Flags().BoolVar(&checkCache, "check-cache", false, "Inspect the peer metadata cache")
	doctorCmd.Flags().BoolVar(&checkSources, "check-sources", false, "Verify template library sources")
	doctorCmd.Flags().BoolVar(&checkManagers, "check-managers", false, "Look for package managers on PATH")
	doctorCmd.Flags().BoolVar(&checkRegistry, "check-registry", false, "Ping the package registry")
	doctorCmd.Flags().StringVar(&checkManifest, "check-manifest", "", "Validate a template manifest at the given path")
	doctorCmd.Flags().BoolVar(&doctorOffline, "offline", false, "Skip checks that need the network")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Health check for the " + branding.CLIName() + " environment",
	Long:  `Run diagnostic checks on your configuration, template sources, peer cache, and registry connectivity.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		anyFlag := checkConfig || checkCache || checkSources || checkManagers ||
			checkRegistry || checkManifest != ""

		// If no specific flag, run all checks.
		if !anyFlag {
			if !runAllChecks(cmd) {
				return errors.New("one or more checks failed")
			}
			return nil
		}

		ok := true
		if checkConfig {
			ok = doctor.CheckConfig(os.Stdout, config.Dir()) && ok
		}
		if checkCache {
			ok = doctor.CheckCache(os.Stdout, config.CacheDir(), config.CacheTTL()) && ok
		}
		if checkSources {
			ok = doctor.CheckSources(os.Stdout, doctorSources()) && ok
		}
		if checkManagers {
			ok = doctor.CheckManagers(os.Stdout) && ok
		}
		if checkRegistry {
			client := peers.NewClient(config.RegistryURL())
			ok = doctor.CheckRegistry(cmd.Context(), os.Stdout, client, config.RegistryURL(), doctorOffline || config.Offline()) && ok
		}
		if checkManifest != "" {
			if err := runManifestCheck(checkManifest); err != nil {
				return err
			}
		}
		if !ok {
			return errors.New("one or more checks failed")
		}
		return nil
	},
}

func runAllChecks(cmd *cobra.Command) bool {
	ok := doctor.CheckConfig(os.Stdout, config.Dir())
	ok = doctor.CheckCache(os.Stdout, config.CacheDir(), config.CacheTTL()) && ok
	ok = doctor.CheckSources(os.Stdout, doctorSources()) && ok
	ok = doctor.CheckManagers(os.Stdout) && ok

	client := peers.NewClient(config.RegistryURL())
	ok = doctor.CheckRegistry(cmd.Context(), os.Stdout, client, config.RegistryURL(), doctorOffline || config.Offline()) && ok
	return ok
}

// doctorSources gathers sources best-effort so a broken setup still
// produces a diagnosis instead of an early exit.
func doctorSources() []library.Source {
	sources, err := templateSources()
	if err != nil {
		return nil
	}
	return sources
}

func runManifestCheck(path string) error {
	fmt.Printf("Manifest validation: %s\n", path)

	result, err := manifest.ValidateFile(path)
	if err != nil {
		fmt.Printf("  [FAIL] %v\n", err)
		return fmt.Errorf("manifest validation failed: %w", err)
	}

	if result.Valid {
		raw, err := manifest.ParseRaw(path)
		if err != nil || raw.Name == "" {
			fmt.Printf("  [ OK ] Valid manifest\n")
			return nil
		}
		fmt.Printf("  [ OK ] Valid template manifest: %s\n", raw.Name)
		return nil
	}

	fmt.Printf("  [FAIL] %d validation issue(s):\n", len(result.Issues))
	for _, issue := range result.Issues {
		fmt.Printf("    - %s\n", issue.String())
	}
	return fmt.Errorf("manifest has %d validation issue(s)", len(result.Issues))
}
