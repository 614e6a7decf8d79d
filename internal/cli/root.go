package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stacksmith-labs/stacksmith/internal/branding"
	"github.com/stacksmith-labs/stacksmith/internal/config"
	"github.com/stacksmith-labs/stacksmith/internal/library"
	"github.com/stacksmith-labs/stacksmith/internal/logging"
	"github.com/stacksmith-labs/stacksmith/internal/updater"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` composes project templates into a working codebase:
it merges the dependency ranges the selected templates declare, checks their
peer-dependency expectations, copies their files with variable substitution,
and generates the environment and setup documentation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := logging.Init(); err != nil {
			fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		}
		config.Load()

		// Skip the banner where it would be noise or a duplicate check.
		switch cmd.Name() {
		case "update", "version", "__complete":
			return
		}
		updater.New(buildVersion).CheckAndPrintBanner(os.Stderr, config.Dir())
	},
}

// Execute runs the root command with build info injected via ldflags.
// An interrupt cancels the run; in-flight work finishes its current unit
// and the pipeline reports a canceled composition.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		return err
	}
	return nil
}

// libraryFlag is shared by every command that reads the template library.
var libraryFlag string

func init() {
	rootCmd.PersistentFlags().StringVar(&libraryFlag, "library", "", "Template library root (overrides config and env)")
}

// resolveLibrary locates the template library root.
//
// Resolution order:
//  1. --library flag
//  2. <PREFIX>_TEMPLATES environment variable
//  3. config key "templates.dir"
//  4. <executable dir>/../templates (bundled releases)
//  5. ./templates
//
// Explicitly named locations (1-3) must exist; the probes (4-5) are
// skipped silently when absent.
func resolveLibrary() (string, error) {
	for _, candidate := range []struct {
		path   string
		origin string
	}{
		{libraryFlag, "--library"},
		{os.Getenv(branding.EnvVar("TEMPLATES")), branding.EnvVar("TEMPLATES")},
		{config.TemplatesDir(), "config " + config.KeyTemplatesDir},
	} {
		if candidate.path == "" {
			continue
		}
		info, err := os.Stat(candidate.path)
		if err != nil || !info.IsDir() {
			return "", fmt.Errorf("template library %s (from %s) is not a directory", candidate.path, candidate.origin)
		}
		return candidate.path, nil
	}

	if exe, err := os.Executable(); err == nil {
		bundled := filepath.Join(filepath.Dir(exe), "..", "templates")
		if info, err := os.Stat(bundled); err == nil && info.IsDir() {
			return bundled, nil
		}
	}

	if info, err := os.Stat("templates"); err == nil && info.IsDir() {
		return "templates", nil
	}

	return "", fmt.Errorf("%w: set %s, config key %s, pass --library, or add a source with '%s library add'",
		errNoLibrary, branding.EnvVar("TEMPLATES"), config.KeyTemplatesDir, branding.CLIName())
}

// errNoLibrary means no default library root could be located. Named
// sources may still serve; only templateSources treats it as fatal.
var errNoLibrary = errors.New("no template library found")

// defaultSourceName labels the root resolved by resolveLibrary when it
// joins the named sources.
const defaultSourceName = "default"

// templateSources returns the ordered roots to search for templates: the
// default root (flag, env, config, probes) first, then the named sources
// from libraries.yaml. A misconfigured default root is a hard error; a
// missing one is fine as long as named sources exist.
func templateSources() ([]library.Source, error) {
	var sources []library.Source

	root, err := resolveLibrary()
	switch {
	case err == nil:
		sources = append(sources, library.Source{Name: defaultSourceName, Path: root})
	case errors.Is(err, errNoLibrary):
	default:
		return nil, err
	}

	cfg, cfgErr := library.Load(config.Dir())
	if cfgErr != nil {
		return nil, cfgErr
	}
	sources = append(sources, cfg.Sources...)

	if len(sources) == 0 {
		return nil, err
	}
	return sources, nil
}
