package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/stacksmith-labs/stacksmith/internal/compose"
	"github.com/stacksmith-labs/stacksmith/internal/config"
	"github.com/stacksmith-labs/stacksmith/internal/installer"
	"github.com/stacksmith-labs/stacksmith/internal/library"
	"github.com/stacksmith-labs/stacksmith/internal/manifest"
	"github.com/stacksmith-labs/stacksmith/internal/materialize"
	"github.com/stacksmith-labs/stacksmith/internal/peers"
	"github.com/stacksmith-labs/stacksmith/internal/project"
	"github.com/stacksmith-labs/stacksmith/internal/versions"
)

var (
	createTarget     string
	createName       string
	createStrategy   string
	createOnConflict string
	createVars       []string
	createPeerCheck  bool
	createOffline    bool
	createRetries    int
	createTimeout    time.Duration
	createInstall    bool
	createPM         string
	createYes        bool
	createJSON       bool
)

var createCmd = &cobra.Command{
	Use:   "create <sdk/template>...",
	Short: "Compose templates into a project",
	Long: `Compose one or more templates into a target directory.

The selected templates are merged: their declared dependency ranges are
arbitrated into one set, their files are copied with {{variable}}
substitution, and the project gets a package.json, a .env.example, and a
setup.md.

Examples:
  stacksmith create database/postgres auth/clerk --target ./my-app
  stacksmith create database/postgres --strategy highest --var projectName=shop
  stacksmith create cache/redis --target . --install -y`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVarP(&createTarget, "target", "t", ".", "Target project directory")
	createCmd.Flags().StringVar(&createName, "name", "", "Project name (default: target directory name)")
	createCmd.Flags().StringVar(&createStrategy, "strategy", "", "Version conflict strategy: smart, highest, lowest, compatible, manual (default: config)")
	createCmd.Flags().StringVar(&createOnConflict, "on-conflict", "", "File collision strategy: overwrite, skip, merge")
	createCmd.Flags().StringArrayVar(&createVars, "var", nil, "Substitution variable as key=value (repeatable)")
	createCmd.Flags().BoolVar(&createPeerCheck, "peer-check", true, "Check peer-dependency expectations against the registry")
	createCmd.Flags().BoolVar(&createOffline, "offline", false, "Never touch the network; peer lookups use the disk cache only")
	createCmd.Flags().IntVar(&createRetries, "retries", 2, "Retries per registry lookup")
	createCmd.Flags().DurationVar(&createTimeout, "timeout", 10*time.Second, "Timeout per registry lookup attempt")
	createCmd.Flags().BoolVar(&createInstall, "install", false, "Run the package manager install after composing")
	createCmd.Flags().StringVar(&createPM, "package-manager", "", "Package manager: npm, pnpm, yarn, bun (default: detect by lockfile)")
	createCmd.Flags().BoolVarP(&createYes, "yes", "y", false, "Skip the confirmation prompt")
	createCmd.Flags().BoolVar(&createJSON, "json", false, "Print the composition report as JSON")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	sources, err := templateSources()
	if err != nil {
		return err
	}

	hits, err := resolveTemplates(args, sources)
	if err != nil {
		return err
	}
	selections := selectionsOf(hits)

	strategyName := createStrategy
	if strategyName == "" {
		strategyName = config.Strategy()
	}
	strategy, err := versions.ParseStrategy(strategyName)
	if err != nil {
		return err
	}

	fileStrategy, err := materialize.ParseCollisionStrategy(createOnConflict)
	if err != nil {
		return err
	}

	vars, err := parseVars(createVars)
	if err != nil {
		return err
	}

	target, err := filepath.Abs(createTarget)
	if err != nil {
		return fmt.Errorf("resolving target directory: %w", err)
	}
	projectName := createName
	if projectName == "" {
		projectName = filepath.Base(target)
	}

	pm := createPM
	if pm == "" {
		pm = config.PackageManager()
	}
	if pm != "" {
		if pm, err = installer.ParseManager(pm); err != nil {
			return err
		}
	} else {
		pm = installer.DetectManager(target)
	}

	printPlanPreview(cmd.OutOrStdout(), selections, target, projectName, string(strategy), pm)
	if !createYes && !confirm(cmd, "Proceed with composition?") {
		fmt.Fprintln(cmd.OutOrStdout(), "Composition cancelled.")
		return nil
	}

	offline := createOffline || config.Offline()
	report, composeErr := newComposer().Compose(cmd.Context(), selections, compose.Options{
		TargetRoot:     target,
		ProjectName:    projectName,
		Variables:      vars,
		Strategy:       strategy,
		FileStrategy:   fileStrategy,
		PeerAnalysis:   createPeerCheck,
		Offline:        offline,
		Retries:        createRetries,
		Timeout:        createTimeout,
		Install:        createInstall,
		PackageManager: pm,
	})

	if report.Succeeded() {
		if err := recordApplied(target, projectName, string(strategy), vars, hits); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("⚠ could not write project record: %v", err))
		}
	}

	if createJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling report: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return composeErr
	}

	printReport(cmd.OutOrStdout(), report, createInstall, pm)
	return composeErr
}

// resolveTemplates resolves sdk/name selectors against the library
// sources in priority order.
func resolveTemplates(args []string, sources []library.Source) ([]*library.Resolved, error) {
	hits := make([]*library.Resolved, 0, len(args))
	for _, arg := range args {
		sdk, name, err := parseSelector(arg)
		if err != nil {
			return nil, err
		}
		hit, err := library.Resolve(sdk, name, sources)
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func selectionsOf(hits []*library.Resolved) []manifest.Selection {
	return lo.Map(hits, func(h *library.Resolved, _ int) manifest.Selection {
		return h.Selection()
	})
}

// newComposer builds the pipeline with config-backed collaborators.
func newComposer() *compose.Composer {
	return compose.New(
		manifest.NewStore(),
		peers.NewAnalyzer(
			peers.NewClient(config.RegistryURL()),
			peers.NewCache(config.CacheDir(), config.CacheTTL()),
		),
		&installer.Installer{},
	)
}

// recordApplied upserts the project record after a successful compose.
func recordApplied(target, projectName, strategy string, vars map[string]string, hits []*library.Resolved) error {
	rec, err := project.Load(target)
	if errors.Is(err, project.ErrNoRecord) {
		rec = &project.Record{}
	} else if err != nil {
		return err
	}

	if rec.Project == "" {
		rec.Project = projectName
	}
	rec.Strategy = strategy
	if len(vars) > 0 && rec.Variables == nil {
		rec.Variables = map[string]string{}
	}
	for k, v := range vars {
		rec.Variables[k] = v
	}

	now := time.Now()
	for _, hit := range hits {
		if rec.Find(hit.SDK, hit.Name) != nil {
			continue
		}
		rec.Templates = append(rec.Templates, project.Applied{
			SDK:       hit.SDK,
			Name:      hit.Name,
			Source:    hit.SourceName,
			AppliedAt: now,
		})
	}
	return project.Save(target, rec)
}

// parseSelector splits an sdk/name selector.
func parseSelector(arg string) (sdk, name string, err error) {
	parts := strings.Split(arg, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid template selector %q: want <sdk>/<name>", arg)
	}
	return parts[0], parts[1], nil
}

// parseVars turns repeated key=value flags into the substitution bag.
func parseVars(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --var %q: want key=value", pair)
		}
		vars[key] = value
	}
	return vars, nil
}

// confirm asks a yes/no question on stdout, reading the answer from stdin.
// Empty input counts as yes.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "? %s (Y/n) ", question)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		return false
	}
	answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return answer == "" || answer == "y" || answer == "yes"
}

func printPlanPreview(w io.Writer, selections []manifest.Selection, target, projectName, strategy, pm string) {
	fmt.Fprintf(w, "Composing %d template(s) into %s\n", len(selections), target)
	for _, s := range selections {
		fmt.Fprintf(w, "  %s\n", s.Key())
	}
	fmt.Fprintf(w, "Project %s, strategy %s, package manager %s\n", projectName, strategy, pm)
}

// printReport renders the composition report for humans. The JSON shape
// is the contract; this is a summary of it.
func printReport(w io.Writer, report *compose.Report, installRan bool, pm string) {
	fmt.Fprintln(w)

	switch report.Outcome {
	case compose.OutcomeSucceeded:
		fmt.Fprintln(w, color.GreenString("✓ Composition succeeded."))
	case compose.OutcomeWarnings:
		fmt.Fprintln(w, color.YellowString("✓ Composition succeeded with warnings."))
	default:
		fmt.Fprintln(w, color.RedString("✗ Composition failed."))
		if report.Err != "" {
			fmt.Fprintf(w, "  %s\n", report.Err)
		}
	}

	for _, loadErr := range report.LoadErrors {
		fmt.Fprintf(w, "  %s %s\n", color.RedString("✗"), loadErr)
	}

	if report.Merged != nil {
		fmt.Fprintf(w, "  %d dependencies, %d dev dependencies\n",
			len(report.Merged.Dependencies), len(report.Merged.DevDependencies))
		for _, c := range report.Merged.Conflicts {
			if c.Err != nil {
				fmt.Fprintf(w, "  %s %s: %s\n", color.RedString("✗"), c.Package, *c.Err)
				continue
			}
			if c.Resolution != nil {
				fmt.Fprintf(w, "  %s %s resolved to %s\n", color.YellowString("⚠"), c.Package, *c.Resolution)
			}
		}
	}

	if report.Peers != nil {
		for _, f := range report.Peers.Findings {
			mark := color.YellowString("⚠")
			if f.Severity == peers.SeverityHigh {
				mark = color.RedString("✗")
			}
			switch f.Kind {
			case peers.KindMissingPeer:
				fmt.Fprintf(w, "  %s %s expects peer %s %s (not selected)\n", mark, f.Package, f.Peer, f.Declared)
			default:
				fmt.Fprintf(w, "  %s %s peer %s: declared %s, published %s\n", mark, f.Package, f.Peer, f.Declared, f.Actual)
			}
		}
	}

	if report.Files != nil {
		fmt.Fprintf(w, "  %d file(s) written\n", report.Files.WrittenCount())
		for _, entry := range report.Files.Errors() {
			fmt.Fprintf(w, "  %s %s: %s\n", color.RedString("✗"), entry.DestPath, entry.Error)
		}
	}

	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "  %s %s\n", color.YellowString("⚠"), warning)
	}

	if !report.Succeeded() {
		return
	}

	fmt.Fprintln(w, "\nNext steps:")
	fmt.Fprintf(w, "  1. Review %s and copy it to .env\n", filepath.Join(report.TargetRoot, ".env.example"))
	step := 2
	if !installRan || report.Install == nil || !report.Install.Success {
		fmt.Fprintf(w, "  %d. Run '%s install' in %s\n", step, pm, report.TargetRoot)
		step++
	}
	fmt.Fprintf(w, "  %d. Read setup.md for per-template setup\n", step)
}
