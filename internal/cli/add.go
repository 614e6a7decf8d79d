package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stacksmith-labs/stacksmith/internal/branding"
	"github.com/stacksmith-labs/stacksmith/internal/compose"
	"github.com/stacksmith-labs/stacksmith/internal/config"
	"github.com/stacksmith-labs/stacksmith/internal/installer"
	"github.com/stacksmith-labs/stacksmith/internal/materialize"
	"github.com/stacksmith-labs/stacksmith/internal/project"
	"github.com/stacksmith-labs/stacksmith/internal/versions"
)

var (
	addTarget     string
	addStrategy   string
	addOnConflict string
	addVars       []string
	addPeerCheck  bool
	addOffline    bool
	addRetries    int
	addTimeout    time.Duration
	addInstall    bool
	addYes        bool
	addJSON       bool
)

var addCmd = &cobra.Command{
	Use:   "add <sdk/template>...",
	Short: "Compose more templates into an existing project",
	Long: `Compose additional templates into a project that was created earlier.

The project record (.stacksmith/project.yaml) supplies the project name,
the merge strategy, and the substitution variables from the original run;
flags override them. Templates already recorded are skipped.

Examples:
  ` + branding.CLIName() + ` add cache/redis
  ` + branding.CLIName() + ` add ai/openai --var OPENAI_MODEL=gpt-4o`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addTarget, "target", "t", ".", "Target project directory")
	addCmd.Flags().StringVar(&addStrategy, "strategy", "", "Version conflict strategy (default: project record)")
	addCmd.Flags().StringVar(&addOnConflict, "on-conflict", "", "File collision strategy: overwrite, skip, merge")
	addCmd.Flags().StringArrayVar(&addVars, "var", nil, "Substitution variable as key=value (repeatable)")
	addCmd.Flags().BoolVar(&addPeerCheck, "peer-check", true, "Check peer-dependency expectations against the registry")
	addCmd.Flags().BoolVar(&addOffline, "offline", false, "Never touch the network; peer lookups use the disk cache only")
	addCmd.Flags().IntVar(&addRetries, "retries", 2, "Retries per registry lookup")
	addCmd.Flags().DurationVar(&addTimeout, "timeout", 10*time.Second, "Timeout per registry lookup attempt")
	addCmd.Flags().BoolVar(&addInstall, "install", false, "Run the package manager install after composing")
	addCmd.Flags().BoolVarP(&addYes, "yes", "y", false, "Skip the confirmation prompt")
	addCmd.Flags().BoolVar(&addJSON, "json", false, "Print the composition report as JSON")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	target, err := filepath.Abs(addTarget)
	if err != nil {
		return fmt.Errorf("resolving target directory: %w", err)
	}

	rec, err := project.Load(target)
	if errors.Is(err, project.ErrNoRecord) {
		return fmt.Errorf("%s is not a composed project (no %s); run '%s create' first",
			target, project.Path(target), branding.CLIName())
	}
	if err != nil {
		return err
	}

	sources, err := templateSources()
	if err != nil {
		return err
	}

	hits, err := resolveTemplates(args, sources)
	if err != nil {
		return err
	}

	// Already-applied templates are skipped, not recomposed.
	fresh := hits[:0]
	for _, hit := range hits {
		if rec.Find(hit.SDK, hit.Name) != nil {
			fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("⚠ %s/%s is already applied, skipping", hit.SDK, hit.Name))
			continue
		}
		fresh = append(fresh, hit)
	}
	if len(fresh) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to add.")
		return nil
	}

	strategyName := addStrategy
	if strategyName == "" {
		strategyName = rec.Strategy
	}
	if strategyName == "" {
		strategyName = config.Strategy()
	}
	strategy, err := versions.ParseStrategy(strategyName)
	if err != nil {
		return err
	}

	fileStrategy, err := materialize.ParseCollisionStrategy(addOnConflict)
	if err != nil {
		return err
	}

	flagVars, err := parseVars(addVars)
	if err != nil {
		return err
	}
	vars := map[string]string{}
	for k, v := range rec.Variables {
		vars[k] = v
	}
	for k, v := range flagVars {
		vars[k] = v
	}

	projectName := rec.Project
	if projectName == "" {
		projectName = filepath.Base(target)
	}

	pm := config.PackageManager()
	if pm != "" {
		if pm, err = installer.ParseManager(pm); err != nil {
			return err
		}
	} else {
		pm = installer.DetectManager(target)
	}

	selections := selectionsOf(fresh)
	printPlanPreview(cmd.OutOrStdout(), selections, target, projectName, string(strategy), pm)
	if !addYes && !confirm(cmd, "Proceed with composition?") {
		fmt.Fprintln(cmd.OutOrStdout(), "Composition cancelled.")
		return nil
	}

	offline := addOffline || config.Offline()
	report, composeErr := newComposer().Compose(cmd.Context(), selections, compose.Options{
		TargetRoot:     target,
		ProjectName:    projectName,
		Variables:      vars,
		Strategy:       strategy,
		FileStrategy:   fileStrategy,
		PeerAnalysis:   addPeerCheck,
		Offline:        offline,
		Retries:        addRetries,
		Timeout:        addTimeout,
		Install:        addInstall,
		PackageManager: pm,
	})

	if report.Succeeded() {
		if err := recordApplied(target, projectName, string(strategy), vars, fresh); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("⚠ could not update project record: %v", err))
		}
	}

	if addJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling report: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return composeErr
	}

	printReport(cmd.OutOrStdout(), report, addInstall, pm)
	return composeErr
}
