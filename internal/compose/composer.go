// Package compose runs the full composition pipeline: load and validate
// the selected template manifests, merge their dependencies, optionally
// cross-check peer metadata, materialize files and configuration docs
// into the target tree, and optionally drive a package-manager install.
// The outcome of every stage lands in a single Report.
package compose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/lo"

	"github.com/stacksmith-labs/stacksmith/internal/depmerge"
	"github.com/stacksmith-labs/stacksmith/internal/docgen"
	"github.com/stacksmith-labs/stacksmith/internal/installer"
	"github.com/stacksmith-labs/stacksmith/internal/manifest"
	"github.com/stacksmith-labs/stacksmith/internal/materialize"
	"github.com/stacksmith-labs/stacksmith/internal/peers"
	"github.com/stacksmith-labs/stacksmith/internal/versions"
)

// ErrNoSelections rejects a run with an empty template selection.
var ErrNoSelections = errors.New("no templates selected")

// ErrTargetRoot rejects a run whose target root cannot be written.
var ErrTargetRoot = errors.New("target root not usable")

// Options bound one composition run.
type Options struct {
	TargetRoot  string
	ProjectName string
	Variables   map[string]string

	Strategy     versions.Strategy
	FileStrategy materialize.CollisionStrategy

	PeerAnalysis bool
	Offline      bool
	Retries      int
	Timeout      time.Duration

	Install        bool
	PackageManager string
}

// Composer wires the pipeline stages together. The peer analyzer and
// installer may be nil; the matching stages are then skipped with a
// warning when requested.
type Composer struct {
	store     *manifest.Store
	analyzer  *peers.Analyzer
	installer *installer.Installer
}

// New creates a Composer around a manifest store.
func New(store *manifest.Store, analyzer *peers.Analyzer, ins *installer.Installer) *Composer {
	return &Composer{store: store, analyzer: analyzer, installer: ins}
}

// Compose runs the pipeline for the given selections. Global
// preconditions (empty selection, unusable target root) and manifest
// failures abort with an error and a failed report; everything past that
// point degrades to report warnings instead of aborting.
func (c *Composer) Compose(ctx context.Context, selections []manifest.Selection, opts Options) (*Report, error) {
	report := &Report{
		Project:    opts.ProjectName,
		TargetRoot: opts.TargetRoot,
		Outcome:    OutcomeFailed,
	}
	start := time.Now()
	defer func() { report.Elapsed = time.Since(start).Round(time.Millisecond).String() }()

	if len(selections) == 0 {
		report.Err = ErrNoSelections.Error()
		return report, ErrNoSelections
	}

	deduped := lo.UniqBy(selections, manifest.Selection.Key)
	if len(deduped) < len(selections) {
		report.warn(fmt.Sprintf("dropped %d duplicate template selections", len(selections)-len(deduped)))
	}

	if opts.Strategy == "" {
		opts.Strategy = versions.StrategySmart
	}
	if opts.FileStrategy == "" {
		opts.FileStrategy = materialize.CollisionOverwrite
	}

	if err := ensureWritableRoot(opts.TargetRoot); err != nil {
		report.Err = err.Error()
		return report, err
	}

	// Stage 1: manifests. Every selection is attempted so the report
	// names all failures, but any failure fails the run; composing a
	// subset of what was asked for is never silently done.
	templates, loadErrs := c.store.LoadMany(deduped)
	report.Templates = lo.Map(templates, func(t *manifest.Template, _ int) string { return t.Key() })
	if len(loadErrs) > 0 {
		for _, err := range loadErrs {
			report.LoadErrors = append(report.LoadErrors, err.Error())
		}
		err := fmt.Errorf("loading templates: %w", errors.Join(loadErrs...))
		report.Err = err.Error()
		return report, err
	}

	// Stage 2: dependency merge.
	report.Merged = depmerge.Merge(templates, opts.Strategy)
	for _, w := range report.Merged.Warnings {
		report.warn(w)
	}
	if resolved := len(report.Merged.Conflicts) - report.Merged.UnresolvedCount(); resolved > 0 {
		report.warn(fmt.Sprintf("auto-resolved %d version collision(s)", resolved))
	}

	if err := c.canceled(ctx, report); err != nil {
		return report, err
	}

	// Stage 3: peer analysis, advisory only.
	if opts.PeerAnalysis {
		c.analyzePeers(ctx, report, opts)
	}

	if err := c.canceled(ctx, report); err != nil {
		return report, err
	}

	// Stage 4: files.
	plan, err := materialize.Materialize(ctx, templates, opts.TargetRoot, opts.Variables, opts.FileStrategy)
	if err != nil {
		report.Err = err.Error()
		return report, err
	}
	report.Files = plan
	if failed := plan.Errors(); len(failed) > 0 {
		report.warn(fmt.Sprintf("%d file(s) failed to materialize", len(failed)))
	}
	if plan.Canceled {
		return report, c.canceled(ctx, report)
	}

	// Stage 5: docs and manifest emission. Nothing downstream works
	// without these, so failures are fatal.
	docs, err := docgen.Generate(templates, opts.TargetRoot, docgen.ProjectInfo{
		Name:           opts.ProjectName,
		PackageManager: opts.PackageManager,
	})
	if err != nil {
		report.Err = err.Error()
		return report, err
	}
	report.Docs = docs

	pkgPath, err := writePackageJSON(opts.TargetRoot, opts.ProjectName, report.Merged)
	if err != nil {
		report.Err = err.Error()
		return report, err
	}
	report.PackageJSON = pkgPath

	// Stage 6: install, outside the core pipeline.
	if opts.Install {
		c.runInstall(ctx, report, opts)
	}

	report.finish()
	return report, nil
}

func (c *Composer) analyzePeers(ctx context.Context, report *Report, opts Options) {
	if c.analyzer == nil {
		report.warn("peer analysis requested but no analyzer configured")
		return
	}

	report.Peers = c.analyzer.Analyze(ctx, report.Merged, peers.Options{
		Offline: opts.Offline,
		Retries: opts.Retries,
		Timeout: opts.Timeout,
	})

	if report.Peers.Degraded() {
		report.warn(fmt.Sprintf("peer lookups degraded: %d fallback(s), %d rejected name(s)",
			report.Peers.Fallbacks, len(report.Peers.RejectedNames)))
	}
	if n := len(report.Peers.Findings); n > 0 {
		report.warn(fmt.Sprintf("%d peer dependency finding(s) (%d high severity)",
			n, report.Peers.CountBySeverity(peers.SeverityHigh)))
	}
}

func (c *Composer) runInstall(ctx context.Context, report *Report, opts Options) {
	if c.installer == nil {
		report.warn("install requested but no installer configured")
		return
	}

	result, err := c.installer.Install(ctx, opts.TargetRoot, installer.Options{
		Manager: opts.PackageManager,
		Retries: opts.Retries,
		Timeout: opts.Timeout,
	})
	report.Install = result
	if err != nil {
		report.warn(fmt.Sprintf("dependency install could not run: %v", err))
		return
	}
	if !result.Success {
		report.warn(fmt.Sprintf("dependency install failed (exit code %d after %d attempt(s))",
			result.ExitCode, result.Attempts))
	}
}

// canceled turns a context cancellation into a failed report.
func (c *Composer) canceled(ctx context.Context, report *Report) error {
	if err := ctx.Err(); err != nil {
		slog.Debug("composition canceled", "error", err)
		report.Outcome = OutcomeFailed
		report.Err = "composition canceled"
		return err
	}
	return nil
}

// ensureWritableRoot creates the target root and proves it accepts
// writes before any stage runs.
func ensureWritableRoot(targetRoot string) error {
	if targetRoot == "" {
		return fmt.Errorf("%w: not set", ErrTargetRoot)
	}
	if err := os.MkdirAll(targetRoot, 0755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrTargetRoot, targetRoot, err)
	}

	probe, err := os.CreateTemp(targetRoot, ".stacksmith-probe-*")
	if err != nil {
		return fmt.Errorf("%w: %s not writable: %v", ErrTargetRoot, targetRoot, err)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

// writePackageJSON merges the resolved dependency set into the target's
// package.json, creating it if absent. Fields other than the dependency
// maps are preserved.
func writePackageJSON(targetRoot, projectName string, set *depmerge.MergedSet) (string, error) {
	path := filepath.Join(targetRoot, "package.json")

	doc := map[string]any{}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &doc); err != nil {
			return "", fmt.Errorf("parsing existing package.json: %w", err)
		}
	}

	if _, ok := doc["name"]; !ok {
		name := projectName
		if name == "" {
			name = filepath.Base(targetRoot)
		}
		doc["name"] = name
	}
	if _, ok := doc["version"]; !ok {
		doc["version"] = "0.1.0"
	}
	if _, ok := doc["private"]; !ok {
		doc["private"] = true
	}

	doc["dependencies"] = mergeDepMap(doc["dependencies"], set.Dependencies)
	if devs := mergeDepMap(doc["devDependencies"], set.DevDependencies); len(devs) > 0 {
		doc["devDependencies"] = devs
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling package.json: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing package.json: %w", err)
	}
	return path, nil
}

// mergeDepMap lays resolved ranges over whatever the existing manifest
// declared; resolved ranges win on the same name.
func mergeDepMap(existing any, resolved []manifest.Package) map[string]string {
	out := map[string]string{}
	if m, ok := existing.(map[string]any); ok {
		for name, rng := range m {
			if s, ok := rng.(string); ok {
				out[name] = s
			}
		}
	}
	for _, p := range resolved {
		out[p.Name] = p.Version
	}
	return out
}
