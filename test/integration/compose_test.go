//go:build integration

package integration_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stacksmith-labs/stacksmith/internal/compose"
	"github.com/stacksmith-labs/stacksmith/internal/manifest"
	"github.com/stacksmith-labs/stacksmith/internal/materialize"
	"github.com/stacksmith-labs/stacksmith/internal/versions"
)

// TestFullComposeFlow drives the whole pipeline: load two templates,
// merge their dependencies, materialize files with substitution, and
// generate the env example, setup guide, and package.json.
func TestFullComposeFlow(t *testing.T) {
	env := setupTestEnv(t)
	setupLibrary(t, env.LibraryDir)

	composer := newTestComposer(env, "")
	report, err := composer.Compose(context.Background(), []manifest.Selection{
		selection(env, "database", "postgres"),
		selection(env, "auth", "jwt"),
	}, compose.Options{
		TargetRoot:  env.ProjectDir,
		ProjectName: "shop",
		Variables:   map[string]string{"projectName": "shop"},
		Strategy:    versions.StrategySmart,
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !report.Succeeded() {
		t.Fatalf("outcome = %q, warnings = %v, err = %q", report.Outcome, report.Warnings, report.Err)
	}

	// Files landed with placeholder substitution applied.
	clientPath := filepath.Join(env.ProjectDir, "src/db/client.ts")
	assertFileExists(t, clientPath)
	assertFileContains(t, clientPath, "// shop database client")
	assertFileNotContains(t, clientPath, "{{projectName}}")
	assertFileExists(t, filepath.Join(env.ProjectDir, "src/middleware/auth.ts"))

	// Env example collects both templates' variables.
	envPath := filepath.Join(env.ProjectDir, ".env.example")
	assertFileExists(t, envPath)
	assertFileContains(t, envPath, "DATABASE_URL")
	assertFileContains(t, envPath, "JWT_SECRET")

	// Setup guide carries each template's setup fragment.
	setupPath := filepath.Join(env.ProjectDir, "setup.md")
	assertFileExists(t, setupPath)
	assertFileContains(t, setupPath, "run the migrations")
	assertFileContains(t, setupPath, "signing secret")

	// package.json has the merged dependency set.
	pkgPath := filepath.Join(env.ProjectDir, "package.json")
	assertFileExists(t, pkgPath)
	assertFileContains(t, pkgPath, `"pg": "^8.11.0"`)
	assertFileContains(t, pkgPath, `"jsonwebtoken": "^9.0.0"`)
	assertFileContains(t, pkgPath, `"@types/pg": "^8.10.0"`)

	// dotenv was claimed twice; smart keeps the higher same-major caret.
	assertFileContains(t, pkgPath, `"dotenv": "^16.3.0"`)
	if len(report.Merged.Conflicts) != 1 {
		t.Fatalf("Conflicts = %+v, want exactly one (dotenv)", report.Merged.Conflicts)
	}
	c := report.Merged.Conflicts[0]
	if c.Package != "dotenv" || c.Resolution == nil || *c.Resolution != "^16.3.0" {
		t.Errorf("dotenv conflict = %+v, want resolution ^16.3.0", c)
	}
}

// TestComposeCollisionStrategies checks that two templates writing the
// same destination settle per the configured strategy.
func TestComposeCollisionStrategies(t *testing.T) {
	t.Run("overwrite keeps the later template", func(t *testing.T) {
		env := setupTestEnv(t)
		setupLibrary(t, env.LibraryDir)

		report, err := newTestComposer(env, "").Compose(context.Background(), []manifest.Selection{
			selection(env, "database", "postgres"),
			selection(env, "cache", "redis"),
		}, compose.Options{
			TargetRoot:   env.ProjectDir,
			FileStrategy: materialize.CollisionOverwrite,
		})
		if err != nil {
			t.Fatalf("Compose: %v", err)
		}
		if !report.Succeeded() {
			t.Fatalf("outcome = %q, err = %q", report.Outcome, report.Err)
		}

		clientPath := filepath.Join(env.ProjectDir, "src/db/client.ts")
		assertFileContains(t, clientPath, "redis")

		entry := findEntry(t, report, "src/db/client.ts", "cache/redis")
		if entry.Resolution != materialize.ResolutionOverwritten {
			t.Errorf("resolution = %q, want %q", entry.Resolution, materialize.ResolutionOverwritten)
		}
		if len(entry.ConflictsWith) != 1 || entry.ConflictsWith[0] != "database/postgres" {
			t.Errorf("ConflictsWith = %v, want [database/postgres]", entry.ConflictsWith)
		}
	})

	t.Run("skip keeps the first template", func(t *testing.T) {
		env := setupTestEnv(t)
		setupLibrary(t, env.LibraryDir)

		report, err := newTestComposer(env, "").Compose(context.Background(), []manifest.Selection{
			selection(env, "database", "postgres"),
			selection(env, "cache", "redis"),
		}, compose.Options{
			TargetRoot:   env.ProjectDir,
			FileStrategy: materialize.CollisionSkip,
		})
		if err != nil {
			t.Fatalf("Compose: %v", err)
		}

		clientPath := filepath.Join(env.ProjectDir, "src/db/client.ts")
		assertFileContains(t, clientPath, "database client")
		assertFileNotContains(t, clientPath, "redis")

		entry := findEntry(t, report, "src/db/client.ts", "cache/redis")
		if entry.Resolution != materialize.ResolutionSkipped {
			t.Errorf("resolution = %q, want %q", entry.Resolution, materialize.ResolutionSkipped)
		}
	})
}

// TestComposeInvalidManifestFailsRun confirms one bad manifest fails the
// whole selection; composing a subset is never silently done.
func TestComposeInvalidManifestFailsRun(t *testing.T) {
	env := setupTestEnv(t)
	setupLibrary(t, env.LibraryDir)

	report, err := newTestComposer(env, "").Compose(context.Background(), []manifest.Selection{
		selection(env, "database", "postgres"),
		selection(env, "broken", "no-description"),
	}, compose.Options{TargetRoot: env.ProjectDir})
	if err == nil {
		t.Fatal("Compose should fail when a selected manifest is invalid")
	}
	if report.Outcome != compose.OutcomeFailed {
		t.Errorf("outcome = %q, want %q", report.Outcome, compose.OutcomeFailed)
	}
	if len(report.LoadErrors) != 1 || !strings.Contains(report.LoadErrors[0], "broken/no-description") {
		t.Errorf("LoadErrors = %v, want one naming broken/no-description", report.LoadErrors)
	}

	// The valid template must not have been materialized.
	assertFileNotExists(t, filepath.Join(env.ProjectDir, "src/db/client.ts"))
	assertFileNotExists(t, filepath.Join(env.ProjectDir, "package.json"))
}

// TestComposeDuplicateSelections checks duplicates collapse to one apply
// with a warning rather than double-materializing.
func TestComposeDuplicateSelections(t *testing.T) {
	env := setupTestEnv(t)
	setupLibrary(t, env.LibraryDir)

	report, err := newTestComposer(env, "").Compose(context.Background(), []manifest.Selection{
		selection(env, "auth", "jwt"),
		selection(env, "auth", "jwt"),
	}, compose.Options{TargetRoot: env.ProjectDir})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if report.Outcome != compose.OutcomeWarnings {
		t.Errorf("outcome = %q, want %q", report.Outcome, compose.OutcomeWarnings)
	}
	if len(report.Templates) != 1 {
		t.Errorf("Templates = %v, want the one deduplicated entry", report.Templates)
	}
	if len(report.Files.Entries) != 1 {
		t.Errorf("file entries = %d, want 1", len(report.Files.Entries))
	}
}

// TestComposeIntoExistingProject verifies a second composition layers on
// top of the first: package.json keeps earlier dependencies and the env
// example is regenerated for the new template set.
func TestComposeIntoExistingProject(t *testing.T) {
	env := setupTestEnv(t)
	setupLibrary(t, env.LibraryDir)
	composer := newTestComposer(env, "")

	if _, err := composer.Compose(context.Background(), []manifest.Selection{
		selection(env, "database", "postgres"),
	}, compose.Options{TargetRoot: env.ProjectDir, ProjectName: "shop"}); err != nil {
		t.Fatalf("first Compose: %v", err)
	}

	report, err := composer.Compose(context.Background(), []manifest.Selection{
		selection(env, "auth", "jwt"),
	}, compose.Options{TargetRoot: env.ProjectDir, ProjectName: "shop"})
	if err != nil {
		t.Fatalf("second Compose: %v", err)
	}
	if !report.Succeeded() {
		t.Fatalf("outcome = %q, err = %q", report.Outcome, report.Err)
	}

	pkgPath := filepath.Join(env.ProjectDir, "package.json")
	assertFileContains(t, pkgPath, `"pg": "^8.11.0"`)
	assertFileContains(t, pkgPath, `"jsonwebtoken": "^9.0.0"`)
	assertFileContains(t, pkgPath, `"name": "shop"`)

	// Both payload trees are present.
	assertFileExists(t, filepath.Join(env.ProjectDir, "src/db/client.ts"))
	assertFileExists(t, filepath.Join(env.ProjectDir, "src/middleware/auth.ts"))
}

// findEntry locates a materialization entry by destination and source
// template.
func findEntry(t *testing.T, report *compose.Report, dest, tpl string) materialize.Entry {
	t.Helper()
	for _, e := range report.Files.Entries {
		if e.DestPath == dest && e.SourceTemplate == tpl {
			return e
		}
	}
	t.Fatalf("no entry for %s from %s in %+v", dest, tpl, report.Files.Entries)
	return materialize.Entry{}
}
