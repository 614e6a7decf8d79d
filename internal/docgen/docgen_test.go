package docgen

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stacksmith-labs/stacksmith/internal/manifest"
)

func postgresTemplate() *manifest.Template {
	return &manifest.Template{
		SDK:         "database",
		Name:        "postgres",
		DisplayName: "PostgreSQL + Prisma",
		EnvVars: []manifest.EnvVar{
			{
				Name:        "DATABASE_URL",
				Example:     "postgresql://localhost:5432/app",
				Description: "Connection string for the primary database",
				Required:    true,
			},
			{
				Name:        "DATABASE_POOL_SIZE",
				Example:     "10",
				Description: "Connection pool size",
			},
		},
		Docs: manifest.Docs{
			Setup:         "Run the local database with docker compose.",
			Configuration: "Set DATABASE_URL before starting.",
			Examples:      []string{"npx prisma studio opens a data browser"},
		},
	}
}

func TestGenerateWritesBothFiles(t *testing.T) {
	target := t.TempDir()
	out, err := Generate([]*manifest.Template{postgresTemplate()}, target, ProjectInfo{Name: "demo-shop"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if out.EnvFile != filepath.Join(target, EnvFileName) {
		t.Errorf("EnvFile = %q", out.EnvFile)
	}
	if _, err := os.Stat(out.EnvFile); err != nil {
		t.Errorf("env file not written: %v", err)
	}
	if _, err := os.Stat(out.SetupDoc); err != nil {
		t.Errorf("setup doc not written: %v", err)
	}
}

func TestEnvFileRequiredAndOptional(t *testing.T) {
	env := buildEnvFile([]*manifest.Template{postgresTemplate()}, ProjectInfo{Name: "demo"})

	if !strings.Contains(env, "DATABASE_URL=postgresql://localhost:5432/app\n") {
		t.Errorf("missing required variable line:\n%s", env)
	}
	if !strings.Contains(env, "# Connection string for the primary database\n") {
		t.Errorf("missing description comment:\n%s", env)
	}

	// The required variable must not carry the optional marker.
	urlBlock := env[strings.Index(env, "# Connection string"):]
	urlBlock = urlBlock[:strings.Index(urlBlock, "\n\n")+1]
	if strings.Contains(urlBlock, "# Optional") {
		t.Errorf("required variable marked optional:\n%s", urlBlock)
	}

	if !strings.Contains(env, "# Optional\n# Connection pool size\nDATABASE_POOL_SIZE=10\n") {
		t.Errorf("optional variable not annotated:\n%s", env)
	}
}

func TestEnvFileDeduplicatesIdenticalDeclarations(t *testing.T) {
	a := &manifest.Template{SDK: "database", Name: "postgres", EnvVars: []manifest.EnvVar{
		{Name: "APP_ENV", Example: "development", Description: "Runtime environment", Required: true},
	}}
	b := &manifest.Template{SDK: "cache", Name: "redis", EnvVars: []manifest.EnvVar{
		{Name: "APP_ENV", Example: "development", Description: "Runtime environment", Required: true},
	}}

	env := buildEnvFile([]*manifest.Template{a, b}, ProjectInfo{})

	if got := strings.Count(env, "APP_ENV=development"); got != 1 {
		t.Errorf("APP_ENV rendered %d times, want 1:\n%s", got, env)
	}
	if strings.Contains(env, "Conflicts (Review Required)") {
		t.Errorf("identical declarations raised a conflict banner:\n%s", env)
	}
}

func TestEnvFileConflictBanner(t *testing.T) {
	a := &manifest.Template{SDK: "database", Name: "postgres", EnvVars: []manifest.EnvVar{
		{Name: "DATABASE_URL", Example: "postgresql://localhost/app", Description: "Postgres connection", Required: true},
	}}
	b := &manifest.Template{SDK: "database", Name: "mysql", EnvVars: []manifest.EnvVar{
		{Name: "DATABASE_URL", Example: "mysql://localhost/app", Description: "MySQL connection", Required: true},
	}}

	env := buildEnvFile([]*manifest.Template{a, b}, ProjectInfo{})

	if !strings.Contains(env, "# === Conflicts (Review Required) ===") {
		t.Fatalf("missing conflict banner:\n%s", env)
	}
	if !strings.Contains(env, "# from database/postgres:") || !strings.Contains(env, "# from database/mysql:") {
		t.Errorf("conflict declarations not attributed:\n%s", env)
	}
	if !strings.Contains(env, "\nDATABASE_URL=postgresql://localhost/app\n") {
		t.Errorf("first declaration not active:\n%s", env)
	}
	if !strings.Contains(env, "\n# DATABASE_URL=mysql://localhost/app\n") {
		t.Errorf("second declaration not commented out:\n%s", env)
	}
}

func TestEnvFileStricterRequiredWins(t *testing.T) {
	a := &manifest.Template{SDK: "database", Name: "postgres", EnvVars: []manifest.EnvVar{
		{Name: "APP_ENV", Example: "development", Description: "Runtime environment", Required: false},
	}}
	b := &manifest.Template{SDK: "cache", Name: "redis", EnvVars: []manifest.EnvVar{
		{Name: "APP_ENV", Example: "development", Description: "Runtime environment", Required: true},
	}}

	env := buildEnvFile([]*manifest.Template{a, b}, ProjectInfo{})

	if strings.Contains(env, "Conflicts (Review Required)") {
		t.Errorf("required-flag difference raised a conflict banner:\n%s", env)
	}
	if strings.Contains(env, "# Optional") {
		t.Errorf("variable required by one template still marked optional:\n%s", env)
	}
}

func TestSetupDocSections(t *testing.T) {
	noDocs := &manifest.Template{SDK: "cache", Name: "redis", DisplayName: "Redis"}
	doc := buildSetupDoc([]*manifest.Template{postgresTemplate(), noDocs},
		ProjectInfo{Name: "demo-shop", PackageManager: "pnpm"})

	if !strings.HasPrefix(doc, "# demo-shop Setup Guide\n") {
		t.Errorf("header = %q", doc[:strings.Index(doc, "\n")])
	}
	if !strings.Contains(doc, "- PostgreSQL + Prisma (database/postgres)\n") {
		t.Errorf("composed-from list missing template:\n%s", doc)
	}
	if !strings.Contains(doc, "`pnpm install`") {
		t.Errorf("package manager hint missing:\n%s", doc)
	}

	if !strings.Contains(doc, "## Database Setup\n") {
		t.Errorf("missing sdk section heading:\n%s", doc)
	}
	if !strings.Contains(doc, "### Setup\n\nRun the local database with docker compose.\n") {
		t.Errorf("setup section not rendered:\n%s", doc)
	}
	if !strings.Contains(doc, "### Configuration\n") {
		t.Errorf("configuration section not rendered:\n%s", doc)
	}
	if !strings.Contains(doc, "### Examples\n\n- npx prisma studio opens a data browser\n") {
		t.Errorf("examples list not rendered:\n%s", doc)
	}

	// Absent fields and doc-less templates never render headings.
	if strings.Contains(doc, "### Usage") || strings.Contains(doc, "### Troubleshooting") {
		t.Errorf("empty docs fields rendered:\n%s", doc)
	}
	if strings.Contains(doc, "## Cache Setup") {
		t.Errorf("template without docs rendered a section:\n%s", doc)
	}
}

func TestGenerateUnwritableTarget(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does", "not", "exist")
	_, err := Generate([]*manifest.Template{postgresTemplate()}, missing, ProjectInfo{})
	if err == nil {
		t.Fatal("Generate into a missing directory succeeded, want error")
	}
	if !errors.Is(err, ErrGeneration) {
		t.Errorf("err = %v, want ErrGeneration", err)
	}
}
