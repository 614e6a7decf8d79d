package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, root, sdk, name, content string) {
	t.Helper()
	dir := filepath.Join(root, sdk, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating template dir: %v", err)
	}
	file := "template.json"
	if content != "" && content[0] != '{' {
		file = "template.yaml"
	}
	if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
}

func testLibrary(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeManifest(t, root, "database", "postgres", `{
  "name": "postgres",
  "displayName": "PostgreSQL + Prisma",
  "description": "PostgreSQL with the Prisma ORM",
  "packages": [{"name": "pg", "version": "^8.11.3"}],
  "devPackages": [{"name": "prisma", "version": "^5.7.0"}],
  "envVars": [{"name": "DATABASE_URL", "description": "Connection string", "example": "postgresql://localhost/app", "required": true}],
  "files": {"database.ts": "src/lib/database.ts"},
  "tags": ["database", "orm"]
}`)
	writeManifest(t, root, "database", "mongodb", `{
  "name": "mongodb",
  "description": "MongoDB with Mongoose",
  "packages": [{"name": "mongoose", "version": "^8.0.0"}],
  "envVars": [],
  "files": {"db.ts": "src/lib/db.ts"}
}`)
	writeManifest(t, root, "auth", "clerk", `{
  "name": "clerk",
  "description": "Clerk authentication",
  "packages": [{"name": "@clerk/nextjs", "version": "^4.27.0"}],
  "envVars": [],
  "files": {"middleware.ts": "src/middleware.ts"}
}`)

	return root
}

func TestDiscover(t *testing.T) {
	root := testLibrary(t)

	entries, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	// Sorted by sdk/name.
	keys := []string{entries[0].Key(), entries[1].Key(), entries[2].Key()}
	want := []string{"auth/clerk", "database/mongodb", "database/postgres"}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, keys[i], want[i])
		}
	}

	pg, ok := Find(entries, "database", "postgres")
	if !ok {
		t.Fatal("postgres entry missing")
	}
	if pg.DisplayName != "PostgreSQL + Prisma" {
		t.Errorf("DisplayName = %q", pg.DisplayName)
	}
	if pg.Packages != 2 || pg.EnvVars != 1 || pg.Files != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1", pg.Packages, pg.EnvVars, pg.Files)
	}
	if !pg.Visible {
		t.Error("Visible = false, want default true")
	}
	if pg.Dir != filepath.Join(root, "database", "postgres") {
		t.Errorf("Dir = %q", pg.Dir)
	}
}

func TestDiscoverSkipsNonTemplateDirs(t *testing.T) {
	root := testLibrary(t)
	// A directory without a manifest and a hidden directory are ignored.
	os.MkdirAll(filepath.Join(root, "database", "drafts"), 0755)
	os.MkdirAll(filepath.Join(root, ".git", "objects"), 0755)
	os.WriteFile(filepath.Join(root, "README.md"), []byte("# templates\n"), 0644)

	entries, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries, want 3", len(entries))
	}
}

func TestDiscoverBrokenManifestStaysListed(t *testing.T) {
	root := testLibrary(t)
	writeManifest(t, root, "database", "broken", `{ not json`)

	entries, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	e, ok := Find(entries, "database", "broken")
	if !ok {
		t.Fatal("broken template missing from listing")
	}
	if e.DisplayName != "broken" {
		t.Errorf("DisplayName = %q, want path-derived name", e.DisplayName)
	}
	if e.Packages != 0 || e.Description != "" {
		t.Errorf("broken entry enriched unexpectedly: %+v", e)
	}
}

func TestDiscoverYAMLManifest(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "cache", "redis", "name: redis\ndescription: Redis caching layer\npackages:\n  - name: ioredis\n    version: ^5.3.2\nenvVars: []\nfiles:\n  cache.ts: src/lib/cache.ts\n")

	entries, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Description != "Redis caching layer" {
		t.Errorf("Description = %q", entries[0].Description)
	}
}

func TestDiscoverMissingRoot(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing library root")
	}
}

func TestVisibleOnly(t *testing.T) {
	root := testLibrary(t)
	writeManifest(t, root, "database", "internal-only", `{
  "name": "internal-only",
  "description": "Hidden template",
  "packages": [],
  "envVars": [],
  "files": {},
  "visible": false
}`)

	entries, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}

	visible := VisibleOnly(entries)
	if len(visible) != 3 {
		t.Errorf("VisibleOnly = %d entries, want 3", len(visible))
	}
	if _, ok := Find(visible, "database", "internal-only"); ok {
		t.Error("hidden template in visible listing")
	}
}

func TestSDKs(t *testing.T) {
	entries, err := Discover(testLibrary(t))
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	sdks := SDKs(entries)
	if len(sdks) != 2 || sdks[0] != "auth" || sdks[1] != "database" {
		t.Errorf("SDKs = %v, want [auth database]", sdks)
	}
}
