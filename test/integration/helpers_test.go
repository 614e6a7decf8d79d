//go:build integration

package integration_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stacksmith-labs/stacksmith/internal/compose"
	"github.com/stacksmith-labs/stacksmith/internal/installer"
	"github.com/stacksmith-labs/stacksmith/internal/manifest"
	"github.com/stacksmith-labs/stacksmith/internal/peers"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	LibraryDir string // template library root, laid out as <sdk>/<name>/
	ProjectDir string // target project directory
	CacheDir   string // peer metadata cache
}

// setupTestEnv creates isolated temp directories so every composition run
// is sandboxed.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		LibraryDir: t.TempDir(),
		ProjectDir: t.TempDir(),
		CacheDir:   t.TempDir(),
	}
}

// setupLibrary fills the library with a synthetic template set covering
// overlapping packages, shared env vars, payload files, and one broken
// manifest. Returns the library root.
func setupLibrary(t *testing.T, root string) string {
	t.Helper()

	// --- database/postgres ---
	writeManifest(t, root, "database/postgres", `{
  "name": "postgres",
  "displayName": "PostgreSQL",
  "description": "PostgreSQL client wiring",
  "packages": [
    {"name": "pg", "version": "^8.11.0"},
    {"name": "dotenv", "version": "^16.0.0"}
  ],
  "devPackages": [
    {"name": "@types/pg", "version": "^8.10.0"}
  ],
  "envVars": [
    {"name": "DATABASE_URL", "example": "postgres://localhost:5432/app", "description": "Postgres connection string", "required": true}
  ],
  "files": {
    "db/client.ts": "src/db/client.ts"
  },
  "docs": {
    "setup": "Create the database and run the migrations."
  },
  "tags": ["database", "sql"]
}`)
	writeFile(t, filepath.Join(root, "database/postgres", "db/client.ts"),
		"// {{projectName}} database client\nexport const pool = null;\n")

	// --- auth/jwt ---
	writeManifest(t, root, "auth/jwt", `{
  "name": "jwt",
  "description": "JWT session handling",
  "packages": [
    {"name": "jsonwebtoken", "version": "^9.0.0"},
    {"name": "dotenv", "version": "^16.3.0"}
  ],
  "envVars": [
    {"name": "JWT_SECRET", "example": "change-me", "description": "Token signing secret", "required": true}
  ],
  "files": {
    "middleware/auth.ts": "src/middleware/auth.ts"
  },
  "docs": {
    "setup": "Generate a signing secret and store it outside the repo."
  },
  "tags": ["auth"]
}`)
	writeFile(t, filepath.Join(root, "auth/jwt", "middleware/auth.ts"),
		"export function requireAuth() {}\n")

	// --- cache/redis — collides with database/postgres on src/db/client.ts ---
	writeManifest(t, root, "cache/redis", `{
  "name": "redis",
  "description": "Redis cache wiring",
  "packages": [
    {"name": "ioredis", "version": "^5.3.0"}
  ],
  "envVars": [
    {"name": "REDIS_URL", "example": "redis://localhost:6379", "description": "Redis connection string", "required": false}
  ],
  "files": {
    "client.ts": "src/db/client.ts"
  }
}`)
	writeFile(t, filepath.Join(root, "cache/redis", "client.ts"),
		"export const redis = null;\n")

	// --- broken/no-description — fails schema validation ---
	writeManifest(t, root, "broken/no-description", `{
  "name": "no-description",
  "packages": [],
  "envVars": [],
  "files": {}
}`)

	return root
}

// newTestComposer builds a Composer whose peer analyzer talks to the
// given registry URL. Pass "" to run without an analyzer.
func newTestComposer(env *testEnv, registryURL string) *compose.Composer {
	var analyzer *peers.Analyzer
	if registryURL != "" {
		analyzer = peers.NewAnalyzer(
			peers.NewClient(registryURL),
			peers.NewCache(env.CacheDir, time.Hour),
		)
	}
	return compose.New(manifest.NewStore(), analyzer, &installer.Installer{})
}

// selection builds a Selection into the test library.
func selection(env *testEnv, sdk, name string) manifest.Selection {
	return manifest.Selection{TemplateRoot: env.LibraryDir, SDK: sdk, Name: name}
}

// writeManifest creates a template.json at root/<sdkPath>/template.json.
func writeManifest(t *testing.T, root, sdkPath, content string) {
	t.Helper()
	dir := filepath.Join(root, sdkPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	path := filepath.Join(dir, "template.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file to not exist: %s", path)
	}
}

// assertFileContains fails the test if the file does not contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}

// assertFileNotContains fails the test if the file contains substr.
func assertFileNotContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if strings.Contains(string(data), substr) {
		t.Errorf("file %s should not contain %q", path, substr)
	}
}
