package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/stacksmith-labs/stacksmith/internal/manifest"
)

//go:embed stubs
var stubFS embed.FS

// stubDir is the embedded directory holding the starter file set.
const stubDir = "stubs"

// StubData holds the variables available to scaffold stubs.
type StubData struct {
	SDK         string // e.g., "database"
	Name        string // e.g., "postgres"
	DisplayName string // Derived: "Postgres"
	Description string // Human-readable description
	EnvName     string // Derived: example env var, e.g. "POSTGRES_URL"
	Year        int    // Current year
}

// Result holds the outcome of a scaffold generation.
type Result struct {
	OutputDir string
	Files     []string
	Warnings  []string
}

// NewStubData creates a StubData with derived fields populated.
func NewStubData(sdk, name string) *StubData {
	titler := cases.Title(language.English)
	d := &StubData{
		SDK:         sdk,
		Name:        name,
		DisplayName: titler.String(strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(name)),
		EnvName:     envName(name),
		Year:        time.Now().Year(),
	}
	d.Description = fmt.Sprintf("Starter %s template for %s", sdk, d.DisplayName)
	return d
}

// envName derives an example environment variable name from the template
// name. The result always matches the manifest schema's env var pattern.
func envName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	prefix := strings.Trim(b.String(), "_")
	if prefix == "" {
		prefix = "APP"
	}
	if prefix[0] >= '0' && prefix[0] <= '9' {
		prefix = "APP_" + prefix
	}
	return prefix + "_URL"
}

// Generate writes the starter file set into outputDir. Files with a .tmpl
// suffix are rendered through text/template against data; everything else
// is copied verbatim, which keeps {{placeholder}} tokens meant for
// composition-time substitution intact. The generated manifest is
// validated and any issues surface as warnings, not errors.
func Generate(data *StubData, outputDir string) (*Result, error) {
	entries, err := fs.ReadDir(stubFS, stubDir)
	if err != nil {
		return nil, fmt.Errorf("reading embedded stubs: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	// Refuse a non-empty directory to prevent accidental overwrites.
	existing, err := os.ReadDir(outputDir)
	if err == nil && len(existing) > 0 {
		return nil, fmt.Errorf("output directory %s is not empty; remove existing files first", outputDir)
	}

	result := &Result{OutputDir: outputDir}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		stubPath := stubDir + "/" + entry.Name()
		stubBytes, err := fs.ReadFile(stubFS, stubPath)
		if err != nil {
			return nil, fmt.Errorf("reading stub %s: %w", stubPath, err)
		}

		outName := entry.Name()
		content := stubBytes

		if strings.HasSuffix(outName, ".tmpl") {
			outName = strings.TrimSuffix(outName, ".tmpl")

			tmpl, err := template.New(entry.Name()).Parse(string(stubBytes))
			if err != nil {
				return nil, fmt.Errorf("parsing stub %s: %w", entry.Name(), err)
			}
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, data); err != nil {
				return nil, fmt.Errorf("executing stub %s: %w", entry.Name(), err)
			}
			content = buf.Bytes()
		}

		outPath := filepath.Join(outputDir, outName)
		if err := os.WriteFile(outPath, content, 0644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", outPath, err)
		}
		result.Files = append(result.Files, outName)
	}

	// Validate the generated manifest against the JSON schema.
	manifestFile := filepath.Join(outputDir, manifest.ManifestNames[0])
	if _, err := os.Stat(manifestFile); err == nil {
		valResult, valErr := manifest.ValidateFile(manifestFile)
		if valErr != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("could not validate manifest: %v", valErr))
		} else if !valResult.Valid {
			for _, issue := range valResult.Issues {
				result.Warnings = append(result.Warnings, issue.String())
			}
		}
	}

	return result, nil
}
