// Package docgen renders the user-facing configuration artifacts of a
// composed project: a .env.example collecting every template's declared
// environment variables, and a setup.md stitched from template docs.
// Variables declared twice with diverging values are surfaced for review
// instead of silently reconciled.
package docgen

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/stacksmith-labs/stacksmith/internal/manifest"
)

const (
	// EnvFileName is the environment file emitted into the target root.
	EnvFileName = ".env.example"
	// SetupDocName is the setup guide emitted into the target root.
	SetupDocName = "setup.md"
)

// ErrGeneration marks a failure to write one of the generated files.
// Callers treat it as fatal: nothing downstream works without them.
var ErrGeneration = errors.New("doc generation failed")

// ProjectInfo carries the composition context rendered into headers.
type ProjectInfo struct {
	Name           string
	PackageManager string
}

// Output names the files Generate wrote.
type Output struct {
	EnvFile  string
	SetupDoc string
}

// Generate writes the env example and setup guide into targetRoot. A
// write failure is fatal for the caller: nothing downstream can proceed
// without these files.
func Generate(templates []*manifest.Template, targetRoot string, info ProjectInfo) (*Output, error) {
	envPath := filepath.Join(targetRoot, EnvFileName)
	if err := os.WriteFile(envPath, []byte(buildEnvFile(templates, info)), 0644); err != nil {
		return nil, fmt.Errorf("%w: writing %s: %v", ErrGeneration, EnvFileName, err)
	}

	setupPath := filepath.Join(targetRoot, SetupDocName)
	if err := os.WriteFile(setupPath, []byte(buildSetupDoc(templates, info)), 0644); err != nil {
		return nil, fmt.Errorf("%w: writing %s: %v", ErrGeneration, SetupDocName, err)
	}

	return &Output{EnvFile: envPath, SetupDoc: setupPath}, nil
}

// declaration is one template's claim on an environment variable.
type declaration struct {
	template string
	envVar   manifest.EnvVar
}

// envGroup collects every declaration of one variable name.
type envGroup struct {
	name  string
	decls []declaration
}

// conflicted reports whether the declarations disagree on example value
// or description. A differing required flag alone is not a conflict; the
// stricter flag wins at render time.
func (g *envGroup) conflicted() bool {
	first := g.decls[0].envVar
	for _, d := range g.decls[1:] {
		if d.envVar.Example != first.Example || d.envVar.Description != first.Description {
			return true
		}
	}
	return false
}

func (g *envGroup) required() bool {
	for _, d := range g.decls {
		if d.envVar.Required {
			return true
		}
	}
	return false
}

// collectEnvVars groups declarations by variable name in first-seen
// order, de-duplicating identical repeats.
func collectEnvVars(templates []*manifest.Template) []*envGroup {
	var order []string
	byName := make(map[string]*envGroup)

	for _, tpl := range templates {
		for _, v := range tpl.EnvVars {
			group, seen := byName[v.Name]
			if !seen {
				group = &envGroup{name: v.Name}
				byName[v.Name] = group
				order = append(order, v.Name)
			}
			group.decls = append(group.decls, declaration{template: tpl.Key(), envVar: v})
		}
	}

	groups := make([]*envGroup, 0, len(order))
	for _, name := range order {
		groups = append(groups, byName[name])
	}
	return groups
}

func buildEnvFile(templates []*manifest.Template, info ProjectInfo) string {
	var b strings.Builder

	name := info.Name
	if name == "" {
		name = "this project"
	}
	fmt.Fprintf(&b, "# Environment variables for %s\n", name)
	b.WriteString("# Copy to .env and fill in real values.\n")

	groups := collectEnvVars(templates)

	var conflicts []*envGroup
	for _, g := range groups {
		if g.conflicted() {
			conflicts = append(conflicts, g)
			continue
		}
		b.WriteString("\n")
		writeEnvEntry(&b, g.decls[0].envVar, g.required(), false)
	}

	if len(conflicts) > 0 {
		b.WriteString("\n# === Conflicts (Review Required) ===\n")
		b.WriteString("# These variables were declared by more than one template with\n")
		b.WriteString("# different values. The first declaration is active; review before use.\n")
		for _, g := range conflicts {
			b.WriteString("\n")
			for i, d := range g.decls {
				fmt.Fprintf(&b, "# from %s:\n", d.template)
				writeEnvEntry(&b, d.envVar, g.required(), i > 0)
			}
		}
	}

	return b.String()
}

// writeEnvEntry renders one NAME=example line with its annotations.
// Commented entries are alternates under the conflicts banner.
func writeEnvEntry(b *strings.Builder, v manifest.EnvVar, required, commented bool) {
	if !required {
		b.WriteString("# Optional\n")
	}
	if v.Description != "" {
		fmt.Fprintf(b, "# %s\n", v.Description)
	}
	prefix := ""
	if commented {
		prefix = "# "
	}
	fmt.Fprintf(b, "%s%s=%s\n", prefix, v.Name, v.Example)
}

// docSections pairs each prose docs field with its heading, in render
// order. Examples are a list and render separately.
func docSections(d manifest.Docs) []struct{ heading, body string } {
	return []struct{ heading, body string }{
		{"Setup", d.Setup},
		{"Installation", d.Installation},
		{"Configuration", d.Configuration},
		{"Usage", d.Usage},
		{"Troubleshooting", d.Troubleshooting},
	}
}

var titleCaser = cases.Title(language.English)

func buildSetupDoc(templates []*manifest.Template, info ProjectInfo) string {
	var b strings.Builder

	name := info.Name
	if name == "" {
		name = "Project"
	}
	fmt.Fprintf(&b, "# %s Setup Guide\n", name)

	b.WriteString("\nComposed from:\n\n")
	for _, tpl := range templates {
		fmt.Fprintf(&b, "- %s (%s)\n", tpl.DisplayName, tpl.Key())
	}

	if info.PackageManager != "" {
		fmt.Fprintf(&b, "\nInstall dependencies with `%s install`.\n", info.PackageManager)
	}

	for _, tpl := range templates {
		if tpl.Docs.Empty() {
			continue
		}
		fmt.Fprintf(&b, "\n## %s Setup\n", titleCaser.String(tpl.SDK))
		for _, section := range docSections(tpl.Docs) {
			if section.body == "" {
				continue
			}
			fmt.Fprintf(&b, "\n### %s\n\n%s\n", section.heading, strings.TrimSpace(section.body))
		}
		if len(tpl.Docs.Examples) > 0 {
			b.WriteString("\n### Examples\n\n")
			for _, example := range tpl.Docs.Examples {
				fmt.Fprintf(&b, "- %s\n", example)
			}
		}
	}

	return b.String()
}
