package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Raw mirrors the on-disk wire format of a template manifest before
// validation. Catalog listing uses it for cheap metadata extraction; the
// Store turns it into a validated Template.
type Raw struct {
	Name        string            `json:"name" yaml:"name"`
	DisplayName string            `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Description string            `json:"description" yaml:"description"`
	Packages    []Package         `json:"packages" yaml:"packages"`
	DevPackages []Package         `json:"devPackages,omitempty" yaml:"devPackages,omitempty"`
	EnvVars     []EnvVar          `json:"envVars" yaml:"envVars"`
	Files       map[string]string `json:"files" yaml:"files"`
	Docs        Docs              `json:"docs,omitempty" yaml:"docs,omitempty"`
	Tags        []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Visible     *bool             `json:"visible,omitempty" yaml:"visible,omitempty"`
}

// FindManifest locates the manifest file inside a template directory.
// Fallback order: template.json > template.yaml.
func FindManifest(dir string) (string, error) {
	for _, name := range ManifestNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: no %s in %s", ErrManifestNotFound, strings.Join(ManifestNames, " or "), dir)
}

// ParseRaw reads and decodes a manifest file without validating it.
// The encoding is chosen by file extension.
func ParseRaw(path string) (*Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return decodeRaw(data, path)
}

// decodeRaw unmarshals manifest bytes as JSON or YAML depending on path.
func decodeRaw(data []byte, path string) (*Raw, error) {
	var raw Raw
	if isYAMLPath(path) {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
		}
		return &raw, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &raw, nil
}

// isYAMLPath reports whether the manifest should be decoded as YAML.
func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// build turns a decoded raw manifest into the validated Template record.
// Defaults: displayName falls back to name, visible defaults to true.
// The files map is flattened into a slice sorted by source path so that
// repeated runs materialize in the same order.
func build(raw *Raw, sdk, name, root string) *Template {
	t := &Template{
		SDK:         sdk,
		Name:        name,
		DisplayName: raw.DisplayName,
		Description: raw.Description,
		Packages:    raw.Packages,
		DevPackages: raw.DevPackages,
		EnvVars:     raw.EnvVars,
		Docs:        raw.Docs,
		Tags:        raw.Tags,
		Visible:     true,
		Root:        root,
	}

	if t.DisplayName == "" {
		t.DisplayName = raw.Name
	}
	if raw.Visible != nil {
		t.Visible = *raw.Visible
	}

	t.Files = make([]FileMapping, 0, len(raw.Files))
	for src, dst := range raw.Files {
		t.Files = append(t.Files, FileMapping{Source: src, Dest: dst})
	}
	sort.Slice(t.Files, func(i, j int) bool {
		return t.Files[i].Source < t.Files[j].Source
	})

	return t
}
