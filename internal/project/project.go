package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/stacksmith-labs/stacksmith/internal/branding"
)

const recordFile = "project.yaml"

// ErrNoRecord means the target tree has no project record yet.
var ErrNoRecord = errors.New("no project record")

// Applied is one composed template notation.
type Applied struct {
	SDK       string    `yaml:"sdk"`
	Name      string    `yaml:"name"`
	Source    string    `yaml:"source,omitempty"`
	AppliedAt time.Time `yaml:"appliedAt"`
}

// Key returns the sdk/name selector for the entry.
func (a Applied) Key() string { return a.SDK + "/" + a.Name }

// Record is the .stacksmith/project.yaml structure.
type Record struct {
	Project   string            `yaml:"project,omitempty"`
	Strategy  string            `yaml:"strategy,omitempty"`
	Variables map[string]string `yaml:"variables,omitempty"`
	Templates []Applied         `yaml:"templates"`
}

// Path returns the record location inside a target tree.
func Path(targetRoot string) string {
	return filepath.Join(targetRoot, branding.HomeDir(), recordFile)
}

// Load reads the record from a target tree. A missing record reports
// ErrNoRecord so callers can distinguish "not a composed project" from a
// broken file.
func Load(targetRoot string) (*Record, error) {
	data, err := os.ReadFile(Path(targetRoot))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w in %s", ErrNoRecord, targetRoot)
	}
	if err != nil {
		return nil, fmt.Errorf("reading project record: %w", err)
	}

	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing project record: %w", err)
	}
	return &rec, nil
}

// Save writes the record, creating the .stacksmith directory if needed.
func Save(targetRoot string, rec *Record) error {
	path := Path(targetRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating record directory: %w", err)
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling project record: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing project record: %w", err)
	}
	return nil
}

// Find returns the applied entry for sdk/name, or nil.
func (r *Record) Find(sdk, name string) *Applied {
	for i := range r.Templates {
		if r.Templates[i].SDK == sdk && r.Templates[i].Name == name {
			return &r.Templates[i]
		}
	}
	return nil
}

// Add appends an applied template. Reapplying is an error; the caller
// decides whether that is worth more than a warning.
func (r *Record) Add(applied Applied) error {
	if r.Find(applied.SDK, applied.Name) != nil {
		return fmt.Errorf("template %s is already applied", applied.Key())
	}
	r.Templates = append(r.Templates, applied)
	return nil
}

// Remove drops the entry for sdk/name.
func (r *Record) Remove(sdk, name string) error {
	for i, a := range r.Templates {
		if a.SDK == sdk && a.Name == name {
			r.Templates = append(r.Templates[:i], r.Templates[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("template %s/%s is not recorded in this project", sdk, name)
}
