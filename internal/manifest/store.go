package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store loads and caches validated templates. Loading the same
// (sdk, template) pair twice returns the identical *Template pointer.
// The zero value is not usable; construct with NewStore.
type Store struct {
	mu    sync.Mutex
	cache map[string]*Template
}

// NewStore returns an empty store. One store per process invocation keeps
// composition runs from sharing hidden state across tests or commands.
func NewStore() *Store {
	return &Store{cache: make(map[string]*Template)}
}

// Load reads, validates, and caches the template at
// <templateRoot>/<sdk>/<name>. Failures wrap ErrManifestNotFound,
// ErrManifestInvalid, or ErrFileMissing.
func (s *Store) Load(templateRoot, sdk, name string) (*Template, error) {
	key := sdk + "/" + name

	s.mu.Lock()
	if cached, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	tmpl, err := s.loadFresh(templateRoot, sdk, name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another goroutine may have loaded it meanwhile; keep the first so
	// repeated loads still return one identical pointer.
	if cached, ok := s.cache[key]; ok {
		return cached, nil
	}
	s.cache[key] = tmpl
	return tmpl, nil
}

// loadFresh performs the uncached load: locate, validate, decode, and
// verify the file map against the disk.
func (s *Store) loadFresh(templateRoot, sdk, name string) (*Template, error) {
	dir := filepath.Join(templateRoot, sdk, name)
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving template directory %s: %w", dir, err)
	}

	manifestPath, err := FindManifest(absDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", manifestPath, err)
	}

	result, err := Validate(data, manifestPath)
	if err != nil {
		return nil, fmt.Errorf("validating manifest %s: %w", manifestPath, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("%w: %s: %s", ErrManifestInvalid, manifestPath, issueSummary(result.Issues))
	}

	raw, err := decodeRaw(data, manifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}

	tmpl := build(raw, sdk, name, absDir)

	if missing := missingSources(tmpl); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s: %s", ErrFileMissing, tmpl.Key(), strings.Join(missing, ", "))
	}

	return tmpl, nil
}

// LoadMany loads every selection independently. A failing selection never
// aborts the rest: the returned slice holds the templates that loaded, in
// selection order, and the error list holds one *LoadError per failure.
func (s *Store) LoadMany(selections []Selection) ([]*Template, []error) {
	var loaded []*Template
	var errs []error

	for _, sel := range selections {
		tmpl, err := s.Load(sel.TemplateRoot, sel.SDK, sel.Name)
		if err != nil {
			errs = append(errs, &LoadError{Selection: sel, Err: err})
			continue
		}
		loaded = append(loaded, tmpl)
	}

	return loaded, errs
}

// ClearCache resets the whole store. Subsequent loads re-read from disk.
func (s *Store) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*Template)
}

// missingSources returns the file-map sources that do not resolve to an
// existing regular file under the template root. A source that escapes the
// root (via ".." or an absolute path) counts as missing.
func missingSources(t *Template) []string {
	var missing []string
	for _, fm := range t.Files {
		p := filepath.Join(t.Root, filepath.FromSlash(fm.Source))
		rel, err := filepath.Rel(t.Root, p)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			missing = append(missing, fm.Source)
			continue
		}
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			missing = append(missing, fm.Source)
		}
	}
	return missing
}

// issueSummary flattens validation issues into one readable line.
func issueSummary(issues []ValidationIssue) string {
	parts := make([]string, 0, len(issues))
	for _, issue := range issues {
		parts = append(parts, issue.String())
	}
	return strings.Join(parts, "; ")
}
