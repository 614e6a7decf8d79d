// Package catalog lists the templates available in a library directory.
//
// A library is laid out <root>/<sdk>/<template>/ with a manifest file in
// each template directory. Discovery is a shallow walk plus a cheap
// metadata parse; full validation stays with the manifest store.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/stacksmith-labs/stacksmith/internal/manifest"
)

// Entry summarizes one discovered template.
type Entry struct {
	SDK         string   `json:"sdk"`
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Visible     bool     `json:"visible"`
	Packages    int      `json:"packages"`
	EnvVars     int      `json:"envVars"`
	Files       int      `json:"files"`
	Dir         string   `json:"dir"`
}

// Key returns the sdk/name selector for the entry.
func (e Entry) Key() string { return e.SDK + "/" + e.Name }

// Discover walks the library root and returns every template directory
// that carries a manifest, sorted by sdk/name. Directories whose manifest
// does not parse are listed with path-derived metadata only, so a broken
// template stays visible instead of silently vanishing.
func Discover(root string) ([]Entry, error) {
	sdks, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading template library %s: %w", root, err)
	}

	var entries []Entry
	for _, sdk := range sdks {
		if !sdk.IsDir() || strings.HasPrefix(sdk.Name(), ".") {
			continue
		}
		sdkDir := filepath.Join(root, sdk.Name())
		templates, err := os.ReadDir(sdkDir)
		if err != nil {
			continue
		}
		for _, tpl := range templates {
			if !tpl.IsDir() || strings.HasPrefix(tpl.Name(), ".") {
				continue
			}
			dir := filepath.Join(sdkDir, tpl.Name())
			manifestPath, err := manifest.FindManifest(dir)
			if err != nil {
				continue // not a template directory
			}
			entries = append(entries, newEntry(sdk.Name(), tpl.Name(), dir, manifestPath))
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key() < entries[j].Key() })
	return entries, nil
}

// newEntry builds an Entry, enriched from the manifest when it parses.
func newEntry(sdk, name, dir, manifestPath string) Entry {
	e := Entry{
		SDK:         sdk,
		Name:        name,
		DisplayName: name,
		Visible:     true,
		Dir:         dir,
	}

	raw, err := manifest.ParseRaw(manifestPath)
	if err != nil {
		return e
	}
	if raw.DisplayName != "" {
		e.DisplayName = raw.DisplayName
	} else if raw.Name != "" {
		e.DisplayName = raw.Name
	}
	e.Description = raw.Description
	e.Tags = raw.Tags
	if raw.Visible != nil {
		e.Visible = *raw.Visible
	}
	e.Packages = len(raw.Packages) + len(raw.DevPackages)
	e.EnvVars = len(raw.EnvVars)
	e.Files = len(raw.Files)
	return e
}

// VisibleOnly drops entries whose manifest marks them hidden.
func VisibleOnly(entries []Entry) []Entry {
	return lo.Filter(entries, func(e Entry, _ int) bool { return e.Visible })
}

// SDKs returns the distinct SDK names in listing order.
func SDKs(entries []Entry) []string {
	return lo.Uniq(lo.Map(entries, func(e Entry, _ int) string { return e.SDK }))
}

// Find returns the entry matching an sdk/name selector.
func Find(entries []Entry, sdk, name string) (Entry, bool) {
	return lo.Find(entries, func(e Entry) bool { return e.SDK == sdk && e.Name == name })
}
