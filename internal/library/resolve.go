package library

import (
	"fmt"
	"path/filepath"

	"github.com/stacksmith-labs/stacksmith/internal/manifest"
)

// Resolved points at one template found in a source.
type Resolved struct {
	SDK        string
	Name       string
	SourceName string
	Root       string // library root that owns the template
	Dir        string // <Root>/<SDK>/<Name>
}

// Selection converts the hit into a loadable manifest selection.
func (r *Resolved) Selection() manifest.Selection {
	return manifest.Selection{TemplateRoot: r.Root, SDK: r.SDK, Name: r.Name}
}

// Resolve searches for sdk/name across sources in slice order. The first
// source whose root carries a manifest for the template wins.
func Resolve(sdk, name string, sources []Source) (*Resolved, error) {
	for _, src := range sources {
		dir := filepath.Join(src.Path, sdk, name)
		if _, err := manifest.FindManifest(dir); err != nil {
			continue
		}
		return &Resolved{
			SDK:        sdk,
			Name:       name,
			SourceName: src.Name,
			Root:       src.Path,
			Dir:        dir,
		}, nil
	}
	return nil, fmt.Errorf("template %s/%s not found in any library source", sdk, name)
}
