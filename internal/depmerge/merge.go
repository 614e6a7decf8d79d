// Package depmerge combines the dependency declarations of several
// templates into one set, arbitrating version collisions through the
// versions package and reporting every arbitration attempt.
package depmerge

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/stacksmith-labs/stacksmith/internal/manifest"
	"github.com/stacksmith-labs/stacksmith/internal/versions"
)

// Request records one template's claim on a package.
type Request struct {
	SDK      string `json:"sdk"`
	Template string `json:"templateName"`
	Range    string `json:"range"`
}

// Conflict records one arbitration attempt. Resolution and Err mirror the
// attempt outcome: exactly one is non-nil. An entry with a non-nil Err
// means the collision could not be settled under the active strategy and
// the first-seen range was kept.
type Conflict struct {
	Package     string            `json:"package"`
	RequestedBy []Request         `json:"requestedBy"`
	Strategy    versions.Strategy `json:"strategy"`
	Resolution  *string           `json:"resolution"`
	Err         *string           `json:"error"`
}

// MergedSet is the outcome of merging N templates' dependencies. It is
// built fresh per run and never mutated afterwards. An empty Conflicts
// list means no package was requested twice, not merely that every
// collision resolved.
type MergedSet struct {
	Dependencies    []manifest.Package `json:"dependencies"`
	DevDependencies []manifest.Package `json:"devDependencies"`
	Conflicts       []Conflict         `json:"conflicts"`
	Warnings        []string           `json:"warnings"`
}

// UnresolvedCount reports how many arbitration attempts failed.
func (s *MergedSet) UnresolvedCount() int {
	return lo.CountBy(s.Conflicts, func(c Conflict) bool { return c.Err != nil })
}

// PackageNames returns the unique names across both dependency lists, in
// first-seen order. The peer analyzer feeds on this.
func (s *MergedSet) PackageNames() []string {
	names := lo.Map(s.Dependencies, func(p manifest.Package, _ int) string { return p.Name })
	names = append(names, lo.Map(s.DevDependencies, func(p manifest.Package, _ int) string { return p.Name })...)
	return lo.Uniq(names)
}

// Range returns the merged range for a package, searching regular
// dependencies before dev dependencies.
func (s *MergedSet) Range(name string) (string, bool) {
	for _, p := range s.Dependencies {
		if p.Name == name {
			return p.Version, true
		}
	}
	for _, p := range s.DevDependencies {
		if p.Name == name {
			return p.Version, true
		}
	}
	return "", false
}

// Merge combines the dependency and devDependency lists of the given
// templates under one strategy. Templates are processed in the order
// supplied and packages in manifest-declaration order, so repeated runs
// with the same input produce byte-identical JSON. Dev dependencies are
// merged by the same rules but independently; a package declared in both
// lists stays in both and is flagged with a warning.
func Merge(templates []*manifest.Template, strategy versions.Strategy) *MergedSet {
	set := &MergedSet{
		Dependencies:    []manifest.Package{},
		DevDependencies: []manifest.Package{},
		Conflicts:       []Conflict{},
		Warnings:        []string{},
	}

	deps := newAccumulator(set, strategy)
	devDeps := newAccumulator(set, strategy)

	for _, tpl := range templates {
		for _, pkg := range tpl.Packages {
			deps.add(tpl, pkg)
		}
		for _, pkg := range tpl.DevPackages {
			devDeps.add(tpl, pkg)
		}
	}

	set.Dependencies = deps.packages()
	set.DevDependencies = devDeps.packages()

	for _, name := range deps.names {
		if _, dual := devDeps.index[name]; dual {
			set.Warnings = append(set.Warnings,
				fmt.Sprintf("%s is declared as both a dependency and a devDependency", name))
		}
	}

	return set
}

// entry tracks one package's state during a merge: the range currently in
// effect and every request seen so far.
type entry struct {
	current  string
	requests []Request
}

// accumulator merges one dependency list. Conflicts and warnings land on
// the shared set.
type accumulator struct {
	set      *MergedSet
	strategy versions.Strategy
	names    []string
	index    map[string]*entry
}

func newAccumulator(set *MergedSet, strategy versions.Strategy) *accumulator {
	return &accumulator{set: set, strategy: strategy, index: make(map[string]*entry)}
}

// add records one template's request for a package. The first request is
// taken as-is; every subsequent request is arbitrated against the range
// currently in effect, and the attempt is appended to the conflict list
// whether or not it resolves.
func (a *accumulator) add(tpl *manifest.Template, pkg manifest.Package) {
	req := Request{SDK: tpl.SDK, Template: tpl.Name, Range: pkg.Version}

	e, seen := a.index[pkg.Name]
	if !seen {
		a.names = append(a.names, pkg.Name)
		a.index[pkg.Name] = &entry{current: pkg.Version, requests: []Request{req}}
		return
	}

	e.requests = append(e.requests, req)
	res := versions.Resolve(e.current, pkg.Version, a.strategy)

	conflict := Conflict{
		Package:     pkg.Name,
		RequestedBy: append([]Request(nil), e.requests...),
		Strategy:    a.strategy,
	}
	if res.Resolved() {
		conflict.Resolution = &res.Version
		e.current = res.Version
	} else {
		errText := res.Err
		conflict.Err = &errText
		a.set.Warnings = append(a.set.Warnings,
			fmt.Sprintf("%s: %s (%s vs %s); keeping %s", pkg.Name, res.Err, e.current, pkg.Version, e.current))
	}
	a.set.Conflicts = append(a.set.Conflicts, conflict)
}

// packages returns the merged list in first-seen order with the final
// arbitrated ranges.
func (a *accumulator) packages() []manifest.Package {
	out := make([]manifest.Package, 0, len(a.names))
	for _, name := range a.names {
		out = append(out, manifest.Package{Name: name, Version: a.index[name].current})
	}
	return out
}
