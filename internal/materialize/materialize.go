// Package materialize copies template payload files into a target tree.
// Text files pass through variable substitution, binary files are copied
// byte for byte, and same-run destination collisions are settled by a
// configurable strategy. Every action lands in a CopyPlan for reporting.
package materialize

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stacksmith-labs/stacksmith/internal/manifest"
	"github.com/stacksmith-labs/stacksmith/internal/platform"
)

// CollisionStrategy picks the behavior when two templates in one run
// write the same destination path.
type CollisionStrategy string

const (
	// CollisionOverwrite lets the later template replace the file and
	// records the collision. This is the default.
	CollisionOverwrite CollisionStrategy = "overwrite"

	// CollisionSkip keeps the first writer's content and records the
	// later attempt as skipped.
	CollisionSkip CollisionStrategy = "skip"

	// CollisionMerge accepts the later file and tracks the collision as
	// metadata only. No content-level merge is attempted.
	CollisionMerge CollisionStrategy = "merge"
)

// ParseCollisionStrategy validates a strategy name; the empty string
// means overwrite.
func ParseCollisionStrategy(name string) (CollisionStrategy, error) {
	switch CollisionStrategy(strings.ToLower(strings.TrimSpace(name))) {
	case "", CollisionOverwrite:
		return CollisionOverwrite, nil
	case CollisionSkip:
		return CollisionSkip, nil
	case CollisionMerge:
		return CollisionMerge, nil
	}
	return "", fmt.Errorf("unknown file-collision strategy %q (valid: overwrite, skip, merge)", name)
}

// Entry resolutions.
const (
	ResolutionWritten     = "written"
	ResolutionSkipped     = "skipped"
	ResolutionOverwritten = "overwritten"
)

// Entry records the outcome of one source-to-destination copy. An entry
// with a non-empty Error was not written; the batch still continues.
type Entry struct {
	SourceTemplate string   `json:"sourceTemplate"`
	SourcePath     string   `json:"sourcePath"`
	DestPath       string   `json:"destPath"`
	ConflictsWith  []string `json:"conflictsWith,omitempty"`
	Resolution     string   `json:"resolution,omitempty"`
	Substituted    bool     `json:"substituted,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Plan is the full record of one materialization run.
type Plan struct {
	TargetRoot string  `json:"targetRoot"`
	Entries    []Entry `json:"entries"`
	Canceled   bool    `json:"canceled,omitempty"`
}

// Errors returns the entries that failed.
func (p *Plan) Errors() []Entry {
	var failed []Entry
	for _, e := range p.Entries {
		if e.Error != "" {
			failed = append(failed, e)
		}
	}
	return failed
}

// WrittenCount tallies entries that put content on disk.
func (p *Plan) WrittenCount() int {
	n := 0
	for _, e := range p.Entries {
		if e.Resolution == ResolutionWritten || e.Resolution == ResolutionOverwritten {
			n++
		}
	}
	return n
}

// binaryProbeWindow bounds how much of a file is scanned for a NUL byte
// when deciding text versus binary.
const binaryProbeWindow = 8000

// Materialize copies every file mapping of every template into targetRoot,
// in template order and manifest order within a template. Source paths
// resolve against each template's own root, so same-named sources in
// different templates stay distinct. Per-file failures are recorded and
// the batch continues; only an unusable target root aborts. On
// cancellation the file in progress is finished, nothing further starts,
// and the plan is marked canceled.
func Materialize(ctx context.Context, templates []*manifest.Template, targetRoot string, vars map[string]string, strategy CollisionStrategy) (*Plan, error) {
	if strategy == "" {
		strategy = CollisionOverwrite
	}
	if err := os.MkdirAll(targetRoot, 0755); err != nil {
		return nil, fmt.Errorf("creating target root: %w", err)
	}

	plan := &Plan{TargetRoot: targetRoot, Entries: []Entry{}}
	writers := make(map[string][]string)

	for _, tpl := range templates {
		for _, mapping := range tpl.Files {
			if ctx.Err() != nil {
				plan.Canceled = true
				return plan, nil
			}
			plan.Entries = append(plan.Entries, copyOne(tpl, mapping, targetRoot, vars, strategy, writers))
		}
	}
	return plan, nil
}

// copyOne materializes a single file mapping and updates the writer index
// keyed by cleaned destination path.
func copyOne(tpl *manifest.Template, mapping manifest.FileMapping, targetRoot string, vars map[string]string, strategy CollisionStrategy, writers map[string][]string) Entry {
	destRel, destSubstituted := Substitute(mapping.Dest, vars)
	destRel = filepath.Clean(filepath.FromSlash(destRel))

	entry := Entry{
		SourceTemplate: tpl.Key(),
		SourcePath:     mapping.Source,
		DestPath:       filepath.ToSlash(destRel),
	}

	if destRel == ".." || strings.HasPrefix(destRel, ".."+string(filepath.Separator)) || filepath.IsAbs(destRel) {
		entry.Error = fmt.Sprintf("destination %q escapes the target root", mapping.Dest)
		return entry
	}

	prior := writers[destRel]
	if len(prior) > 0 {
		entry.ConflictsWith = append([]string(nil), prior...)
		if strategy == CollisionSkip {
			entry.Resolution = ResolutionSkipped
			return entry
		}
	}

	srcPath := filepath.Join(tpl.Root, filepath.FromSlash(mapping.Source))
	data, err := os.ReadFile(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			entry.Error = fmt.Sprintf("source file %s missing", mapping.Source)
		} else {
			entry.Error = fmt.Sprintf("reading %s: %v", mapping.Source, err)
		}
		return entry
	}

	if !isBinary(data) {
		content, replaced := Substitute(string(data), vars)
		data = []byte(content)
		entry.Substituted = replaced || destSubstituted
	}

	destPath := filepath.Join(targetRoot, destRel)
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		entry.Error = fmt.Sprintf("creating directory for %s: %v", entry.DestPath, err)
		return entry
	}
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		entry.Error = fmt.Sprintf("writing %s: %v", entry.DestPath, err)
		return entry
	}
	if err := platform.CopyMode(srcPath, destPath); err != nil {
		entry.Error = fmt.Sprintf("preserving mode of %s: %v", entry.DestPath, err)
		return entry
	}

	switch {
	case len(prior) > 0 && strategy == CollisionOverwrite:
		entry.Resolution = ResolutionOverwritten
	default:
		// CollisionMerge accepts the write; the collision stays visible
		// only through ConflictsWith.
		entry.Resolution = ResolutionWritten
	}
	writers[destRel] = append(writers[destRel], tpl.Key())
	return entry
}

// isBinary reports whether data looks like a binary file: a NUL byte
// anywhere in the probe window.
func isBinary(data []byte) bool {
	window := data
	if len(window) > binaryProbeWindow {
		window = window[:binaryProbeWindow]
	}
	return bytes.IndexByte(window, 0) >= 0
}
