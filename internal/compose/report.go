package compose

import (
	"github.com/stacksmith-labs/stacksmith/internal/depmerge"
	"github.com/stacksmith-labs/stacksmith/internal/docgen"
	"github.com/stacksmith-labs/stacksmith/internal/installer"
	"github.com/stacksmith-labs/stacksmith/internal/materialize"
	"github.com/stacksmith-labs/stacksmith/internal/peers"
)

// Run outcomes. A failed run means a manifest-level or target-directory
// failure; per-package and per-file problems downgrade to warnings.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeWarnings  = "succeeded_with_warnings"
	OutcomeFailed    = "failed"
)

// Report is the full record of one composition run, assembled stage by
// stage. Stages that never ran stay nil.
type Report struct {
	Project    string `json:"project,omitempty"`
	TargetRoot string `json:"targetRoot"`
	Outcome    string `json:"outcome"`

	Templates  []string `json:"templates,omitempty"`
	LoadErrors []string `json:"loadErrors,omitempty"`

	Merged  *depmerge.MergedSet `json:"merged,omitempty"`
	Peers   *peers.Report       `json:"peers,omitempty"`
	Files   *materialize.Plan   `json:"files,omitempty"`
	Docs    *docgen.Output      `json:"docs,omitempty"`
	Install *installer.Result   `json:"install,omitempty"`

	PackageJSON string   `json:"packageJson,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	Err         string   `json:"error,omitempty"`
	Elapsed     string   `json:"elapsed,omitempty"`
}

// Succeeded reports whether the run completed, warnings included.
func (r *Report) Succeeded() bool {
	return r.Outcome == OutcomeSucceeded || r.Outcome == OutcomeWarnings
}

func (r *Report) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// finish settles the outcome from the collected warnings. Fatal paths set
// OutcomeFailed directly and never reach here.
func (r *Report) finish() {
	if len(r.Warnings) > 0 {
		r.Outcome = OutcomeWarnings
		return
	}
	r.Outcome = OutcomeSucceeded
}
