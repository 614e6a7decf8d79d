package manifest

import (
	"errors"
	"fmt"
)

// Sentinel errors for the loading failure taxonomy. Callers match with
// errors.Is; the wrapped message carries the template identity and detail.
var (
	// ErrManifestNotFound means no template.json (or template.yaml)
	// exists in the template directory.
	ErrManifestNotFound = errors.New("manifest not found")

	// ErrManifestInvalid means the manifest exists but fails schema
	// validation (missing or mis-typed required fields).
	ErrManifestInvalid = errors.New("manifest invalid")

	// ErrFileMissing means a file-map source path does not resolve to an
	// existing file under the template root.
	ErrFileMissing = errors.New("manifest file entry missing on disk")
)

// LoadError wraps one failed selection so LoadMany callers can report which
// template broke without losing the sentinel classification.
type LoadError struct {
	Selection Selection
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("template %s: %v", e.Selection.Key(), e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
