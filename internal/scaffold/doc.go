// Package scaffold generates starter template directories from embedded
// stubs. It powers the "stacksmith new" command, producing a manifest, a
// payload file, and a README a template author can edit into a real
// template. The generated manifest is validated against the schema so
// authors start from a known-good baseline.
package scaffold
