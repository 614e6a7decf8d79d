// Package updater checks GitHub Releases for a newer stacksmith version.
// Results are cached for a day in the config directory and surface as a
// non-blocking startup banner. The binary itself is never replaced: the CLI
// ships through package managers, so an available update only prints
// upgrade instructions.
package updater
