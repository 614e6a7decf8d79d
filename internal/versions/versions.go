// Package versions decides how two semver ranges for the same package are
// reconciled. All functions are pure: they take range strings as written in
// template manifests ("^18.2.0", "~4.17.0", ">=2.0.0") and return a typed
// resolution without touching the network or the filesystem.
package versions

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Strategy selects the policy applied when two templates disagree on a
// package's version range.
type Strategy string

const (
	// StrategySmart resolves known-compatible range pairs (same-major
	// carets, same-minor tildes, exact inside range) and falls back to
	// StrategyCompatible for everything else. This is the default.
	StrategySmart Strategy = "smart"

	// StrategyHighest picks the range with the greatest lower bound,
	// even across major versions.
	StrategyHighest Strategy = "highest"

	// StrategyLowest picks the range with the smallest lower bound.
	StrategyLowest Strategy = "lowest"

	// StrategyCompatible requires the ranges to overlap and picks the
	// narrower of the two.
	StrategyCompatible Strategy = "compatible"

	// StrategyManual never auto-resolves; every collision is surfaced
	// for the user to settle.
	StrategyManual Strategy = "manual"
)

// Strategies lists every valid strategy name for CLI help and validation.
var Strategies = []Strategy{
	StrategySmart,
	StrategyHighest,
	StrategyLowest,
	StrategyCompatible,
	StrategyManual,
}

// ParseStrategy validates a strategy name from flags or config.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Strategies {
		if s == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown conflict-resolution strategy %q (valid: smart, highest, lowest, compatible, manual)", name)
}

// Report strings carried in Resolution.Err. The merger keys off
// ErrInvalidSemver to downgrade a collision to a warning instead of a
// hard conflict.
const (
	ErrIncompatible   = "Incompatible versions"
	ErrManualRequired = "Manual resolution required"
	ErrInvalidSemver  = "Invalid semver versions"
)

// Resolution is the outcome of arbitrating two ranges. Exactly one of
// Version and Err is set.
type Resolution struct {
	Version string `json:"version,omitempty"`
	Err     string `json:"error,omitempty"`
}

// Resolved reports whether arbitration produced a usable range.
func (r Resolution) Resolved() bool {
	return r.Err == ""
}

// ValidRange reports whether r parses as a semver range.
func ValidRange(r string) bool {
	if _, err := lowerBound(r); err != nil {
		return false
	}
	_, err := semver.NewConstraint(r)
	return err == nil
}

// SatisfiableTogether reports whether the intersection of two ranges is
// non-empty. Both caret/tilde/exact and operator ranges describe upward
// intervals, so two ranges overlap exactly when either one admits the
// other's lower bound. Malformed ranges are never satisfiable.
func SatisfiableTogether(rangeA, rangeB string) bool {
	ca, err := semver.NewConstraint(rangeA)
	if err != nil {
		return false
	}
	cb, err := semver.NewConstraint(rangeB)
	if err != nil {
		return false
	}

	la, err := lowerBound(rangeA)
	if err != nil {
		return false
	}
	lb, err := lowerBound(rangeB)
	if err != nil {
		return false
	}

	return ca.Check(lb) || cb.Check(la)
}

// Resolve arbitrates two ranges under the given strategy. Malformed ranges
// on either side short-circuit to an ErrInvalidSemver result rather than
// panicking, and identical range strings resolve to themselves under every
// strategy, manual included.
func Resolve(rangeA, rangeB string, strategy Strategy) Resolution {
	a := strings.TrimSpace(rangeA)
	b := strings.TrimSpace(rangeB)

	la, errA := lowerBound(a)
	lb, errB := lowerBound(b)
	if errA != nil || errB != nil {
		return Resolution{Err: ErrInvalidSemver}
	}
	if _, err := semver.NewConstraint(a); err != nil {
		return Resolution{Err: ErrInvalidSemver}
	}
	if _, err := semver.NewConstraint(b); err != nil {
		return Resolution{Err: ErrInvalidSemver}
	}

	// Identical ranges agree with themselves under every strategy,
	// manual included.
	if a == b {
		return Resolution{Version: a}
	}

	switch strategy {
	case StrategyHighest:
		// Ties keep the first range.
		if lb.GreaterThan(la) {
			return Resolution{Version: b}
		}
		return Resolution{Version: a}

	case StrategyLowest:
		if lb.LessThan(la) {
			return Resolution{Version: b}
		}
		return Resolution{Version: a}

	case StrategyCompatible:
		return resolveCompatible(a, b, la, lb)

	case StrategyManual:
		return Resolution{Err: ErrManualRequired}

	default: // StrategySmart and anything unrecognized.
		return resolveSmart(a, b, la, lb)
	}
}

// resolveCompatible picks the narrower of two overlapping ranges.
func resolveCompatible(a, b string, la, lb *semver.Version) Resolution {
	if !SatisfiableTogether(a, b) {
		return Resolution{Err: ErrIncompatible}
	}
	return Resolution{Version: narrower(a, b, la, lb)}
}

// resolveSmart applies the known-compatible pair table, then falls back to
// compatible logic.
func resolveSmart(a, b string, la, lb *semver.Version) Resolution {
	// Two carets on the same major version: take the higher minor/patch.
	if isCaret(a) && isCaret(b) && la.Major() == lb.Major() {
		if lb.GreaterThan(la) {
			return Resolution{Version: b}
		}
		return Resolution{Version: a}
	}

	// Two tildes on the same major.minor: take the higher patch.
	if isTilde(a) && isTilde(b) && la.Major() == lb.Major() && la.Minor() == lb.Minor() {
		if lb.GreaterThan(la) {
			return Resolution{Version: b}
		}
		return Resolution{Version: a}
	}

	// An exact pin inside the other range wins: it is the narrowest
	// expression of what both sides accept.
	if isExact(a) && rangeAdmits(b, la) {
		return Resolution{Version: a}
	}
	if isExact(b) && rangeAdmits(a, lb) {
		return Resolution{Version: b}
	}

	return resolveCompatible(a, b, la, lb)
}

// narrower returns the more restrictive of two ranges: exact beats tilde
// beats caret beats open-operator ranges; within a class the higher lower
// bound is narrower. Ties keep the first range.
func narrower(a, b string, la, lb *semver.Version) string {
	classA, classB := rangeClass(a), rangeClass(b)
	if classA != classB {
		if classA < classB {
			return a
		}
		return b
	}
	if lb.GreaterThan(la) {
		return b
	}
	return a
}

// rangeClass orders range shapes from most to least restrictive.
func rangeClass(r string) int {
	switch {
	case isExact(r):
		return 0
	case isTilde(r):
		return 1
	case isCaret(r):
		return 2
	default:
		return 3
	}
}

func isCaret(r string) bool {
	return strings.HasPrefix(strings.TrimSpace(r), "^")
}

func isTilde(r string) bool {
	return strings.HasPrefix(strings.TrimSpace(r), "~")
}

// isExact reports whether the range is a plain pinned version, optionally
// prefixed with "v" or "=".
func isExact(r string) bool {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(r), "="), "v")
	_, err := semver.StrictNewVersion(trimmed)
	return err == nil
}

// rangeAdmits reports whether constraint r admits version v.
func rangeAdmits(r string, v *semver.Version) bool {
	c, err := semver.NewConstraint(r)
	if err != nil {
		return false
	}
	return c.Check(v)
}

// versionToken extracts the first version-shaped token from a range string.
// Wildcard segments (x, X, *) become zeros.
var versionToken = regexp.MustCompile(`(\d+|[xX*])(?:\.(\d+|[xX*]))?(?:\.(\d+|[xX*]))?(-[0-9A-Za-z.-]+)?`)

// lowerBound computes the minimum satisfiable version of a range. Strict
// ">" bounds are treated as inclusive; a bare wildcard means 0.0.0.
func lowerBound(r string) (*semver.Version, error) {
	trimmed := strings.TrimSpace(r)
	if trimmed == "" {
		return nil, fmt.Errorf("empty version range")
	}
	if trimmed == "*" || trimmed == "x" || trimmed == "X" || trimmed == "latest" {
		return semver.New(0, 0, 0, "", ""), nil
	}

	m := versionToken.FindStringSubmatch(trimmed)
	if m == nil {
		return nil, fmt.Errorf("no version in range %q", r)
	}

	normalized := fmt.Sprintf("%s.%s.%s", wildcardToZero(m[1]), wildcardToZero(m[2]), wildcardToZero(m[3]))
	if m[4] != "" {
		normalized += m[4]
	}

	v, err := semver.NewVersion(normalized)
	if err != nil {
		return nil, fmt.Errorf("parsing lower bound of %q: %w", r, err)
	}
	return v, nil
}

// wildcardToZero maps a missing or wildcard segment to "0".
func wildcardToZero(seg string) string {
	if seg == "" || seg == "x" || seg == "X" || seg == "*" {
		return "0"
	}
	return seg
}
