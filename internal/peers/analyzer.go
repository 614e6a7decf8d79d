package peers

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/lo"

	"github.com/stacksmith-labs/stacksmith/internal/depmerge"
	"github.com/stacksmith-labs/stacksmith/internal/versions"
)

// Lookup sources recorded on a Record.
const (
	SourceRegistry = "registry"
	SourceCache    = "cache"
	SourceFallback = "fallback"
)

// Finding kinds.
const (
	KindVersionMismatch = "version_mismatch"
	KindMissingPeer     = "missing_peer"
)

// Finding severities. Purely informational; no severity blocks a run.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Record is the peer metadata resolved for one merged package. A fallback
// record has an empty peer set and marks a lookup that could not be
// completed.
type Record struct {
	Name          string            `json:"name"`
	Version       string            `json:"version,omitempty"`
	Peers         map[string]string `json:"peers"`
	OptionalPeers map[string]bool   `json:"optionalPeers,omitempty"`
	Source        string            `json:"source"`
}

// Finding is one detected peer problem: a peer that is missing from the
// merged set, or present at a range the declaring package does not accept.
type Finding struct {
	Kind     string `json:"kind"`
	Package  string `json:"package"`
	Peer     string `json:"peer"`
	Declared string `json:"declaredRange"`
	Actual   string `json:"actualRange,omitempty"`
	Severity string `json:"severity"`
	Optional bool   `json:"optional,omitempty"`
}

// Report is the outcome of analyzing one merged set. Records appear in
// merged-set order; findings follow record order with peers sorted by
// name, so repeated runs report identically.
type Report struct {
	Records       []*Record `json:"records"`
	Findings      []Finding `json:"findings"`
	RejectedNames []string  `json:"rejectedNames,omitempty"`
	Fallbacks     int       `json:"fallbacks"`
}

// Degraded reports whether any lookup fell back or was rejected.
func (r *Report) Degraded() bool {
	return r.Fallbacks > 0 || len(r.RejectedNames) > 0
}

// CountBySeverity tallies findings at one severity level.
func (r *Report) CountBySeverity(severity string) int {
	return lo.CountBy(r.Findings, func(f Finding) bool { return f.Severity == severity })
}

// Options bound one analysis run. Retries counts additional attempts
// after the first; Timeout applies per attempt.
type Options struct {
	Offline bool
	Retries int
	Timeout time.Duration
}

// Analyzer resolves peer metadata for merged packages and detects peer
// conflicts. Safe for concurrent use.
type Analyzer struct {
	client *Client
	cache  *Cache

	mu     sync.Mutex
	memory map[string]*Record
}

// NewAnalyzer creates an Analyzer. cache may be nil to disable the
// on-disk layer.
func NewAnalyzer(client *Client, cache *Cache) *Analyzer {
	return &Analyzer{
		client: client,
		cache:  cache,
		memory: make(map[string]*Record),
	}
}

// packageNameRE is deliberately conservative: lowercase names, optionally
// scoped, no spaces or shell metacharacters.
var packageNameRE = regexp.MustCompile(`^[a-z0-9@][a-z0-9._/-]*$`)

const maxPackageNameLen = 214

func validName(name string) bool {
	return len(name) > 0 && len(name) <= maxPackageNameLen && packageNameRE.MatchString(name)
}

// Analyze resolves a record for every package in the merged set and
// detects peer conflicts against it. Malformed package names are rejected
// before any network call and counted separately from lookup fallbacks.
// The batch always completes: no single lookup failure aborts it.
func (a *Analyzer) Analyze(ctx context.Context, set *depmerge.MergedSet, opts Options) *Report {
	report := &Report{
		Records:  []*Record{},
		Findings: []Finding{},
	}

	for _, name := range set.PackageNames() {
		if !validName(name) {
			slog.Warn("rejecting malformed package name", "package", name)
			report.RejectedNames = append(report.RejectedNames, name)
			report.Records = append(report.Records, &Record{
				Name:   name,
				Peers:  map[string]string{},
				Source: SourceFallback,
			})
			continue
		}

		rng, _ := set.Range(name)
		rec := a.lookup(ctx, name, rng, opts)
		if rec.Source == SourceFallback {
			report.Fallbacks++
		}
		report.Records = append(report.Records, rec)
	}

	detectFindings(report, set)
	return report
}

// lookup walks the cache hierarchy for one package: memory, disk, then
// the live registry. Any failure past the caches produces a fallback
// record.
func (a *Analyzer) lookup(ctx context.Context, name, rng string, opts Options) *Record {
	key := cacheKey(name, rng)

	a.mu.Lock()
	if rec, ok := a.memory[key]; ok {
		a.mu.Unlock()
		return rec
	}
	a.mu.Unlock()

	if a.cache != nil {
		if rec, ok := a.cache.Get(name, rng); ok {
			a.remember(key, rec)
			return rec
		}
	}

	if opts.Offline {
		slog.Debug("offline, no cached peer info", "package", name)
		return a.fallback(key, name)
	}

	rec, err := a.fetch(ctx, name, rng, opts)
	if err != nil {
		slog.Warn("peer lookup degraded to fallback", "package", name, "error", err)
		return a.fallback(key, name)
	}

	if a.cache != nil {
		if err := a.cache.Put(name, rng, rec); err != nil {
			slog.Debug("persisting peer cache", "package", name, "error", err)
		}
	}
	a.remember(key, rec)
	return rec
}

// retryBaseDelay is the first backoff interval; each further attempt
// doubles it. Variable so tests can shorten it.
var retryBaseDelay = 500 * time.Millisecond

// fetch queries the registry with bounded retries and exponential
// backoff. Non-transient errors and cancellation stop the attempts early.
func (a *Analyzer) fetch(ctx context.Context, name, rng string, opts Options) (*Record, error) {
	attempts := opts.Retries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
			slog.Debug("retrying peer lookup", "package", name, "attempt", attempt+1)
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if opts.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		}
		pack, err := a.client.Packument(attemptCtx, name)
		cancel()

		if err == nil {
			return recordFromPackument(pack, rng), nil
		}
		lastErr = err
		if !transient(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func sleepBackoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(retryBaseDelay << (attempt - 1))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (a *Analyzer) remember(key string, rec *Record) {
	a.mu.Lock()
	a.memory[key] = rec
	a.mu.Unlock()
}

func (a *Analyzer) fallback(key, name string) *Record {
	rec := &Record{
		Name:   name,
		Peers:  map[string]string{},
		Source: SourceFallback,
	}
	a.remember(key, rec)
	return rec
}

// recordFromPackument extracts the peer metadata of the version that best
// matches the merged range.
func recordFromPackument(p *Packument, rng string) *Record {
	version, meta := pickVersion(p, rng)

	peers := make(map[string]string, len(meta.PeerDependencies))
	for peer, declared := range meta.PeerDependencies {
		peers[peer] = declared
	}

	rec := &Record{
		Name:    p.Name,
		Version: version,
		Peers:   peers,
		Source:  SourceRegistry,
	}

	optional := map[string]bool{}
	for peer, pm := range meta.PeerDependenciesMeta {
		if pm.Optional {
			optional[peer] = true
		}
	}
	if len(optional) > 0 {
		rec.OptionalPeers = optional
	}
	return rec
}

// pickVersion chooses the highest published version satisfying the merged
// range, falling back to the latest dist-tag and then the highest version
// overall.
func pickVersion(p *Packument, rng string) (string, PackumentVersion) {
	parsed := make([]*semver.Version, 0, len(p.Versions))
	for raw := range p.Versions {
		if v, err := semver.NewVersion(raw); err == nil {
			parsed = append(parsed, v)
		}
	}
	sort.Sort(semver.Collection(parsed))

	if c, err := semver.NewConstraint(rng); err == nil {
		for i := len(parsed) - 1; i >= 0; i-- {
			if c.Check(parsed[i]) {
				raw := parsed[i].Original()
				return raw, p.Versions[raw]
			}
		}
	}

	if latest := p.DistTags["latest"]; latest != "" {
		if meta, ok := p.Versions[latest]; ok {
			return latest, meta
		}
	}

	if len(parsed) > 0 {
		raw := parsed[len(parsed)-1].Original()
		return raw, p.Versions[raw]
	}
	return "", PackumentVersion{}
}

// detectFindings checks every record's declared peers against the merged
// set. Peers are visited in sorted order for stable reports.
func detectFindings(report *Report, set *depmerge.MergedSet) {
	for _, rec := range report.Records {
		peerNames := make([]string, 0, len(rec.Peers))
		for peer := range rec.Peers {
			peerNames = append(peerNames, peer)
		}
		sort.Strings(peerNames)

		for _, peer := range peerNames {
			declared := rec.Peers[peer]
			optional := rec.OptionalPeers[peer]

			actual, present := set.Range(peer)
			if !present {
				report.Findings = append(report.Findings, Finding{
					Kind:     KindMissingPeer,
					Package:  rec.Name,
					Peer:     peer,
					Declared: declared,
					Severity: severityFor(optional),
					Optional: optional,
				})
				continue
			}

			// An unparseable range on either side cannot be checked;
			// report it at low severity instead of guessing.
			if !versions.ValidRange(declared) || !versions.ValidRange(actual) {
				report.Findings = append(report.Findings, Finding{
					Kind:     KindVersionMismatch,
					Package:  rec.Name,
					Peer:     peer,
					Declared: declared,
					Actual:   actual,
					Severity: SeverityLow,
					Optional: optional,
				})
				continue
			}

			if !versions.SatisfiableTogether(declared, actual) {
				report.Findings = append(report.Findings, Finding{
					Kind:     KindVersionMismatch,
					Package:  rec.Name,
					Peer:     peer,
					Declared: declared,
					Actual:   actual,
					Severity: severityFor(optional),
					Optional: optional,
				})
			}
		}
	}
}

// severityFor grades a finding: required peers are high, optional peers
// medium.
func severityFor(optional bool) string {
	if optional {
		return SeverityMedium
	}
	return SeverityHigh
}
