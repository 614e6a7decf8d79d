package updater

import (
	"net/http"
	"time"
)

// Release is the subset of a GitHub release the CLI cares about.
type Release struct {
	Version   string    `json:"tag_name"`
	Name      string    `json:"name"`
	Notes     string    `json:"body"`
	Published time.Time `json:"published_at"`
	HTMLURL   string    `json:"html_url"`
}

// Updater answers "is a newer release out?" for one current version.
type Updater struct {
	currentVersion string
	httpClient     *http.Client
	apiBase        string
}

// Option configures an Updater.
type Option func(*Updater)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(u *Updater) {
		u.httpClient = c
	}
}

// WithAPIBase points the updater at a different API host (useful for
// testing and GitHub Enterprise mirrors).
func WithAPIBase(base string) Option {
	return func(u *Updater) {
		u.apiBase = base
	}
}

// New creates an Updater for the given current version.
func New(currentVersion string, opts ...Option) *Updater {
	u := &Updater{
		currentVersion: currentVersion,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		apiBase:        githubAPIBase,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// CurrentVersion returns the version this updater was created with.
func (u *Updater) CurrentVersion() string {
	return u.currentVersion
}
