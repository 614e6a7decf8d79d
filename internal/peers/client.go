package peers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/stacksmith-labs/stacksmith/internal/branding"
)

// ErrNotFound marks a package the registry does not know about.
var ErrNotFound = errors.New("package not found in registry")

// Packument is the registry's per-package metadata document, in the
// abbreviated install format.
type Packument struct {
	Name     string                      `json:"name"`
	DistTags map[string]string           `json:"dist-tags"`
	Versions map[string]PackumentVersion `json:"versions"`
}

// PackumentVersion carries the peer metadata of one published version.
type PackumentVersion struct {
	Version              string              `json:"version"`
	PeerDependencies     map[string]string   `json:"peerDependencies"`
	PeerDependenciesMeta map[string]PeerMeta `json:"peerDependenciesMeta"`
}

// PeerMeta flags a peer dependency as optional.
type PeerMeta struct {
	Optional bool `json:"optional"`
}

// Client fetches packuments from an npm-compatible registry.
type Client struct {
	registryURL string
	httpClient  *http.Client
	userAgent   string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// NewClient creates a registry client for the given base URL.
func NewClient(registryURL string, opts ...ClientOption) *Client {
	c := &Client{
		registryURL: strings.TrimRight(registryURL, "/"),
		httpClient:  http.DefaultClient,
		userAgent:   branding.CLIName(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Packument fetches the metadata document for one package. Scoped names
// keep their "@" but have the scope separator percent-encoded, as the
// registry requires.
func (c *Client) Packument(ctx context.Context, name string) (*Packument, error) {
	reqURL := c.registryURL + "/" + url.PathEscape(name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.npm.install-v1+json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching packument: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var pack Packument
	if err := json.Unmarshal(body, &pack); err != nil {
		return nil, fmt.Errorf("parsing packument JSON: %w", err)
	}
	if pack.Name == "" {
		pack.Name = name
	}
	return &pack, nil
}

// Ping checks registry reachability via the npm ping endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.registryURL+"/-/ping", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pinging registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

// statusError preserves a non-OK registry status for retry classification.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("registry returned status %d", e.code)
}

// transientPatterns match error messages that indicate a failure worth
// retrying: DNS trouble, refused or dropped connections, timeouts.
var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"timeout",
	"timed out",
	"temporary failure",
	"tls handshake",
	"unexpected eof",
}

// transient reports whether an error is worth retrying. Server-side 5xx
// and 429 responses count; 4xx and malformed payloads do not.
func transient(err error) bool {
	if err == nil {
		return false
	}

	var se *statusError
	if errors.As(err, &se) {
		return se.code >= http.StatusInternalServerError || se.code == http.StatusTooManyRequests
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
