package zotero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.LibraryClient = (*Client)(nil)

const (
	// DefaultBaseURL is the public Zotero API endpoint.
	DefaultBaseURL = "https://api.zotero.org"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// APIVersion is sent with every request.
	APIVersion = "3"

	// PageSize is the largest page the API serves.
	PageSize = 100

	// HeaderTotalResults carries the size of a paginated listing.
	HeaderTotalResults = "Total-Results"

	// HeaderLastModifiedVersion carries the library version after a write.
	HeaderLastModifiedVersion = "Last-Modified-Version"

	// HeaderIfUnmodifiedSinceVersion guards writes against concurrent edits.
	HeaderIfUnmodifiedSinceVersion = "If-Unmodified-Since-Version"
)

// Config identifies a Zotero library.
type Config struct {
	BaseURL string

	// LibraryType is "user" or "group".
	LibraryType string

	LibraryID string
	APIKey    string
}

// ConfigFromSettings converts library settings to a client config.
func ConfigFromSettings(s domain.LibrarySettings) Config {
	return Config{
		BaseURL:     s.BaseURL,
		LibraryType: s.Type,
		LibraryID:   s.ID,
		APIKey:      s.APIKey,
	}
}

// Client is a Zotero Web API client scoped to one library.
type Client struct {
	baseURL string
	prefix  string

	// api authenticates every request and never follows redirects, so the
	// API key is not forwarded to storage hosts.
	api *http.Client

	// files is unauthenticated and used for upload targets and download
	// redirects.
	files *http.Client

	rateLimiter *RateLimiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Its transport is also
// used beneath the authenticating transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.files = hc
	}
}

// WithRateLimiter replaces the default rate limiter.
func WithRateLimiter(r *RateLimiter) Option {
	return func(c *Client) {
		c.rateLimiter = r
	}
}

// NewClient creates a client for the library described by cfg.
func NewClient(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if cfg.LibraryID == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: library id and api key are required", domain.ErrInvalidInput)
	}

	var kind string
	switch cfg.LibraryType {
	case "", "user":
		kind = "users"
	case "group":
		kind = "groups"
	default:
		return nil, fmt.Errorf("%w: library type %q", domain.ErrInvalidInput, cfg.LibraryType)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:     baseURL,
		prefix:      "/" + kind + "/" + url.PathEscape(cfg.LibraryID),
		files:       &http.Client{Timeout: DefaultTimeout},
		rateLimiter: NewRateLimiter(),
	}
	for _, opt := range opts {
		opt(c)
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.APIKey},
	)
	tc := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.files), ts)
	tc.Timeout = DefaultTimeout
	tc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	c.api = tc

	return c, nil
}

// RateLimiter returns the rate limiter for external access.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// libraryPath joins elems below the library prefix.
func (c *Client) libraryPath(elems ...string) string {
	var b strings.Builder
	b.WriteString(c.prefix)
	for _, e := range elems {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(e))
	}
	return b.String()
}

func (c *Client) newRequest(
	ctx context.Context, method, path string, query url.Values, body io.Reader,
) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Zotero-API-Version", APIVersion)
	return req, nil
}

// do sends an authenticated request. Responses with status >= 400 are
// returned as errors with the body drained.
func (c *Client) do(req *http.Request, operation string) (*http.Response, error) {
	if err := c.rateLimiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := c.api.Do(req)
	if err != nil {
		return nil, wrapTransportError(err, operation)
	}
	c.rateLimiter.UpdateFromResponse(resp)

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", operation, newAPIError(resp))
	}
	return resp, nil
}

// getJSON decodes a GET response into out and returns its headers.
func (c *Client) getJSON(
	ctx context.Context, path string, query url.Values, out any, operation string,
) (http.Header, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req, operation)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", operation, err)
	}
	return resp.Header, nil
}

// sendJSON encodes body and decodes the response into out when out is non-nil.
func (c *Client) sendJSON(
	ctx context.Context, method, path string, body any, header http.Header, out any, operation string,
) (http.Header, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", operation, err)
	}
	req, err := c.newRequest(ctx, method, path, nil, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.do(req, operation)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("%s: decode response: %w", operation, err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.Header, nil
}
