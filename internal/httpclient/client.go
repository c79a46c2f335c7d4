// Package httpclient wraps net/http with response caching, rate
// limiting, and conditional revalidation for feed requests.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/everstacklabs/blocksmith/internal/cache"
)

const defaultUserAgent = "blocksmith"

// Client is an HTTP client with optional caching and rate limiting.
type Client struct {
	http      *http.Client
	store     *cache.Store
	limiter   *rate.Limiter
	userAgent string
	noCache   bool
}

// Option configures the Client.
type Option func(*Client)

// WithCache enables on-disk response caching.
func WithCache(s *cache.Store) Option {
	return func(c *Client) { c.store = s }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithNoCache bypasses the cache even when one is configured.
func WithNoCache() Option {
	return func(c *Client) { c.noCache = true }
}

// WithTimeout overrides the default 30s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New builds a client from options.
func New(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: 30 * time.Second},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response carries a response body and where it came from.
type Response struct {
	Body       []byte
	StatusCode int
	FromCache  bool
}

// Get performs a GET, consulting the cache first. A stale cache entry
// turns into a conditional request so an unchanged feed costs only a
// 304.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var stale *cache.Entry
	if c.store != nil && !c.noCache {
		entry, fresh := c.store.Get(url)
		if fresh {
			return &Response{Body: entry.Body, StatusCode: entry.Status, FromCache: true}, nil
		}
		stale = entry
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if stale != nil {
		if stale.ETag != "" {
			req.Header.Set("If-None-Match", stale.ETag)
		}
		if stale.LastModified != "" {
			req.Header.Set("If-Modified-Since", stale.LastModified)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	// Not modified: the stale body is still current, refresh its TTL.
	if resp.StatusCode == http.StatusNotModified && stale != nil {
		if c.store != nil {
			_ = c.store.Set(url, stale)
		}
		return &Response{Body: stale.Body, StatusCode: stale.Status, FromCache: true}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode, snippet(body))
	}

	if c.store != nil && !c.noCache {
		_ = c.store.Set(url, &cache.Entry{
			Body:         body,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			Status:       resp.StatusCode,
		})
	}

	return &Response{Body: body, StatusCode: resp.StatusCode}, nil
}

// snippet trims error bodies so a failed request does not dump an
// entire HTML page into the log.
func snippet(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
