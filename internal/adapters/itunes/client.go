// internal/adapters/itunes/client.go
package itunes

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"review_lens/internal/adapters/observability"
	"review_lens/internal/domain"
)

const DefaultBaseURL = "https://itunes.apple.com"

type Client struct {
	base    string
	hc      *http.Client
	rl      *rate.Limiter
	retries int
}

type Option func(*Client)

// WithRetries sets how many extra attempts a 429/5xx/network failure gets.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

func New(base string, rps int, opts ...Option) (*Client, error) {
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	if rps <= 0 {
		rps = 5
	}
	c := &Client{
		base:    strings.TrimRight(base, "/"),
		hc:      &http.Client{Timeout: 20 * time.Second},
		rl:      rate.NewLimiter(rate.Limit(rps), rps),
		retries: 3,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

var _ domain.FeedClient = (*Client)(nil)

// ---- Public API ----

// GetReviewPage returns the raw entries of one customer-review feed page.
// The feed emits a bare object instead of an array when a page holds a single
// entry, and drops "entry" entirely when the page is empty; both are normalised.
func (c *Client) GetReviewPage(ctx context.Context, region, appID string, page int) ([]any, error) {
	u := fmt.Sprintf("%s/%s/rss/customerreviews/page=%d/id=%s/sortby=mostrecent/json",
		c.base, url.PathEscape(strings.ToLower(region)), page, url.PathEscape(appID))

	var out struct {
		Feed struct {
			Entry json.RawMessage `json:"entry"`
		} `json:"feed"`
	}
	if err := c.get(ctx, "reviews", u, &out); err != nil {
		return nil, err
	}
	return normalizeEntries(out.Feed.Entry)
}

// LookupApp returns the first lookup result for appID in region.
func (c *Client) LookupApp(ctx context.Context, appID, region string) (map[string]any, error) {
	q := url.Values{}
	q.Set("id", appID)
	q.Set("country", strings.ToLower(region))
	u := c.base + "/lookup?" + q.Encode()

	var out struct {
		Results []map[string]any `json:"results"`
	}
	if err := c.get(ctx, "lookup", u, &out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return nil, ErrNotFound
	}
	return out.Results[0], nil
}

// ---- Internals ----

var (
	ErrNotFound     = fmt.Errorf("itunes: %w", domain.ErrNotFound)
	ErrUnauthorized = fmt.Errorf("itunes: %w", domain.ErrUnauthorized)
	ErrForbidden    = fmt.Errorf("itunes: %w", domain.ErrForbidden)
)

func normalizeEntries(raw json.RawMessage) ([]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	switch raw[0] {
	case '[':
		var entries []any
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("decode feed entries: %w", err)
		}
		return entries, nil
	case '{':
		var entry map[string]any
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("decode feed entry: %w", err)
		}
		return []any{entry}, nil
	default:
		return nil, fmt.Errorf("unexpected feed entry payload %q", truncate(string(raw), 32))
	}
}

// get performs a GET with client-side rate limiting, bounded retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, endpoint, url string, out any) error {
	// client-side rate limiting
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i <= c.retries; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "review-lens/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("itunes", endpoint, 0, time.Since(start))
			// network error or context canceled
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < c.retries && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("itunes", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode %s response: %w", endpoint, err)
			}
			return nil

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("itunes: remote %d", resp.StatusCode)
			if i < c.retries && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("itunes: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	if lastErr == nil {
		lastErr = errors.New("itunes: no attempt made")
	}
	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay (200ms, 400ms, 800ms...) with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
