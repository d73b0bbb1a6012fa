// Package search provides a web search client backed by DuckDuckGo's HTML
// result page. Results are scraped, unwrapped from redirect links, and
// returned as a capped, deduplicated URL list.
package search

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/brandlens/brandlens/internal/urlutil"
)

const (
	defaultBaseURL   = "https://html.duckduckgo.com/html/"
	defaultUserAgent = "Mozilla/5.0 (compatible; BrandLensBot/1.0)"
	engineHost       = "duckduckgo.com"

	// maxResults caps how many candidate URLs one search returns.
	maxResults = 10
)

// Client executes a single web search query and returns candidate URLs.
type Client interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the search result page URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithLimiter overrides the default 1 QPS rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

type httpClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// NewClient creates a DuckDuckGo search client. The default limiter allows
// one query per second; scraping faster gets the client blocked.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var hrefRe = regexp.MustCompile(`href=["']([^"']+)["']`)

// Search issues one GET against the result page and extracts candidate
// URLs from href attributes. Redirect wrappers are decoded back to their
// targets; links to the engine's own domain are dropped. The result is
// deduplicated in page order and truncated to the first 10.
func (c *httpClient) Search(ctx context.Context, query string) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, eris.New("search: empty query")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "search: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, eris.Wrap(err, "search: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "search: fetch results")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("search: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, eris.Wrap(err, "search: read body")
	}

	return extractResults(string(body)), nil
}

// extractResults pulls candidate URLs from raw result-page HTML.
func extractResults(html string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range hrefRe.FindAllStringSubmatch(html, -1) {
		link := normalizeLink(m[1])
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		out = append(out, link)
		if len(out) >= maxResults {
			break
		}
	}
	return out
}

// normalizeLink resolves a raw href into a candidate URL, or "" if the
// link is not an http/https result. Scheme-relative links are promoted to
// https before inspection. Redirect wrappers resolve to their target; a
// wrapper whose target cannot be decoded is kept verbatim as a fallback
// candidate. Plain links on the engine's own domain are dropped.
func normalizeLink(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		return ""
	}
	if isRedirectWrapper(href) {
		target, ok := decodeRedirect(href)
		if !ok {
			return href
		}
		href = target
	}
	host := urlutil.HostOf(href)
	if host == engineHost || strings.HasSuffix(host, "."+engineHost) {
		return ""
	}
	return href
}

// isRedirectWrapper reports whether href looks like the engine's
// /l/?uddg=<target> redirect link.
func isRedirectWrapper(href string) bool {
	parsed, err := url.Parse(href)
	if err != nil {
		return false
	}
	host := urlutil.HostOf(href)
	if host != engineHost && !strings.HasSuffix(host, "."+engineHost) {
		return false
	}
	if !strings.HasSuffix(parsed.Path, "/l/") && parsed.Path != "/l" {
		return false
	}
	return strings.Contains(parsed.RawQuery, "uddg=")
}

// decodeRedirect recovers the wrapped target URL from a redirect link.
func decodeRedirect(href string) (string, bool) {
	parsed, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	target := parsed.Query().Get("uddg")
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return "", false
	}
	return target, true
}
