// Package snippet reduces a fetched web page to a small, size-capped text
// excerpt suitable for inclusion in a generation prompt.
package snippet

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; BrandLensBot/1.0)"

// Fetcher retrieves a URL and reduces its content to a capped snippet.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string, maxChars int) (string, error)
}

// Option configures the fetcher.
type Option func(*httpFetcher)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *httpFetcher) {
		f.http = hc
	}
}

type httpFetcher struct {
	userAgent string
	http      *http.Client
}

// NewFetcher creates a snippet fetcher with sensible defaults.
func NewFetcher(opts ...Option) Fetcher {
	f := &httpFetcher{
		userAgent: defaultUserAgent,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch GETs targetURL and extracts, in priority order, the page title,
// the meta description, and (only when no description exists) a crude
// tag-stripped body excerpt. Each populated part is labelled and the
// whole snippet is hard-truncated to maxChars.
func (f *httpFetcher) Fetch(ctx context.Context, targetURL string, maxChars int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "snippet: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "snippet: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", eris.Errorf("snippet: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return "", eris.Wrap(err, "snippet: read body")
	}

	return Reduce(string(body), maxChars), nil
}

var (
	titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	descRe  = regexp.MustCompile(`(?is)<meta[^>]+name=["']description["'][^>]*content=["']([^"']*)["']`)
	// Some pages put content before name.
	descRe2 = regexp.MustCompile(`(?is)<meta[^>]+content=["']([^"']*)["'][^>]*name=["']description["']`)
)

// Reduce converts raw HTML into a labelled TITLE/DESCRIPTION/BODY snippet
// capped at maxChars. Entities are decoded before the cap applies.
func Reduce(html string, maxChars int) string {
	var parts []string

	if title := matchFirst(titleRe, html); title != "" {
		parts = append(parts, "TITLE: "+title)
	}

	desc := matchFirst(descRe, html)
	if desc == "" {
		desc = matchFirst(descRe2, html)
	}
	if desc != "" {
		parts = append(parts, "DESCRIPTION: "+desc)
	} else if body := truncate(stripHTML(html), maxChars); body != "" {
		parts = append(parts, "BODY: "+body)
	}

	return truncate(strings.Join(parts, "\n"), maxChars)
}

func matchFirst(re *regexp.Regexp, html string) string {
	m := re.FindStringSubmatch(html)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(decodeEntities(m[1]))
}

// truncate hard-caps s at max runes.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// stripHTML removes script/style blocks, strips tags, decodes entities,
// and collapses whitespace into single spaces.
func stripHTML(html string) string {
	for _, tag := range []string{"script", "style", "noscript"} {
		re := regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
		html = re.ReplaceAllString(html, "")
	}

	tagRe := regexp.MustCompile(`<[^>]+>`)
	html = tagRe.ReplaceAllString(html, " ")

	html = decodeEntities(html)

	spaceRe := regexp.MustCompile(`\s+`)
	html = spaceRe.ReplaceAllString(html, " ")

	return strings.TrimSpace(html)
}

// decodeEntities replaces common HTML entities with their literal characters.
func decodeEntities(s string) string {
	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&apos;", "'",
		"&nbsp;", " ",
	)
	return r.Replace(s)
}
