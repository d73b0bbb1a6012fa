// Package urlutil extracts, normalizes, and classifies URLs found in
// generated answers and search results.
package urlutil

import (
	"net/url"
	"regexp"
	"strings"
)

// urlRe matches an http/https URL token. Closing brackets and angle
// brackets terminate a token so URLs inside markdown links stay clean.
var urlRe = regexp.MustCompile(`https?://[^\s)>\]]+`)

// trailingPunct is stripped from the end of extracted URL tokens.
const trailingPunct = ".,;:!?"

// ExtractURLs scans text for http/https URLs, strips trailing punctuation,
// and returns them deduplicated in first-occurrence order.
func ExtractURLs(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range urlRe.FindAllString(text, -1) {
		u := strings.TrimRight(m, trailingPunct)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// HostOf returns the lowercase hostname of rawURL with any leading "www."
// and leading dots stripped. Unparseable input yields "" rather than an
// error so callers can treat classification as total.
func HostOf(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return strings.TrimLeft(host, ".")
}

// IsOwned reports whether host is the brand host itself or one of its
// subdomains. Either operand being empty forces false.
func IsOwned(host, brandHost string) bool {
	if host == "" || brandHost == "" {
		return false
	}
	return host == brandHost || strings.HasSuffix(host, "."+brandHost)
}

// PartitionOwned splits urls into brand-owned and external lists, both
// deduplicated and in first-seen order. This is the single classification
// point: every downstream owned/external split goes through here.
func PartitionOwned(urls []string, brandSiteURL string) (owned, external []string) {
	brandHost := HostOf(brandSiteURL)
	seen := make(map[string]bool)
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		if IsOwned(HostOf(u), brandHost) {
			owned = append(owned, u)
		} else {
			external = append(external, u)
		}
	}
	return owned, external
}

// ExtractMentions returns every case-sensitive whole-word occurrence of
// brand in text, one entry per occurrence. It is an occurrence list, not a
// set; duplicates are expected. An empty brand yields nil.
func ExtractMentions(text, brand string) []string {
	if brand == "" {
		return nil
	}
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(brand) + `\b`)
	if err != nil {
		return nil
	}
	return re.FindAllString(text, -1)
}
