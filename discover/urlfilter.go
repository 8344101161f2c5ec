package discover

import (
	"net/url"
	"regexp"
	"strings"
)

// Path fragments that mark a URL as likely API documentation.
var includeFragments = []string{
	"/api/", "/apis/", "/reference", "/api-reference",
	"/developer", "/developers", "/endpoints", "/rest/", "/graphql",
	"/docs/api", "/documentation",
}

var versionSegment = regexp.MustCompile(`/v\d+([/.]|$)`)

// Path fragments that disqualify a URL regardless of includes.
var excludeFragments = []string{
	"/blog", "/pricing", "/changelog", "/careers", "/legal",
	"/privacy", "/terms", "/login", "/signup", "/signin", "/register",
	"/press", "/about", "/contact", "/status",
}

var assetExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".webp",
	".css", ".js", ".woff", ".woff2", ".ttf", ".zip", ".mp4", ".pdf",
}

// looksLikeDocPage reports whether a URL path matches the documentation
// heuristics.
func looksLikeDocPage(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	if isExcluded(path) {
		return false
	}
	for _, frag := range includeFragments {
		if strings.Contains(path, frag) {
			return true
		}
	}
	return versionSegment.MatchString(path)
}

func isExcluded(path string) bool {
	for _, ext := range assetExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	for _, frag := range excludeFragments {
		if strings.Contains(path, frag) {
			return true
		}
	}
	return false
}

// Fragments the crawl tier accepts on its loosened pass: a path merely
// hinting at documentation is enough once the strict pass kept nothing.
var looseDocFragments = []string{"doc", "api", "ref", "dev"}

// filterDocURLs keeps the candidates matching the strict documentation
// heuristics, deduplicated, in input order, up to max. A sitemap full of
// marketing pages yields nothing, letting the chain fall through.
func filterDocURLs(candidates []string, max int) []string {
	return selectURLs(candidates, max, looksLikeDocPage)
}

// filterCrawlURLs is the crawl-tier variant. When the strict pass keeps
// nothing, a loosened pass admits non-excluded links whose path hints at
// documentation, so sparsely structured doc sites still yield candidates.
func filterCrawlURLs(candidates []string, max int) []string {
	strict := filterDocURLs(candidates, max)
	if len(strict) > 0 {
		return strict
	}
	return selectURLs(candidates, max, func(raw string) bool {
		u, err := url.Parse(raw)
		if err != nil {
			return false
		}
		path := strings.ToLower(u.Path)
		if isExcluded(path) {
			return false
		}
		for _, frag := range looseDocFragments {
			if strings.Contains(path, frag) {
				return true
			}
		}
		return false
	})
}

func selectURLs(candidates []string, max int, keep func(string) bool) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range candidates {
		c = strings.TrimSuffix(strings.TrimSpace(c), "/")
		if c == "" || seen[c] || !keep(c) {
			continue
		}
		seen[c] = true
		out = append(out, c)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}
