package discover

import (
	"bytes"
	"context"
	"net/url"

	"golang.org/x/net/html"
)

// fromCrawl extracts same-host links from the known doc page and assembles
// the ones matching the documentation heuristics.
func (e *Engine) fromCrawl(ctx context.Context, docURL string) (string, bool, error) {
	base, err := url.Parse(docURL)
	if err != nil || base.Host == "" {
		return "", false, nil
	}

	res, err := e.render.Fetch(ctx, docURL)
	if err != nil {
		return "", false, err
	}

	// Only linked pages are assembled here; the root page alone is the
	// single-page tier's job.
	candidates := filterCrawlURLs(extractLinks(res.Body, base), e.cfg.MaxSitemapURLs)
	return e.assemblePages(ctx, candidates)
}

// extractLinks collects absolute same-host anchor targets from an HTML body,
// in document order, fragments stripped.
func extractLinks(body []byte, base *url.URL) []string {
	var out []string
	seen := make(map[string]bool)

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				ref, err := url.Parse(attr.Val)
				if err != nil {
					continue
				}
				abs := base.ResolveReference(ref)
				abs.Fragment = ""
				if abs.Host != base.Host || abs.Scheme != base.Scheme {
					continue
				}
				s := abs.String()
				if !seen[s] {
					seen[s] = true
					out = append(out, s)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}
