package discover

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
)

// fromSitemap reads the doc host's sitemap.xml, filters its URLs through the
// documentation heuristics and assembles the surviving pages.
func (e *Engine) fromSitemap(ctx context.Context, docURL string) (string, bool, error) {
	u, err := url.Parse(docURL)
	if err != nil || u.Host == "" {
		return "", false, nil
	}
	sitemapURL := u.Scheme + "://" + u.Host + "/sitemap.xml"

	res, err := e.render.Fetch(ctx, sitemapURL)
	if err != nil {
		return "", false, nil
	}
	locs, err := parseSitemapLocs(res.Body, e.cfg.MaxSitemapURLs)
	if err != nil || len(locs) == 0 {
		return "", false, err
	}

	candidates := filterDocURLs(locs, e.cfg.MaxSitemapURLs)
	if len(candidates) == 0 {
		return "", false, nil
	}
	return e.assemblePages(ctx, candidates)
}

// parseSitemapLocs extracts <loc> values from a urlset or sitemapindex
// document, up to max entries. Nested sitemap indexes are not followed.
func parseSitemapLocs(body []byte, max int) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var locs []string
	var inLoc bool
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inLoc = t.Name.Local == "loc"
		case xml.CharData:
			if inLoc {
				locs = append(locs, string(t))
				if len(locs) >= max {
					return locs, nil
				}
			}
		case xml.EndElement:
			inLoc = false
		}
	}
	if len(locs) == 0 {
		return nil, fmt.Errorf("discover: sitemap carried no loc entries")
	}
	return locs, nil
}
