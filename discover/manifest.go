package discover

import (
	"context"
	"strings"

	"github.com/hazyhaar/apimart/webfetch"
)

// manifestPaths in preference order. llms-full.txt inlines the whole corpus;
// llms.txt is the shorter index variant.
var manifestPaths = []string{"/llms-full.txt", "/llms.txt"}

// fromManifests probes the candidate hosts for llms.txt-style manifests. A
// probe counts only when the response is plain text of a plausible size;
// HTML means a soft-404 or a redirect to the homepage.
func (e *Engine) fromManifests(ctx context.Context, docURL, website string) (string, bool, error) {
	for _, base := range baseHosts(docURL, website) {
		for _, path := range manifestPaths {
			u := base + path
			res, err := e.render.Fetch(ctx, u)
			if err != nil {
				continue
			}
			if webfetch.IsHTML(res.ContentType, res.Body) {
				continue
			}
			body := strings.TrimSpace(string(res.Body))
			if len(body) < e.cfg.MinCorpusChars {
				continue
			}
			e.cfg.Logger.DebugContext(ctx, "manifest found", "url", u, "chars", len(body))
			return body, true, nil
		}
	}
	return "", false, nil
}
