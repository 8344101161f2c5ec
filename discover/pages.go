package discover

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/apimart/llm"
)

// assemblePages narrows a candidate list, fetches the surviving pages in
// parallel and joins them into one corpus. Individual page failures are
// dropped, not fatal.
func (e *Engine) assemblePages(ctx context.Context, candidates []string) (string, bool, error) {
	if len(candidates) == 0 {
		return "", false, nil
	}
	if len(candidates) > e.cfg.PickThreshold {
		candidates = e.pickPages(ctx, candidates)
	}
	if len(candidates) > e.cfg.MaxPages {
		candidates = candidates[:e.cfg.MaxPages]
	}

	pages := make([]string, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, u := range candidates {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, e.cfg.PageTimeout)
			defer cancel()
			md, err := e.render.RenderToMarkdown(pctx, u)
			if err != nil {
				e.cfg.Logger.DebugContext(ctx, "doc page skipped", "url", u, "error", err)
				return nil
			}
			if len(md) < e.cfg.MinPageChars {
				return nil
			}
			pages[i] = fmt.Sprintf("---\nSource: %s\n---\n\n%s", u, md)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", false, err
	}

	var kept []string
	for _, p := range pages {
		if p != "" {
			kept = append(kept, p)
		}
	}
	corpus := strings.Join(kept, "\n\n")
	if len(corpus) < e.cfg.MinCorpusChars {
		return "", false, nil
	}
	return corpus, true, nil
}

// pickPages asks the LLM to choose the candidates most likely to document
// API endpoints. Any failure falls back to the head of the list.
func (e *Engine) pickPages(ctx context.Context, candidates []string) []string {
	if e.llm == nil {
		return candidates[:min(len(candidates), e.cfg.MaxPages)]
	}

	var b strings.Builder
	for i, u := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i, u)
	}
	system := fmt.Sprintf("You select API reference pages from a URL list. "+
		"Return only a JSON array of 5 to %d integers, the indexes of the URLs "+
		"most likely to document API endpoints (methods, paths, parameters). "+
		"Prefer reference pages over guides and tutorials.", e.cfg.MaxPages)

	raw, err := e.llm.CompleteJSON(ctx, system, b.String(), 256)
	if err != nil {
		e.cfg.Logger.WarnContext(ctx, "page picker failed, using list head", "error", err)
		return candidates[:min(len(candidates), e.cfg.MaxPages)]
	}
	var idx []int
	if err := llm.DecodeJSON(raw, &idx); err != nil {
		e.cfg.Logger.WarnContext(ctx, "page picker output malformed, using list head", "error", err)
		return candidates[:min(len(candidates), e.cfg.MaxPages)]
	}

	var picked []string
	seen := make(map[int]bool)
	for _, i := range idx {
		if i < 0 || i >= len(candidates) || seen[i] {
			continue
		}
		seen[i] = true
		picked = append(picked, candidates[i])
		if len(picked) >= e.cfg.MaxPages {
			break
		}
	}
	if len(picked) == 0 {
		return candidates[:min(len(candidates), e.cfg.MaxPages)]
	}
	return picked
}
