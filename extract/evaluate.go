package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/apimart/cache"
	"github.com/hazyhaar/apimart/catalog"
	"github.com/hazyhaar/apimart/llm"
	"github.com/hazyhaar/apimart/webfetch"
)

const evaluateSystem = `You write integration evaluations for developers
choosing an API. Blend the supplied documentation, which may be incomplete,
with your background knowledge of the named API.
Return only a JSON object:
{"purpose": one-line purpose,
"auth": {"method": string, "details": string},
"pricing": {"model": string, "free_tier": boolean, "details": string},
"rate_limits": {"description": string, "recommendation": one concrete actionable recommendation},
"sdks": [official SDK identifiers],
"gotchas": [concrete actionable pitfalls, not generic warnings],
"best_for": one sentence naming the best use case,
"alternatives": [2 to 4 competitor domains]}`

// Evaluate returns the integration evaluation for an API, deriving the
// corpus through discovery when markdown is empty. A nil result with nil
// error means evaluation was not possible; only successes are cached, so
// failures retry on the next call.
func (e *Engine) Evaluate(ctx context.Context, api *catalog.ApiRecord, markdown, docURL string) (*Evaluation, error) {
	if e.llm == nil {
		return nil, nil
	}
	key := cache.EvaluationKey(api.ID)
	if e.cache != nil {
		if raw, found, err := e.cache.Get(ctx, key); err == nil && found {
			var cached Evaluation
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	if markdown == "" {
		if docs, err := e.discover.Discover(ctx, api, docURL); err == nil {
			markdown = docs.Markdown
		}
		// Discovery failure is fine here; background knowledge alone can
		// still produce an evaluation.
	}

	user := fmt.Sprintf("API: %s (%s)\nDocumentation URL: %s\n\nDocumentation:\n\n%s",
		api.Title, api.ID, docURL, webfetch.Truncate(markdown, e.cfg.CharBudget))

	raw, err := e.llm.CompleteJSON(ctx, evaluateSystem, user, e.cfg.EvalMaxTokens)
	if err != nil {
		e.cfg.Logger.WarnContext(ctx, "evaluation failed", "api", api.ID, "error", err)
		return nil, nil
	}
	var eval Evaluation
	if err := llm.DecodeJSON(raw, &eval); err != nil {
		e.cfg.Logger.WarnContext(ctx, "evaluation output malformed", "api", api.ID, "error", err)
		return nil, nil
	}
	if eval.SDKs == nil {
		eval.SDKs = []string{}
	}
	if eval.Gotchas == nil {
		eval.Gotchas = []string{}
	}
	if eval.Alternatives == nil {
		eval.Alternatives = []string{}
	}

	if e.cache != nil {
		if blob, err := json.Marshal(&eval); err == nil {
			cache.SetBestEffort(ctx, e.cache, e.cfg.Logger, key, string(blob), cache.TTLEvaluation)
		}
	}
	return &eval, nil
}
