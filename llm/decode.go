package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON parses model output into v. Models occasionally wrap JSON in
// prose or markdown fences; when direct parsing fails, the first
// brace-delimited (or bracket-delimited) region is extracted and retried
// before giving up with ErrMalformedOutput.
func DecodeJSON(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: empty response", ErrMalformedOutput)
	}

	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	if inner, ok := extractDelimited(raw, '{', '}'); ok {
		if err := json.Unmarshal([]byte(inner), v); err == nil {
			return nil
		}
	}
	if inner, ok := extractDelimited(raw, '[', ']'); ok {
		if err := json.Unmarshal([]byte(inner), v); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: no parseable JSON in %d bytes", ErrMalformedOutput, len(raw))
}

// extractDelimited returns the substring from the first open delimiter to the
// matching last close delimiter.
func extractDelimited(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
