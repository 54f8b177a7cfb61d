package llm

import (
	"context"
	"errors"
	"strings"
)

// Generator is the text-generation collaborator. Implementations may fail
// with rate-limit, timeout, or malformed-response errors; callers are
// expected to treat those as data scoped to the call, not as run-fatal.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Error classification used by the retry policy.
var (
	// ErrRateLimited marks a quota or rate-limit rejection from the service.
	ErrRateLimited = errors.New("generation service rate limited")
	// ErrEmptyResponse marks a response that carried no usable text.
	ErrEmptyResponse = errors.New("generation service returned empty response")
)

// StripFences removes a wrapping markdown code fence from model output.
// Models frequently wrap JSON replies in ```json ... ``` blocks.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	for _, prefix := range []string{"```json", "```markdown", "```"} {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			text = strings.TrimSuffix(strings.TrimSpace(text), "```")
			break
		}
	}
	return strings.TrimSpace(text)
}

// ExtractJSON pulls the outermost JSON value out of surrounding prose.
// Returns the input unchanged when no object or array delimiters exist.
func ExtractJSON(text string) string {
	text = StripFences(text)
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	var end int
	if text[start] == '{' {
		end = strings.LastIndexByte(text, '}')
	} else {
		end = strings.LastIndexByte(text, ']')
	}
	if end <= start {
		return text
	}
	return text[start : end+1]
}
