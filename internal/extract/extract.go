// Package extract recovers a JSON value from free-form model output. Models
// routinely wrap valid JSON in prose or markdown fences, so parsing runs
// through a fallback chain from the most specific strategy to the most
// permissive one.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Error is returned when no recovery strategy yields valid JSON.
type Error struct {
	Snippet string
}

func (e *Error) Error() string {
	return fmt.Sprintf("no JSON value could be recovered from model output: %q", e.Snippet)
}

var (
	jsonFence = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	anyFence  = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\\s*(.*?)```")
)

// JSON recovers a JSON value from text. Strategies are attempted in strict
// order, each independent of the last:
//  1. parse the whole text;
//  2. parse the interior of a ```json fence;
//  3. parse the interior of the first fence whose body starts with '{' or '[';
//  4. parse the span from the first '{' to the last '}'.
//
// The greedy brace match runs last: it is the most permissive strategy and the
// most likely to capture a malformed span when a more specific one exists.
func JSON(text string) (any, error) {
	if value, ok := tryParse(text); ok {
		return value, nil
	}
	if m := jsonFence.FindStringSubmatch(text); m != nil {
		if value, ok := tryParse(m[1]); ok {
			return value, nil
		}
	}
	for _, m := range anyFence.FindAllStringSubmatch(text, -1) {
		interior := strings.TrimSpace(m[1])
		if strings.HasPrefix(interior, "{") || strings.HasPrefix(interior, "[") {
			if value, ok := tryParse(interior); ok {
				return value, nil
			}
		}
	}
	if value, ok := tryParse(braceSpan(text, '{', '}')); ok {
		return value, nil
	}
	return nil, &Error{Snippet: clip(text, 120)}
}

// Itinerary recovers a JSON value for the itinerary call site. On top of the
// strategies in JSON it greedy-matches the first '[' to the last ']', and any
// top-level array is normalized to the canonical {"itinerary": [...]} shape so
// downstream code sees a single object form.
func Itinerary(text string) (map[string]any, error) {
	value, err := JSON(text)
	if err != nil {
		span, ok := tryParse(braceSpan(text, '[', ']'))
		if !ok {
			return nil, err
		}
		value = span
	}
	switch v := value.(type) {
	case map[string]any:
		return v, nil
	case []any:
		return map[string]any{"itinerary": v}, nil
	default:
		return nil, &Error{Snippet: clip(text, 120)}
	}
}

// Decode maps a recovered JSON value onto a typed struct.
func Decode(value any, out any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func tryParse(text string) (any, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}
	var value any
	if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
		return nil, false
	}
	switch value.(type) {
	case map[string]any, []any:
		return value, true
	default:
		// Bare scalars are valid JSON but never a useful model payload.
		return nil, false
	}
}

func braceSpan(text string, opener, closer byte) string {
	start := strings.IndexByte(text, opener)
	end := strings.LastIndexByte(text, closer)
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func clip(text string, max int) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= max {
		return trimmed
	}
	return trimmed[:max] + "..."
}
