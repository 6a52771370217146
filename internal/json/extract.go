// Package json pulls JSON objects out of model output.
//
// Models do not always return clean JSON: tool arguments and structured
// replies arrive wrapped in markdown fences or surrounded by commentary.
package json

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Extract returns the JSON object contained in s.
//
// It tries, in order:
// 1. s itself after removing a markdown fence (```json ... ```)
// 2. the text between the first '{' and the last '}'
//
// Only objects are located inside surrounding text; arrays and scalars
// are accepted only when they make up the whole (unfenced) input.
func Extract(s string) (string, error) {
	s = stripFence(s)

	if json.Valid([]byte(s)) {
		return s, nil
	}

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("no valid JSON object in %q", preview(s))
}

// Decode extracts the JSON in s and unmarshals it into T.
func Decode[T any](s string) (T, error) {
	var out T
	raw, err := Extract(s)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("unmarshal JSON: %w", err)
	}
	return out, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func preview(s string) string {
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}
