package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrNoJSONObject = errors.New("no JSON object found in response")

// ParseJSON pulls the outermost JSON object out of an LLM response and
// unmarshals it into T. Markdown fences and chatter around the object are
// ignored.
func ParseJSON[T any](response string) (T, error) {
	var result T

	body := stripFence(response)
	start := strings.IndexByte(body, '{')
	end := strings.LastIndexByte(body, '}')
	if start < 0 || end < start {
		return result, ErrNoJSONObject
	}

	if err := json.Unmarshal([]byte(body[start:end+1]), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal JSON: %w\nData: %s", err, Truncate(body[start:end+1], 400))
	}
	return result, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // drop the language tag line
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

// Truncate shortens s to at most n bytes for log and error output, backing
// off to a rune boundary.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
