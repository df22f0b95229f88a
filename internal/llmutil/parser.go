// internal/llmutil/parser.go
package llmutil

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
)

var (
	// Regex definitions use \x60 (hex representation) for backticks because Go raw strings cannot contain backticks.

	// jsonFenceRegex extracts the body of a ```json fenced block.
	jsonFenceRegex = regexp.MustCompile("(?s)\x60\x60\x60json\\s*\\n(.*?)\\n\x60\x60\x60")
	// anyFenceRegex extracts the body of any fenced block regardless of language tag.
	anyFenceRegex = regexp.MustCompile("(?s)\x60\x60\x60[a-zA-Z]*\\s*\\n(.*?)\\n\x60\x60\x60")
)

// ExtractJSONObject pulls a JSON object out of raw LLM output using a fixed
// chain of strategies, most strict first:
//
//  1. parse the whole trimmed response,
//  2. parse the body of a ```json fence,
//  3. parse the body of any fence,
//  4. scan for the first balanced {...} span by brace depth and parse that.
//
// It returns an error only when every strategy fails; callers that need a
// never-fails guarantee layer their own heuristic fallback on top.
func ExtractJSONObject(response string, target any) error {
	response = strings.TrimSpace(response)

	if err := json.Unmarshal([]byte(response), target); err == nil {
		return nil
	}

	if m := jsonFenceRegex.FindStringSubmatch(response); len(m) > 1 {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), target); err == nil {
			return nil
		}
	}

	if m := anyFenceRegex.FindStringSubmatch(response); len(m) > 1 {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), target); err == nil {
			return nil
		}
	}

	if span := balancedBraceSpan(response); span != "" {
		if err := json.Unmarshal([]byte(span), target); err == nil {
			return nil
		}
	}

	return fmt.Errorf("no parseable JSON object in LLM response (truncated): %s", truncateString(response, 300))
}

// ParseJSONResponse is the typed convenience wrapper over ExtractJSONObject.
func ParseJSONResponse[T any](response string) (*T, error) {
	var result T
	if err := ExtractJSONObject(response, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// balancedBraceSpan returns the first top-level {...} span in text, matching
// braces by depth. String-literal awareness is deliberately omitted; model
// output that trips this up also fails the strict strategies above and lands
// in the caller's heuristic fallback.
func balancedBraceSpan(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// FirstFencedBlock returns the body of the first fenced code block and true,
// or "" and false if the text contains none. Used by the code-artifact parser
// where first-fence-wins.
func FirstFencedBlock(text string) (string, bool) {
	if m := anyFenceRegex.FindStringSubmatch(text); len(m) > 1 {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// truncateString truncates a string to maxLen bytes for error messages.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen || maxLen <= 0 {
		return s
	}
	return s[:maxLen] + "..."
}
