package backend

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// ParseFailure is returned to the client when model output is not JSON
type ParseFailure struct {
	Error           string   `json:"error"`
	RawResult       string   `json:"raw_result"`
	ParsingAttempts []string `json:"parsing_attempts"`
}

// cleanModelOutput strips whitespace and markdown fences around the answer
func cleanModelOutput(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// ParseResult decodes model output as JSON. It tries the whole text first,
// then the outermost array or object, whichever opens first.
func ParseResult(text string) (any, error) {
	cleaned := cleanModelOutput(text)

	var data any
	err := json.Unmarshal([]byte(cleaned), &data)
	if err == nil {
		return data, nil
	}
	slog.Debug("Direct JSON parsing failed", "error", err)

	candidates := [][2]string{{"[", "]"}, {"{", "}"}}
	if obj := strings.Index(cleaned, "{"); obj != -1 {
		if arr := strings.Index(cleaned, "["); arr == -1 || obj < arr {
			candidates[0], candidates[1] = candidates[1], candidates[0]
		}
	}
	for _, delims := range candidates {
		start := strings.Index(cleaned, delims[0])
		end := strings.LastIndex(cleaned, delims[1])
		if start == -1 || end <= start {
			continue
		}
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &data); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("no JSON document found in model output")
}

// parseFailure describes output that could not be parsed
func parseFailure(raw string) ParseFailure {
	return ParseFailure{
		Error:     "Failed to parse JSON response",
		RawResult: raw,
		ParsingAttempts: []string{
			"Direct JSON parsing failed",
			"JSON extraction from text failed",
		},
	}
}
