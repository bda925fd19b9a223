// Package jsonx extracts JSON payloads from LLM responses.
//
// Models frequently wrap JSON in explanatory prose or markdown code
// fences. The helpers here recover the first well-formed JSON span from
// such output instead of failing on the surrounding text.
package jsonx

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripCodeFences removes markdown code block markers from a response.
// Handles ```json\n...\n``` as well as bare ``` fences.
func StripCodeFences(response string) string {
	trimmed := strings.TrimSpace(response)

	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimSpace(trimmed)
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	return trimmed
}

// extractSpan finds the first span delimited by open/close that
// unmarshals cleanly. It widens from the first open delimiter to each
// candidate close delimiter, nearest first, so prose after the JSON does
// not break extraction.
func extractSpan(response string, open, close byte) (string, error) {
	response = StripCodeFences(response)

	var probe interface{}
	if err := json.Unmarshal([]byte(response), &probe); err == nil {
		trimmed := strings.TrimSpace(response)
		if len(trimmed) > 0 && trimmed[0] == open {
			return trimmed, nil
		}
	}

	start := strings.IndexByte(response, open)
	if start != -1 {
		for end := start; end < len(response); end++ {
			if response[end] != close {
				continue
			}
			candidate := response[start : end+1]
			if err := json.Unmarshal([]byte(candidate), &probe); err == nil {
				return candidate, nil
			}
		}
	}

	preview := response
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("failed to extract valid JSON from response: %q", preview)
}

// ExtractArray returns the first well-formed JSON array embedded in the
// response.
func ExtractArray(response string) (string, error) {
	return extractSpan(response, '[', ']')
}

// ExtractObject returns the first well-formed JSON object embedded in
// the response.
func ExtractObject(response string) (string, error) {
	return extractSpan(response, '{', '}')
}

// UnmarshalArray extracts and parses a JSON array of strings from an LLM
// response. Returns an error when no well-formed array can be found.
func UnmarshalArray(response string) ([]string, error) {
	jsonStr, err := ExtractArray(response)
	if err != nil {
		return nil, err
	}
	var items []string
	if err := json.Unmarshal([]byte(jsonStr), &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON array: %w", err)
	}
	return items, nil
}
