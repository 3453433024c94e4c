package core

import (
	"encoding/json"
	"strings"
)

// CleanAndParseLLMResponse strips Markdown code fences from raw LLM output and
// tries to decode what is left as JSON. It returns the decoded value (nil when
// the text is not JSON) together with the cleaned text.
func CleanAndParseLLMResponse(raw string) (any, string) {
	cleaned := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(cleaned, "```json"):
		cleaned = strings.TrimPrefix(cleaned, "```json")
	case strings.HasPrefix(cleaned, "```"):
		cleaned = strings.TrimPrefix(cleaned, "```")
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	cleaned = strings.TrimSpace(cleaned)

	var parsed any
	if cleaned == "" || json.Unmarshal([]byte(cleaned), &parsed) != nil {
		return nil, cleaned
	}
	return parsed, cleaned
}

// FormatTestCases renders test cases returned by the RAG endpoint for display
// in a chat transcript. String payloads are treated as raw LLM output.
func FormatTestCases(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "No test cases were returned."
	}

	var value any = json.RawMessage(raw)
	var text string
	if json.Unmarshal(raw, &text) == nil {
		parsed, cleaned := CleanAndParseLLMResponse(text)
		if parsed == nil {
			return cleaned
		}
		value = parsed
	}

	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(pretty)
}
