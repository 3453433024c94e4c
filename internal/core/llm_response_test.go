package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanAndParseLLMResponse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantText   string
		wantParsed any
	}{
		{
			name:       "json fence",
			raw:        "```json\n{\"a\":1}\n```",
			wantText:   `{"a":1}`,
			wantParsed: map[string]any{"a": float64(1)},
		},
		{
			name:       "bare fence with array",
			raw:        "  ```\n[1, 2]\n```  ",
			wantText:   "[1, 2]",
			wantParsed: []any{float64(1), float64(2)},
		},
		{
			name:     "not json",
			raw:      "```json\nnot json at all\n```",
			wantText: "not json at all",
		},
		{
			name:     "plain text",
			raw:      "  Use boundary value analysis.  ",
			wantText: "Use boundary value analysis.",
		},
		{
			name:     "empty",
			raw:      "```json```",
			wantText: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, text := CleanAndParseLLMResponse(tt.raw)
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantParsed, parsed)
		})
	}
}

func TestFormatTestCases(t *testing.T) {
	assert.Equal(t, "No test cases were returned.", FormatTestCases(nil))
	assert.Equal(t, "No test cases were returned.", FormatTestCases(json.RawMessage("null")))

	assert.Equal(t, "[\n  {\n    \"id\": \"TC-1\"\n  }\n]", FormatTestCases(json.RawMessage(`[{"id":"TC-1"}]`)))

	fenced, _ := json.Marshal("```json\n[{\"id\":\"TC-2\"}]\n```")
	assert.Equal(t, "[\n  {\n    \"id\": \"TC-2\"\n  }\n]", FormatTestCases(fenced))

	raw, _ := json.Marshal("TC-3: verify login")
	assert.Equal(t, "TC-3: verify login", FormatTestCases(raw))
}
