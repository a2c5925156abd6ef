package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripFences removes markdown code-fence wrapping from an LLM response.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	endIdx := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	return strings.Join(lines[1:endIdx], "\n")
}

// DecodeJSONResponse strips any markdown fences from an LLM response and
// unmarshals the remainder into v.
func DecodeJSONResponse(text string, v any) error {
	cleaned := StripFences(text)
	if cleaned == "" {
		return fmt.Errorf("empty response")
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("parsing LLM response as JSON: %w", err)
	}
	return nil
}
