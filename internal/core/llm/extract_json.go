package llm

import "strings"

// extractJSON tries to extract JSON from a response that might be wrapped
// in prose or markdown fencing: the span from the first "{" to the last "}"
// (or "[".."]" for arrays) is taken as the payload.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}

	start = strings.Index(text, "[")
	end = strings.LastIndex(text, "]")

	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}

	return text
}
