package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParseMode records how much structure was recovered from a model response
type ParseMode int

const (
	// ModeDecoded means the response was valid JSON
	ModeDecoded ParseMode = iota
	// ModeExtracted means fields were scraped out of free text by pattern
	ModeExtracted
	// ModeUnparsed means nothing matched; Fields carries the raw text only
	ModeUnparsed
)

// ParseOutcome is the result of interpreting one model response
type ParseOutcome struct {
	Mode   ParseMode
	Fields map[string]any
}

// parseContent tries strict JSON first, then falls back to per-key pattern
// extraction. Non-object JSON values are wrapped under "text". A response
// that yields no fields at all comes back as ModeUnparsed with the stripped
// text under "text".
func parseContent(content string, expectedKeys []string) ParseOutcome {
	stripped := strings.TrimSpace(content)

	var decoded any
	if err := json.Unmarshal([]byte(stripped), &decoded); err == nil {
		if obj, ok := decoded.(map[string]any); ok {
			return ParseOutcome{Mode: ModeDecoded, Fields: obj}
		}
		return ParseOutcome{Mode: ModeDecoded, Fields: map[string]any{"text": decoded}}
	}

	fields := make(map[string]any)
	for _, key := range expectedKeys {
		numeric := regexp.MustCompile(`(?i)"?` + regexp.QuoteMeta(key) + `"?\s*[:=-]\s*"?([0-9]+\.?[0-9]*)"?`)
		if m := numeric.FindStringSubmatch(stripped); m != nil {
			fields[key] = m[1]
			continue
		}

		quoted := regexp.MustCompile(`(?i)"` + regexp.QuoteMeta(key) + `"\s*:\s*"([^"]+)"`)
		if m := quoted.FindStringSubmatch(stripped); m != nil {
			fields[key] = m[1]
		}
	}

	if len(fields) == 0 {
		return ParseOutcome{Mode: ModeUnparsed, Fields: map[string]any{"text": stripped}}
	}

	return ParseOutcome{Mode: ModeExtracted, Fields: fields}
}
