package utils

import (
	"strings"
)

// SanitizeJSON strips Markdown fences and any prose around the first JSON
// object or array in raw model output.
func SanitizeJSON(input string) string {
	cleaned := strings.TrimSpace(input)
	if rest, ok := strings.CutPrefix(cleaned, "```"); ok {
		// drop the language tag line, if any
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], "{[") {
			rest = rest[nl+1:]
		}
		cleaned = strings.TrimSuffix(strings.TrimSpace(rest), "```")
	}
	cleaned = strings.TrimSpace(cleaned)

	start := strings.IndexAny(cleaned, "{[")
	if start < 0 {
		return cleaned
	}
	closer := byte('}')
	if cleaned[start] == '[' {
		closer = ']'
	}
	if end := strings.LastIndexByte(cleaned, closer); end > start {
		return cleaned[start : end+1]
	}
	return cleaned[start:]
}
