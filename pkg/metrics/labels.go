package metrics

import "strings"

// normalizeLabel never returns an empty label value.
func normalizeLabel(value string) string {
	if value = strings.TrimSpace(value); value == "" {
		return "unknown"
	}
	return value
}
