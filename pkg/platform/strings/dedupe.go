// Package strings carries small string-slice helpers shared across the
// platform packages.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element, drops empties, and removes duplicates.
// The first occurrence wins, so relative order survives.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// DedupeAndTrimLower is DedupeAndTrim with case folded, for values compared
// case-insensitively such as email addresses.
func DedupeAndTrimLower(values []string) []string {
	if len(values) == 0 {
		return values
	}

	lowered := make([]string, len(values))
	for i, v := range values {
		lowered[i] = strings.ToLower(v)
	}
	return DedupeAndTrim(lowered)
}
