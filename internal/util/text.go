package util

import "strings"

// NormalizeEntityName trims surrounding whitespace (including full-width
// spaces) and drops what text columns cannot hold: NUL bytes and invalid
// UTF-8.
func NormalizeEntityName(value string) string {
	if value == "" {
		return value
	}
	value = strings.ToValidUTF8(value, "")
	value = strings.ReplaceAll(value, "\x00", "")
	return strings.TrimSpace(value)
}
