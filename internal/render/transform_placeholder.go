package render

import "strings"

// BasePlaceholder is replaced with the active target's base path.
const BasePlaceholder = "%BASE%"

// ReplacePlaceholder substitutes every literal occurrence of token with base.
func ReplacePlaceholder(text, token, base string) string {
	if token == "" {
		return text
	}
	return strings.ReplaceAll(text, token, base)
}
