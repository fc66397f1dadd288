package render

import (
	"regexp"
	"strings"
)

// indexReference matches a URL ending in "/index.html" at a word boundary.
// Group 1 is everything before the final slash up to the enclosing quote,
// whitespace or bracket.
var indexReference = regexp.MustCompile(`([^\s"'()<>]*)/index\.html\b`)

// NormalizeLinks collapses same-site references to directory index documents:
// "/index.html#x" becomes "/#x" and "/blog/index.html" becomes "/blog/".
// Absolute URLs to other origins and anchor-only references are untouched.
func NormalizeLinks(text string) string {
	return indexReference.ReplaceAllStringFunc(text, func(m string) string {
		prefix := strings.TrimSuffix(m, "/index.html")
		if isExternalPrefix(prefix) {
			return m
		}
		return prefix + "/"
	})
}

func isExternalPrefix(prefix string) bool {
	if strings.HasPrefix(prefix, "//") {
		return true
	}
	// the prefix may start with an attribute name when quotes are missing
	if i := strings.LastIndexByte(prefix, '='); i >= 0 {
		prefix = prefix[i+1:]
	}
	return strings.Contains(prefix, "://") || strings.HasPrefix(prefix, "//")
}
