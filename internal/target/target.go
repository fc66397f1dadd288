// Package target models the two render targets a build produces. Both are
// rendered by the same pipeline; the only input that differs is the base path.
package target

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind identifies a render target.
type Kind string

const (
	// Root is served from the origin root; its base path is empty.
	Root Kind = "root"
	// BasePrefixed is served below "/{project}".
	BasePrefixed Kind = "prefixed"
)

// Target is one output tree plus the base path used for every URL in it.
type Target struct {
	Kind     Kind
	BasePath string // "" for Root, "/name" otherwise; never has a trailing slash
	Output   string // final output directory
}

// New returns a Target, normalizing basePath to a single leading slash and no trailing slash.
func New(kind Kind, basePath, output string) Target {
	return Target{Kind: kind, BasePath: NormalizeBasePath(basePath), Output: output}
}

// String implements fmt.Stringer.
func (t Target) String() string {
	if t.BasePath == "" {
		return string(t.Kind)
	}
	return fmt.Sprintf("%s(%s)", t.Kind, t.BasePath)
}

// Prefixed reports whether URLs in this target carry a base path.
func (t Target) Prefixed() bool { return t.BasePath != "" }

// IsPage reports whether name is an HTML page of a rendered tree. The
// extension is matched case-insensitively.
func IsPage(name string) bool {
	return strings.EqualFold(path.Ext(name), ".html")
}

// NormalizeBasePath turns "", "/" and "name/" style inputs into "" or "/name".
func NormalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

// SanitizeName folds diacritics and replaces every character outside
// [a-zA-Z0-9-_] with "-", producing a name safe for a URL path segment.
func SanitizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(name))
	if err != nil {
		folded = name
	}
	return unsafeNameChars.ReplaceAllString(folded, "-")
}
