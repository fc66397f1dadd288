package render

import (
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

// Minifier compresses one rendered page.
type Minifier interface {
	Minify(text string) (string, error)
}

// MinifierFunc adapts a function to Minifier.
type MinifierFunc func(string) (string, error)

// Minify implements Minifier.
func (f MinifierFunc) Minify(text string) (string, error) { return f(text) }

// HTMLMinifier collapses whitespace, drops comments and default or empty
// attributes, shortens the doctype and minifies inline style and script blocks.
type HTMLMinifier struct {
	m *minify.M
}

var scriptMediaType = regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`)

// NewHTMLMinifier returns the page minifier used by the build.
func NewHTMLMinifier() *HTMLMinifier {
	m := minify.New()
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
	})
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	m.AddFuncRegexp(scriptMediaType, js.Minify)
	return &HTMLMinifier{m: m}
}

// Minify implements Minifier.
func (h *HTMLMinifier) Minify(text string) (string, error) {
	return h.m.String("text/html", text)
}
