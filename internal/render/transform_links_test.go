package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLinks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"index with fragment", `<a href="/index.html#pricing">`, `<a href="/#pricing">`},
		{"section index", `<a href="/blog/index.html">`, `<a href="/blog/">`},
		{"prefixed index", `<a href="/myproject/blog/index.html">`, `<a href="/myproject/blog/">`},
		{"relative index", `<a href='docs/index.html'>`, `<a href='docs/'>`},
		{"query kept", `<a href="/index.html?lang=de">`, `<a href="/?lang=de">`},
		{"plain page unchanged", `<a href="/about.html">`, `<a href="/about.html">`},
		{"anchor only unchanged", `<a href="#top">`, `<a href="#top">`},
		{"longer file name unchanged", `<a href="/index.htmlx">`, `<a href="/index.htmlx">`},
		{"external origin unchanged", `<a href="https://example.com/index.html">`, `<a href="https://example.com/index.html">`},
		{"protocol relative unchanged", `<a href="//cdn.example.com/index.html">`, `<a href="//cdn.example.com/index.html">`},
		{"bare file name unchanged", `<a href="index.html">`, `<a href="index.html">`},
		{"several links", `<a href="/index.html">a</a><a href="/x/index.html#y">b</a>`, `<a href="/">a</a><a href="/x/#y">b</a>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLinks(tt.in))
		})
	}
}

func TestReplacePlaceholder(t *testing.T) {
	in := `<link href="%BASE%/assets/css/style.css"><a href="%BASE%/">home</a>`
	assert.Equal(t, `<link href="/assets/css/style.css"><a href="/">home</a>`, ReplacePlaceholder(in, BasePlaceholder, ""))
	assert.Equal(t, `<link href="/p/assets/css/style.css"><a href="/p/">home</a>`, ReplacePlaceholder(in, BasePlaceholder, "/p"))
	assert.Equal(t, in, ReplacePlaceholder(in, "", "/p"))
}
