package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const heroPicture = `<picture>
  <source type="image/avif" srcset="/assets/img/hero-480.avif 480w, /assets/img/hero-768.avif 768w, /assets/img/hero-1200.avif 1200w, /assets/img/hero-1920.avif 1920w" sizes="(max-width: 480px) 480w, (max-width: 768px) 768w, (max-width: 1200px) 1200w, 1920w">
  <source type="image/webp" srcset="/assets/img/hero-480.webp 480w, /assets/img/hero-768.webp 768w, /assets/img/hero-1200.webp 1200w, /assets/img/hero-1920.webp 1920w" sizes="(max-width: 480px) 480w, (max-width: 768px) 768w, (max-width: 1200px) 1200w, 1920w">
  <img src="/assets/img/hero-1200.jpg" alt="Hero" loading="lazy" decoding="async">
</picture>`

func TestTransformPictures_Root(t *testing.T) {
	in := `<section><img data-picture="auto" src="img/hero.jpg" alt="Hero"></section>`
	got := TransformPictures(in, "", PictureOptions{})

	assert.Equal(t, "<section>"+heroPicture+"</section>", got)
	assert.Equal(t, 2, strings.Count(got, "<source "))
	assert.Equal(t, 1, strings.Count(got, `type="image/avif"`))
	assert.Equal(t, 1, strings.Count(got, `type="image/webp"`))
	assert.Equal(t, 9, strings.Count(got, "/assets/img/hero-"), "four widths per source plus the fallback")
}

func TestTransformPictures_PrefixedDiffersOnlyByBasePath(t *testing.T) {
	in := `<p>intro</p>
<img data-picture="auto" src="img/hero.jpg" alt="Hero">
<a href="/about.html">about</a>`

	root := TransformPictures(in, "", PictureOptions{})
	prefixed := TransformPictures(in, "/myproject", PictureOptions{})

	require.NotEqual(t, root, prefixed)
	assert.Equal(t, strings.ReplaceAll(root, "/assets/img/", "/myproject/assets/img/"), prefixed)
	assert.Equal(t, 9, strings.Count(prefixed, "/myproject/assets/img/"))
	assert.Contains(t, prefixed, `<a href="/about.html">about</a>`)
}

func TestTransformPictures_SourceWithBasePathAlreadyApplied(t *testing.T) {
	in := `<img data-picture="auto" src="/myproject/img/team/anna.png" alt="">`
	got := TransformPictures(in, "/myproject", PictureOptions{})

	assert.Contains(t, got, `<img src="/myproject/assets/img/team/anna-1200.png" alt=""`)
	assert.Contains(t, got, "/myproject/assets/img/team/anna-480.avif 480w")
}

func TestTransformPictures_Attributes(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		contains []string
		absent   []string
	}{
		{
			name:     "existing loading and decoding are preserved",
			in:       `<img data-picture="auto" src="img/a.jpg" loading="eager" decoding="sync">`,
			contains: []string{`loading="eager"`, `decoding="sync"`},
			absent:   []string{`loading="lazy"`, `decoding="async"`},
		},
		{
			name:     "alt text is escaped",
			in:       `<img data-picture="auto" src="img/a.jpg" alt="Tom &amp; &quot;Jerry&quot; <3">`,
			contains: []string{`alt="Tom &amp; &#34;Jerry&#34; &lt;3"`},
		},
		{
			name:     "other attributes move to the fallback image",
			in:       `<img class="hero wide" data-picture="auto" src="img/a.jpg" width="1200" hidden>`,
			contains: []string{`alt="" class="hero wide" width="1200" hidden loading="lazy"`},
			absent:   []string{"data-picture"},
		},
		{
			name:     "non raster extension falls back to jpg",
			in:       `<img data-picture="auto" src="img/anim.gif">`,
			contains: []string{`src="/assets/img/anim-1200.jpg"`, "/assets/img/anim-768.webp 768w"},
		},
		{
			name:     "png keeps png fallback",
			in:       `<img data-picture="auto" src="./src/img/logo.png">`,
			contains: []string{`src="/assets/img/logo-1200.png"`},
		},
		{
			name:     "marker value is case insensitive",
			in:       `<IMG DATA-PICTURE="AUTO" SRC="img/a.jpeg" />`,
			contains: []string{"<picture>", `src="/assets/img/a-1200.jpeg"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TransformPictures(tt.in, "", PictureOptions{})
			for _, c := range tt.contains {
				assert.Contains(t, got, c)
			}
			for _, a := range tt.absent {
				assert.NotContains(t, got, a)
			}
		})
	}
}

func TestTransformPictures_Passthrough(t *testing.T) {
	tests := map[string]string{
		"no marker":          `<img src="img/a.jpg" alt="x">`,
		"marker without src": `<img data-picture="auto" alt="x">`,
		"empty src":          `<img data-picture="auto" src="" alt="x">`,
		"marker not auto":    `<img data-picture="off" src="img/a.jpg">`,
		"other element":      `<div data-picture="auto" src="img/a.jpg"></div>`,
		"inside script":      "<script>const s = '<img data-picture=\"auto\" src=\"img/a.jpg\">';</script>",
		"irregular markup":   "<!DOCTYPE html>\n<P CLASS=x>data-picture<br/>there &amp; <!-- c --> <img  src='x.png' ></P>",
		"remote source":      `<img data-picture="auto" src="https://cdn.example.com/x.jpg" alt="x">`,
		"protocol relative":  `<img data-picture="auto" src="//cdn.example.com/img/x.jpg">`,
		"unknown directory":  `<img data-picture="auto" src="photos/x.jpg">`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, in, TransformPictures(in, "", PictureOptions{}))
		})
	}
}

func TestTransformPictures_ParentRelativeSource(t *testing.T) {
	in := `<img data-picture="auto" src="../img/hero.jpg" alt="Hero">`
	got := TransformPictures(in, "", PictureOptions{})

	assert.Contains(t, got, `<img src="/assets/img/hero-1200.jpg" alt="Hero"`)
	assert.NotContains(t, got, "/assets/img/img/")
}

func TestTransformPictures_Idempotent(t *testing.T) {
	in := `<img data-picture="auto" src="img/hero.jpg" alt="Hero">`
	once := TransformPictures(in, "/p", PictureOptions{})
	assert.Equal(t, once, TransformPictures(once, "/p", PictureOptions{}))
}

func TestTransformPictures_PreservesSurroundingBytes(t *testing.T) {
	in := "<DIV Class=\"A\">\n\t<img data-picture='auto' src='img/x.jpg'>\n</DIV>"
	got := TransformPictures(in, "", PictureOptions{})
	assert.True(t, strings.HasPrefix(got, "<DIV Class=\"A\">\n\t<picture>\n"))
	assert.True(t, strings.HasSuffix(got, "</picture>\n</DIV>"))
}
