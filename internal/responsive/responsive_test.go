package responsive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackFormat(t *testing.T) {
	tests := []struct {
		ext  string
		want Format
	}{
		{"jpg", "jpg"},
		{".jpeg", "jpeg"},
		{"png", "png"},
		{"JPG", "JPG"},
		{"gif", FormatJPG},
		{"webp", FormatJPG},
		{"", FormatJPG},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			assert.Equal(t, tt.want, FallbackFormat(tt.ext))
		})
	}
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		basePath string
		want     Image
	}{
		{"img root", "img/hero.jpg", "", Image{Name: "hero", Ext: "jpg"}},
		{"dot slash", "./img/hero.jpg", "", Image{Name: "hero", Ext: "jpg"}},
		{"absolute src img", "/src/img/team/anna.png", "", Image{Name: "anna", Subdir: "team", Ext: "png"}},
		{"assets img", "/assets/img/a/b/c.jpeg", "", Image{Name: "c", Subdir: "a/b", Ext: "jpeg"}},
		{"base path stripped", "/myproject/img/hero.jpg", "/myproject", Image{Name: "hero", Ext: "jpg"}},
		{"parent relative", "../img/hero.jpg", "", Image{Name: "hero", Ext: "jpg"}},
		{"nested parent relative", "../../img/team/anna.png", "", Image{Name: "anna", Subdir: "team", Ext: "png"}},
		{"query dropped", "img/hero.jpg?v=2", "", Image{Name: "hero", Ext: "jpg"}},
		{"dotted name", "img/logo.dark.png", "", Image{Name: "logo.dark", Ext: "png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseSource(tt.src, tt.basePath, nil)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSource_Rejected(t *testing.T) {
	for name, src := range map[string]string{
		"absolute url":      "https://cdn.example.com/x.jpg",
		"protocol relative": "//cdn.example.com/img/x.jpg",
		"data uri":          "data:image/png;base64,AAAA",
		"unknown root":      "photos/x.jpg",
		"bare file":         "hero.jpg",
		"directory only":    "img/",
	} {
		t.Run(name, func(t *testing.T) {
			_, ok := ParseSource(src, "", nil)
			assert.False(t, ok)
		})
	}
}

func TestParseSource_CustomRoots(t *testing.T) {
	img, ok := ParseSource("/site/media/a/b.jpg", "", []string{"site/media"})
	require.True(t, ok)
	assert.Equal(t, Image{Name: "b", Subdir: "a", Ext: "jpg"}, img)

	_, ok = ParseSource("img/b.jpg", "", []string{"site/media"})
	assert.False(t, ok)
}

func TestImageURL(t *testing.T) {
	img := Image{Name: "hero", Ext: "jpg"}
	assert.Equal(t, "/assets/img/hero-1200.jpg", img.URL("", 1200, FormatJPG))
	assert.Equal(t, "/myproject/assets/img/hero-480.avif", img.URL("/myproject", 480, FormatAVIF))

	nested := Image{Name: "anna", Subdir: "team", Ext: "png"}
	assert.Equal(t, "team/anna-768.webp", nested.RelPath(768, FormatWEBP))
	assert.Equal(t, "/assets/img/team/anna-768.webp", nested.URL("", 768, FormatWEBP))
}

func TestSrcSet(t *testing.T) {
	img := Image{Name: "hero", Ext: "jpg"}
	got := img.SrcSet("", FormatWEBP)
	require.Equal(t,
		"/assets/img/hero-480.webp 480w, /assets/img/hero-768.webp 768w, /assets/img/hero-1200.webp 1200w, /assets/img/hero-1920.webp 1920w",
		got)
}

func TestIsSourceImage(t *testing.T) {
	assert.True(t, IsSourceImage("a/b.JPG"))
	assert.True(t, IsSourceImage("b.png"))
	assert.False(t, IsSourceImage("b.gif"))
	assert.False(t, IsSourceImage("README"))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "hero-1920.avif", FileName("hero", 1920, FormatAVIF))
	assert.Equal(t, [3]Format{"png", FormatWEBP, FormatAVIF}, FormatsFor("png"))
}
