package sitemap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedDay = func() time.Time { return time.Date(2026, 3, 14, 22, 30, 0, 0, time.UTC) }

func tree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("<p>x</p>"), 0o644))
	}
	return root
}

func locs(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Loc
	}
	return out
}

func TestBuild_RootTarget(t *testing.T) {
	root := tree(t, "index.html", "blog/index.html", "404.html")
	b := &Builder{BasePath: "/myproject", ApplyBase: false, Now: fixedDay}

	entries, err := b.Build(root)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, []string{"/blog/", "/"}, locs(entries))
	for _, e := range entries {
		assert.Equal(t, "2026-03-14", e.LastMod)
	}
}

func TestBuild_PrefixedTarget(t *testing.T) {
	root := tree(t, "index.html", "blog/index.html", "404.html")
	b := &Builder{BasePath: "/myproject", ApplyBase: true, Now: fixedDay}

	entries, err := b.Build(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"/myproject/blog/", "/myproject/"}, locs(entries))
}

func TestBuild_Exclusions(t *testing.T) {
	root := tree(t,
		"index.html",
		"about.html",
		"partials/nav.html",
		"docs/partials/keep.html",
		"docs/404.html",
		"assets/logo.svg",
		"sitemap.xml",
	)
	entries, err := (&Builder{Now: fixedDay}).Build(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"/about.html/", "/docs/partials/keep.html/", "/"}, locs(entries))
}

func TestBuild_OnlyIndexDocumentsCollapse(t *testing.T) {
	root := tree(t,
		"index.html",
		"blog/myindex.html",
		"docs/Guide.HTML",
		"docs/index.html",
		"notes/index.htm",
	)
	entries, err := (&Builder{Now: fixedDay}).Build(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"/blog/myindex.html/", "/docs/Guide.HTML/", "/docs/", "/"}, locs(entries))
}

func TestBuild_SiteURL(t *testing.T) {
	root := tree(t, "index.html")
	entries, err := (&Builder{SiteURL: "https://example.com", BasePath: "/p", ApplyBase: true, Now: fixedDay}).Build(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/p/"}, locs(entries))
}

func TestWrite(t *testing.T) {
	root := tree(t, "index.html", "blog/index.html", "404.html")
	n, err := (&Builder{Now: fixedDay}).Write(root)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(filepath.Join(root, FileName))
	require.NoError(t, err)
	want := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url>
    <loc>/blog/</loc>
    <lastmod>2026-03-14</lastmod>
  </url>
  <url>
    <loc>/</loc>
    <lastmod>2026-03-14</lastmod>
  </url>
</urlset>
`
	assert.Equal(t, want, string(data))

	// a second write must not list the sitemap itself or change the result
	_, err = (&Builder{Now: fixedDay}).Write(root)
	require.NoError(t, err)
	again, err := os.ReadFile(filepath.Join(root, FileName))
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestBuild_MissingRoot(t *testing.T) {
	_, err := (&Builder{}).Build(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
