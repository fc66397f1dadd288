package testing

import (
	"path/filepath"
	"testing"
)

func TestProjectBuilderAndAssertions(t *testing.T) {
	dir, cfg := NewProject(t, "demo").
		WithPage("about/index.html", "<p>about</p>").
		WithConfig("build:\n  minify: false\n").
		Build()

	NewFileAssertions(t, dir).
		AssertFileExists("src/index.html").
		AssertFileEquals("src/about/index.html", "<p>about</p>").
		AssertFileContains("sitebuild.yaml", "name: demo").
		AssertFileContains("sitebuild.yaml", "minify: false").
		AssertFileNotContains("src/index.html", "about").
		AssertFileNotExists("dist")

	if cfg != filepath.Join(dir, "sitebuild.yaml") {
		t.Fatalf("unexpected config path %s", cfg)
	}
}
