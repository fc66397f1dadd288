package testing

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteTree writes files (slash paths relative to root) creating parents.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), testDirPermissions); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(p, []byte(content), testFilePermissions); err != nil {
			t.Fatalf("Failed to write %s: %v", rel, err)
		}
	}
}

// ProjectBuilder assembles a throwaway site project in a temp directory.
type ProjectBuilder struct {
	t      *testing.T
	name   string
	files  map[string]string
	config string
}

// NewProject starts a project named name with no pages.
func NewProject(t *testing.T, name string) *ProjectBuilder {
	return &ProjectBuilder{t: t, name: name, files: map[string]string{}}
}

// WithPage adds a source file below src/.
func (b *ProjectBuilder) WithPage(rel, content string) *ProjectBuilder {
	b.files["src/"+rel] = content
	return b
}

// WithConfig appends raw YAML to the generated sitebuild.yaml.
func (b *ProjectBuilder) WithConfig(yaml string) *ProjectBuilder {
	b.config += yaml
	return b
}

// Build writes the project and returns its directory and config path.
func (b *ProjectBuilder) Build() (dir, configPath string) {
	b.t.Helper()
	dir = b.t.TempDir()
	configPath = filepath.Join(dir, "sitebuild.yaml")
	b.files["sitebuild.yaml"] = "project:\n  name: " + b.name + "\n" + b.config
	if _, ok := b.files["src/index.html"]; !ok {
		b.files["src/index.html"] = "<p>home</p>"
	}
	WriteTree(b.t, dir, b.files)
	return dir, configPath
}
