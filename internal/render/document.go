package render

import (
	"os"
	"path/filepath"

	ferrors "git.home.luguber.info/inful/sitebuild/internal/foundation/errors"
)

// Document is one page moving through the transform chain. Content is
// rewritten in place by each transform; the remaining fields are read-only.
type Document struct {
	// Path is the absolute source file path.
	Path string
	// Rel is the slash-separated path below the source root, and the output path.
	Rel string
	// Content is the page text.
	Content string
}

// Dir returns the directory relative includes resolve against.
func (d *Document) Dir() string { return filepath.Dir(d.Path) }

// LoadDocument reads path and records its location relative to root.
func LoadDocument(root, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to read document").
			WithContext("path", path).Build()
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryInternal, "document outside source root").
			WithContext("path", path).Build()
	}
	return &Document{Path: path, Rel: filepath.ToSlash(rel), Content: string(data)}, nil
}

// Transform modifies a document in place.
type Transform func(doc *Document) error

type namedTransform struct {
	name string
	fn   Transform
}
