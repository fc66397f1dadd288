package render

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	ferrors "git.home.luguber.info/inful/sitebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuild/internal/logfields"
	"git.home.luguber.info/inful/sitebuild/internal/target"
)

// Options configures a Renderer. The same Options are used for every target.
type Options struct {
	// SourceDir is the authoring tree walked by RenderTree.
	SourceDir string
	// PartialsDir holds include-only fragments that are never rendered as pages.
	PartialsDir string
	// Pictures enables marker expansion. Disable it when derivatives were not generated.
	Pictures bool
	// Picture tunes marker parsing.
	Picture PictureOptions
	// Minifier runs last; nil leaves pages unminified.
	Minifier Minifier
	// Includes resolves @include directives; nil uses a resolver rooted at SourceDir.
	Includes *IncludeResolver
}

// Renderer applies the page chain for one target.
type Renderer struct {
	target     target.Target
	opts       Options
	transforms []namedTransform
}

// NewRenderer builds the transform chain for t.
func NewRenderer(t target.Target, opts Options) *Renderer {
	if opts.Includes == nil {
		opts.Includes = NewIncludeResolver(opts.SourceDir)
	}
	r := &Renderer{target: t, opts: opts}
	r.transforms = []namedTransform{
		{"includes", opts.Includes.ResolveDocument},
		{"placeholder", r.replacePlaceholder},
	}
	if opts.Pictures {
		r.transforms = append(r.transforms, namedTransform{"pictures", r.transformPictures})
	}
	r.transforms = append(r.transforms, namedTransform{"links", normalizeLinks})
	if opts.Minifier != nil {
		r.transforms = append(r.transforms, namedTransform{"minify", r.minify})
	}
	return r
}

// Target returns the render target.
func (r *Renderer) Target() target.Target { return r.target }

// Render runs the chain over doc.
func (r *Renderer) Render(doc *Document) error {
	for _, t := range r.transforms {
		if err := t.fn(doc); err != nil {
			if ce, ok := ferrors.AsClassified(err); ok {
				return ce.WithContext("transform", t.name).WithContext("page", doc.Rel)
			}
			return ferrors.WrapError(err, ferrors.CategoryRender, "transform failed").
				WithContext("transform", t.name).WithContext("page", doc.Rel).Build()
		}
	}
	return nil
}

func (r *Renderer) replacePlaceholder(doc *Document) error {
	doc.Content = ReplacePlaceholder(doc.Content, BasePlaceholder, r.target.BasePath)
	return nil
}

func (r *Renderer) transformPictures(doc *Document) error {
	doc.Content = TransformPictures(doc.Content, r.target.BasePath, r.opts.Picture)
	return nil
}

func normalizeLinks(doc *Document) error {
	doc.Content = NormalizeLinks(doc.Content)
	return nil
}

func (r *Renderer) minify(doc *Document) error {
	out, err := r.opts.Minifier.Minify(doc.Content)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryToolchain, "minification failed").Build()
	}
	doc.Content = out
	return nil
}

// Pages lists the source pages in lexical order as slash-separated paths
// relative to SourceDir. Files below PartialsDir are skipped.
func (r *Renderer) Pages() ([]string, error) {
	return ListPages(r.opts.SourceDir, r.opts.PartialsDir)
}

// ListPages returns every *.html file below src that is not below partials.
func ListPages(src, partials string) ([]string, error) {
	var pages []string
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if partials != "" && filepath.Clean(path) == filepath.Clean(partials) {
				return filepath.SkipDir
			}
			return nil
		}
		if !target.IsPage(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		pages = append(pages, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to list pages").
			WithContext("path", src).Build()
	}
	return pages, nil
}

// RenderTree renders every page into outRoot, mirroring the source layout,
// and returns the rendered page paths.
func (r *Renderer) RenderTree(ctx context.Context, outRoot string) ([]string, error) {
	pages, err := r.Pages()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	for _, rel := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.renderPage(rel, outRoot); err != nil {
			return nil, err
		}
	}
	slog.Info("Rendered pages",
		logfields.Target(r.target.String()),
		logfields.Count(len(pages)),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return pages, nil
}

func (r *Renderer) renderPage(rel, outRoot string) error {
	doc, err := LoadDocument(r.opts.SourceDir, filepath.Join(r.opts.SourceDir, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}
	if err := r.Render(doc); err != nil {
		return err
	}
	out := filepath.Join(outRoot, filepath.FromSlash(doc.Rel))
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create output directory").
			WithContext("path", filepath.Dir(out)).Build()
	}
	if err := os.WriteFile(out, []byte(doc.Content), 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write page").
			WithContext("path", out).Build()
	}
	slog.Debug("Rendered page", logfields.Target(r.target.String()), logfields.Path(doc.Rel))
	return nil
}
