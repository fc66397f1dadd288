package render

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	ferrors "git.home.luguber.info/inful/sitebuild/internal/foundation/errors"
)

// includeDirective matches one "@include path" per line. Only whitespace may
// precede the keyword; group 1 spans the directive, group 2 the path.
var includeDirective = regexp.MustCompile(`(?m)^[ \t]*(@include[ \t]+(\S[^\r\n]*?))[ \t]*\r?$`)

var includeQuotes = strings.NewReplacer(`"`, "", `'`, "")

const includeNotFound = "<!-- include not found: %s -->"

// IncludeResolver expands @include directives recursively. Relative paths
// resolve against the directory of the file containing the directive.
// Markdown fragments (.md) are converted to HTML after their own includes
// are expanded.
type IncludeResolver struct {
	// Root, when set, shortens the paths reported in cycle errors.
	Root string

	markdown goldmark.Markdown
}

// NewIncludeResolver returns a resolver reporting paths relative to root.
func NewIncludeResolver(root string) *IncludeResolver {
	return &IncludeResolver{
		Root: root,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
	}
}

var defaultIncludes = NewIncludeResolver("")

// ResolveIncludes expands every directive in text using baseDir for relative paths.
func ResolveIncludes(text, baseDir string) (string, error) {
	return defaultIncludes.Resolve(text, baseDir)
}

// Resolve expands every directive in text using baseDir for relative paths.
func (r *IncludeResolver) Resolve(text, baseDir string) (string, error) {
	return r.resolve(text, baseDir, nil)
}

// ResolveDocument expands the directives of doc. The document itself takes
// part in cycle detection.
func (r *IncludeResolver) ResolveDocument(doc *Document) error {
	out, err := r.resolve(doc.Content, doc.Dir(), []string{filepath.Clean(doc.Path)})
	if err != nil {
		return err
	}
	doc.Content = out
	return nil
}

func (r *IncludeResolver) resolve(text, baseDir string, chain []string) (string, error) {
	matches := includeDirective.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[2]])
		frag, err := r.expand(text[m[4]:m[5]], baseDir, chain)
		if err != nil {
			return "", err
		}
		b.WriteString(frag)
		last = m[3]
	}
	b.WriteString(text[last:])
	return b.String(), nil
}

func (r *IncludeResolver) expand(ref, baseDir string, chain []string) (string, error) {
	ref = strings.TrimSpace(includeQuotes.Replace(ref))
	full := ref
	if !filepath.IsAbs(full) {
		full = filepath.Join(baseDir, ref)
	}
	full = filepath.Clean(full)

	for _, p := range chain {
		if p == full {
			return "", ferrors.IncludeError("cyclic inclusion").
				WithContext("chain", r.describeChain(append(chain[:len(chain):len(chain)], full))).
				Build()
		}
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Sprintf(includeNotFound, ref), nil
		}
		return "", ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to read include").
			WithContext("path", full).Build()
	}

	frag, err := r.resolve(string(data), filepath.Dir(full), append(chain[:len(chain):len(chain)], full))
	if err != nil {
		return "", err
	}
	if strings.EqualFold(filepath.Ext(full), ".md") {
		return r.renderMarkdown(frag, full)
	}
	return frag, nil
}

func (r *IncludeResolver) renderMarkdown(src, path string) (string, error) {
	md := r.markdown
	if md == nil {
		md = defaultIncludes.markdown
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryInclude, "failed to render markdown include").
			WithContext("path", path).Build()
	}
	return buf.String(), nil
}

func (r *IncludeResolver) describeChain(chain []string) string {
	names := make([]string, len(chain))
	for i, p := range chain {
		names[i] = p
		if r.Root != "" {
			if rel, err := filepath.Rel(r.Root, p); err == nil {
				names[i] = filepath.ToSlash(rel)
			}
		}
	}
	return strings.Join(names, " => ")
}
