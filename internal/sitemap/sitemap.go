// Package sitemap scans a rendered target tree and writes sitemap.xml.
package sitemap

import (
	"encoding/xml"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/sitebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuild/internal/target"
)

// FileName is written at the root of each target tree.
const FileName = "sitemap.xml"

const (
	namespace  = "http://www.sitemaps.org/schemas/sitemap/0.9"
	dateLayout = "2006-01-02"
)

// Entry is one page of the sitemap.
type Entry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type urlset struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []Entry  `xml:"url"`
}

// Builder produces the sitemap of one target. The zero value is usable.
type Builder struct {
	// BasePath is prefixed to every location when ApplyBase is set.
	BasePath  string
	ApplyBase bool
	// SiteURL, when set, is prepended to every location to make it absolute.
	SiteURL string
	// PartialsDir is the top-level directory excluded from the sitemap. Default "partials".
	PartialsDir string
	// NotFound is the custom error page name excluded at any depth. Default "404.html".
	NotFound string
	// Now supplies the last-modified date. Default time.Now.
	Now func() time.Time
}

// Build enumerates the HTML pages below root in walk order.
func (b *Builder) Build(root string) ([]Entry, error) {
	lastmod := b.now().Format(dateLayout)
	partials := b.PartialsDir
	if partials == "" {
		partials = "partials"
	}
	notFound := b.NotFound
	if notFound == "" {
		notFound = "404.html"
	}

	var entries []Entry
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel == partials {
				return filepath.SkipDir
			}
			return nil
		}
		if !target.IsPage(d.Name()) || d.Name() == notFound {
			return nil
		}
		entries = append(entries, Entry{Loc: b.location(rel), LastMod: lastmod})
		return nil
	})
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to scan site tree").
			WithContext("path", root).Build()
	}
	return entries, nil
}

// indexDocument is the file name a directory URL serves.
const indexDocument = "index.html"

// location maps "blog/index.html" to "/blog/" and "about.html" to "/about.html/".
func (b *Builder) location(rel string) string {
	if path.Base(rel) == indexDocument {
		rel = path.Dir(rel)
		if rel == "." {
			rel = ""
		}
	}
	p := "/" + rel
	p = strings.TrimRight(p, "/") + "/"
	if b.ApplyBase {
		p = strings.TrimSuffix(b.BasePath, "/") + p
	}
	return b.SiteURL + p
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Marshal renders entries as a sitemap document.
func Marshal(entries []Entry) ([]byte, error) {
	doc := urlset{Xmlns: namespace, URLs: entries}
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	return append(out, '\n'), nil
}

// Write builds the sitemap for root and stores it as root/sitemap.xml.
// It returns the number of entries written.
func (b *Builder) Write(root string) (int, error) {
	entries, err := b.Build(root)
	if err != nil {
		return 0, err
	}
	data, err := Marshal(entries)
	if err != nil {
		return 0, ferrors.WrapError(err, ferrors.CategoryInternal, "failed to encode sitemap").Build()
	}
	if err := os.WriteFile(filepath.Join(root, FileName), data, 0o644); err != nil {
		return 0, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write sitemap").
			WithContext("path", root).Build()
	}
	return len(entries), nil
}
