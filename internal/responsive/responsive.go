// Package responsive holds the naming contract shared by the derivative
// generator and the picture transformer: the fixed widths and formats, the
// derivative file names, and the asset URLs that reference them.
//
// Neither side checks the other. A derivative written under a name this
// package does not produce is never referenced, and a URL it produces for an
// image that was never generated is a broken reference in the rendered site.
package responsive

import (
	"path"
	"regexp"
	"strconv"
	"strings"
)

// Format identifies one encoded variant of a derivative.
type Format string

const (
	FormatAVIF Format = "avif"
	FormatWEBP Format = "webp"
	// FormatJPG is the fallback used when the source extension is not jpg/jpeg/png.
	FormatJPG Format = "jpg"
)

// Encoder qualities for the modern formats.
const (
	QualityAVIF = 50
	QualityWEBP = 82
	// QualityJPEG applies to jpg/jpeg fallbacks.
	QualityJPEG = 80
)

// Widths are the nominal derivative widths, smallest first.
var Widths = [...]int{480, 768, 1200, 1920}

// FallbackWidth is the width referenced by the <img> fallback inside <picture>.
const FallbackWidth = 1200

// Sizes is the breakpoint hint emitted on every <source>.
const Sizes = "(max-width: 480px) 480w, (max-width: 768px) 768w, (max-width: 1200px) 1200w, 1920w"

// AssetDir is the URL directory derivatives are published under.
const AssetDir = "assets/img"

// SourceExtensions lists the raster extensions the generator accepts (lowercase, no dot).
var SourceExtensions = []string{"jpg", "jpeg", "png"}

var fallbackExtRe = regexp.MustCompile(`(?i)^(jpe?g|png)$`)

// FallbackFormat returns the source extension when it is jpg, jpeg or png
// (case preserved) and jpg otherwise.
func FallbackFormat(ext string) Format {
	ext = strings.TrimPrefix(ext, ".")
	if fallbackExtRe.MatchString(ext) {
		return Format(ext)
	}
	return FormatJPG
}

// IsSourceImage reports whether name has an extension the generator processes.
func IsSourceImage(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	for _, e := range SourceExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FormatsFor returns the three formats produced for a source with the given extension.
func FormatsFor(ext string) [3]Format {
	return [3]Format{FallbackFormat(ext), FormatWEBP, FormatAVIF}
}

// FileName returns "{name}-{width}.{format}".
func FileName(name string, width int, format Format) string {
	return name + "-" + strconv.Itoa(width) + "." + string(format)
}

// Image identifies a logical source image: its name without extension, the
// subdirectory below the image root (slash separated, possibly empty) and the
// extension without the dot.
type Image struct {
	Name   string
	Subdir string
	Ext    string
}

// RelPath returns the slash-separated path of a derivative relative to the image root.
func (i Image) RelPath(width int, format Format) string {
	return path.Join(i.Subdir, FileName(i.Name, width, format))
}

// URL returns "{basePath}/assets/img/{subdir/}{name}-{width}.{format}".
func (i Image) URL(basePath string, width int, format Format) string {
	return strings.TrimSuffix(basePath, "/") + "/" + AssetDir + "/" + i.RelPath(width, format)
}

// SrcSet returns the width-descriptor list for one format across all widths.
func (i Image) SrcSet(basePath string, format Format) string {
	parts := make([]string, 0, len(Widths))
	for _, w := range Widths {
		parts = append(parts, i.URL(basePath, w, format)+" "+strconv.Itoa(w)+"w")
	}
	return strings.Join(parts, ", ")
}

// DefaultSourceRoots are the authoring prefixes stripped from a marker's src.
var DefaultSourceRoots = []string{"src/img", AssetDir, "img"}

// ParseSource derives the logical image from an authored src attribute. The
// target base path (if any), leading "./", "../" and "/" segments and the
// first matching source root are removed before the directory is taken as
// subdir. ok is false for a src with a scheme or a "//" host prefix, and for
// one that does not live below any of roots: no derivative exists for it.
func ParseSource(src, basePath string, roots []string) (img Image, ok bool) {
	if roots == nil {
		roots = DefaultSourceRoots
	}
	if strings.HasPrefix(src, "//") || hasScheme(src) {
		return Image{}, false
	}
	if basePath != "" && strings.HasPrefix(src, basePath+"/") {
		src = strings.TrimPrefix(src, basePath)
	}
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}

	dir, file := path.Split(trimRelative(src))
	ext := path.Ext(file)
	name := strings.TrimSuffix(file, ext)
	if name == "" {
		return Image{}, false
	}

	dir = strings.TrimSuffix(dir, "/")
	for _, root := range roots {
		if dir == root {
			return Image{Name: name, Ext: strings.TrimPrefix(ext, ".")}, true
		}
		if strings.HasPrefix(dir, root+"/") {
			return Image{Name: name, Subdir: strings.TrimPrefix(dir, root+"/"), Ext: strings.TrimPrefix(ext, ".")}, true
		}
	}
	return Image{}, false
}

// trimRelative strips any run of leading "./", "../" and "/" segments.
func trimRelative(p string) string {
	for {
		switch {
		case strings.HasPrefix(p, "../"):
			p = p[3:]
		case strings.HasPrefix(p, "./"):
			p = p[2:]
		case strings.HasPrefix(p, "/"):
			p = p[1:]
		default:
			return p
		}
	}
}

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

func hasScheme(src string) bool { return schemeRe.MatchString(src) }
