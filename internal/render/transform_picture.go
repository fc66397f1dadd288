package render

import (
	"bytes"
	"html"
	"io"
	"log/slog"
	"strings"

	nethtml "golang.org/x/net/html"

	"git.home.luguber.info/inful/sitebuild/internal/logfields"
	"git.home.luguber.info/inful/sitebuild/internal/responsive"
)

// PictureMarker is the attribute that requests responsive expansion.
const PictureMarker = "data-picture"

// PictureOptions tunes marker parsing.
type PictureOptions struct {
	// SourceRoots are the authoring prefixes stripped from src. Nil means
	// responsive.DefaultSourceRoots.
	SourceRoots []string
}

// attributes consumed by the expansion; everything else is carried over to the fallback <img>.
var pictureOwnedAttrs = map[string]bool{
	PictureMarker: true,
	"src":         true,
	"alt":         true,
	"loading":     true,
	"decoding":    true,
	"srcset":      true,
	"sizes":       true,
}

type imgMarker struct {
	src      string
	alt      string
	loading  string
	decoding string
	extra    [][2]string
}

// TransformPictures replaces each <img data-picture="auto" src="..."> with a
// <picture> offering AVIF and WEBP sources at every derivative width plus a
// fallback <img> at the 1200 width. Asset URLs are prefixed with basePath.
// Elements lacking either attribute are written back byte for byte, and so
// are markers whose src is remote or outside the image source roots.
func TransformPictures(text, basePath string, opts PictureOptions) string {
	if !strings.Contains(text, PictureMarker) {
		return text
	}

	var out strings.Builder
	out.Grow(len(text) + len(text)/4)

	z := nethtml.NewTokenizer(strings.NewReader(text))
	for {
		tt := z.Next()
		if tt == nethtml.ErrorToken {
			if z.Err() == io.EOF {
				out.Write(z.Raw())
			}
			break
		}
		// TagName and TagAttr lowercase the underlying buffer, so keep a copy of the raw bytes.
		raw := bytes.Clone(z.Raw())
		if tt != nethtml.StartTagToken && tt != nethtml.SelfClosingTagToken {
			out.Write(raw)
			continue
		}
		marker, ok := readMarker(z)
		if !ok {
			out.Write(raw)
			continue
		}
		img, ok := responsive.ParseSource(marker.src, basePath, opts.SourceRoots)
		if !ok {
			slog.Warn("Picture marker source is not a local source image, left unchanged",
				logfields.Image(marker.src))
			out.Write(raw)
			continue
		}
		writePicture(&out, marker, img, basePath)
	}
	return out.String()
}

func readMarker(z *nethtml.Tokenizer) (imgMarker, bool) {
	name, hasAttr := z.TagName()
	if string(name) != "img" || !hasAttr {
		return imgMarker{}, false
	}

	var m imgMarker
	var marked, hasSrc bool
	for more := true; more; {
		var k, v []byte
		k, v, more = z.TagAttr()
		key, val := string(k), string(v)
		switch key {
		case PictureMarker:
			marked = strings.EqualFold(strings.TrimSpace(val), "auto")
		case "src":
			m.src = strings.TrimSpace(val)
			hasSrc = m.src != ""
		case "alt":
			m.alt = val
		case "loading":
			m.loading = val
		case "decoding":
			m.decoding = val
		}
		if !pictureOwnedAttrs[key] && key != "" {
			m.extra = append(m.extra, [2]string{key, val})
		}
	}
	return m, marked && hasSrc
}

func writePicture(out *strings.Builder, m imgMarker, img responsive.Image, basePath string) {
	fallback := responsive.FallbackFormat(img.Ext)

	loading, decoding := m.loading, m.decoding
	if loading == "" {
		loading = "lazy"
	}
	if decoding == "" {
		decoding = "async"
	}

	out.WriteString("<picture>\n")
	for _, f := range []responsive.Format{responsive.FormatAVIF, responsive.FormatWEBP} {
		out.WriteString(`  <source type="image/`)
		out.WriteString(string(f))
		out.WriteString(`" srcset="`)
		out.WriteString(img.SrcSet(basePath, f))
		out.WriteString(`" sizes="`)
		out.WriteString(responsive.Sizes)
		out.WriteString("\">\n")
	}
	out.WriteString(`  <img src="`)
	out.WriteString(img.URL(basePath, responsive.FallbackWidth, fallback))
	out.WriteString(`" alt="`)
	out.WriteString(html.EscapeString(m.alt))
	out.WriteByte('"')
	for _, kv := range m.extra {
		out.WriteByte(' ')
		out.WriteString(kv[0])
		if kv[1] != "" {
			out.WriteString(`="`)
			out.WriteString(html.EscapeString(kv[1]))
			out.WriteByte('"')
		}
	}
	out.WriteString(` loading="`)
	out.WriteString(html.EscapeString(loading))
	out.WriteString(`" decoding="`)
	out.WriteString(html.EscapeString(decoding))
	out.WriteString("\">\n</picture>")
}
