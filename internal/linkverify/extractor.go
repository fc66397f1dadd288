package linkverify

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitebuild/internal/foundation/errors"
)

// Reference is one URL found in a rendered page.
type Reference struct {
	URL       string // The URL or path as written
	Tag       string // HTML tag (a, img, source, script, link, ...)
	Attribute string // Attribute holding the URL (href, src, srcset)
}

// ExtractReferences extracts every href, src and srcset candidate from the HTML file at htmlPath.
func ExtractReferences(htmlPath string) ([]Reference, error) {
	file, err := os.Open(filepath.Clean(htmlPath))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to open HTML file").WithContext("html_path", htmlPath).Build()
	}
	defer func() {
		_ = file.Close()
	}()
	return ExtractReferencesFromReader(file)
}

// ExtractReferencesFromReader extracts references from an HTML reader in document order.
func ExtractReferencesFromReader(r io.Reader) ([]Reference, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML").Build()
	}

	var refs []Reference
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			refs = append(refs, elementReferences(n)...)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs, nil
}

func elementReferences(n *html.Node) []Reference {
	var refs []Reference
	add := func(attr string) {
		if v := getAttr(n, attr); v != "" {
			refs = append(refs, Reference{URL: v, Tag: n.Data, Attribute: attr})
		}
	}
	switch n.Data {
	case "a", "link":
		add("href")
	case "script", "video", "audio", "iframe":
		add("src")
	case "img", "source":
		add("src")
		for _, candidate := range srcsetURLs(getAttr(n, "srcset")) {
			refs = append(refs, Reference{URL: candidate, Tag: n.Data, Attribute: "srcset"})
		}
	}
	return refs
}

// srcsetURLs returns the URL of every "url descriptor" candidate.
func srcsetURLs(srcset string) []string {
	var urls []string
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(candidate)
		if len(fields) > 0 {
			urls = append(urls, fields[0])
		}
	}
	return urls
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// isLocal reports whether ref points into the site itself.
func isLocal(ref string) bool {
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "//") {
		return false
	}
	for _, scheme := range []string{"mailto:", "tel:", "javascript:", "data:"} {
		if strings.HasPrefix(strings.ToLower(ref), scheme) {
			return false
		}
	}
	return !strings.Contains(ref, "://")
}
