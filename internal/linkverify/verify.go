// Package linkverify checks rendered targets for internal references that do
// not resolve to a file inside the same target. Findings are reported, never fixed.
package linkverify

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuild/internal/foundation/errors"
)

// Reason explains why a reference was reported.
type Reason string

const (
	ReasonMissing     Reason = "missing"
	ReasonOutsideBase Reason = "outside_base_path"
)

// Finding is one unresolved reference.
type Finding struct {
	Page string // slash path of the page relative to the target root
	Reference
	Reason Reason
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: <%s %s=%q> %s", f.Page, f.Tag, f.Attribute, f.URL, f.Reason)
}

// VerifyTree scans every HTML page below root. Absolute references must
// start with basePath (empty for the root target); relative references
// resolve against the page's directory. Directory references resolve to
// their index.html.
func VerifyTree(root, basePath string) ([]Finding, error) {
	var findings []Finding
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".html") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		page := filepath.ToSlash(rel)
		refs, err := ExtractReferences(p)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			if !isLocal(ref.URL) {
				continue
			}
			if reason, ok := resolve(root, page, basePath, ref.URL); !ok {
				findings = append(findings, Finding{Page: page, Reference: ref, Reason: reason})
			}
		}
		return nil
	})
	if err != nil {
		if _, ok := errors.AsClassified(err); ok {
			return nil, err
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to scan rendered target").WithContext("root", root).Build()
	}
	return findings, nil
}

func resolve(root, page, basePath, ref string) (Reason, bool) {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if ref == "" {
		return "", true
	}
	var target string
	if strings.HasPrefix(ref, "/") {
		if basePath != "" {
			if ref != basePath && !strings.HasPrefix(ref, basePath+"/") {
				return ReasonOutsideBase, false
			}
			ref = strings.TrimPrefix(ref, basePath)
		}
		target = path.Clean("/" + ref)
	} else {
		target = path.Join("/", path.Dir(page), ref)
		if strings.HasSuffix(ref, "/") {
			target += "/"
		}
	}
	if strings.HasSuffix(ref, "/") || ref == "" {
		target = path.Join(target, "index.html")
	}

	local := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(target, "/")))
	info, err := os.Stat(local)
	if err != nil {
		return ReasonMissing, false
	}
	if info.IsDir() {
		if _, err := os.Stat(filepath.Join(local, "index.html")); err != nil {
			return ReasonMissing, false
		}
	}
	return "", true
}
