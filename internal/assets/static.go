package assets

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/sitebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuild/internal/workspace"
)

// StaticOptions selects what CopyStatic skips.
type StaticOptions struct {
	// ExcludeDirs are top-level source directories produced by other stages (css, js, img).
	ExcludeDirs []string
	// ExcludeExts are file extensions rendered elsewhere, lowercase with dot. Default ".html".
	ExcludeExts []string
}

// CopyStatic copies every other file below srcDir into outDir, dotfiles
// included, and returns the copied slash paths in walk order.
func CopyStatic(ctx context.Context, srcDir, outDir string, opts StaticOptions) ([]string, error) {
	exts := opts.ExcludeExts
	if exts == nil {
		exts = []string{".html"}
	}
	skipDirs := make(map[string]bool, len(opts.ExcludeDirs))
	for _, d := range opts.ExcludeDirs {
		skipDirs[filepath.ToSlash(filepath.Clean(d))] = true
	}

	var copied []string
	err := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		slash := filepath.ToSlash(rel)
		if d.IsDir() {
			if skipDirs[slash] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || hasExt(slash, exts) {
			return nil
		}
		if err := workspace.CopyFile(p, filepath.Join(outDir, rel)); err != nil {
			return err
		}
		copied = append(copied, slash)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to copy static files").
			WithContext("path", srcDir).Build()
	}
	return copied, nil
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
