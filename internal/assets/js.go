package assets

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/evanw/esbuild/pkg/api"
	"golang.org/x/sync/errgroup"

	ferrors "git.home.luguber.info/inful/sitebuild/internal/foundation/errors"
)

var jsTargets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// BuildJS minifies every *.js file below srcDir into outDir as an ES module,
// keeping the relative layout and renaming x.js to x.min.js. Files are not
// bundled. It returns the number of files written.
func BuildJS(ctx context.Context, srcDir, outDir, target string) (int, error) {
	esTarget, ok := jsTargets[strings.ToLower(target)]
	if !ok {
		return 0, ferrors.ConfigError("unsupported js target").WithContext("target", target).Build()
	}

	var files []string
	err := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == srcDir {
				return filepath.SkipAll
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".js") && !strings.HasSuffix(d.Name(), ".min.js") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return 0, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to scan scripts").
			WithContext("path", srcDir).Build()
	}

	var written atomic.Int64
	eg, egctx := errgroup.WithContext(ctx)
	for _, in := range files {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			rel, err := filepath.Rel(srcDir, in)
			if err != nil {
				return err
			}
			out := filepath.Join(outDir, strings.TrimSuffix(rel, ".js")+".min.js")
			if err := buildModule(in, out, esTarget); err != nil {
				return err
			}
			written.Add(1)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return int(written.Load()), err
	}
	return int(written.Load()), nil
}

func buildModule(in, out string, target api.Target) error {
	result := api.Build(api.BuildOptions{
		EntryPoints:       []string{in},
		Outfile:           out,
		Bundle:            false,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		Format:            api.FormatESModule,
		Target:            target,
		Write:             true,
		LogLevel:          api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		msgs := api.FormatMessages(result.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})
		return ferrors.ToolchainError("js build failed").
			WithContext("path", in).
			WithContext("output", strings.TrimSpace(strings.Join(msgs, "\n"))).Build()
	}
	return nil
}
