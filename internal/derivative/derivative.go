// Package derivative generates the responsive image set for every source
// raster image: each of the fixed widths encoded as fallback, WEBP and AVIF,
// named by the responsive naming contract.
package derivative

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	ferrors "git.home.luguber.info/inful/sitebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuild/internal/logfields"
	"git.home.luguber.info/inful/sitebuild/internal/responsive"
)

// Codec decodes, resizes and encodes images.
type Codec interface {
	// Width returns the display width of the image at path.
	Width(path string) (int, error)
	// Encode writes src resized to width pixels as format to dst.
	// A width equal to the native width means no resize.
	Encode(ctx context.Context, src, dst string, width int, format responsive.Format) error
}

// Options configures a Generator.
type Options struct {
	// Source is the image root walked for jpg, jpeg and png files.
	Source string
	// Output receives the derivatives, mirroring Source's subdirectories.
	Output string
	// Workers bounds concurrent units. Zero means runtime.NumCPU().
	Workers int
	// KeepGoing collects unit failures instead of stopping at the first one.
	KeepGoing bool
}

// Unit is one (image, width, format) output.
type Unit struct {
	Image  responsive.Image
	Source string
	Dest   string
	// Width is the nominal width encoded in the file name.
	Width int
	// Actual is the encoded width, capped at the source's native width.
	Actual int
	Format responsive.Format
}

// Result summarizes a run.
type Result struct {
	Images int
	Files  int
	// Capped counts units whose actual width is below the nominal width.
	Capped int
}

// Generator produces derivative sets.
type Generator struct {
	codec Codec
	opts  Options
}

// New returns a Generator using codec.
func New(codec Codec, opts Options) *Generator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Generator{codec: codec, opts: opts}
}

// Sources lists the source images below Source in walk order, as slash paths
// relative to Source. A missing Source yields no images.
func (g *Generator) Sources() ([]string, error) {
	var out []string
	err := filepath.WalkDir(g.opts.Source, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == g.opts.Source {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || !responsive.IsSourceImage(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(g.opts.Source, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to scan image sources").
			WithContext("path", g.opts.Source).Build()
	}
	return out, nil
}

// Plan probes every source image and returns its units. Each image yields
// len(responsive.Widths) * 3 units.
func (g *Generator) Plan(ctx context.Context) ([]Unit, error) {
	sources, err := g.Sources()
	if err != nil {
		return nil, err
	}

	plans := make([][]Unit, len(sources))
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Workers)
	for i, rel := range sources {
		eg.Go(func() error {
			units, err := g.planImage(rel)
			if err != nil {
				return err
			}
			plans[i] = units
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	units := make([]Unit, 0, len(sources)*len(responsive.Widths)*3)
	for _, p := range plans {
		units = append(units, p...)
	}
	return units, nil
}

func (g *Generator) planImage(rel string) ([]Unit, error) {
	src := filepath.Join(g.opts.Source, filepath.FromSlash(rel))
	native, err := g.codec.Width(src)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryImage, "failed to read image").
			WithContext("image", rel).Build()
	}

	dir, file := path.Split(rel)
	ext := path.Ext(file)
	img := responsive.Image{
		Name:   strings.TrimSuffix(file, ext),
		Subdir: strings.TrimSuffix(dir, "/"),
		Ext:    strings.TrimPrefix(ext, "."),
	}

	units := make([]Unit, 0, len(responsive.Widths)*3)
	for _, w := range responsive.Widths {
		for _, f := range responsive.FormatsFor(img.Ext) {
			units = append(units, Unit{
				Image:  img,
				Source: src,
				Dest:   filepath.Join(g.opts.Output, filepath.FromSlash(img.RelPath(w, f))),
				Width:  w,
				Actual: min(w, native),
				Format: f,
			})
		}
	}
	return units, nil
}

// Generate regenerates every derivative unconditionally. By default the
// first failing unit cancels the rest; with KeepGoing all units run and the
// failures are returned together.
func (g *Generator) Generate(ctx context.Context) (Result, error) {
	units, err := g.Plan(ctx)
	if err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(g.opts.Output, 0o755); err != nil {
		return Result{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create image output").
			WithContext("path", g.opts.Output).Build()
	}

	var (
		files, capped atomic.Int64
		mu            sync.Mutex
		failures      []error
	)

	eg, egctx := &errgroup.Group{}, ctx
	if !g.opts.KeepGoing {
		eg, egctx = errgroup.WithContext(ctx)
	}
	eg.SetLimit(g.opts.Workers)

	for _, u := range units {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			if err := g.encode(egctx, u); err != nil {
				if !g.opts.KeepGoing {
					return err
				}
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
				return nil
			}
			files.Add(1)
			if u.Actual < u.Width {
				capped.Add(1)
			}
			return nil
		})
	}

	res := Result{Images: len(units) / (len(responsive.Widths) * 3)}
	err = eg.Wait()
	res.Files = int(files.Load())
	res.Capped = int(capped.Load())
	if err != nil {
		return res, err
	}
	if len(failures) > 0 {
		return res, ferrors.WrapError(errors.Join(failures...), ferrors.CategoryImage,
			fmt.Sprintf("%d of %d derivatives failed", len(failures), len(units))).
			WithContext("failed", len(failures)).Build()
	}
	slog.Info("Generated derivatives", logfields.Count(res.Files), slog.Int("images", res.Images))
	return res, nil
}

func (g *Generator) encode(ctx context.Context, u Unit) error {
	if err := os.MkdirAll(filepath.Dir(u.Dest), 0o755); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create image directory").
			WithContext("path", filepath.Dir(u.Dest)).Build()
	}
	if err := g.codec.Encode(ctx, u.Source, u.Dest, u.Actual, u.Format); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryImage, "failed to encode derivative").
			WithContext("image", u.Image.RelPath(u.Width, u.Format)).
			WithContext("width", u.Actual).Build()
	}
	slog.Debug("Wrote derivative",
		logfields.Image(u.Image.RelPath(u.Width, u.Format)),
		logfields.Width(u.Actual),
		logfields.Format(string(u.Format)))
	return nil
}
