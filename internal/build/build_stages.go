package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitebuild/internal/assets"
	"git.home.luguber.info/inful/sitebuild/internal/derivative"
	ferrors "git.home.luguber.info/inful/sitebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuild/internal/linkverify"
	"git.home.luguber.info/inful/sitebuild/internal/logfields"
	"git.home.luguber.info/inful/sitebuild/internal/render"
	"git.home.luguber.info/inful/sitebuild/internal/responsive"
	"git.home.luguber.info/inful/sitebuild/internal/sitemap"
	"git.home.luguber.info/inful/sitebuild/internal/target"
	"git.home.luguber.info/inful/sitebuild/internal/workspace"
)

// jsOutputDir is where minified scripts land inside every target.
const jsOutputDir = "assets/js"

func stagePrepare(_ context.Context, bs *BuildState) error {
	ws := workspace.NewManager("")
	if err := ws.Create(); err != nil {
		return err
	}
	bs.Workspace = ws
	shared, err := ws.CreateSubdir("shared")
	if err != nil {
		return err
	}
	bs.SharedDir = shared
	bs.Report.Revision = sourceRevision(bs.Config.Root)
	return nil
}

func stageCSS(ctx context.Context, bs *BuildState) error {
	cfg := bs.Config
	built, err := assets.BuildCSS(ctx, bs.opts.CSS, cfg.Abs(cfg.CSS.Input), filepath.Join(bs.SharedDir, filepath.FromSlash(cfg.CSS.Output)))
	if err != nil {
		return err
	}
	bs.Report.CSS = built
	if !built {
		slog.Info("No stylesheet entry point, skipping CSS", logfields.Path(cfg.CSS.Input))
	}
	return nil
}

func stageJS(ctx context.Context, bs *BuildState) error {
	n, err := assets.BuildJS(ctx, bs.Config.Abs(bs.Config.JS.Source), filepath.Join(bs.SharedDir, filepath.FromSlash(jsOutputDir)), bs.Config.JS.Target)
	bs.Report.Scripts = n
	return err
}

func stageImages(ctx context.Context, bs *BuildState) error {
	cfg := bs.Config
	opts := derivative.Options{
		Source:    cfg.ImagesDir(),
		Output:    filepath.Join(bs.SharedDir, filepath.FromSlash(responsive.AssetDir)),
		Workers:   cfg.Build.Workers,
		KeepGoing: cfg.Build.KeepGoing,
	}
	if !cfg.Build.PicturesEnabled() {
		res, err := derivative.New(nil, opts).Copy(ctx)
		bs.Report.ImagesCopy = res.Files
		if err == nil {
			slog.Info("Copied original images", logfields.Count(res.Files))
		}
		return err
	}
	if bs.opts.Codec == nil {
		return ferrors.InternalError("no image codec configured").Build()
	}
	res, err := derivative.New(bs.opts.Codec, opts).Generate(ctx)
	bs.Report.Derivatives = res.Files
	bs.Report.Capped = res.Capped
	bs.recorder.AddDerivatives(res.Files)
	return err
}

// stageRender renders every target concurrently into its own staging
// directory. Targets share no mutable state besides the report.
func stageRender(ctx context.Context, bs *BuildState) error {
	eg, egctx := errgroup.WithContext(ctx)
	for _, t := range bs.Targets {
		eg.Go(func() error {
			stage, err := workspace.BeginStaging(t.Output)
			if err != nil {
				return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create staging directory").
					WithContext("target", t.String()).Build()
			}
			bs.setStaging(t.Kind, stage)
			if err := renderTarget(egctx, bs, t, stage.Dir()); err != nil {
				return fmt.Errorf("target %s: %w", t, err)
			}
			return nil
		})
	}
	return eg.Wait()
}

func renderTarget(ctx context.Context, bs *BuildState, t target.Target, dir string) error {
	cfg := bs.Config
	if err := workspace.CopyTree(ctx, bs.SharedDir, dir, nil); err != nil {
		return err
	}
	static, err := assets.CopyStatic(ctx, cfg.SourceDir(), dir, assets.StaticOptions{ExcludeDirs: staticExcludes(cfg)})
	if err != nil {
		return err
	}
	bs.setStaticFiles(len(static))

	r := render.NewRenderer(t, render.Options{
		SourceDir:   cfg.SourceDir(),
		PartialsDir: cfg.PartialsDir(),
		Pictures:    cfg.Build.PicturesEnabled(),
		Picture:     render.PictureOptions{SourceRoots: sourceRoots(cfg.Paths.Source, cfg.Paths.Images)},
		Minifier:    bs.opts.Minifier,
	})
	pages, err := r.RenderTree(ctx, dir)
	if err != nil {
		return err
	}
	bs.addPages(t, len(pages))
	slog.Info("Rendered target", logfields.Target(t.String()), logfields.BasePath(t.BasePath), logfields.Count(len(pages)))

	sm := &sitemap.Builder{
		BasePath:    t.BasePath,
		ApplyBase:   t.Prefixed(),
		SiteURL:     cfg.Sitemap.SiteURL,
		PartialsDir: filepath.ToSlash(cfg.Paths.Partials),
		NotFound:    cfg.Sitemap.NotFound,
		Now:         bs.opts.Now,
	}
	n, err := sm.Write(dir)
	if err != nil {
		return err
	}
	slog.Info("Wrote sitemap", logfields.Target(t.String()), logfields.Count(n))
	return nil
}

// sourceRoots extends the default authoring prefixes with the configured image directory.
func sourceRoots(source, images string) []string {
	roots := append([]string(nil), responsive.DefaultSourceRoots...)
	extra := filepath.ToSlash(filepath.Join(source, images))
	for _, r := range roots {
		if r == extra {
			return roots
		}
	}
	return append([]string{extra}, roots...)
}

// stageVerify reports internal references that do not resolve inside each
// staged target. Findings are warnings; output is never changed.
func stageVerify(_ context.Context, bs *BuildState) error {
	var problems []error
	total := 0
	for _, t := range bs.Targets {
		stage := bs.stagingFor(t.Kind)
		if stage == nil {
			continue
		}
		findings, err := linkverify.VerifyTree(stage.Dir(), t.BasePath)
		if err != nil {
			return err
		}
		for _, f := range findings {
			slog.Warn("Broken reference", logfields.Target(t.String()), logfields.Path(f.Page),
				slog.String("url", f.URL), slog.String("reason", string(f.Reason)))
		}
		bs.recorder.AddBrokenReferences(string(t.Kind), len(findings))
		if len(findings) > 0 {
			total += len(findings)
			problems = append(problems, fmt.Errorf("%d broken references in %s", len(findings), t))
		}
	}
	if len(problems) > 0 {
		return ferrors.WrapError(errors.Join(problems...), ferrors.CategoryValidation, "broken internal references").
			Warning().
			WithContextMap(ferrors.ErrorContext{"count": total, "targets": len(problems)}).
			Build()
	}
	return nil
}

// stagePromote replaces every target output or, on failure, none of them.
func stagePromote(_ context.Context, bs *BuildState) error {
	stages := make([]*workspace.Staging, 0, len(bs.Targets))
	for _, t := range bs.Targets {
		stage := bs.stagingFor(t.Kind)
		if stage == nil {
			return ferrors.InternalError("target was not staged").WithContext("target", t.String()).Build()
		}
		stages = append(stages, stage)
	}
	if err := workspace.PromoteAll(stages...); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to promote targets").Build()
	}
	for _, t := range bs.Targets {
		bs.setStaging(t.Kind, nil)
		slog.Info("Promoted target", logfields.Target(t.String()), logfields.Path(t.Output))
	}
	return nil
}
