package build

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuild/internal/assets"
	"git.home.luguber.info/inful/sitebuild/internal/config"
	"git.home.luguber.info/inful/sitebuild/internal/derivative"
	"git.home.luguber.info/inful/sitebuild/internal/logfields"
	"git.home.luguber.info/inful/sitebuild/internal/metrics"
	"git.home.luguber.info/inful/sitebuild/internal/render"
	"git.home.luguber.info/inful/sitebuild/internal/target"
)

// Options supplies the collaborators of a build. Zero fields get defaults.
type Options struct {
	// Codec encodes derivatives. Required unless pictures are disabled.
	Codec derivative.Codec
	// CSS builds the stylesheet. Default runs config.CSS.Command.
	CSS assets.CSSBuilder
	// Minifier post-processes pages. Default is the HTML minifier when
	// minification is enabled.
	Minifier render.Minifier
	// Recorder receives metrics. Default is a Prometheus recorder when
	// build.metrics_file is set and a NoopRecorder otherwise.
	Recorder metrics.Recorder
	// Now is the sitemap clock. Default time.Now.
	Now func() time.Time
}

// Builder runs complete builds of one project.
type Builder struct {
	cfg      *config.Config
	opts     Options
	registry *prom.Registry
}

// New returns a Builder for cfg.
func New(cfg *config.Config, opts Options) *Builder {
	b := &Builder{cfg: cfg}
	if opts.CSS == nil {
		opts.CSS = &assets.CommandCSS{Command: cfg.CSS.Command, Dir: cfg.Root}
	}
	if opts.Minifier == nil && cfg.Build.MinifyEnabled() {
		opts.Minifier = render.NewHTMLMinifier()
	}
	if opts.Recorder == nil {
		if cfg.Build.MetricsFile != "" {
			b.registry = prom.NewRegistry()
			opts.Recorder = metrics.NewPrometheusRecorder(b.registry)
		} else {
			opts.Recorder = metrics.NoopRecorder{}
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	b.opts = opts
	return b
}

// Targets returns the Root and BasePrefixed targets in render order.
func (b *Builder) Targets() []target.Target {
	return []target.Target{
		target.New(target.Root, "", b.cfg.Abs(b.cfg.Targets.Root.Output)),
		target.New(target.BasePrefixed, b.cfg.Targets.Prefixed.BasePath, b.cfg.Abs(b.cfg.Targets.Prefixed.Output)),
	}
}

// Run performs one full build. The returned report is never nil; on failure
// it records the failing stage and no target output has been replaced.
func (b *Builder) Run(ctx context.Context) (*BuildReport, error) {
	report := newBuildReport(b.cfg.Project.Name, string(b.cfg.Build.Mode))
	bs := newBuildState(b.cfg, b.Targets(), report, b.opts)
	defer bs.cleanup()

	slog.Info("Starting build",
		logfields.BuildID(report.BuildID),
		slog.String("project", b.cfg.Project.Name),
		slog.String("mode", string(b.cfg.Build.Mode)),
		slog.Bool("pictures", b.cfg.Build.PicturesEnabled()))

	stages := NewPipeline().
		Add(StagePrepare, stagePrepare).
		Add(StageCSS, stageCSS).
		Add(StageJS, stageJS).
		Add(StageImages, stageImages).
		Add(StageRender, stageRender).
		AddIf(b.cfg.Build.Verify, StageVerify, stageVerify).
		Add(StagePromote, stagePromote).
		Build()

	err := runStages(ctx, bs, stages)
	report.finish()

	rec := b.opts.Recorder
	rec.ObserveBuildDuration(report.Duration())
	rec.IncBuildOutcome(report.Outcome)

	if b.cfg.Build.Report != "" {
		if perr := report.Persist(b.cfg.Abs(b.cfg.Build.Report)); perr != nil {
			slog.Warn("Failed to persist build report", logfields.Error(perr))
		}
	}
	if b.registry != nil {
		if merr := metrics.WriteTextfile(b.registry, b.cfg.Abs(b.cfg.Build.MetricsFile)); merr != nil {
			slog.Warn("Failed to write metrics file", logfields.Error(merr))
		}
	}

	if err != nil {
		slog.Error("Build failed", logfields.BuildID(report.BuildID), logfields.Error(err),
			logfields.DurationMS(float64(report.Duration().Milliseconds())))
		return report, err
	}
	slog.Info("Build completed",
		logfields.BuildID(report.BuildID),
		slog.String("outcome", string(report.Outcome)),
		slog.Int("pages_root", report.Pages[string(target.Root)]),
		slog.Int("pages_prefixed", report.Pages[string(target.BasePrefixed)]),
		slog.Int("derivatives", report.Derivatives),
		logfields.DurationMS(float64(report.Duration().Milliseconds())))
	return report, nil
}

// staticExcludes lists the source directories consumed by the asset stages,
// relative to the source tree. Directories outside the source tree are ignored.
func staticExcludes(cfg *config.Config) []string {
	src := cfg.SourceDir()
	dirs := []string{filepath.Clean(cfg.Paths.Images)}
	for _, d := range []string{filepath.Dir(cfg.Abs(cfg.CSS.Input)), cfg.Abs(cfg.JS.Source)} {
		rel, err := filepath.Rel(src, d)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		dirs = append(dirs, rel)
	}
	return dirs
}
