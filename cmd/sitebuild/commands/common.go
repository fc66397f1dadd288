package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitebuild/internal/config"
)

// logLevelEnv overrides the log level unless -v is given.
const logLevelEnv = "SITEBUILD_LOG_LEVEL"

// Global carries process-wide state into subcommands.
type Global struct {
	Logger  *slog.Logger
	Context context.Context
}

func (g *Global) ctx() context.Context {
	if g == nil || g.Context == nil {
		return context.Background()
	}
	return g.Context
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (default: ./sitebuild.yaml when present)" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build the root and prefixed sites"`
	Images  ImagesCmd  `cmd:"" help:"Generate responsive image derivatives"`
	Sitemap SitemapCmd `cmd:"" help:"Write sitemap.xml for an already rendered site"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild on source changes and on an optional schedule"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
	Verify  VerifyCmd  `cmd:"" help:"Report broken internal references in the rendered sites"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	setupLogging(c.logLevel(config.LogLevelInfo), config.LogFormatText)
	return nil
}

// logLevel resolves the level: -v, then SITEBUILD_LOG_LEVEL, then configured.
func (c *CLI) logLevel(configured config.LogLevel) slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	if env := os.Getenv(logLevelEnv); env != "" {
		return config.NormalizeLogLevel(env).SlogLevel()
	}
	return configured.SlogLevel()
}

func setupLogging(level slog.Level, format config.LogFormat) {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// BuildFlags override configuration values for build-like commands.
type BuildFlags struct {
	Dev            bool   `help:"Development build: copy original images and leave picture markers untouched"`
	NoPic          bool   `name:"nopic" help:"Skip derivative generation and picture expansion"`
	Workers        int    `help:"Derivative worker count (0 = number of CPUs, -1 = configured)" default:"-1"`
	KeepGoing      bool   `name:"keep-going" help:"Collect image failures instead of stopping at the first"`
	Verify         bool   `help:"Report broken internal references after rendering"`
	Output         string `short:"o" help:"Root target output directory" type:"path"`
	PrefixedOutput string `name:"prefixed-output" help:"Prefixed target output directory" type:"path"`
	MetricsFile    string `name:"metrics-file" help:"Write Prometheus metrics to this file" type:"path"`
}

// apply overlays the flags that were set onto cfg.
func (f *BuildFlags) apply(cfg *config.Config) {
	if f.Dev {
		cfg.Build.Mode = config.BuildModeDevelopment
	}
	if f.NoPic {
		off := false
		cfg.Build.Pictures = &off
	}
	if f.Workers >= 0 {
		cfg.Build.Workers = f.Workers
	}
	if f.KeepGoing {
		cfg.Build.KeepGoing = true
	}
	if f.Verify {
		cfg.Build.Verify = true
	}
	if f.Output != "" {
		cfg.Targets.Root.Output = f.Output
	}
	if f.PrefixedOutput != "" {
		cfg.Targets.Prefixed.Output = f.PrefixedOutput
	}
	if f.MetricsFile != "" {
		cfg.Build.MetricsFile = f.MetricsFile
	}
}

// loadConfig loads and validates the configuration, applies flag
// overrides and reconfigures logging from it.
func loadConfig(root *CLI, flags *BuildFlags) (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadOrDefault(root.Config, wd)
	if err != nil {
		return nil, err
	}
	if flags != nil {
		flags.apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	setupLogging(root.logLevel(cfg.Logging.Level), cfg.Logging.Format)
	slog.Debug("Loaded configuration",
		slog.String("root", cfg.Root),
		slog.String("project", cfg.Project.Name),
		slog.String("source", cfg.SourceDir()),
		slog.String("output", cfg.Abs(cfg.Targets.Root.Output)),
		slog.String("prefixed_output", filepath.Clean(cfg.Abs(cfg.Targets.Prefixed.Output))))
	return cfg, nil
}
