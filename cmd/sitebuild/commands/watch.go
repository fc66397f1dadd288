package commands

import (
	"context"

	"git.home.luguber.info/inful/sitebuild/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	BuildFlags `embed:""`
	Schedule   string `help:"Cron expression for scheduled rebuilds (overrides watch.schedule)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root, &w.BuildFlags)
	if err != nil {
		return err
	}
	if w.Schedule != "" {
		cfg.Watch.Schedule = w.Schedule
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	builder, cleanup := newBuilder(cfg)
	defer cleanup()

	watcher := watch.New(func(ctx context.Context) error {
		_, err := builder.Run(ctx)
		return err
	}, watch.Options{
		Dirs:     []string{cfg.SourceDir()},
		Debounce: cfg.Watch.DebounceDuration(),
		Schedule: cfg.Watch.Schedule,
	})
	return watcher.Run(g.ctx())
}
