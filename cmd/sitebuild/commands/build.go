package commands

import (
	"fmt"

	"git.home.luguber.info/inful/sitebuild/internal/build"
	"git.home.luguber.info/inful/sitebuild/internal/config"
	"git.home.luguber.info/inful/sitebuild/internal/derivative/vips"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	BuildFlags `embed:""`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root, &b.BuildFlags)
	if err != nil {
		return err
	}
	builder, cleanup := newBuilder(cfg)
	defer cleanup()

	report, err := builder.Run(g.ctx())
	if err != nil {
		return err
	}
	fmt.Println(report.Summary())
	return nil
}

// newBuilder wires the libvips codec when the build needs derivatives.
// The returned cleanup releases libvips.
func newBuilder(cfg *config.Config) (*build.Builder, func()) {
	opts := build.Options{}
	cleanup := func() {}
	if cfg.Build.PicturesEnabled() {
		vips.Startup(0)
		opts.Codec = vips.Codec{}
		cleanup = vips.Shutdown
	}
	return build.New(cfg, opts), cleanup
}
