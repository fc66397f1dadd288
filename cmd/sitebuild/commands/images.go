package commands

import (
	"fmt"

	"git.home.luguber.info/inful/sitebuild/internal/derivative"
	"git.home.luguber.info/inful/sitebuild/internal/derivative/vips"
)

// ImagesCmd implements the 'images' command: derivative generation without a site build.
type ImagesCmd struct {
	Src       string `help:"Source image root" default:"src/img" type:"path"`
	Out       string `help:"Derivative output root" default:"dist/assets/img" type:"path"`
	Copy      bool   `help:"Copy source images verbatim instead of generating derivatives"`
	Workers   int    `help:"Worker count (0 = number of CPUs)" default:"0"`
	KeepGoing bool   `name:"keep-going" help:"Collect failures instead of stopping at the first"`
}

func (i *ImagesCmd) Run(g *Global, _ *CLI) error {
	opts := derivative.Options{Source: i.Src, Output: i.Out, Workers: i.Workers, KeepGoing: i.KeepGoing}
	if i.Copy {
		res, err := derivative.New(nil, opts).Copy(g.ctx())
		if err != nil {
			return err
		}
		fmt.Printf("Copied %d images to %s\n", res.Files, i.Out)
		return nil
	}

	vips.Startup(0)
	defer vips.Shutdown()
	res, err := derivative.New(vips.Codec{}, opts).Generate(g.ctx())
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d derivatives for %d images to %s (%d capped at native width)\n", res.Files, res.Images, i.Out, res.Capped)
	return nil
}
