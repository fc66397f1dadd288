package commands

import (
	"fmt"

	"git.home.luguber.info/inful/sitebuild/internal/sitemap"
	"git.home.luguber.info/inful/sitebuild/internal/target"
)

// SitemapCmd implements the 'sitemap' command.
type SitemapCmd struct {
	Dir      string `arg:"" help:"Rendered site directory" type:"existingdir"`
	Base     string `help:"Base path prefixed to every location (e.g. /my-site)"`
	SiteURL  string `name:"site-url" help:"Absolute origin prepended to every location"`
	NotFound string `name:"not-found" help:"Error page excluded from the sitemap" default:"404.html"`
}

func (s *SitemapCmd) Run(_ *Global, _ *CLI) error {
	base := target.NormalizeBasePath(s.Base)
	b := &sitemap.Builder{
		BasePath:  base,
		ApplyBase: base != "",
		SiteURL:   s.SiteURL,
		NotFound:  s.NotFound,
	}
	n, err := b.Write(s.Dir)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s with %d URLs\n", sitemap.FileName, n)
	return nil
}
