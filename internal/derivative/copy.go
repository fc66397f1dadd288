package derivative

import (
	"context"

	"git.home.luguber.info/inful/sitebuild/internal/workspace"
)

// Copy mirrors Source into Output verbatim. It is used instead of Generate
// when responsive derivatives are not wanted. A missing Source copies nothing.
func (g *Generator) Copy(ctx context.Context) (Result, error) {
	var res Result
	err := workspace.CopyTree(ctx, g.opts.Source, g.opts.Output, func(string) {
		res.Files++
	})
	return res, err
}
