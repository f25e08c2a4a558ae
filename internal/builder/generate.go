// internal/builder/generate.go
package builder

import (
	"context"
	"fmt"

	"nrcms/internal/content"

	"go.uber.org/zap"
)

// SiteParser loads the content model of a source tree. It is satisfied by
// *markup.Parser.
type SiteParser interface {
	ParseSite(ctx context.Context) (*content.Site, error)
}

// Generate runs one full cycle: parse the source tree, then build it.
func (b *Builder) Generate(ctx context.Context, p SiteParser) (Result, error) {
	site, err := p.ParseSite(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("could not load site: %w", err)
	}
	res, err := b.Build(ctx, site)
	if err != nil {
		return Result{}, err
	}
	res.Diagnostics = len(site.Diagnostics)
	b.logger.Info("generated website",
		zap.String("output", res.Output),
		zap.Int("pages", res.Pages),
		zap.Int("posts", res.Posts),
		zap.Int("assets", res.Assets),
		zap.Int("diagnostics", res.Diagnostics))
	return res, nil
}
