// Package meta implements the script-free content-API strategy: structured
// post metadata from public embed/preview endpoints, merged across providers.
package meta

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/h4dihastam/archive/internal/archive"
)

// Source is one metadata provider. Errors mean "this provider yielded
// nothing"; the chain falls through to the next one.
type Source interface {
	Name() string
	Lookup(ctx context.Context, pageURL string) (archive.ContentResult, error)
}

// Chain queries sources in priority order and merges their fields
// first-non-empty-wins. It implements archive.ContentSource and never
// returns an error: exhausting every provider is Found=false.
type Chain struct {
	sources []Source
	logger  *zap.Logger
}

// NewChain builds a provider chain.
func NewChain(logger *zap.Logger, sources ...Source) *Chain {
	return &Chain{sources: sources, logger: logger}
}

// Lookup merges provider results until the text and author fields are both
// populated or the providers run out.
func (c *Chain) Lookup(ctx context.Context, pageURL string) archive.ContentResult {
	var merged archive.ContentResult
	for _, src := range c.sources {
		res, err := src.Lookup(ctx, pageURL)
		if err != nil {
			c.logger.Warn("content provider failed",
				zap.String("provider", src.Name()),
				zap.String("url", pageURL),
				zap.Error(err),
			)
			continue
		}
		merged = merge(merged, res)
		if merged.Author != "" && merged.Text != "" {
			break
		}
	}
	merged.Found = merged.Text != "" || merged.Author != ""
	return merged
}

// merge keeps already-populated fields; a later provider never overwrites
// them with an empty value.
func merge(base, next archive.ContentResult) archive.ContentResult {
	if base.Author == "" {
		base.Author = next.Author
	}
	if base.Handle == "" {
		base.Handle = next.Handle
	}
	if base.Text == "" {
		base.Text = next.Text
	}
	if base.Date == "" {
		base.Date = next.Date
	}
	if len(base.MediaURLs) == 0 {
		base.MediaURLs = next.MediaURLs
	}
	return base
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
