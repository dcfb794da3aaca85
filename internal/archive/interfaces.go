package archive

import (
	"context"
	"time"
)

// Renderer obtains a page's fully loaded HTML by executing its scripts in a
// headless browser. Strategy failure is reported in the result, never as an
// error; the browser session is torn down on every path.
type Renderer interface {
	Render(ctx context.Context, url string, opts RenderOptions) RenderResult
}

// ContentSource retrieves structured post metadata without executing
// scripts. Transport and parse failures surface as Found=false.
type ContentSource interface {
	Lookup(ctx context.Context, url string) ContentResult
}

// Screenshotter obtains a raster preview of a page. All-providers-failed is
// the empty-bytes sentinel, not an error.
type Screenshotter interface {
	Capture(ctx context.Context, url string) ScreenshotResult
}

// Fetcher performs a plain HTTP GET of a page, the last-resort strategy for
// generic URLs.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}
