package archive

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRenderer struct {
	res   RenderResult
	calls []RenderOptions
}

func (f *fakeRenderer) Render(_ context.Context, _ string, opts RenderOptions) RenderResult {
	f.calls = append(f.calls, opts)
	return f.res
}

type fakeContent struct {
	res   ContentResult
	calls int
}

func (f *fakeContent) Lookup(context.Context, string) ContentResult {
	f.calls++
	return f.res
}

type fakeShots struct {
	res ScreenshotResult
}

func (f *fakeShots) Capture(context.Context, string) ScreenshotResult {
	return f.res
}

type fakeFetcher struct {
	body  []byte
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(context.Context, string) ([]byte, error) {
	f.calls++
	return f.body, f.err
}

// steppingClock advances one second per reading so repeat captures land in
// distinct folders.
type steppingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(time.Second)
	return now
}

type deps struct {
	renderer *fakeRenderer
	content  *fakeContent
	shots    *fakeShots
	fetcher  *fakeFetcher
}

func newTestArchiver(t *testing.T, cookies []Cookie, d deps) *Archiver {
	t.Helper()
	if d.renderer == nil {
		d.renderer = &fakeRenderer{res: RenderResult{Reason: ReasonNavigationError}}
	}
	if d.content == nil {
		d.content = &fakeContent{}
	}
	if d.shots == nil {
		d.shots = &fakeShots{}
	}
	if d.fetcher == nil {
		d.fetcher = &fakeFetcher{err: errors.New("no fetcher configured")}
	}
	cfg := Config{BaseDir: t.TempDir(), MinSocialHTMLBytes: 3000, MinGenericHTMLBytes: 500}
	clock := &steppingClock{t: time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC)}
	return New(cfg, d.renderer, d.content, d.shots, d.fetcher, cookies, clock, zap.NewNop())
}

func requireArtifactFiles(t *testing.T, art Artifact) {
	t.Helper()
	for _, p := range []string{art.RawHTMLPath, art.RenderedHTMLPath, art.ScreenshotPath} {
		_, err := os.Stat(p)
		require.NoError(t, err, "artifact file must exist: %s", p)
	}
}

func TestArchiveRejectsInvalidURL(t *testing.T) {
	a := newTestArchiver(t, nil, deps{})
	_, err := a.Archive(context.Background(), "ftp://example.com/a")
	require.ErrorIs(t, err, ErrInvalidURL)
}

func TestArchiveGenericShortRenderFallsBackToFetch(t *testing.T) {
	// Scenario A: render output below the threshold, plain fetch supplies a
	// full article page.
	article := "<html><body>" + strings.Repeat("<p>article text</p>", 600) + "</body></html>"
	require.Greater(t, len(article), 10000)

	renderer := &fakeRenderer{res: RenderResult{Succeeded: true, HTML: "<html><body>Hello</body></html>"}}
	fetcher := &fakeFetcher{body: []byte(article)}
	a := newTestArchiver(t, nil, deps{renderer: renderer, fetcher: fetcher})

	art, err := a.Archive(context.Background(), "https://example.com/article")
	require.NoError(t, err)
	requireArtifactFiles(t, art)
	assert.Equal(t, 1, fetcher.calls)

	rendered, err := os.ReadFile(art.RenderedHTMLPath)
	require.NoError(t, err)
	assert.Contains(t, string(rendered), "article text")
	assert.Contains(t, string(rendered), "Archive Hub")
	assert.Contains(t, string(rendered), `href="https://example.com/article"`)

	raw, err := os.ReadFile(art.RawHTMLPath)
	require.NoError(t, err)
	assert.Equal(t, article, string(raw), "raw variant must be unmodified")
}

func TestArchiveGenericRenderKeptDespiteBlockedPhrases(t *testing.T) {
	// A full article that merely mentions a blocked phrase is still the best
	// capture; only failure or short output moves the generic path on.
	article := "<html><body><h1>Tickets no longer not available</h1>" +
		strings.Repeat("<p>review text</p>", 400) + "</body></html>"
	renderer := &fakeRenderer{res: RenderResult{Succeeded: true, HTML: article, Title: "Tickets"}}
	fetcher := &fakeFetcher{body: []byte("<html><body>fetched</body></html>")}
	a := newTestArchiver(t, nil, deps{renderer: renderer, fetcher: fetcher})

	art, err := a.Archive(context.Background(), "https://example.com/review")
	require.NoError(t, err)

	assert.Zero(t, fetcher.calls, "render was usable, plain fetch must not run")
	assert.Equal(t, "Tickets", art.PostMeta["title"])

	raw, err := os.ReadFile(art.RawHTMLPath)
	require.NoError(t, err)
	assert.Equal(t, article, string(raw))
}

func TestArchiveSocialWithoutCookiesUsesContentAPI(t *testing.T) {
	// Scenario B.
	renderer := &fakeRenderer{res: RenderResult{Succeeded: true, HTML: strings.Repeat("x", 5000)}}
	content := &fakeContent{res: ContentResult{Found: true, Author: "Jane", Text: "Hello world"}}
	a := newTestArchiver(t, nil, deps{renderer: renderer, content: content})

	art, err := a.Archive(context.Background(), "https://x.com/user/status/123")
	require.NoError(t, err)
	requireArtifactFiles(t, art)

	assert.Empty(t, renderer.calls, "no credentials configured, render must not be attempted")
	assert.Equal(t, 1, content.calls)
	assert.Equal(t, "Jane", art.PostMeta["author"])

	rendered, err := os.ReadFile(art.RenderedHTMLPath)
	require.NoError(t, err)
	assert.Contains(t, string(rendered), "Jane")
	assert.Contains(t, string(rendered), "Hello world")
}

func TestArchiveSocialCredentialedRenderPreferred(t *testing.T) {
	page := "<html><body>" + strings.Repeat("<div>post content</div>", 300) + "</body></html>"
	renderer := &fakeRenderer{res: RenderResult{Succeeded: true, HTML: page, Title: "Post (@jane)"}}
	content := &fakeContent{res: ContentResult{Found: true, Author: "Jane"}}
	cookies := []Cookie{{Name: "auth_token", Value: "secret", Domain: ".x.com"}}
	a := newTestArchiver(t, cookies, deps{renderer: renderer, content: content})

	art, err := a.Archive(context.Background(), "https://x.com/jane/status/9")
	require.NoError(t, err)

	require.Len(t, renderer.calls, 1)
	assert.Equal(t, cookies, renderer.calls[0].Cookies)
	assert.Zero(t, content.calls, "content API must not run when the render is accepted")
	assert.Equal(t, "Post (@jane)", art.PostMeta["title"])

	raw, err := os.ReadFile(art.RawHTMLPath)
	require.NoError(t, err)
	assert.Equal(t, page, string(raw))
}

func TestArchiveSocialBlockedRenderFallsBack(t *testing.T) {
	blockedPage := "<html><body>Sign in to X" + strings.Repeat(" filler", 1000) + "</body></html>"
	renderer := &fakeRenderer{res: RenderResult{Succeeded: true, HTML: blockedPage}}
	content := &fakeContent{res: ContentResult{Found: true, Author: "Jane", Text: "still here"}}
	cookies := []Cookie{{Name: "auth_token", Value: "expired"}}
	a := newTestArchiver(t, cookies, deps{renderer: renderer, content: content})

	art, err := a.Archive(context.Background(), "https://x.com/jane/status/10")
	require.NoError(t, err)

	assert.Equal(t, 1, content.calls)
	rendered, err := os.ReadFile(art.RenderedHTMLPath)
	require.NoError(t, err)
	assert.Contains(t, string(rendered), "still here")
	assert.NotContains(t, string(rendered), "Sign in to X")
}

func TestArchiveTotalExhaustionWritesPlaceholder(t *testing.T) {
	// Scenarios C and D: render times out, fetch fails, every screenshot
	// provider failed. The artifact is still complete.
	renderer := &fakeRenderer{res: RenderResult{Reason: ReasonTimeout}}
	fetcher := &fakeFetcher{err: errors.New("dial tcp: connection refused")}
	a := newTestArchiver(t, nil, deps{renderer: renderer, fetcher: fetcher})

	art, err := a.Archive(context.Background(), "https://example.com/down")
	require.NoError(t, err, "strategy exhaustion must not surface as an error")
	requireArtifactFiles(t, art)

	rendered, err := os.ReadFile(art.RenderedHTMLPath)
	require.NoError(t, err)
	assert.Contains(t, string(rendered), "Could not archive")
	assert.Contains(t, string(rendered), "connection refused")
	assert.Contains(t, string(rendered), "Archive Hub")

	info, err := os.Stat(art.ScreenshotPath)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	assert.NotNil(t, art.PostMeta)
}

func TestArchiveScreenshotBytesWritten(t *testing.T) {
	shots := &fakeShots{res: ScreenshotResult{Bytes: []byte("png-bytes"), Source: "thum.io"}}
	fetcher := &fakeFetcher{body: []byte(strings.Repeat("<p>ok</p>", 100))}
	a := newTestArchiver(t, nil, deps{shots: shots, fetcher: fetcher})

	art, err := a.Archive(context.Background(), "https://example.com/page")
	require.NoError(t, err)

	data, err := os.ReadFile(art.ScreenshotPath)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestArchiveRepeatCapturesUseDistinctFolders(t *testing.T) {
	fetcher := &fakeFetcher{body: []byte(strings.Repeat("<p>ok</p>", 100))}
	a := newTestArchiver(t, nil, deps{fetcher: fetcher})

	first, err := a.Archive(context.Background(), "https://example.com/page")
	require.NoError(t, err)
	second, err := a.Archive(context.Background(), "https://example.com/page")
	require.NoError(t, err)

	assert.NotEqual(t, first.Folder, second.Folder)
	requireArtifactFiles(t, first)
	requireArtifactFiles(t, second)
}
