package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/h4dihastam/archive/internal/metrics"
)

// Fixed per-capture filenames; the only on-disk contract the pipeline
// guarantees.
const (
	RawFileName        = "raw.html"
	RenderedFileName   = "archive.html"
	ScreenshotFileName = "screenshot.png"
)

// Config holds the Archiver's policy knobs. Thresholds gate acceptance of
// strategy output; they are configuration, never computed.
type Config struct {
	// BaseDir is the root under which capture folders are created.
	BaseDir string
	// MinSocialHTMLBytes rejects credentialed social renders that are
	// technically well-formed but implausibly small (stub or error shells).
	MinSocialHTMLBytes int
	// MinGenericHTMLBytes is the same guard for generic renders.
	MinGenericHTMLBytes int
	// SocialHosts overrides DefaultSocialHosts when non-empty.
	SocialHosts []string
}

// Archiver sequences the capture strategies for one URL and assembles the
// artifact. Archive never panics and degrades every strategy failure to a
// placeholder; its error return is reserved for contract violations.
type Archiver struct {
	cfg      Config
	renderer Renderer
	content  ContentSource
	shots    Screenshotter
	fetcher  Fetcher
	cookies  []Cookie
	clock    Clock
	logger   *zap.Logger
}

// New wires an Archiver from its strategy implementations. cookies may be
// nil, meaning no credentialed render is available for social posts.
func New(
	cfg Config,
	renderer Renderer,
	content ContentSource,
	shots Screenshotter,
	fetcher Fetcher,
	cookies []Cookie,
	clock Clock,
	logger *zap.Logger,
) *Archiver {
	if cfg.MinSocialHTMLBytes <= 0 {
		cfg.MinSocialHTMLBytes = 3000
	}
	if cfg.MinGenericHTMLBytes <= 0 {
		cfg.MinGenericHTMLBytes = 500
	}
	return &Archiver{
		cfg:      cfg,
		renderer: renderer,
		content:  content,
		shots:    shots,
		fetcher:  fetcher,
		cookies:  cookies,
		clock:    clock,
		logger:   logger,
	}
}

// Archive captures rawURL into a fresh folder under BaseDir and returns the
// artifact. The three artifact files exist on disk on every return path that
// is not an error; errors are limited to invalid URLs and filesystem
// failures on folder creation or artifact writes.
func (a *Archiver) Archive(ctx context.Context, rawURL string) (Artifact, error) {
	if err := ValidateURL(rawURL); err != nil {
		return Artifact{}, err
	}

	now := a.clock.Now()
	slug := Slug(rawURL, now)
	folder := filepath.Join(a.cfg.BaseDir, slug)
	if err := os.MkdirAll(folder, 0o750); err != nil {
		return Artifact{}, fmt.Errorf("create capture folder: %w", err)
	}

	// Screenshot and HTML acquisition have no data dependency; run the
	// provider chain while the render happens.
	shotCh := make(chan ScreenshotResult, 1)
	go func() {
		shotCh <- a.shots.Capture(ctx, rawURL)
	}()

	class := Classify(rawURL, a.cfg.SocialHosts)
	var (
		raw, rendered string
		postMeta      map[string]string
		outcome       string
	)
	if class == ClassSocialPost {
		raw, rendered, postMeta, outcome = a.captureSocial(ctx, rawURL, now)
	} else {
		raw, rendered, postMeta, outcome = a.captureGeneric(ctx, rawURL, now)
	}

	shot := <-shotCh

	art := Artifact{
		URL:              rawURL,
		CreatedAt:        now,
		Slug:             slug,
		Folder:           folder,
		RawHTMLPath:      filepath.Join(folder, RawFileName),
		RenderedHTMLPath: filepath.Join(folder, RenderedFileName),
		ScreenshotPath:   filepath.Join(folder, ScreenshotFileName),
		PostMeta:         postMeta,
	}
	if err := writeArtifactFiles(art, raw, rendered, shot.Bytes); err != nil {
		return Artifact{}, err
	}

	metrics.CaptureCompleted(string(class), outcome)
	a.logger.Info("capture complete",
		zap.String("url", rawURL),
		zap.String("class", string(class)),
		zap.String("outcome", outcome),
		zap.String("slug", slug),
		zap.Int("html_bytes", len(rendered)),
		zap.Int("screenshot_bytes", len(shot.Bytes)),
		zap.String("screenshot_source", shot.Source),
	)
	return art, nil
}

// captureSocial prefers a credentialed render (highest fidelity) and falls
// back to the content-API chain, whose output is synthesized into a
// self-describing page.
func (a *Archiver) captureSocial(ctx context.Context, rawURL string, now time.Time) (raw, rendered string, postMeta map[string]string, outcome string) {
	postMeta = map[string]string{}

	res := RenderResult{Reason: ReasonNotAttempted}
	if len(a.cookies) > 0 {
		res = a.renderer.Render(ctx, rawURL, RenderOptions{Cookies: a.cookies})
		if res.Succeeded && (IsBlocked(res.HTML) || len(res.HTML) < a.cfg.MinSocialHTMLBytes) {
			// The transport succeeded but the content did not: the page is a
			// login wall or stub. Blocked is the Archiver's judgment, not the
			// renderer's.
			a.logger.Warn("social render rejected",
				zap.String("url", rawURL),
				zap.Bool("blocked", IsBlocked(res.HTML)),
				zap.Int("html_bytes", len(res.HTML)),
			)
			res = RenderResult{Succeeded: false, Reason: ReasonBlocked}
		}
	}

	if res.Succeeded {
		if res.Title != "" {
			postMeta["title"] = res.Title
		}
		return res.HTML, InjectBanner(res.HTML, rawURL, now), postMeta, "rendered"
	}

	metrics.StrategyFallback("social-render")
	content := a.content.Lookup(ctx, rawURL)
	if content.Author != "" {
		postMeta["author"] = content.Author
		postMeta["title"] = "Post by " + content.Author
	}
	if content.Handle != "" {
		postMeta["handle"] = content.Handle
	}

	// The synthesized page carries its own banner and is the archival record
	// for both variants.
	page := RenderPostPage(rawURL, content, now)
	return page, page, postMeta, "content-api"
}

// captureGeneric renders without credentials, falls back to a plain HTTP
// fetch, and finally writes an error placeholder embedding the last failure.
func (a *Archiver) captureGeneric(ctx context.Context, rawURL string, now time.Time) (raw, rendered string, postMeta map[string]string, outcome string) {
	outcome = "rendered"
	html := ""
	usedRender := false

	// Unlike the social path, a successful render is not screened against the
	// blocked phrase list: ordinary articles may legitimately contain those
	// phrases, and the plain fetch below would be a strictly worse capture.
	res := a.renderer.Render(ctx, rawURL, RenderOptions{})
	if res.Succeeded && len(res.HTML) >= a.cfg.MinGenericHTMLBytes {
		html = res.HTML
		usedRender = true
	} else {
		metrics.StrategyFallback("generic-render")
		a.logger.Debug("generic render unusable",
			zap.String("url", rawURL),
			zap.Bool("succeeded", res.Succeeded),
			zap.String("reason", string(res.Reason)),
			zap.Int("html_bytes", len(res.HTML)),
		)
		body, err := a.fetcher.Fetch(ctx, rawURL)
		if err != nil {
			metrics.StrategyFallback("plain-fetch")
			html = ErrorPage(rawURL, err.Error())
			outcome = "placeholder"
		} else {
			html = string(body)
			outcome = "plain-fetch"
		}
	}

	postMeta = ExtractPageMeta(html)
	if usedRender && res.Title != "" {
		postMeta["title"] = res.Title
	}
	return html, InjectBanner(html, rawURL, now), postMeta, outcome
}

func writeArtifactFiles(art Artifact, raw, rendered string, screenshot []byte) error {
	if err := os.WriteFile(art.RawHTMLPath, []byte(raw), 0o640); err != nil {
		return fmt.Errorf("write raw html: %w", err)
	}
	if err := os.WriteFile(art.RenderedHTMLPath, []byte(rendered), 0o640); err != nil {
		return fmt.Errorf("write rendered html: %w", err)
	}
	if screenshot == nil {
		screenshot = []byte{}
	}
	if err := os.WriteFile(art.ScreenshotPath, screenshot, 0o640); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return nil
}
