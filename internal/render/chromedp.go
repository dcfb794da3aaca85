// Package render implements the archive.Renderer capability with headless
// Chrome via chromedp.
package render

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/h4dihastam/archive/internal/archive"
)

// ErrRendererDisabled indicates rendering has been disabled via configuration.
var ErrRendererDisabled = errors.New("renderer disabled")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// Config controls the chromedp renderer.
type Config struct {
	UserAgent         string
	ViewportWidth     int64
	ViewportHeight    int64
	NavigationTimeout time.Duration
	// SettleDelay is the fixed pause after the content-loaded signal; many
	// target pages populate their content asynchronously after initial load.
	SettleDelay time.Duration
	MaxParallel int
	DomainQPS   float64
}

// Chromedp renders pages in headless Chrome. One shared allocator, one
// isolated tab per Render call, torn down on every exit path.
type Chromedp struct {
	cfg            Config
	allocator      context.Context
	allocCancel    context.CancelFunc
	sem            chan struct{}
	domainLimiters sync.Map
	logger         *zap.Logger
}

// NewChromedp creates the renderer. MaxParallel <= 0 disables rendering.
func NewChromedp(cfg Config, logger *zap.Logger) (*Chromedp, error) {
	if cfg.MaxParallel <= 0 {
		return nil, ErrRendererDisabled
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = 1280
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = 900
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 35 * time.Second
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 5 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Chromedp{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		sem:         make(chan struct{}, cfg.MaxParallel),
		logger:      logger,
	}, nil
}

// Close cancels the allocator, terminating the browser process.
func (r *Chromedp) Close() {
	r.allocCancel()
}

// Render navigates rawURL in a fresh tab and returns the DOM snapshot after
// the settle delay. Strategy failure is reported in the result; the tab is
// always released.
func (r *Chromedp) Render(ctx context.Context, rawURL string, opts archive.RenderOptions) archive.RenderResult {
	if err := r.acquireSlot(ctx); err != nil {
		return archive.RenderResult{Reason: archive.ReasonTimeout}
	}
	defer r.releaseSlot()

	if err := r.waitDomainBudget(ctx, rawURL); err != nil {
		return archive.RenderResult{Reason: archive.ReasonNavigationError}
	}

	tabCtx, cancelTab := chromedp.NewContext(r.allocator)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, r.cfg.NavigationTimeout)
	defer cancelTask()

	var (
		html  string
		title string
	)
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(r.cfg.UserAgent),
		chromedp.EmulateViewport(r.cfg.ViewportWidth, r.cfg.ViewportHeight),
		r.setCookiesAction(opts.Cookies),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.cfg.SettleDelay),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		reason := archive.ReasonNavigationError
		if errors.Is(err, context.DeadlineExceeded) {
			reason = archive.ReasonTimeout
		}
		r.logger.Warn("render failed",
			zap.String("url", rawURL),
			zap.String("reason", string(reason)),
			zap.Error(err),
		)
		return archive.RenderResult{Reason: reason}
	}
	if html == "" {
		return archive.RenderResult{Reason: archive.ReasonNavigationError}
	}
	return archive.RenderResult{Succeeded: true, HTML: html, Title: title}
}

func (r *Chromedp) setCookiesAction(cookies []archive.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, ck := range cookies {
			p := network.SetCookie(ck.Name, ck.Value).
				WithDomain(ck.Domain).
				WithPath(ck.Path).
				WithSecure(ck.Secure).
				WithHTTPOnly(ck.HTTPOnly)
			if ss := sameSite(ck.SameSite); ss != "" {
				p = p.WithSameSite(ss)
			}
			if err := p.Do(ctx); err != nil {
				return fmt.Errorf("set cookie %q: %w", ck.Name, err)
			}
		}
		return nil
	})
}

func sameSite(v string) network.CookieSameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return network.CookieSameSiteStrict
	case "lax":
		return network.CookieSameSiteLax
	case "none":
		return network.CookieSameSiteNone
	default:
		return ""
	}
}

func (r *Chromedp) acquireSlot(ctx context.Context) error {
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("acquire render slot: %w", ctx.Err())
	}
}

func (r *Chromedp) releaseSlot() {
	<-r.sem
}

func (r *Chromedp) waitDomainBudget(ctx context.Context, rawURL string) error {
	if r.cfg.DomainQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse render url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := r.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(r.cfg.DomainQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}
