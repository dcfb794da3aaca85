// Package screenshot implements the archive.Screenshotter capability over an
// ordered chain of hosted rendering services.
package screenshot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/h4dihastam/archive/internal/archive"
	"github.com/h4dihastam/archive/internal/metrics"
)

// Provider is one screenshot service candidate.
type Provider interface {
	Name() string
	// RequestURL builds the service URL that renders target.
	RequestURL(target string) string
}

// Config controls chain acceptance policy.
type Config struct {
	// MinBytes rejects tiny error-placeholder images that report success.
	MinBytes int
	Timeout  time.Duration
}

// Chain tries providers in strict priority order and stops at the first
// acceptable image. A provider failure is never an error, only a reason to
// move on; total exhaustion is the empty-bytes sentinel.
type Chain struct {
	cfg       Config
	providers []Provider
	client    *http.Client
	logger    *zap.Logger
}

// NewChain builds the provider chain.
func NewChain(cfg Config, logger *zap.Logger, providers ...Provider) *Chain {
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = 8000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 35 * time.Second
	}
	return &Chain{
		cfg:       cfg,
		providers: providers,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
	}
}

// Capture returns the first acceptable provider image, or the empty sentinel
// when every candidate fails.
func (c *Chain) Capture(ctx context.Context, target string) archive.ScreenshotResult {
	for _, p := range c.providers {
		data, err := c.try(ctx, p, target)
		if err != nil {
			metrics.ScreenshotAttempt(p.Name(), false)
			c.logger.Warn("screenshot candidate failed",
				zap.String("provider", p.Name()),
				zap.String("url", target),
				zap.Error(err),
			)
			continue
		}
		metrics.ScreenshotAttempt(p.Name(), true)
		c.logger.Info("screenshot captured",
			zap.String("provider", p.Name()),
			zap.Int("bytes", len(data)),
		)
		return archive.ScreenshotResult{Bytes: data, Source: p.Name()}
	}
	return archive.ScreenshotResult{Bytes: []byte{}}
}

func (c *Chain) try(ctx context.Context, p Provider, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.RequestURL(target), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "image") {
		return nil, fmt.Errorf("unexpected content type %q", ct)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) <= c.cfg.MinBytes {
		return nil, fmt.Errorf("image too small: %d bytes", len(data))
	}
	return data, nil
}

// ThumIO renders through the free image.thum.io service.
type ThumIO struct {
	Width int
	Crop  int
}

// Name identifies the provider.
func (*ThumIO) Name() string { return "thum.io" }

// RequestURL builds the thum.io render URL.
func (t *ThumIO) RequestURL(target string) string {
	width := t.Width
	if width <= 0 {
		width = 1280
	}
	encoded := url.QueryEscape(target)
	if t.Crop > 0 {
		return fmt.Sprintf("https://image.thum.io/get/width/%d/crop/%d/noanimate/allowJPG/%s", width, t.Crop, encoded)
	}
	return fmt.Sprintf("https://image.thum.io/get/width/%d/noanimate/%s", width, encoded)
}

// ScreenshotMachine renders through api.screenshotmachine.com.
type ScreenshotMachine struct {
	Key       string
	Dimension string
	DelayMS   int
}

// Name identifies the provider.
func (*ScreenshotMachine) Name() string { return "screenshotmachine" }

// RequestURL builds the screenshotmachine render URL.
func (s *ScreenshotMachine) RequestURL(target string) string {
	dimension := s.Dimension
	if dimension == "" {
		dimension = "1366x768"
	}
	delay := s.DelayMS
	if delay <= 0 {
		delay = 4000
	}
	return fmt.Sprintf(
		"https://api.screenshotmachine.com/?key=%s&url=%s&dimension=%s&format=png&delay=%d",
		url.QueryEscape(s.Key), url.QueryEscape(target), dimension, delay,
	)
}
