// Package main wires together the archive service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/h4dihastam/archive/internal/api"
	"github.com/h4dihastam/archive/internal/archive"
	"github.com/h4dihastam/archive/internal/clock/system"
	"github.com/h4dihastam/archive/internal/config"
	"github.com/h4dihastam/archive/internal/fetch"
	"github.com/h4dihastam/archive/internal/id/uuid"
	"github.com/h4dihastam/archive/internal/logging"
	"github.com/h4dihastam/archive/internal/meta"
	"github.com/h4dihastam/archive/internal/metrics"
	"github.com/h4dihastam/archive/internal/render"
	"github.com/h4dihastam/archive/internal/screenshot"
	"github.com/h4dihastam/archive/internal/storage"
	"github.com/h4dihastam/archive/internal/storage/local"
	"github.com/h4dihastam/archive/internal/storage/memory"
	"github.com/h4dihastam/archive/internal/storage/postgres"
	"github.com/h4dihastam/archive/internal/storage/supabase"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cookies, err := archive.ParseCookies(cfg.Social.CookiesJSON)
	if err != nil {
		logger.Fatal("parse social cookies failed", zap.Error(err))
	}
	if len(cookies) > 0 {
		logger.Info("credentialed social renders enabled", zap.Int("cookies", len(cookies)))
	}

	var renderer archive.Renderer = render.NewNoop()
	if cfg.Render.Enabled {
		chromedpRenderer, err := render.NewChromedp(render.Config{
			UserAgent:         cfg.Render.UserAgent,
			ViewportWidth:     cfg.Render.ViewportWidth,
			ViewportHeight:    cfg.Render.ViewportHeight,
			NavigationTimeout: cfg.Render.NavTimeout(),
			SettleDelay:       cfg.Render.SettleDelay(),
			MaxParallel:       cfg.Render.MaxParallel,
			DomainQPS:         cfg.Render.DomainQPS,
		}, logger.Named("render"))
		if err != nil {
			logger.Warn("headless renderer init failed", zap.Error(err))
		} else {
			defer chromedpRenderer.Close()
			renderer = chromedpRenderer
		}
	}

	content := meta.NewChain(logger.Named("meta"),
		meta.NewOEmbed(cfg.Content.OEmbedEndpoint, cfg.Content.Timeout()),
		meta.NewMicrolink(cfg.Content.MicrolinkEndpoint, cfg.Content.Timeout()),
	)

	providers := []screenshot.Provider{
		&screenshot.ThumIO{Width: cfg.Screenshot.ThumWidth, Crop: cfg.Screenshot.ThumCrop},
	}
	if cfg.Screenshot.MachineKey != "" {
		providers = append(providers, &screenshot.ScreenshotMachine{
			Key:       cfg.Screenshot.MachineKey,
			Dimension: cfg.Screenshot.MachineDimension,
			DelayMS:   cfg.Screenshot.MachineDelayMS,
		})
	}
	shots := screenshot.NewChain(screenshot.Config{
		MinBytes: cfg.Screenshot.MinBytes,
		Timeout:  cfg.Screenshot.Timeout(),
	}, logger.Named("screenshot"), providers...)

	fetcher := fetch.New(fetch.Config{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.Fetch.Timeout(),
	})

	archiver := archive.New(archive.Config{
		BaseDir:             cfg.Archive.BaseDir,
		MinSocialHTMLBytes:  cfg.Archive.MinSocialHTMLBytes,
		MinGenericHTMLBytes: cfg.Archive.MinGenericHTMLBytes,
		SocialHosts:         cfg.Social.Domains,
	}, renderer, content, shots, fetcher, cookies, system.New(), logger.Named("archiver"))

	blobs, index, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer cleanup()

	saver := storage.NewSaver(blobs, index, uuid.New(), logger.Named("saver"))
	apiServer := api.NewServer(archiver, saver, index, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}

// buildStores resolves the configured blob and index backends. The supabase
// client serves both roles when selected for both.
func buildStores(ctx context.Context, cfg config.Config) (storage.BlobStore, storage.IndexStore, func(), error) {
	cleanup := func() {}

	var supabaseClient *supabase.Client
	if cfg.Storage.Blob == "supabase" || cfg.Storage.Index == "supabase" {
		client, err := supabase.New(supabase.Config{
			BaseURL: cfg.Storage.Supabase.BaseURL,
			APIKey:  cfg.Storage.Supabase.APIKey,
			Bucket:  cfg.Storage.Supabase.Bucket,
			Table:   cfg.Storage.Supabase.Table,
		})
		if err != nil {
			return nil, nil, cleanup, err
		}
		supabaseClient = client
	}

	var blobs storage.BlobStore
	switch cfg.Storage.Blob {
	case "supabase":
		blobs = supabaseClient
	default:
		store, err := local.New(local.Config{
			BaseDir:       cfg.Storage.Local.BaseDir,
			PublicBaseURL: cfg.Storage.Local.PublicBaseURL,
		})
		if err != nil {
			return nil, nil, cleanup, err
		}
		blobs = store
	}

	var index storage.IndexStore
	switch cfg.Storage.Index {
	case "supabase":
		index = supabaseClient
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			return nil, nil, cleanup, err
		}
		cleanup = store.Close
		index = store
	default:
		index = memory.NewIndexStore()
	}

	return blobs, index, cleanup, nil
}
