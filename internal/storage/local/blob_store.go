// Package local implements a filesystem-backed blob store for single-node
// deployments, serving uploads back through the viewer routes.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config captures the local blob store parameters.
type Config struct {
	// BaseDir is the directory published by the HTTP viewer.
	BaseDir string `mapstructure:"base_dir"`
	// PublicBaseURL prefixes returned object URLs; file:// URLs are
	// returned when empty.
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// BlobStore writes artifact blobs under a public directory.
type BlobStore struct {
	baseDir string
	baseURL string
}

// New creates the store, ensuring the base directory exists and is writable.
func New(cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if err := os.MkdirAll(cfg.BaseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	probe := filepath.Join(cfg.BaseDir, ".writable")
	if err := os.WriteFile(probe, nil, 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("clean up probe file: %w", err)
	}
	return &BlobStore{
		baseDir: cfg.BaseDir,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// PutObject writes data under the base directory and returns its public URL.
func (s *BlobStore) PutObject(_ context.Context, path, _ string, data []byte) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(path))
	cleanBase := filepath.Clean(s.baseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes base directory")
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("create parent directories: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o640); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}

	if s.baseURL != "" {
		return s.baseURL + "/" + strings.TrimLeft(path, "/"), nil
	}
	return "file://" + fullPath, nil
}
