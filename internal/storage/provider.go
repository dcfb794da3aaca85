// Package storage defines the persistence boundary the capture pipeline
// hands its artifacts to: blob upload plus a durable archive index.
package storage

import (
	"context"
	"time"
)

// Record is the durable row describing one persisted capture.
type Record struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	Slug          string            `json:"slug"`
	CreatedAt     time.Time         `json:"created_at"`
	HTMLURL       string            `json:"html_url"`
	RawURL        string            `json:"raw_url"`
	ScreenshotURL string            `json:"screenshot_url"`
	Meta          map[string]string `json:"meta,omitempty"`
}

// BlobStore uploads one artifact file and returns its durable URL.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// IndexStore persists and retrieves archive records.
type IndexStore interface {
	CreateArchive(ctx context.Context, rec Record) error
	GetArchive(ctx context.Context, id string) (Record, error)
	ListArchives(ctx context.Context, limit int) ([]Record, error)
}

// IDGenerator produces durable archive identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
