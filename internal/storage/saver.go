package storage

import (
	"context"
	"fmt"
	"os"
	"path"

	"go.uber.org/zap"

	"github.com/h4dihastam/archive/internal/archive"
)

// Saver publishes a finished capture: uploads the artifact files and inserts
// the index row. The pipeline itself never sees the durable identifier.
type Saver struct {
	blobs  BlobStore
	index  IndexStore
	ids    IDGenerator
	logger *zap.Logger
}

// NewSaver wires a Saver.
func NewSaver(blobs BlobStore, index IndexStore, ids IDGenerator, logger *zap.Logger) *Saver {
	return &Saver{blobs: blobs, index: index, ids: ids, logger: logger}
}

// Save uploads the artifact and records it, returning the stored row.
// A zero-length screenshot is not uploaded; its URL stays empty.
func (s *Saver) Save(ctx context.Context, art archive.Artifact) (Record, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return Record{}, fmt.Errorf("generate archive id: %w", err)
	}

	rec := Record{
		ID:        id,
		URL:       art.URL,
		Slug:      art.Slug,
		CreatedAt: art.CreatedAt,
		Meta:      art.PostMeta,
	}

	rec.RawURL, err = s.upload(ctx, art.RawHTMLPath, path.Join(id, archive.RawFileName), "text/html; charset=utf-8", false)
	if err != nil {
		return Record{}, err
	}
	rec.HTMLURL, err = s.upload(ctx, art.RenderedHTMLPath, path.Join(id, archive.RenderedFileName), "text/html; charset=utf-8", false)
	if err != nil {
		return Record{}, err
	}
	rec.ScreenshotURL, err = s.upload(ctx, art.ScreenshotPath, path.Join(id, archive.ScreenshotFileName), "image/png", true)
	if err != nil {
		return Record{}, err
	}

	if err := s.index.CreateArchive(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("index archive: %w", err)
	}
	s.logger.Info("archive persisted",
		zap.String("id", id),
		zap.String("url", art.URL),
		zap.String("slug", art.Slug),
	)
	return rec, nil
}

func (s *Saver) upload(ctx context.Context, localPath, remotePath, contentType string, skipEmpty bool) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("read artifact file %s: %w", localPath, err)
	}
	if skipEmpty && len(data) == 0 {
		return "", nil
	}
	url, err := s.blobs.PutObject(ctx, remotePath, contentType, data)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", remotePath, err)
	}
	return url, nil
}
