// Package memory provides in-memory storage implementations for tests and
// local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/h4dihastam/archive/internal/storage"
)

// IndexStore keeps archive records in a map.
type IndexStore struct {
	mu      sync.RWMutex
	records map[string]storage.Record
}

// NewIndexStore creates an empty in-memory index.
func NewIndexStore() *IndexStore {
	return &IndexStore{records: make(map[string]storage.Record)}
}

// CreateArchive stores the record, rejecting duplicate IDs.
func (s *IndexStore) CreateArchive(_ context.Context, rec storage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("archive %q already exists", rec.ID)
	}
	s.records[rec.ID] = rec
	return nil
}

// GetArchive returns the record for id.
func (s *IndexStore) GetArchive(_ context.Context, id string) (storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return storage.Record{}, fmt.Errorf("archive %q not found", id)
	}
	return rec, nil
}

// ListArchives returns up to limit records, newest first.
func (s *IndexStore) ListArchives(_ context.Context, limit int) ([]storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// BlobStore keeps uploaded blobs in a map, keyed by path.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewBlobStore creates an empty in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

// PutObject stores data and returns a mem:// URL.
func (s *BlobStore) PutObject(_ context.Context, path, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[path] = append([]byte(nil), data...)
	return "mem://" + path, nil
}

// GetObject returns a stored blob (test helper).
func (s *BlobStore) GetObject(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[path]
	return data, ok
}
