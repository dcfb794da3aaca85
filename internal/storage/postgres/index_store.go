// Package postgres provides a Postgres-backed archive index.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/h4dihastam/archive/internal/storage"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the connection pool for the archive index.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// IndexStore writes archive rows into Postgres.
//
// Expected schema:
//
//	CREATE TABLE archives (
//		id UUID PRIMARY KEY,
//		url TEXT NOT NULL,
//		slug TEXT NOT NULL,
//		created_at TIMESTAMPTZ NOT NULL,
//		html_url TEXT NOT NULL DEFAULT '',
//		raw_url TEXT NOT NULL DEFAULT '',
//		screenshot_url TEXT NOT NULL DEFAULT '',
//		meta JSONB NOT NULL DEFAULT '{}'
//	);
type IndexStore struct {
	pool  pool
	table string
}

// New creates the store and its connection pool.
func New(ctx context.Context, cfg Config) (*IndexStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewWithPool(p, cfg.Table)
}

// NewWithPool constructs a store from an existing pool (primarily for
// testing).
func NewWithPool(p pool, table string) (*IndexStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "archives"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &IndexStore{pool: p, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *IndexStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateArchive inserts one archive row.
func (s *IndexStore) CreateArchive(ctx context.Context, rec storage.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	meta := rec.Meta
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, url, slug, created_at, html_url, raw_url, screenshot_url, meta)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, s.table)
	if _, err := s.pool.Exec(ctx, query,
		rec.ID, rec.URL, rec.Slug, rec.CreatedAt,
		rec.HTMLURL, rec.RawURL, rec.ScreenshotURL, metaJSON,
	); err != nil {
		return fmt.Errorf("insert archive row: %w", err)
	}
	return nil
}

// GetArchive fetches one archive row by id.
func (s *IndexStore) GetArchive(ctx context.Context, id string) (storage.Record, error) {
	query := fmt.Sprintf(`
SELECT id, url, slug, created_at, html_url, raw_url, screenshot_url, meta
FROM %s WHERE id = $1`, s.table)
	rec, err := scanRecord(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return storage.Record{}, fmt.Errorf("get archive %q: %w", id, err)
	}
	return rec, nil
}

// ListArchives returns up to limit rows, newest first.
func (s *IndexStore) ListArchives(ctx context.Context, limit int) ([]storage.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
SELECT id, url, slug, created_at, html_url, raw_url, screenshot_url, meta
FROM %s ORDER BY created_at DESC LIMIT $1`, s.table)
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer rows.Close()

	var out []storage.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive rows: %w", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (storage.Record, error) {
	var (
		rec      storage.Record
		metaJSON []byte
	)
	if err := row.Scan(
		&rec.ID, &rec.URL, &rec.Slug, &rec.CreatedAt,
		&rec.HTMLURL, &rec.RawURL, &rec.ScreenshotURL, &metaJSON,
	); err != nil {
		return storage.Record{}, err
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &rec.Meta); err != nil {
			return storage.Record{}, fmt.Errorf("decode meta: %w", err)
		}
	}
	return rec, nil
}
