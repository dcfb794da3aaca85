// Package supabase persists archives through the hosted Supabase Storage and
// PostgREST APIs. It implements both storage.BlobStore and
// storage.IndexStore.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/h4dihastam/archive/internal/storage"
)

// Config holds the Supabase project coordinates.
type Config struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Bucket  string `mapstructure:"bucket"`
	Table   string `mapstructure:"table"`
	Timeout time.Duration
}

// Client talks to one Supabase project.
type Client struct {
	cfg    Config
	client *http.Client
}

// New validates the configuration and builds a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase base_url and api_key are required")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "archives"
	}
	if cfg.Table == "" {
		cfg.Table = "archives"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *Client) storageURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", c.cfg.BaseURL, c.cfg.Bucket, path)
}

func (c *Client) publicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.cfg.BaseURL, c.cfg.Bucket, path)
}

func (c *Client) restURL(table string) string {
	return fmt.Sprintf("%s/rest/v1/%s", c.cfg.BaseURL, table)
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("apikey", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
}

// PutObject uploads bytes to Supabase Storage and returns the public URL.
// An existing object at the same path is upserted.
func (c *Client) PutObject(ctx context.Context, path, contentType string, data []byte) (string, error) {
	status, err := c.storeObject(ctx, http.MethodPost, path, contentType, data)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		// POST fails when the object already exists; PUT upserts.
		status, err = c.storeObject(ctx, http.MethodPut, path, contentType, data)
		if err != nil {
			return "", err
		}
		if status != http.StatusOK && status != http.StatusCreated {
			return "", fmt.Errorf("supabase upload %s: status %d", path, status)
		}
	}
	return c.publicURL(path), nil
}

func (c *Client) storeObject(ctx context.Context, method, path, contentType string, data []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.storageURL(path), bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("build upload request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", contentType)
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("upload %s: %w", path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

type archiveRow struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	Slug          string            `json:"slug"`
	CreatedAt     time.Time         `json:"created_at"`
	HTMLURL       string            `json:"html_url"`
	RawURL        string            `json:"raw_url"`
	ScreenshotURL string            `json:"screenshot_url"`
	Meta          map[string]string `json:"meta"`
}

func toRow(rec storage.Record) archiveRow {
	return archiveRow(rec)
}

func fromRow(row archiveRow) storage.Record {
	return storage.Record(row)
}

// CreateArchive inserts one row through PostgREST.
func (c *Client) CreateArchive(ctx context.Context, rec storage.Record) error {
	payload, err := json.Marshal(toRow(rec))
	if err != nil {
		return fmt.Errorf("marshal archive row: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.restURL(c.cfg.Table), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build insert request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("insert archive row: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK &&
		resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("insert archive row: status %d", resp.StatusCode)
	}
	return nil
}

// GetArchive fetches one row by id.
func (c *Client) GetArchive(ctx context.Context, id string) (storage.Record, error) {
	rows, err := c.selectRows(ctx, url.Values{"id": {"eq." + id}, "limit": {"1"}})
	if err != nil {
		return storage.Record{}, err
	}
	if len(rows) == 0 {
		return storage.Record{}, fmt.Errorf("archive %q not found", id)
	}
	return fromRow(rows[0]), nil
}

// ListArchives returns up to limit rows, newest first.
func (c *Client) ListArchives(ctx context.Context, limit int) ([]storage.Record, error) {
	params := url.Values{"order": {"created_at.desc"}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	rows, err := c.selectRows(ctx, params)
	if err != nil {
		return nil, err
	}
	out := make([]storage.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

func (c *Client) selectRows(ctx context.Context, params url.Values) ([]archiveRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restURL(c.cfg.Table)+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build select request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("select archive rows: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("select archive rows: status %d", resp.StatusCode)
	}
	var rows []archiveRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode archive rows: %w", err)
	}
	return rows, nil
}
