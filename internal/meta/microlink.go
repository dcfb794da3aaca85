package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/h4dihastam/archive/internal/archive"
)

// DefaultMicrolinkEndpoint is the free link-preview API.
const DefaultMicrolinkEndpoint = "https://api.microlink.io/"

// Microlink fetches page metadata from the Microlink preview API.
type Microlink struct {
	endpoint string
	client   *http.Client
}

// NewMicrolink builds the source.
func NewMicrolink(endpoint string, timeout time.Duration) *Microlink {
	if endpoint == "" {
		endpoint = DefaultMicrolinkEndpoint
	}
	return &Microlink{endpoint: endpoint, client: newHTTPClient(timeout)}
}

// Name identifies the provider in logs.
func (*Microlink) Name() string { return "microlink" }

type microlinkResponse struct {
	Status string `json:"status"`
	Data   struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Author      string `json:"author"`
		Date        string `json:"date"`
		Image       struct {
			URL string `json:"url"`
		} `json:"image"`
	} `json:"data"`
}

// Lookup queries Microlink and maps its preview fields onto the content
// result.
func (m *Microlink) Lookup(ctx context.Context, pageURL string) (archive.ContentResult, error) {
	reqURL := fmt.Sprintf("%s?url=%s&meta=true&screenshot=false", m.endpoint, url.QueryEscape(pageURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return archive.ContentResult{}, fmt.Errorf("build microlink request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return archive.ContentResult{}, fmt.Errorf("microlink request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return archive.ContentResult{}, fmt.Errorf("microlink status %d", resp.StatusCode)
	}

	var body microlinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return archive.ContentResult{}, fmt.Errorf("decode microlink response: %w", err)
	}

	res := archive.ContentResult{
		Author: body.Data.Author,
		Text:   body.Data.Description,
		Date:   body.Data.Date,
	}
	if body.Data.Image.URL != "" {
		res.MediaURLs = []string{body.Data.Image.URL}
	}
	return res, nil
}
