package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/h4dihastam/archive/internal/archive"
)

// DefaultOEmbedEndpoint is the public post-embed endpoint; no auth required.
const DefaultOEmbedEndpoint = "https://publish.twitter.com/oembed"

// OEmbed fetches post metadata from the platform's oEmbed endpoint.
type OEmbed struct {
	endpoint string
	client   *http.Client
}

// NewOEmbed builds the source. endpoint falls back to
// DefaultOEmbedEndpoint when empty.
func NewOEmbed(endpoint string, timeout time.Duration) *OEmbed {
	if endpoint == "" {
		endpoint = DefaultOEmbedEndpoint
	}
	return &OEmbed{endpoint: endpoint, client: newHTTPClient(timeout)}
}

// Name identifies the provider in logs.
func (*OEmbed) Name() string { return "oembed" }

type oembedResponse struct {
	HTML       string `json:"html"`
	AuthorName string `json:"author_name"`
	AuthorURL  string `json:"author_url"`
}

// Lookup queries the oEmbed endpoint and extracts the post text from the
// embed markup.
func (o *OEmbed) Lookup(ctx context.Context, pageURL string) (archive.ContentResult, error) {
	reqURL := fmt.Sprintf("%s?url=%s&dnt=true&omit_script=true", o.endpoint, url.QueryEscape(pageURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return archive.ContentResult{}, fmt.Errorf("build oembed request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return archive.ContentResult{}, fmt.Errorf("oembed request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return archive.ContentResult{}, fmt.Errorf("oembed status %d", resp.StatusCode)
	}

	var body oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return archive.ContentResult{}, fmt.Errorf("decode oembed response: %w", err)
	}

	res := archive.ContentResult{
		Author: body.AuthorName,
		Handle: handleFromAuthorURL(body.AuthorURL),
	}
	res.Text, res.Date = parseEmbedHTML(body.HTML)
	return res, nil
}

func handleFromAuthorURL(authorURL string) string {
	u, err := url.Parse(authorURL)
	if err != nil {
		return ""
	}
	return strings.Trim(u.Path, "/")
}

// parseEmbedHTML pulls the post text and the human-readable date out of the
// embed blockquote.
func parseEmbedHTML(embed string) (text, date string) {
	if embed == "" {
		return "", ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(embed))
	if err != nil {
		return "", ""
	}
	text = strings.TrimSpace(doc.Find("blockquote p").First().Text())
	// The trailing link of the embed blockquote carries the post date.
	date = strings.TrimSpace(doc.Find("blockquote > a").Last().Text())
	return text, date
}
