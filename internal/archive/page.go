package archive

import (
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const bannerTimeLayout = "2006-01-02 15:04 UTC"

// Matched on the original string: lowering a copy to search would shift byte
// offsets for runes whose case mapping changes length.
var closingBodyTag = regexp.MustCompile(`(?i)</body>`)

// InjectBanner returns html with a fixed-position capture banner (timestamp
// plus a link back to the source) and a body padding rule so the banner never
// covers page content. The original markup is otherwise untouched.
func InjectBanner(html, sourceURL string, capturedAt time.Time) string {
	banner := fmt.Sprintf(
		`<div style="position:fixed;top:0;left:0;right:0;z-index:2147483647;`+
			`background:#1e40af;color:#fff;padding:10px 20px;font-family:system-ui,sans-serif;`+
			`display:flex;align-items:center;gap:12px;box-shadow:0 2px 8px rgba(0,0,0,.4);font-size:13px;">`+
			`<strong>Archive Hub</strong>`+
			`<span style="color:#bfdbfe;font-size:12px;">%s</span>`+
			`<a href="%s" target="_blank" style="color:#93c5fd;margin-left:auto;text-decoration:none;font-size:12px;">original link</a>`+
			`</div>`+
			`<style>body{padding-top:50px!important;}</style>`,
		capturedAt.UTC().Format(bannerTimeLayout),
		template.HTMLEscapeString(sourceURL),
	)

	if locs := closingBodyTag.FindAllStringIndex(html, -1); len(locs) > 0 {
		idx := locs[len(locs)-1][0]
		return html[:idx] + banner + html[idx:]
	}
	return banner + html
}

var postTemplate = template.Must(template.New("post").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8"/>
<meta name="viewport" content="width=device-width,initial-scale=1"/>
<title>{{if .Author}}Post by {{.Author}}{{else}}Archived post{{end}} — Archive Hub</title>
<style>
*{box-sizing:border-box;margin:0;padding:0;}
body{font-family:system-ui,sans-serif;background:#0f172a;color:#e2e8f0;min-height:100vh;padding:80px 16px 40px;}
.banner{position:fixed;top:0;left:0;right:0;z-index:9999;background:#1e40af;color:#fff;padding:12px 20px;display:flex;align-items:center;gap:12px;box-shadow:0 2px 12px rgba(0,0,0,.5);font-size:14px;}
.banner .date{color:#bfdbfe;font-size:12px;}
.banner a{color:#93c5fd;text-decoration:none;margin-left:auto;font-size:12px;}
.post-card{max-width:600px;margin:0 auto;background:#1e293b;border-radius:16px;padding:28px;box-shadow:0 8px 32px rgba(0,0,0,.4);}
.author{color:#60a5fa;font-size:1rem;margin-bottom:6px;}
.handle{color:#94a3b8;font-size:.85rem;margin-bottom:14px;}
.post-text{font-size:1.1rem;line-height:1.7;margin-bottom:20px;white-space:pre-wrap;}
.post-date{color:#94a3b8;font-size:.8rem;}
.post-media{width:100%;border-radius:12px;margin-top:16px;}
.missing{color:#94a3b8;font-style:italic;}
.orig-link{display:inline-block;margin-top:20px;padding:10px 24px;background:#1d4ed8;color:#fff;border-radius:10px;text-decoration:none;font-weight:600;font-size:.9rem;}
</style>
</head>
<body>
<div class="banner">
  <strong>Archive Hub</strong>
  <span class="date">{{.CapturedAt}}</span>
  <a href="{{.URL}}" target="_blank">original link</a>
</div>
<div class="post-card">
  {{if .Author}}<div class="author">{{.Author}}</div>{{end}}
  {{if .Handle}}<div class="handle">@{{.Handle}}</div>{{end}}
  {{if .Text}}<p class="post-text">{{.Text}}</p>{{else if not .Author}}<p class="missing">The post content is not available. It may have been deleted or restricted.</p>{{end}}
  {{range .MediaURLs}}<img class="post-media" src="{{.}}" alt="post media"/>{{end}}
  {{if .Date}}<div class="post-date">{{.Date}}</div>{{end}}
  <a href="{{.URL}}" target="_blank" class="orig-link">View original post</a>
</div>
</body>
</html>
`))

type postPageData struct {
	URL        string
	CapturedAt string
	Author     string
	Handle     string
	Text       string
	Date       string
	MediaURLs  []string
}

// RenderPostPage synthesizes a self-contained HTML document from structured
// post metadata. This page is the archival record even if the live post is
// later deleted, so it must render sensibly when every field is empty.
func RenderPostPage(sourceURL string, content ContentResult, capturedAt time.Time) string {
	var b strings.Builder
	data := postPageData{
		URL:        sourceURL,
		CapturedAt: capturedAt.UTC().Format(bannerTimeLayout),
		Author:     content.Author,
		Handle:     content.Handle,
		Text:       content.Text,
		Date:       content.Date,
		MediaURLs:  content.MediaURLs,
	}
	if err := postTemplate.Execute(&b, data); err != nil {
		// Template and data are static shapes; execution cannot fail at
		// runtime, but the pipeline must still never crash.
		return ErrorPage(sourceURL, err.Error())
	}
	return b.String()
}

var errorTemplate = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8"/>
<title>Could not archive — Archive Hub</title>
<style>
body{font-family:system-ui,sans-serif;background:#0f172a;color:#e2e8f0;padding:80px 16px;}
.card{max-width:600px;margin:0 auto;background:#1e293b;border-radius:16px;padding:28px;}
h2{margin-bottom:12px;}
.reason{color:#fca5a5;font-size:.9rem;margin-top:12px;word-break:break-word;}
a{color:#93c5fd;}
</style>
</head>
<body>
<div class="card">
  <h2>Could not archive this page</h2>
  <p><a href="{{.URL}}" target="_blank">{{.URL}}</a></p>
  {{if .Reason}}<p class="reason">{{.Reason}}</p>{{end}}
</div>
</body>
</html>
`))

// ErrorPage builds the placeholder document written when every strategy
// failed. The failure message is embedded so a degraded capture explains
// itself; the capture banner is added by the caller like any other page.
func ErrorPage(sourceURL, reason string) string {
	var b strings.Builder
	err := errorTemplate.Execute(&b, struct{ URL, Reason string }{URL: sourceURL, Reason: reason})
	if err != nil {
		return "<html><body><h2>Could not archive this page</h2></body></html>"
	}
	return b.String()
}

// ExtractPageMeta pulls title and author hints out of captured HTML for the
// artifact's PostMeta map. Best effort: unparsable HTML yields an empty map.
func ExtractPageMeta(html string) map[string]string {
	meta := map[string]string{}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return meta
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		meta["title"] = title
	} else if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		meta["title"] = strings.TrimSpace(og)
	}
	if author, ok := doc.Find(`meta[name="author"]`).Attr("content"); ok && strings.TrimSpace(author) != "" {
		meta["author"] = strings.TrimSpace(author)
	}
	if site, ok := doc.Find(`meta[property="og:site_name"]`).Attr("content"); ok && strings.TrimSpace(site) != "" {
		meta["site"] = strings.TrimSpace(site)
	}
	return meta
}
