package archive

import (
	"strings"
	"testing"
	"time"
)

func TestSlug(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	t.Run("host path and timestamp", func(t *testing.T) {
		got := Slug("https://example.com/articles/2026/deep-dive", at)
		want := "example_com_articles_2026_deep-dive_20260314_092653"
		if got != want {
			t.Fatalf("got %q want %q", got, want)
		}
	})

	t.Run("empty path falls back to page", func(t *testing.T) {
		got := Slug("https://example.com", at)
		if !strings.HasPrefix(got, "example_com_page_") {
			t.Fatalf("expected page placeholder, got %q", got)
		}
	})

	t.Run("unsafe characters replaced", func(t *testing.T) {
		got := Slug("https://example.com:8443/a:b/c d", at)
		for _, r := range got {
			safe := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
			if !safe {
				t.Fatalf("unsafe rune %q in slug %q", r, got)
			}
		}
	})

	t.Run("long urls keep the timestamp", func(t *testing.T) {
		long := "https://example.com/" + strings.Repeat("segment/", 40)
		got := Slug(long, at)
		if len(got) > 100 {
			t.Fatalf("slug too long: %d chars", len(got))
		}
		if !strings.HasSuffix(got, "_20260314_092653") {
			t.Fatalf("timestamp truncated away: %q", got)
		}
	})

	t.Run("different seconds differ", func(t *testing.T) {
		a := Slug("https://example.com/post", at)
		b := Slug("https://example.com/post", at.Add(time.Second))
		if a == b {
			t.Fatalf("expected distinct slugs, both %q", a)
		}
	})
}
