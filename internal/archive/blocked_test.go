package archive

import (
	"strings"
	"testing"
)

func TestIsBlocked(t *testing.T) {
	blocked := []string{
		"<html><body>This page doesn't exist.</body></html>",
		"<html><body>PAGE NOT FOUND</body></html>",
		"<div>Something went wrong. Try reloading.</div>",
		"Sign in to X to see this post",
		"Log in to Twitter to continue",
	}
	for _, html := range blocked {
		if !IsBlocked(html) {
			t.Fatalf("expected blocked: %q", html)
		}
	}

	article := "<html><head><title>Quarterly results</title></head><body>" +
		strings.Repeat("<p>The company reported steady growth across all segments.</p>", 40) +
		"</body></html>"
	if len(article) < 2000 {
		t.Fatalf("test article too short: %d", len(article))
	}
	if IsBlocked(article) {
		t.Fatalf("ordinary article flagged as blocked")
	}

	if IsBlocked("") {
		t.Fatalf("empty input flagged as blocked")
	}
}
