package archive

import (
	"net/url"
	"strings"
	"time"
)

// maxSlugLen bounds the directory name so deep paths never hit filesystem
// path-length limits.
const maxSlugLen = 100

const slugTimeLayout = "20060102_150405"

// Slug derives a filesystem-safe directory name from a URL and a capture
// time. The seconds-resolution timestamp keeps concurrent captures of the
// same URL in distinct folders. Slug never fails; an empty or unparsable
// path degrades to the literal segment "page".
func Slug(rawURL string, now time.Time) string {
	var host, path string
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
		path = strings.Trim(u.Path, "/")
	}
	if path == "" {
		path = "page"
	}

	ts := now.UTC().Format(slugTimeLayout)
	prefix := sanitizeSegment(host) + "_" + sanitizeSegment(path)

	// Truncate the host/path portion, not the timestamp: the timestamp is
	// what keeps repeat captures collision-free.
	if max := maxSlugLen - len(ts) - 1; len(prefix) > max {
		prefix = prefix[:max]
	}
	return prefix + "_" + ts
}

// sanitizeSegment replaces every byte that is not portable across host
// filesystems with an underscore.
func sanitizeSegment(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
