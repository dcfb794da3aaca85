package archive

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultSocialHosts are the host substrings treated as social posts when no
// override is configured.
var DefaultSocialHosts = []string{"x.com", "twitter.com"}

// ErrInvalidURL marks a caller contract violation: Archive only accepts
// absolute http/https URLs.
var ErrInvalidURL = errors.New("invalid archive url")

// ValidateURL rejects anything that is not an absolute http/https URL with a
// host.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return nil
}

// Classify assigns a URL to the strategy ordering the Archiver should use.
// Matching is a case-insensitive substring test on the host, per entry in
// socialHosts (DefaultSocialHosts when empty).
func Classify(rawURL string, socialHosts []string) SiteClass {
	if len(socialHosts) == 0 {
		socialHosts = DefaultSocialHosts
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ClassGeneric
	}
	host := strings.ToLower(u.Host)
	for _, s := range socialHosts {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && strings.Contains(host, s) {
			return ClassSocialPost
		}
	}
	return ClassGeneric
}
