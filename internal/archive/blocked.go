package archive

import "strings"

// blockPhrases are signatures of pages that loaded but refused to show their
// real content: removed posts, login walls, generic error shells. False
// positives are acceptable; a missed phrase only means a degraded capture is
// stored as-is.
var blockPhrases = []string{
	"this page doesn't exist",
	"page not found",
	"something went wrong",
	"hmm...",
	"not available",
	"sign in to x",
	"log in to twitter",
}

// IsBlocked reports whether HTML matches a known blocked/unavailable
// signature. Pure substring matching, case-insensitive, no I/O.
func IsBlocked(html string) bool {
	low := strings.ToLower(html)
	for _, phrase := range blockPhrases {
		if strings.Contains(low, phrase) {
			return true
		}
	}
	return false
}
