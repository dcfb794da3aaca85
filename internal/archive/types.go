// Package archive defines the capture pipeline core: the types, strategy
// interfaces, and the Archiver orchestrator that turns one URL into one
// on-disk artifact.
package archive

import (
	"time"
)

// SiteClass partitions URLs into the strategy orderings the Archiver knows.
type SiteClass string

// Site classes recognized by the classifier.
const (
	ClassGeneric    SiteClass = "generic"
	ClassSocialPost SiteClass = "social-post"
)

// FailureReason explains why a render attempt produced no usable HTML.
type FailureReason string

// Render failure reasons.
const (
	ReasonTimeout         FailureReason = "timeout"
	ReasonNavigationError FailureReason = "navigation-error"
	ReasonBlocked         FailureReason = "blocked"
	ReasonNotAttempted    FailureReason = "not-attempted"
)

// CaptureRequest is the immutable input of one archive call.
type CaptureRequest struct {
	URL   string
	Class SiteClass
}

// RenderResult is the outcome of one headless render attempt. Either
// Succeeded is true and HTML is non-empty, or Succeeded is false and Reason
// is set.
type RenderResult struct {
	Succeeded bool
	HTML      string
	Title     string
	Reason    FailureReason
}

// ContentResult carries structured post metadata from a script-free content
// API. Found means at least one of Text or Author is populated; every other
// field may be empty on a valid result.
type ContentResult struct {
	Found     bool
	Author    string
	Handle    string
	Text      string
	Date      string
	MediaURLs []string
}

// ScreenshotResult is the outcome of the screenshot provider chain. A zero
// Bytes length is the ordinary "no screenshot obtained" sentinel, not an
// error.
type ScreenshotResult struct {
	Bytes  []byte
	Source string
}

// Artifact is the published result of one capture. All three paths exist on
// disk when Archive returns; ScreenshotPath may be zero bytes and PostMeta
// may be empty but is never nil.
type Artifact struct {
	URL              string
	CreatedAt        time.Time
	Slug             string
	Folder           string
	RawHTMLPath      string
	RenderedHTMLPath string
	ScreenshotPath   string
	PostMeta         map[string]string
}

// Cookie is one credential entry applied to a credentialed render. The shape
// mirrors browser cookie stores so exported cookie JSON can be pasted into
// configuration unchanged.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Secure   bool   `json:"secure"`
	HTTPOnly bool   `json:"httpOnly"`
	SameSite string `json:"sameSite"`
}

// RenderOptions tunes a single render attempt.
type RenderOptions struct {
	Cookies []Cookie
}
