// Package system provides the real clock used outside tests.
package system

import "time"

// Clock implements archive.Clock using time.Now. Slug timestamps must be UTC
// so identical captures sort the same regardless of host timezone.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
