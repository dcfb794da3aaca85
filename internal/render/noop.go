package render

import (
	"context"

	"github.com/h4dihastam/archive/internal/archive"
)

// Noop is the renderer used when headless rendering is disabled. Every
// attempt reports not-attempted so the Archiver moves straight to the next
// strategy.
type Noop struct{}

// NewNoop returns a disabled renderer.
func NewNoop() *Noop {
	return &Noop{}
}

// Render never attempts anything.
func (*Noop) Render(context.Context, string, archive.RenderOptions) archive.RenderResult {
	return archive.RenderResult{Reason: archive.ReasonNotAttempted}
}
