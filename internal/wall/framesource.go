// Package wall orchestrates the photo wall: capturing prints from the
// frame source, ejecting and developing them, captioning, stacking, and
// export.
package wall

import (
	"context"
	"image"
)

// FrameSource produces a still image on demand. Live video acquisition sits
// behind this boundary; the wall only ever asks it for a single frame.
// Implementations that hold a capture resource should acquire it before the
// first Capture and release it in Close.
type FrameSource interface {
	Capture(ctx context.Context) (image.Image, error)
	Close() error
}

// SourceGeometry describes where the frame source sits on the wall. The
// nominal print output location is computed from it, so no position is tied
// to any particular device.
type SourceGeometry struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// OutputOrigin returns the wall position where a fresh print appears:
// horizontally centered on the source, at its output slot.
func (g SourceGeometry) OutputOrigin(printWidth float64) (x, y float64) {
	return g.X + (g.Width-printWidth)/2, g.Y + g.Height
}
