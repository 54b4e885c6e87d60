// Package canvas computes and renders the placement of a source image on a
// fixed-size output canvas.
package canvas

import (
	"lienzo/internal/pkg/errors"
)

// Spec is a validated output canvas. Build it with NewSpec.
type Spec struct {
	Width    int
	Height   int
	MarginPx int
	DPI      int
}

// NewSpec validates the geometry. The content box left after removing the
// margin on every side must be non-empty.
func NewSpec(width, height, marginPx, dpi int) (Spec, error) {
	switch {
	case width <= 0 || height <= 0:
		return Spec{}, errors.Config("canvas size must be positive, got %dx%d", width, height)
	case dpi <= 0:
		return Spec{}, errors.Config("dpi must be positive, got %d", dpi)
	case marginPx < 0:
		return Spec{}, errors.Config("margin must not be negative, got %d px", marginPx)
	case width-2*marginPx <= 0 || height-2*marginPx <= 0:
		return Spec{}, errors.Config("margin of %d px leaves no room on a %dx%d canvas", marginPx, width, height)
	}
	return Spec{Width: width, Height: height, MarginPx: marginPx, DPI: dpi}, nil
}

// ContentWidth is the width available inside the margins.
func (s Spec) ContentWidth() int { return s.Width - 2*s.MarginPx }

// ContentHeight is the height available inside the margins.
func (s Spec) ContentHeight() int { return s.Height - 2*s.MarginPx }
