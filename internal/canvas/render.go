package canvas

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// DefaultFilter is the resample filter used when Renderer.Filter is unset.
var DefaultFilter = imaging.Lanczos

// Background fills the canvas around the drawn image.
var Background = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// Renderer draws a source image according to a Plan.
type Renderer struct {
	// Filter is the resample filter. The zero value, which is also
	// imaging.NearestNeighbor, selects DefaultFilter.
	Filter imaging.ResampleFilter
}

// NewRenderer returns a Renderer using DefaultFilter.
func NewRenderer() Renderer {
	return Renderer{Filter: DefaultFilter}
}

// Render returns a plan.OutputWidth x plan.OutputHeight image.
func (r Renderer) Render(src image.Image, plan Plan) (*image.NRGBA, error) {
	if src == nil {
		return nil, fmt.Errorf("render: nil source image")
	}
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("render: degenerate source %dx%d", b.Dx(), b.Dy())
	}
	if plan.OutputWidth <= 0 || plan.OutputHeight <= 0 || plan.DrawWidth <= 0 || plan.DrawHeight <= 0 {
		return nil, fmt.Errorf("render: invalid plan %+v", plan)
	}

	filter := r.Filter
	if filter.Support == 0 && filter.Kernel == nil {
		filter = DefaultFilter
	}

	if plan.FillsCanvas {
		return imaging.Resize(src, plan.OutputWidth, plan.OutputHeight, filter), nil
	}

	dst := imaging.New(plan.OutputWidth, plan.OutputHeight, Background)
	resized := imaging.Resize(src, plan.DrawWidth, plan.DrawHeight, filter)
	return imaging.Paste(dst, resized, image.Pt(plan.OffsetX, plan.OffsetY)), nil
}
