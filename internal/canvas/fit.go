package canvas

import "math"

// DefaultRatioTolerance is the largest absolute aspect-ratio difference for
// which a large enough source is stretched over the whole canvas instead of
// being letterboxed.
const DefaultRatioTolerance = 0.02

// Plan says where and at what size the source is drawn.
type Plan struct {
	OutputWidth  int `json:"output_width"`
	OutputHeight int `json:"output_height"`
	DrawWidth    int `json:"draw_width"`
	DrawHeight   int `json:"draw_height"`
	OffsetX      int `json:"offset_x"`
	OffsetY      int `json:"offset_y"`
	// FillsCanvas marks the fast path: the source covers the canvas edge to
	// edge and the margin is ignored.
	FillsCanvas bool `json:"fills_canvas"`
}

// Fitter computes placement plans. A zero RatioTolerance disables the fast
// path.
type Fitter struct {
	RatioTolerance float64
}

// NewFitter returns a Fitter with DefaultRatioTolerance.
func NewFitter() Fitter {
	return Fitter{RatioTolerance: DefaultRatioTolerance}
}

// Fit uses the default tolerance.
func Fit(srcW, srcH int, spec Spec) Plan {
	return NewFitter().Fit(srcW, srcH, spec)
}

// Fit places a srcW x srcH image on spec. srcW and srcH must be positive.
func (f Fitter) Fit(srcW, srcH int, spec Spec) Plan {
	W, H := spec.Width, spec.Height
	contentW, contentH := spec.ContentWidth(), spec.ContentHeight()

	imgRatio := float64(srcW) / float64(srcH)
	boxRatio := float64(W) / float64(H)

	if math.Abs(imgRatio-boxRatio) < f.RatioTolerance && srcW >= W && srcH >= H {
		return Plan{
			OutputWidth:  W,
			OutputHeight: H,
			DrawWidth:    W,
			DrawHeight:   H,
			FillsCanvas:  true,
		}
	}

	contentRatio := float64(contentW) / float64(contentH)

	var drawW, drawH int
	if imgRatio > contentRatio {
		drawW = contentW
		drawH = atLeastOne(math.Round(float64(contentW) / imgRatio))
	} else {
		drawH = contentH
		drawW = atLeastOne(math.Round(float64(contentH) * imgRatio))
	}

	return Plan{
		OutputWidth:  W,
		OutputHeight: H,
		DrawWidth:    drawW,
		DrawHeight:   drawH,
		OffsetX:      (W - drawW) / 2,
		OffsetY:      (H - drawH) / 2,
	}
}

func atLeastOne(v float64) int {
	if v < 1 {
		return 1
	}
	return int(v)
}
