// Package batch turns table rows and uploads into work items and runs them
// through fetch, decode, fit, render and encode, isolating failures per item.
package batch

import (
	"time"

	"lienzo/internal/canvas"
)

// Stage names the step an item failed in.
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageDecode   Stage = "decode"
	StageRender   Stage = "render"
	StageEncode   Stage = "encode"
	StageCanceled Stage = "canceled"
)

// WorkItem is one image to produce. Exactly one of URL and Data is set.
type WorkItem struct {
	Index int
	// Name is the filename as supplied, before normalization.
	Name string
	URL  string
	Data []byte
	// Origin says where the item came from, e.g. "row 3 FileName1/ImageLink1".
	Origin string
}

// OutputName is the archive entry name for the item.
func (w WorkItem) OutputName() string {
	return NormalizeFilename(w.Name)
}

// Outcome is either Success or Failure.
type Outcome interface {
	isOutcome()
}

// Success holds the encoded JPEG.
type Success struct {
	Name string
	Data []byte
	Plan canvas.Plan
}

// Failure holds a user-facing reason of the form "<filename>: <cause>".
type Failure struct {
	Stage  Stage
	Reason string
	Err    error
}

func (Success) isOutcome() {}
func (Failure) isOutcome() {}

// Result pairs an item with its terminal outcome.
type Result struct {
	Item     WorkItem
	Outcome  Outcome
	Duration time.Duration
}

// Succeeded reports whether the outcome is a Success.
func (r Result) Succeeded() bool {
	_, ok := r.Outcome.(Success)
	return ok
}
