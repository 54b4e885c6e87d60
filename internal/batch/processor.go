package batch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"lienzo/internal/canvas"
	"lienzo/internal/fetch"
	"lienzo/internal/imageio"
	"lienzo/internal/pkg/errors"
	"lienzo/internal/pkg/logger"
)

// MaxWorkers bounds the fetch+decode window.
const MaxWorkers = 16

// Processor runs work items. Fetch and decode may overlap across a window of
// Workers items; render, encode and every RunOutput update happen one item
// at a time in item order.
type Processor struct {
	Fetcher     fetch.Fetcher
	Fitter      canvas.Fitter
	Renderer    canvas.Renderer
	JPEGQuality int
	Workers     int
	Log         *logger.Logger
	// OnResult, if set, is called after each item in item order.
	OnResult func(Result)
}

// NewProcessor returns a sequential processor with default fit and render
// settings.
func NewProcessor(f fetch.Fetcher, log *logger.Logger) *Processor {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Processor{
		Fetcher:     f,
		Fitter:      canvas.NewFitter(),
		Renderer:    canvas.NewRenderer(),
		JPEGQuality: imageio.DefaultJPEGQuality,
		Workers:     1,
		Log:         log.WithComponent("batch"),
	}
}

// decoded is the output of the concurrent stage for one item.
type decoded struct {
	src     *imageio.Source
	failure *Failure
	started time.Time
}

// Run processes every item and returns the collected output. It never
// fails as a whole: every item ends with a Success or a Failure, items not
// started before ctx is done included.
func (p *Processor) Run(ctx context.Context, items []WorkItem, spec canvas.Spec) *RunOutput {
	out := NewRunOutput()
	log := p.logger().FromContext(ctx)

	window := p.Workers
	if window < 1 {
		window = 1
	}
	if window > MaxWorkers {
		window = MaxWorkers
	}

	for start := 0; start < len(items); start += window {
		if err := ctx.Err(); err != nil {
			for _, it := range items[start:] {
				p.record(log, out, Result{Item: it, Outcome: failure(it, StageCanceled, err)})
			}
			break
		}

		end := min(start+window, len(items))
		chunk := items[start:end]
		staged := make([]decoded, len(chunk))

		var g errgroup.Group
		for i := range chunk {
			g.Go(func() error {
				staged[i] = p.load(ctx, chunk[i])
				return nil
			})
		}
		_ = g.Wait()

		for i, it := range chunk {
			var outcome Outcome
			if staged[i].failure != nil {
				outcome = *staged[i].failure
			} else {
				outcome = p.produce(it, staged[i].src, spec)
			}
			p.record(log, out, Result{Item: it, Outcome: outcome, Duration: time.Since(staged[i].started)})
		}
	}
	return out
}

// load resolves bytes and decodes them.
func (p *Processor) load(ctx context.Context, it WorkItem) (d decoded) {
	d.started = time.Now()
	stage := StageFetch
	defer func() {
		if r := recover(); r != nil {
			f := failure(it, stage, panicError(r))
			d.failure = &f
		}
	}()

	data := it.Data
	if it.URL != "" {
		if p.Fetcher == nil {
			f := failure(it, stage, fmt.Errorf("no fetcher configured"))
			d.failure = &f
			return d
		}
		var err error
		data, err = p.Fetcher.Fetch(ctx, it.URL)
		if err != nil {
			f := failure(it, stage, err)
			d.failure = &f
			return d
		}
	}

	stage = StageDecode
	src, err := imageio.Decode(data)
	if err != nil {
		f := failure(it, stage, err)
		d.failure = &f
		return d
	}
	d.src = src
	return d
}

// produce fits, renders and encodes one decoded source.
func (p *Processor) produce(it WorkItem, src *imageio.Source, spec canvas.Spec) (outcome Outcome) {
	stage := StageRender
	defer func() {
		if r := recover(); r != nil {
			outcome = failure(it, stage, panicError(r))
		}
	}()

	if src.Width <= 0 || src.Height <= 0 {
		return failure(it, stage, fmt.Errorf("degenerate source %dx%d", src.Width, src.Height))
	}
	plan := p.Fitter.Fit(src.Width, src.Height, spec)
	img, err := p.Renderer.Render(src.Image, plan)
	if err != nil {
		return failure(it, stage, err)
	}

	stage = StageEncode
	data, err := imageio.EncodeJPEG(img, spec.DPI, p.JPEGQuality)
	if err != nil {
		return failure(it, stage, err)
	}
	return Success{Name: it.OutputName(), Data: data, Plan: plan}
}

func (p *Processor) record(log *logger.Logger, out *RunOutput, r Result) {
	overwrote := out.Record(r)

	switch o := r.Outcome.(type) {
	case Success:
		log.Info("item processed",
			"file", o.Name,
			"origin", r.Item.Origin,
			"fills_canvas", o.Plan.FillsCanvas,
			"bytes", len(o.Data),
			"duration_ms", r.Duration.Milliseconds(),
		)
		if overwrote {
			log.Warn("duplicate filename, earlier image overwritten", "file", o.Name, "origin", r.Item.Origin)
		}
	case Failure:
		log.Warn("item failed",
			"file", r.Item.OutputName(),
			"origin", r.Item.Origin,
			"stage", string(o.Stage),
			"error", o.Reason,
			"duration_ms", r.Duration.Milliseconds(),
		)
	}

	if p.OnResult != nil {
		p.OnResult(r)
	}
}

func (p *Processor) logger() *logger.Logger {
	if p.Log == nil {
		return logger.Discard()
	}
	return p.Log
}

func failure(it WorkItem, stage Stage, cause error) Failure {
	name := it.OutputName()
	return Failure{
		Stage:  stage,
		Reason: name + ": " + cause.Error(),
		Err:    errors.Item(name, string(stage), cause),
	}
}

func panicError(v any) error {
	return fmt.Errorf("panic: %v", v)
}
