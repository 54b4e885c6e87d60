package processor

import (
	"context"
	"time"

	"lienzo/internal/batch"
	"lienzo/internal/fetch"
	"lienzo/internal/models"
	"lienzo/internal/pkg/errors"
	"lienzo/internal/pkg/logger"
	"lienzo/internal/ports"
	"lienzo/internal/repositories"
)

// RunStore is the part of the run repository the worker needs.
type RunStore interface {
	Get(ctx context.Context, id string) (*models.Run, error)
	MarkRunning(ctx context.Context, id string) error
	SaveItems(ctx context.Context, runID string, items []models.RunItem) error
	Complete(ctx context.Context, id string, c models.Completion) error
	MarkFailed(ctx context.Context, id string, errText string) error
}

var _ RunStore = (*repositories.RunRepository)(nil)

// DefaultMaxInputBytes bounds a single stored input.
const DefaultMaxInputBytes = 100 << 20

type Deps struct {
	Runs RunStore
	SP   ports.StorageProvider
	// Fetcher descarga los links de la tabla. Si es nil se crea un cliente
	// HTTP por run con el timeout de sus params.
	Fetcher       fetch.Fetcher
	StorageRoot   string
	CleanupLocal  bool
	MaxInputBytes int64
	Log           *logger.Logger
}

type Processor struct {
	runs    RunStore
	fetcher fetch.Fetcher
	log     *logger.Logger

	// Componentes internos
	inputHandler  *InputHandler
	outputHandler *OutputHandler
	cleanup       *Cleanup
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("processor")

	maxInput := d.MaxInputBytes
	if maxInput <= 0 {
		maxInput = DefaultMaxInputBytes
	}

	p := &Processor{
		runs:    d.Runs,
		fetcher: d.Fetcher,
		log:     log,
	}

	// Inicializar componentes
	p.inputHandler = NewInputHandler(d.SP, d.StorageRoot, maxInput)
	p.outputHandler = NewOutputHandler(d.SP)
	p.cleanup = NewCleanup(d.StorageRoot, d.CleanupLocal, d.SP)

	return p
}

// ProcessRun orquesta el flujo completo del run
func (p *Processor) ProcessRun(ctx context.Context, runID string) error {
	log := p.log.FromContext(logger.ContextWithRunID(ctx, runID))

	// 1. Cargar el run
	log.Debug("loading run")
	run, err := p.runs.Get(ctx, runID)
	if errors.Is(err, repositories.ErrRunNotFound) {
		// no hay fila que marcar como FAILED
		return errors.NotFound("run", runID)
	}
	if err != nil {
		return p.failRun(ctx, runID, errors.Wrap(err, "processor.load", "failed to load run"))
	}
	if run.Status.Terminal() {
		log.Warn("run already finished, skipping", "status", string(run.Status))
		return nil
	}

	// 2. Marcar como running
	log.Debug("marking run as running")
	if err := p.runs.MarkRunning(ctx, runID); err != nil {
		return p.failRun(ctx, runID, errors.Wrap(err, "processor.status", "failed to mark run as running"))
	}

	// 3. Validar params y armar el canvas
	if err := run.Params.Validate(run.SourceKind == models.SourceTable); err != nil {
		return p.failRun(ctx, runID, err)
	}
	spec, err := run.Params.Spec()
	if err != nil {
		return p.failRun(ctx, runID, err)
	}
	log.Debug("canvas ready",
		"width", spec.Width,
		"height", spec.Height,
		"margin_px", spec.MarginPx,
		"dpi", spec.DPI,
	)

	// 4. Traer los inputs del storage
	inputs, err := p.inputHandler.Materialize(ctx, run)
	if err != nil {
		return p.failRun(ctx, runID, errors.Wrap(err, "processor.inputs", "failed to materialize inputs"))
	}
	// 9. Limpiar copias locales, también si algo falla más adelante
	defer p.cleanup.CleanupRun(runID)
	log.Debug("inputs materialized", "count", len(inputs))

	// 5. Armar los work items
	items, skipped, err := BuildItems(run, inputs)
	if err != nil {
		return p.failRun(ctx, runID, err)
	}
	log.Info("starting batch",
		"items", len(items),
		"skipped", len(skipped),
		"workers", run.Params.Workers,
	)

	// 6. Procesar
	startTime := time.Now()
	out := p.batchProcessor(run, log).Run(ctx, items, spec)
	out.Skipped = skipped
	if err := ctx.Err(); err != nil {
		return p.failRun(ctx, runID, errors.WrapWithCode(err, errors.CodeTimeout, "processor.batch", "run interrupted"))
	}
	log.Info("batch finished",
		"success", out.Successes(),
		"failed", len(out.Failures()),
		"duration_ms", time.Since(startTime).Milliseconds(),
	)

	// 7. Guardar resultados por item
	if err := p.runs.SaveItems(ctx, runID, RunItems(runID, out)); err != nil {
		return p.failRun(ctx, runID, errors.Wrap(err, "processor.items", "failed to save run items"))
	}

	// 8. Zip + subir, o EMPTY si no salió nada
	completion, err := p.outputHandler.StoreArchive(ctx, run, out)
	if err != nil {
		return p.failRun(ctx, runID, errors.Wrap(err, "processor.outputs", "failed to store archive"))
	}
	if err := p.runs.Complete(ctx, runID, completion); err != nil {
		return p.failRun(ctx, runID, errors.Wrap(err, "processor.save", "failed to complete run"))
	}

	log.Info("run completed",
		"status", string(completion.Status),
		"archive_key", completion.ArchiveKey,
		"overwrites", completion.OverwriteCount,
	)
	return nil
}

func (p *Processor) batchProcessor(run *models.Run, log *logger.Logger) *batch.Processor {
	f := p.fetcher
	if f == nil {
		f = fetch.NewClient(fetch.WithTimeout(run.Params.FetchTimeout()))
	}
	bp := batch.NewProcessor(f, log)
	bp.Workers = run.Params.Workers
	bp.JPEGQuality = run.Params.JPEGQuality
	return bp
}

func (p *Processor) failRun(ctx context.Context, runID string, cause error) error {
	log := p.log.FromContext(logger.ContextWithRunID(ctx, runID))

	msg := ""
	if cause != nil {
		msg = repositories.TruncateErrorText(cause.Error())

		var lerr *errors.Error
		if errors.As(cause, &lerr) {
			log.Error("run failed",
				"code", string(lerr.Code),
				"op", lerr.Op,
				"message", lerr.Message,
			)
		} else {
			log.Error("run failed", "error", msg)
		}
	}

	// el ctx puede estar cancelado (shutdown); el estado se escribe igual
	dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.runs.MarkFailed(dbCtx, runID, msg); err != nil {
		log.Error("failed to mark run as failed", "error", err.Error())
	}

	return cause
}
