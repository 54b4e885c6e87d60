package handlers

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"lienzo/internal/batch"
	"lienzo/internal/httpapi/util"
	"lienzo/internal/httpkit"
	"lienzo/internal/models"
	"lienzo/internal/params"
	"lienzo/internal/pkg/errors"
	"lienzo/internal/pkg/middleware"
	"lienzo/internal/ports"
	"lienzo/internal/repositories"
	"lienzo/internal/storage"
	"lienzo/internal/table"
)

// multipart parts above this size are spooled to disk
const formMemory = 32 << 20

// PostRun validates the form and the inputs, stores the inputs, inserts the
// run and queues it. Nothing is stored when validation fails.
func (h *Handler) PostRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpkit.WriteErr(w, 413, "PAYLOAD_TOO_LARGE", "request body too large", map[string]any{"limit_bytes": h.maxUpload})
			return
		}
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid multipart form", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	p, err := params.FromForm(url.Values(r.MultipartForm.Value))
	if err != nil {
		middleware.HandleError(w, r, h.log, err)
		return
	}

	tables := r.MultipartForm.File["table"]
	images := r.MultipartForm.File["images"]
	var kind models.SourceKind
	switch {
	case len(tables) == 1 && len(images) == 0:
		kind = models.SourceTable
	case len(tables) == 0 && len(images) > 0:
		kind = models.SourceUpload
	default:
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "send either one table file or one or more images", map[string]any{"field": "table|images"})
		return
	}

	if err := p.Validate(kind == models.SourceTable); err != nil {
		middleware.HandleError(w, r, h.log, err)
		return
	}

	files := images
	if kind == models.SourceTable {
		files = tables
	}
	inputs := make([]formInput, 0, len(files))
	for _, fh := range files {
		in, err := readPart(fh)
		if err != nil {
			httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "unreadable file", map[string]any{"file": fh.Filename})
			return
		}
		inputs = append(inputs, in)
	}

	// la tabla se revisa antes de guardar nada
	if kind == models.SourceTable {
		if err := checkTable(inputs[0], p.ColumnPairs); err != nil {
			middleware.HandleError(w, r, h.log, err)
			return
		}
	}

	runID := util.NewID("run")
	run := &models.Run{
		ID:            runID,
		WorkspaceName: p.WorkspaceName,
		Status:        models.RunQueued,
		SourceKind:    kind,
		Params:        p,
		Inputs:        make([]models.RunInput, 0, len(inputs)),
	}

	for i, in := range inputs {
		out, err := h.sp.PutObject(ctx, ports.PutObjectInput{
			ObjectKey:   storage.InputKey(runID, i, in.name),
			ContentType: in.contentType,
			Reader:      bytes.NewReader(in.data),
			Size:        int64(len(in.data)),
		})
		if err != nil {
			log.Error("storage put failed", "run_id", runID, "file", in.name, "error", err.Error())
			httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "storage put failed", nil)
			return
		}
		run.Inputs = append(run.Inputs, models.RunInput{Name: in.name, ObjectKey: out.ObjectKey, Size: out.Size})
	}

	if err := h.runs.Create(ctx, run); err != nil {
		log.Error("db insert run failed", "run_id", runID, "error", err.Error())
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db insert failed", nil)
		return
	}

	if err := h.queue.Push(ctx, runID); err != nil {
		log.Error("queue push failed", "run_id", runID, "error", err.Error())
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "queue push failed", nil)
		return
	}

	log.Info("run queued",
		"run_id", runID,
		"source", string(kind),
		"inputs", len(run.Inputs),
	)
	httpkit.WriteJSON(w, 201, map[string]any{"run": run})
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	switch models.RunStatus(status) {
	case "", models.RunQueued, models.RunRunning, models.RunDone, models.RunEmpty, models.RunFailed:
	default:
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "unknown status", map[string]any{"field": "status"})
		return
	}

	limit := 50
	if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}

	runs, err := h.runs.List(ctx, status, limit)
	if err != nil {
		h.log.FromContext(ctx).Error("db query failed", "error", err.Error())
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}

	httpkit.WriteJSON(w, 200, map[string]any{"runs": runs})
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	items, err := h.runs.Items(ctx, run.ID)
	if err != nil && !httpkit.IsUndefinedTable(err) {
		h.log.FromContext(ctx).Error("db items query failed", "run_id", run.ID, "error", err.Error())
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db items query failed", nil)
		return
	}
	if items == nil {
		items = []models.RunItem{}
	}

	httpkit.WriteJSON(w, 200, map[string]any{"run": run, "items": items})
}

// GetRunArchive streams <workspace_name>.zip once the run is DONE.
func (h *Handler) GetRunArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	switch run.Status {
	case models.RunDone:
	case models.RunEmpty:
		httpkit.WriteErr(w, 409, "RUN_EMPTY", "nothing processed", map[string]any{
			"run_id":        run.ID,
			"failure_count": run.FailureCount,
			"skipped_count": run.SkippedCount,
		})
		return
	case models.RunFailed:
		httpkit.WriteErr(w, 409, "RUN_FAILED", "run failed", map[string]any{"run_id": run.ID, "error": run.ErrorText})
		return
	default:
		httpkit.WriteErr(w, 404, "ARCHIVE_NOT_READY", "archive not ready", map[string]any{"run_id": run.ID, "status": run.Status})
		return
	}

	rc, contentType, size, err := h.sp.GetObject(ctx, run.ArchiveKey)
	if err != nil {
		if errors.Is(err, ports.ErrObjectNotFound) {
			httpkit.WriteErr(w, 404, "ARCHIVE_NOT_FOUND", "archive missing from storage", map[string]any{"run_id": run.ID})
			return
		}
		log.Error("storage get failed", "run_id", run.ID, "error", err.Error())
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "storage get failed", nil)
		return
	}
	defer rc.Close()

	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "application/zip"
	}
	if err := httpkit.WriteAttachment(w, run.Params.ArchiveName(), contentType, size, rc); err != nil {
		// headers are gone; only the log is left
		log.Warn("archive stream interrupted", "run_id", run.ID, "error", err.Error())
	}
}

func (h *Handler) loadRun(w http.ResponseWriter, r *http.Request) (*models.Run, bool) {
	runID := chi.URLParam(r, "runId")
	run, err := h.runs.Get(r.Context(), runID)
	if errors.Is(err, repositories.ErrRunNotFound) {
		httpkit.WriteErr(w, 404, "RUN_NOT_FOUND", "run not found", map[string]any{"run_id": runID})
		return nil, false
	}
	if err != nil {
		h.log.FromContext(r.Context()).Error("db query failed", "run_id", runID, "error", err.Error())
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return nil, false
	}
	return run, true
}

type formInput struct {
	name        string
	contentType string
	data        []byte
}

func readPart(fh *multipart.FileHeader) (formInput, error) {
	f, err := fh.Open()
	if err != nil {
		return formInput{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return formInput{}, err
	}
	return formInput{
		name:        fh.Filename,
		contentType: fh.Header.Get("Content-Type"),
		data:        data,
	}, nil
}

func checkTable(in formInput, pairs []batch.ColumnPair) error {
	if !table.Supported(in.name) {
		return errors.Config("unsupported table file %q, use .xlsx or .csv", in.name).WithField("field", "table")
	}
	tbl, err := table.Load(in.name, bytes.NewReader(in.data))
	if err != nil {
		return err
	}
	return batch.CheckColumns(tbl, pairs)
}
