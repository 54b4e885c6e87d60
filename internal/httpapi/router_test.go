package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"lienzo/internal/adapters/storage/localfs"
	"lienzo/internal/models"
	"lienzo/internal/params"
	"lienzo/internal/pkg/logger"
	"lienzo/internal/ports"
	"lienzo/internal/repositories"
)

type memRuns struct {
	mu    sync.Mutex
	runs  map[string]*models.Run
	items map[string][]models.RunItem
}

func newMemRuns() *memRuns {
	return &memRuns{runs: map[string]*models.Run{}, items: map[string][]models.RunItem{}}
}

func (m *memRuns) Create(ctx context.Context, run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.CreatedAt = time.Now().UTC()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *memRuns) Get(ctx context.Context, id string) (*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, repositories.ErrRunNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRuns) List(ctx context.Context, status string, limit int) ([]models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Run{}
	for _, r := range m.runs {
		if status == "" || string(r.Status) == status {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRuns) Items(ctx context.Context, runID string) ([]models.RunItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[runID], nil
}

type memQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *memQueue) Push(ctx context.Context, runID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, runID)
	return nil
}

func (q *memQueue) Ping(ctx context.Context) error { return nil }

type testEnv struct {
	handler http.Handler
	runs    *memRuns
	queue   *memQueue
	sp      *localfs.LocalFS
	root    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{runs: newMemRuns(), queue: &memQueue{}, sp: localfs.New(root), root: root}
	env.handler = NewRouter(Deps{
		Runs:           env.runs,
		Queue:          env.queue,
		SP:             env.sp,
		Log:            logger.Discard(),
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	return env
}

type part struct {
	field, filename string
	data            []byte
}

func multipartRequest(t *testing.T, fields map[string]string, parts ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, p := range parts {
		fw, err := mw.CreateFormFile(p.field, p.filename)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(p.data)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/runs", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid error body %q: %v", rec.Body.String(), err)
	}
	return env.Error.Code
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			n++
		}
		return nil
	})
	return n
}

const csvTable = "FileName1,ImageLink1\nuno,https://img.example/1.png\n"

func TestPostRunTable(t *testing.T) {
	env := newTestEnv(t)

	req := multipartRequest(t,
		map[string]string{"column_pairs": "FileName1:ImageLink1", "workspace_name": "catalogo", "dpi": "300"},
		part{"table", "productos.csv", []byte(csvTable)},
	)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(rec.Header().Get("X-Request-ID")) != 36 {
		t.Errorf("expected request id header")
	}

	var resp struct {
		Run models.Run `json:"run"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	run := resp.Run
	if run.Status != models.RunQueued || run.SourceKind != models.SourceTable || run.Params.DPI != 300 {
		t.Errorf("unexpected run %+v", run)
	}
	if len(env.queue.ids) != 1 || env.queue.ids[0] != run.ID {
		t.Errorf("run should be queued, queue=%v", env.queue.ids)
	}
	if len(run.Inputs) != 1 || run.Inputs[0].Name != "productos.csv" {
		t.Fatalf("unexpected inputs %+v", run.Inputs)
	}
	data, err := os.ReadFile(filepath.Join(env.root, filepath.FromSlash(run.Inputs[0].ObjectKey)))
	if err != nil || string(data) != csvTable {
		t.Errorf("stored table = %q, %v", data, err)
	}
	if !strings.HasPrefix(run.Inputs[0].ObjectKey, "runs/"+run.ID+"/inputs/") {
		t.Errorf("unexpected key %s", run.Inputs[0].ObjectKey)
	}
}

func TestPostRunUploads(t *testing.T) {
	env := newTestEnv(t)

	req := multipartRequest(t, nil,
		part{"images", "a.png", []byte("png-bytes")},
		part{"images", "b.webp", []byte("webp-bytes")},
	)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if n := countFiles(t, env.root); n != 2 {
		t.Errorf("expected 2 stored inputs, got %d", n)
	}
	for _, r := range env.runs.runs {
		if r.SourceKind != models.SourceUpload || len(r.Inputs) != 2 || r.Inputs[1].Name != "b.webp" {
			t.Errorf("unexpected run %+v", r)
		}
	}
}

func TestPostRunRejected(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		parts    []part
		wantCode string
	}{
		{
			name:     "missing column",
			fields:   map[string]string{"column_pairs": "FileName1:ImageLink2"},
			parts:    []part{{"table", "t.csv", []byte(csvTable)}},
			wantCode: "SCHEMA_ERROR",
		},
		{
			name:     "no pairs for table",
			parts:    []part{{"table", "t.csv", []byte(csvTable)}},
			wantCode: "CONFIG_ERROR",
		},
		{
			name:     "bad geometry",
			fields:   map[string]string{"width": "0"},
			parts:    []part{{"images", "a.png", []byte("x")}},
			wantCode: "CONFIG_ERROR",
		},
		{
			name:     "unparsable number",
			fields:   map[string]string{"margin_cm": "one"},
			parts:    []part{{"images", "a.png", []byte("x")}},
			wantCode: "CONFIG_ERROR",
		},
		{
			name:     "unsupported table",
			fields:   map[string]string{"column_pairs": "FileName1:ImageLink1"},
			parts:    []part{{"table", "t.ods", []byte("x")}},
			wantCode: "CONFIG_ERROR",
		},
		{
			name:     "table and images",
			fields:   map[string]string{"column_pairs": "FileName1:ImageLink1"},
			parts:    []part{{"table", "t.csv", []byte(csvTable)}, {"images", "a.png", []byte("x")}},
			wantCode: "VALIDATION_ERROR",
		},
		{
			name:     "no files",
			wantCode: "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, multipartRequest(t, tt.fields, tt.parts...))

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := errorCode(t, rec); got != tt.wantCode {
				t.Errorf("expected %s, got %s", tt.wantCode, got)
			}
			if len(env.queue.ids) != 0 || len(env.runs.runs) != 0 || countFiles(t, env.root) != 0 {
				t.Error("rejected request must not store or queue anything")
			}
		})
	}
}

func seedRun(t *testing.T, env *testEnv, id string, status models.RunStatus) *models.Run {
	t.Helper()
	p := params.Default()
	p.WorkspaceName = "catalogo"
	run := &models.Run{ID: id, WorkspaceName: "catalogo", Status: status, SourceKind: models.SourceTable, Params: p}
	if err := env.runs.Create(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	return run
}

func TestGetRun(t *testing.T) {
	env := newTestEnv(t)
	seedRun(t, env, "run_a", models.RunDone)
	env.runs.items["run_a"] = []models.RunItem{
		{Seq: 1, Filename: "uno.jpg", Origin: "row 2 FileName1/ImageLink1", Status: models.ItemSuccess},
		{Seq: 2, Origin: "row 3 FileName1/ImageLink1", Status: models.ItemSkipped, Reason: "missing link"},
	}

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/run_a", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Run   models.Run       `json:"run"`
		Items []models.RunItem `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Run.ID != "run_a" || len(resp.Items) != 2 || resp.Items[1].Reason != "missing link" {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/nope", nil))
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "RUN_NOT_FOUND" {
		t.Errorf("expected RUN_NOT_FOUND, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestListRuns(t *testing.T) {
	env := newTestEnv(t)
	seedRun(t, env, "run_a", models.RunDone)
	seedRun(t, env, "run_b", models.RunQueued)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?status=done", nil))
	var resp struct {
		Runs []models.Run `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Runs) != 1 || resp.Runs[0].ID != "run_a" {
		t.Errorf("unexpected runs %+v", resp.Runs)
	}

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?status=lost", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestGetRunArchive(t *testing.T) {
	env := newTestEnv(t)
	zipBytes := []byte("PK\x05\x06" + strings.Repeat("\x00", 18))

	done := seedRun(t, env, "run_done", models.RunDone)
	out, err := env.sp.PutObject(context.Background(), ports.PutObjectInput{
		ObjectKey: "runs/run_done/catalogo.zip",
		Reader:    bytes.NewReader(zipBytes),
	})
	if err != nil {
		t.Fatal(err)
	}
	env.runs.runs[done.ID].ArchiveKey = out.ObjectKey

	seedRun(t, env, "run_empty", models.RunEmpty)
	seedRun(t, env, "run_running", models.RunRunning)
	seedRun(t, env, "run_failed", models.RunFailed)

	tests := []struct {
		id         string
		wantStatus int
		wantCode   string
	}{
		{"run_running", http.StatusNotFound, "ARCHIVE_NOT_READY"},
		{"run_empty", http.StatusConflict, "RUN_EMPTY"},
		{"run_failed", http.StatusConflict, "RUN_FAILED"},
		{"missing", http.StatusNotFound, "RUN_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/"+tt.id+"/archive", nil))
			if rec.Code != tt.wantStatus || errorCode(t, rec) != tt.wantCode {
				t.Errorf("expected %d %s, got %d %s", tt.wantStatus, tt.wantCode, rec.Code, rec.Body.String())
			}
		})
	}

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/run_done/archive", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename=catalogo.zip` {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	if !bytes.Equal(rec.Body.Bytes(), zipBytes) {
		t.Error("archive bytes differ")
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health?deep=true", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Status string                    `json:"status"`
		Checks map[string]map[string]any `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Checks["storage"]["provider"] != "localfs" || resp.Checks["queue"]["status"] != "ok" {
		t.Errorf("unexpected health %s", rec.Body.String())
	}
	if _, ok := resp.Checks["postgres"]; ok {
		t.Error("postgres check needs a pool")
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/runs", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("unexpected preflight %d %v", rec.Code, rec.Header())
	}
}
