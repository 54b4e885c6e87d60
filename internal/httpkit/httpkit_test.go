package httpkit

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestCORS(t *testing.T) {
	h := CORS(CORSOptions{AllowedOrigins: []string{" https://ops.example.com ", ""}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }),
	)

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"allowed origin", "GET", "https://ops.example.com", http.StatusTeapot, "https://ops.example.com"},
		{"other origin", "GET", "https://evil.example.com", http.StatusTeapot, ""},
		{"preflight", "OPTIONS", "https://ops.example.com", http.StatusNoContent, "https://ops.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/runs", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("expected allow-origin %q, got %q", tt.wantAllow, got)
			}
			if tt.wantAllow != "" && rec.Header().Get("Access-Control-Max-Age") != "600" {
				t.Errorf("expected default max age, got %q", rec.Header().Get("Access-Control-Max-Age"))
			}
		})
	}
}

func TestWriteErr(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErr(rec, http.StatusNotFound, "ARCHIVE_NOT_READY", "run is RUNNING", map[string]any{"status": "RUNNING"})

	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if rec.Code != 404 || env.Error.Code != "ARCHIVE_NOT_READY" || env.Error.Details["status"] != "RUNNING" {
		t.Errorf("unexpected response %d %+v", rec.Code, env)
	}
}

func TestWriteAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := WriteAttachment(rec, "downloaded_images.zip", "application/zip", 3, strings.NewReader("PK!")); err != nil {
		t.Fatal(err)
	}
	if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=downloaded_images.zip" {
		t.Errorf("unexpected disposition %q", got)
	}
	if rec.Header().Get("Content-Length") != "3" || rec.Body.String() != "PK!" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestIsUndefinedTable(t *testing.T) {
	if !IsUndefinedTable(&pgconn.PgError{Code: "42P01"}) {
		t.Error("expected undefined table")
	}
	if IsUndefinedTable(errors.New("other")) {
		t.Error("plain error is not undefined table")
	}
}
