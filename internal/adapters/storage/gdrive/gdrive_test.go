package gdrive

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"

	"lienzo/internal/ports"
)

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"runs/r1/downloaded_images.zip": "runs_r1_downloaded_images.zip",
		"runs//r1/inputs/table.xlsx":    "runs_r1_inputs_table.xlsx",
		"plain.zip":                     "plain.zip",
	}
	for in, want := range tests {
		if got := fileName(in); got != want {
			t.Errorf("fileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMapErr(t *testing.T) {
	if mapErr("k", nil) != nil {
		t.Error("nil should stay nil")
	}

	notFound := fmt.Errorf("download: %w", &googleapi.Error{Code: http.StatusNotFound})
	if !errors.Is(mapErr("k", notFound), ports.ErrObjectNotFound) {
		t.Error("404 should map to ErrObjectNotFound")
	}

	forbidden := &googleapi.Error{Code: http.StatusForbidden}
	if errors.Is(mapErr("k", forbidden), ports.ErrObjectNotFound) {
		t.Error("403 must not map to ErrObjectNotFound")
	}
}
