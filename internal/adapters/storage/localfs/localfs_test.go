package localfs

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"lienzo/internal/ports"
)

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	fs := New(t.TempDir())

	out, err := fs.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   "runs/r1/downloaded_images.zip",
		ContentType: "application/zip",
		Reader:      strings.NewReader("PK-data"),
	})
	if err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	if out.ObjectKey != "runs/r1/downloaded_images.zip" || out.Size != 7 {
		t.Errorf("unexpected output %+v", out)
	}

	rc, _, size, err := fs.GetObject(ctx, out.ObjectKey)
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "PK-data" || size != 7 {
		t.Errorf("unexpected object %q %d", data, size)
	}

	if err := fs.DeleteObject(ctx, out.ObjectKey); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if _, _, _, err := fs.GetObject(ctx, out.ObjectKey); !errors.Is(err, ports.ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
	if err := fs.DeleteObject(ctx, out.ObjectKey); !errors.Is(err, ports.ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound on second delete, got %v", err)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	fs := New(t.TempDir())
	for _, key := range []string{"", "../outside", "/etc/passwd", "runs/../../x"} {
		_, err := fs.PutObject(context.Background(), ports.PutObjectInput{ObjectKey: key, Reader: strings.NewReader("x")})
		if err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}
