package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"lienzo/internal/models"
	"lienzo/internal/ports"
	"lienzo/internal/storage"
)

// Input is one stored input read back into memory.
type Input struct {
	Name string
	Data []byte
}

type InputHandler struct {
	sp          ports.StorageProvider
	storageRoot string
	maxBytes    int64
}

func NewInputHandler(sp ports.StorageProvider, storageRoot string, maxBytes int64) *InputHandler {
	return &InputHandler{
		sp:          sp,
		storageRoot: storageRoot,
		maxBytes:    maxBytes,
	}
}

// Materialize lee todos los inputs del run. Con un provider remoto cada
// input se copia primero a <storageRoot>/work/<runID>/inputs.
func (ih *InputHandler) Materialize(ctx context.Context, run *models.Run) ([]Input, error) {
	if len(run.Inputs) == 0 {
		return nil, fmt.Errorf("run has no inputs")
	}

	remote := ih.sp.Provider() != "localfs"
	baseDir := filepath.Join(ih.storageRoot, "work", run.ID, "inputs")
	if remote {
		if err := os.MkdirAll(baseDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create inputs directory: %w", err)
		}
	}

	out := make([]Input, 0, len(run.Inputs))
	for i, in := range run.Inputs {
		var (
			data []byte
			err  error
		)
		if remote {
			data, err = ih.materializeInput(ctx, baseDir, i, in)
		} else {
			data, err = storage.ReadObject(ctx, ih.sp, in.ObjectKey, ih.maxBytes)
		}
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", in.Name, err)
		}
		out = append(out, Input{Name: in.Name, Data: data})
	}
	return out, nil
}

// materializeInput baja el objeto a disco y devuelve el contenido de la
// copia local, que es la que usa el run.
func (ih *InputHandler) materializeInput(ctx context.Context, baseDir string, n int, in models.RunInput) ([]byte, error) {
	localPath := filepath.Join(baseDir, fmt.Sprintf("%03d_%s", n, storage.SanitizeName(in.Name)))

	// 1. Descargar del storage directo al archivo local
	if err := ih.download(ctx, in.ObjectKey, localPath); err != nil {
		return nil, err
	}

	// 2. Leer la copia local
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read local input: %w", err)
	}
	return data, nil
}

func (ih *InputHandler) download(ctx context.Context, objectKey, localPath string) error {
	rc, _, _, err := ih.sp.GetObject(ctx, objectKey)
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to save input locally: %w", err)
	}

	written, err := io.Copy(f, io.LimitReader(rc, ih.maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > ih.maxBytes {
		err = fmt.Errorf("read %s: object exceeds %d bytes", objectKey, ih.maxBytes)
	}
	if err != nil {
		os.Remove(localPath)
		return fmt.Errorf("failed to save input locally: %w", err)
	}
	return nil
}
