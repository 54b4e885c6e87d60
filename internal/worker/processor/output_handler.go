package processor

import (
	"bytes"
	"context"
	"fmt"

	"lienzo/internal/batch"
	"lienzo/internal/models"
	"lienzo/internal/pkg/errors"
	"lienzo/internal/ports"
	"lienzo/internal/storage"
)

type OutputHandler struct {
	sp ports.StorageProvider
}

func NewOutputHandler(sp ports.StorageProvider) *OutputHandler {
	return &OutputHandler{sp: sp}
}

// StoreArchive sube el zip del run y devuelve la Completion a guardar.
// Sin ningún éxito no hay zip y el run termina EMPTY.
func (oh *OutputHandler) StoreArchive(ctx context.Context, run *models.Run, out *batch.RunOutput) (models.Completion, error) {
	c := models.Completion{
		Status:         models.RunDone,
		SuccessCount:   out.Successes(),
		FailureCount:   len(out.Failures()),
		SkippedCount:   len(out.Skipped),
		OverwriteCount: out.Overwrites,
	}

	data, err := out.Archive()
	if errors.IsEmptyResult(err) {
		c.Status = models.RunEmpty
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("failed to build archive: %w", err)
	}

	// Subir a storage
	res, err := oh.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   storage.ArchiveKey(run.ID, run.Params.ArchiveName()),
		ContentType: "application/zip",
		Reader:      bytes.NewReader(data),
		Size:        int64(len(data)),
	})
	if err != nil {
		return c, fmt.Errorf("failed to upload archive: %w", err)
	}

	c.ArchiveKey = res.ObjectKey
	return c, nil
}
