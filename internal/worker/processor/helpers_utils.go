package processor

import (
	"bytes"
	"fmt"

	"lienzo/internal/batch"
	"lienzo/internal/models"
	"lienzo/internal/pkg/errors"
	"lienzo/internal/table"
)

// BuildItems convierte los inputs materializados en work items según el
// tipo de run
func BuildItems(run *models.Run, inputs []Input) ([]batch.WorkItem, []batch.SkippedRow, error) {
	switch run.SourceKind {
	case models.SourceTable:
		if len(inputs) != 1 {
			return nil, nil, errors.Config("table run needs exactly one input, got %d", len(inputs))
		}
		tbl, err := table.Load(inputs[0].Name, bytes.NewReader(inputs[0].Data))
		if err != nil {
			return nil, nil, err
		}
		return batch.ItemsFromTable(tbl, run.Params.ColumnPairs)

	case models.SourceUpload:
		uploads := make([]batch.Upload, len(inputs))
		for i, in := range inputs {
			uploads[i] = batch.Upload{Name: in.Name, Data: in.Data}
		}
		return batch.ItemsFromUploads(uploads), nil, nil

	default:
		return nil, nil, errors.Config("unknown source kind %q", run.SourceKind)
	}
}

// RunItems aplana el resultado del batch en filas de run_items: primero los
// items en orden, después las filas saltadas.
func RunItems(runID string, out *batch.RunOutput) []models.RunItem {
	items := make([]models.RunItem, 0, len(out.Results)+len(out.Skipped))

	for _, r := range out.Results {
		it := models.RunItem{
			RunID:    runID,
			Seq:      len(items) + 1,
			Filename: r.Item.OutputName(),
			Origin:   r.Item.Origin,
		}
		switch o := r.Outcome.(type) {
		case batch.Success:
			it.Status = models.ItemSuccess
			it.Filename = o.Name
		case batch.Failure:
			it.Status = models.ItemFailed
			it.Stage = string(o.Stage)
			it.Reason = o.Reason
		}
		items = append(items, it)
	}

	for _, s := range out.Skipped {
		items = append(items, models.RunItem{
			RunID:  runID,
			Seq:    len(items) + 1,
			Origin: fmt.Sprintf("row %d %s", s.Row, s.Pair.String()),
			Status: models.ItemSkipped,
			Reason: s.Reason,
		})
	}
	return items
}
