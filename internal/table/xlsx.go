package table

import (
	"io"

	"github.com/xuri/excelize/v2"

	"lienzo/internal/pkg/errors"
)

// LoadXLSX reads the first sheet of a workbook.
func LoadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeSchema, "table.xlsx", "cannot open workbook")
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.Schema("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeSchema, "table.xlsx", "cannot read sheet "+sheets[0])
	}
	return New(rows)
}
