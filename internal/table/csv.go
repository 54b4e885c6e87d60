package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"

	"lienzo/internal/pkg/errors"
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// LoadCSV reads comma separated records. Rows may have differing lengths and
// a leading UTF-8 byte order mark, as written by spreadsheet exports, is
// skipped.
func LoadCSV(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(3); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeSchema, "table.csv", "cannot parse csv")
	}
	return New(records)
}
