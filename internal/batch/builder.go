package batch

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"lienzo/internal/pkg/errors"
	"lienzo/internal/table"
)

// ColumnPair names the filename column and the link column of one image slot
// in the table.
type ColumnPair struct {
	File string `json:"file" yaml:"file"`
	Link string `json:"link" yaml:"link"`
}

func (p ColumnPair) String() string {
	return p.File + "/" + p.Link
}

// SkippedRow is a table cell pair that did not become a work item.
type SkippedRow struct {
	Row    int        `json:"row"`
	Pair   ColumnPair `json:"pair"`
	Reason string     `json:"reason"`
}

// Upload is an image submitted directly.
type Upload struct {
	Name string
	Data []byte
}

// ItemsFromTable walks rows in order and, inside each row, pairs in order.
// Every pair column must exist in the header. A pair with both cells empty is
// ignored; a pair with only one of them, or with a link that is not an
// absolute http(s) URL, is skipped and reported.
func ItemsFromTable(tbl *table.Table, pairs []ColumnPair) ([]WorkItem, []SkippedRow, error) {
	if len(pairs) == 0 {
		return nil, nil, errors.Config("at least one column pair is required")
	}
	if err := CheckColumns(tbl, pairs); err != nil {
		return nil, nil, err
	}

	var (
		items   []WorkItem
		skipped []SkippedRow
	)
	for _, row := range tbl.Rows {
		for _, p := range pairs {
			name, hasName := row.Lookup(p.File)
			link, hasLink := row.Lookup(p.Link)

			reason := ""
			switch {
			case !hasName && !hasLink:
				continue
			case !hasName:
				reason = "missing filename"
			case !hasLink:
				reason = "missing link"
			case !validLink(link):
				reason = fmt.Sprintf("invalid link %q", link)
			}
			if reason != "" {
				skipped = append(skipped, SkippedRow{Row: row.Number, Pair: p, Reason: reason})
				continue
			}

			items = append(items, WorkItem{
				Index:  len(items),
				Name:   name,
				URL:    link,
				Origin: fmt.Sprintf("row %d %s", row.Number, p),
			})
		}
	}
	return items, skipped, nil
}

// CheckColumns returns a schema error naming every pair column missing from
// the header.
func CheckColumns(tbl *table.Table, pairs []ColumnPair) error {
	var names []string
	for _, p := range pairs {
		names = append(names, p.File, p.Link)
	}
	if missing := tbl.MissingColumns(names...); len(missing) > 0 {
		return errors.Schema("table is missing column(s): %s", strings.Join(missing, ", ")).
			WithField("missing", strings.Join(missing, ","))
	}
	return nil
}

// ItemsFromUploads keeps upload order. Directory parts of the client
// filename are dropped; a nameless upload becomes image_<n>.
func ItemsFromUploads(uploads []Upload) []WorkItem {
	items := make([]WorkItem, 0, len(uploads))
	for i, u := range uploads {
		name := strings.TrimSpace(filepath.Base(strings.ReplaceAll(u.Name, "\\", "/")))
		if name == "" || name == "." || name == "/" {
			name = fmt.Sprintf("image_%d", i+1)
		}
		items = append(items, WorkItem{
			Index:  i,
			Name:   name,
			Data:   u.Data,
			Origin: "upload",
		})
	}
	return items
}

func validLink(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}
