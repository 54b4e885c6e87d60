package params

import (
	"net/url"
	"strconv"
	"strings"

	"lienzo/internal/pkg/errors"
)

// FromForm reads params from form fields over the defaults. Absent or empty
// fields keep their default; unparsable numbers are config errors.
func FromForm(v url.Values) (Params, error) {
	p := Default()

	ints := []struct {
		field string
		dst   *int
	}{
		{"width", &p.Width},
		{"height", &p.Height},
		{"dpi", &p.DPI},
		{"jpeg_quality", &p.JPEGQuality},
		{"workers", &p.Workers},
		{"fetch_timeout_seconds", &p.FetchTimeoutSeconds},
	}
	for _, f := range ints {
		s := strings.TrimSpace(v.Get(f.field))
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return p, errors.Config("%s must be an integer, got %q", f.field, s).WithField("field", f.field)
		}
		*f.dst = n
	}

	if s := strings.TrimSpace(v.Get("margin_cm")); s != "" {
		m, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return p, errors.Config("margin_cm must be a number, got %q", s).WithField("field", "margin_cm")
		}
		p.MarginCm = m
	}

	if s := strings.TrimSpace(v.Get("workspace_name")); s != "" {
		p.WorkspaceName = s
	}

	// column_pairs may be repeated or comma separated
	for _, s := range v["column_pairs"] {
		pairs, err := ParseColumnPairs(s)
		if err != nil {
			return p, err
		}
		p.ColumnPairs = append(p.ColumnPairs, pairs...)
	}
	return p, nil
}
