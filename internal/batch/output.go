package batch

import (
	"path/filepath"
	"strings"

	"lienzo/internal/archive"
	"lienzo/internal/pkg/errors"
)

var separators = strings.NewReplacer("/", "_", "\\", "_")

// NormalizeFilename returns the archive name for a supplied filename. Names
// already ending in .jpg or .jpeg keep their spelling; any other extension is
// replaced by .jpg.
func NormalizeFilename(name string) string {
	name = separators.Replace(strings.TrimSpace(name))

	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") {
		return name
	}

	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" {
		stem = name
	}
	return stem + ".jpg"
}

// RunOutput collects results in item order. Successes are keyed by name; a
// later success with a name already present replaces the earlier bytes but
// keeps the earlier position.
type RunOutput struct {
	Results    []Result
	Skipped    []SkippedRow
	Overwrites int

	entries []archive.Entry
	index   map[string]int
}

func NewRunOutput() *RunOutput {
	return &RunOutput{index: make(map[string]int)}
}

// Record appends r and reports whether it overwrote an earlier entry.
func (o *RunOutput) Record(r Result) bool {
	o.Results = append(o.Results, r)

	s, ok := r.Outcome.(Success)
	if !ok {
		return false
	}
	if i, dup := o.index[s.Name]; dup {
		o.entries[i].Data = s.Data
		o.Overwrites++
		return true
	}
	o.index[s.Name] = len(o.entries)
	o.entries = append(o.entries, archive.Entry{Name: s.Name, Data: s.Data})
	return false
}

// Entries returns the archive entries in first-seen order.
func (o *RunOutput) Entries() []archive.Entry {
	return o.entries
}

// Successes counts successful results, overwritten ones included.
func (o *RunOutput) Successes() int {
	n := 0
	for _, r := range o.Results {
		if r.Succeeded() {
			n++
		}
	}
	return n
}

// Failures lists failed results in order.
func (o *RunOutput) Failures() []Result {
	var out []Result
	for _, r := range o.Results {
		if !r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}

// Seal reports an EMPTY_RESULT error when nothing succeeded.
func (o *RunOutput) Seal() error {
	if len(o.entries) == 0 {
		return errors.EmptyResult("nothing processed")
	}
	return nil
}

// Archive seals the output and zips it.
func (o *RunOutput) Archive() ([]byte, error) {
	if err := o.Seal(); err != nil {
		return nil, err
	}
	return archive.Zip(o.entries)
}
