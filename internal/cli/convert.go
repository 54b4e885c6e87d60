package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"lienzo/internal/batch"
	"lienzo/internal/fetch"
	"lienzo/internal/params"
	"lienzo/internal/pkg/errors"
	"lienzo/internal/pkg/logger"
	"lienzo/internal/table"
)

// summary is what one conversion produced.
type summary struct {
	Archive   string
	Succeeded int
	Failed    int
	Skipped   int
}

// converter runs items through a batch processor and reports each one to
// out as it finishes.
type converter struct {
	fetcher fetch.Fetcher
	out     io.Writer
	log     *logger.Logger
}

func (c *converter) convert(ctx context.Context, p params.Params, items []batch.WorkItem, skipped []batch.SkippedRow, archivePath string) (summary, error) {
	spec, err := p.Spec()
	if err != nil {
		return summary{}, err
	}

	f := c.fetcher
	if f == nil {
		f = fetch.NewClient(fetch.WithTimeout(p.FetchTimeout()))
	}
	bp := batch.NewProcessor(f, c.log)
	bp.Workers = p.Workers
	bp.JPEGQuality = p.JPEGQuality
	bp.OnResult = func(r batch.Result) {
		switch o := r.Outcome.(type) {
		case batch.Success:
			fmt.Fprintf(c.out, "ok    %s (%s)\n", o.Name, r.Item.Origin)
		case batch.Failure:
			fmt.Fprintf(c.out, "fail  %s [%s]\n", o.Reason, o.Stage)
		}
	}

	res := bp.Run(ctx, items, spec)
	res.Skipped = skipped
	if err := ctx.Err(); err != nil {
		// no partial archive
		return summary{Succeeded: res.Successes(), Failed: len(res.Failures())},
			errors.WrapWithCode(err, errors.CodeTimeout, "cli.convert", "conversion interrupted, no archive written")
	}
	for _, s := range skipped {
		fmt.Fprintf(c.out, "skip  row %d %s: %s\n", s.Row, s.Pair, s.Reason)
	}

	sum := summary{
		Succeeded: res.Successes(),
		Failed:    len(res.Failures()),
		Skipped:   len(skipped),
	}

	data, err := res.Archive()
	if errors.IsEmptyResult(err) {
		fmt.Fprintf(c.out, "nothing processed: %d failed, %d skipped\n", sum.Failed, sum.Skipped)
		return sum, nil
	}
	if err != nil {
		return sum, err
	}
	if err := writeFileAtomic(archivePath, data); err != nil {
		return sum, err
	}
	sum.Archive = archivePath

	fmt.Fprintf(c.out, "%d ok, %d failed, %d skipped -> %s\n", sum.Succeeded, sum.Failed, sum.Skipped, archivePath)
	if res.Overwrites > 0 {
		fmt.Fprintf(c.out, "warning: %d duplicate file name(s) overwritten\n", res.Overwrites)
	}
	return sum, nil
}

// tableItems loads a table file and builds its work items.
func tableItems(path string, pairs []batch.ColumnPair) ([]batch.WorkItem, []batch.SkippedRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	tbl, err := table.Load(filepath.Base(path), f)
	if err != nil {
		return nil, nil, err
	}
	return batch.ItemsFromTable(tbl, pairs)
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".lienzo-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
