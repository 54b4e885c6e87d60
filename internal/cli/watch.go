package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"lienzo/internal/params"
	"lienzo/internal/pkg/logger"
	"lienzo/internal/table"
)

// watchDebounce is how long a table must stay quiet before it is processed.
const watchDebounce = 500 * time.Millisecond

func newWatchCmd() *cobra.Command {
	var flags canvasFlags

	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Convert every table written into a folder",
		Long: `Watches DIR for new or modified .xlsx and .csv files. Each one is processed
with the given pairs and parameters once it has been quiet for 500ms, and
its zip is written next to it as <table-name>.zip.`,
		Example: `  lienzo watch ./entrada --pair FileName1:ImageLink1 --config params.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.params(cmd)
			if err != nil {
				return err
			}
			if err := p.Validate(true); err != nil {
				return err
			}

			log := loggerFrom(cmd.Context()).WithComponent("watch")
			hf := &hotFolder{
				dir:      args[0],
				params:   p,
				conv:     &converter{out: cmd.OutOrStdout(), log: log},
				log:      log,
				debounce: watchDebounce,
			}
			return hf.run(cmd.Context())
		},
	}

	flags.register(cmd, true)
	return cmd
}

// hotFolder converts tables dropped into dir, one at a time.
type hotFolder struct {
	dir      string
	params   params.Params
	conv     *converter
	log      *logger.Logger
	debounce time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending sync.WaitGroup
	busy    sync.Mutex
}

// run blocks until ctx is done, then waits for the conversion in progress.
func (h *hotFolder) run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(h.dir); err != nil {
		return fmt.Errorf("failed to watch folder %s: %w", h.dir, err)
	}
	h.timers = make(map[string]*time.Timer)
	fmt.Fprintf(h.conv.out, "watching %s\n", h.dir)

	for {
		select {
		case <-ctx.Done():
			h.stop()
			return nil

		case event, ok := <-w.Events:
			if !ok {
				h.stop()
				return nil
			}
			if wanted(event) {
				h.schedule(ctx, event.Name)
			}

		case err, ok := <-w.Errors:
			if !ok {
				h.stop()
				return nil
			}
			h.log.Warn("watcher error", "error", err.Error())
		}
	}
}

func wanted(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	base := filepath.Base(event.Name)
	// ocultos, temporales y lockfiles de Excel
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	return table.Supported(base)
}

func (h *hotFolder) schedule(ctx context.Context, path string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if t, ok := h.timers[path]; ok && t.Stop() {
		h.pending.Done()
	}
	h.pending.Add(1)
	h.timers[path] = time.AfterFunc(h.debounce, func() {
		defer h.pending.Done()
		h.mu.Lock()
		delete(h.timers, path)
		h.mu.Unlock()
		h.process(ctx, path)
	})
}

func (h *hotFolder) stop() {
	h.mu.Lock()
	for path, t := range h.timers {
		if t.Stop() {
			h.pending.Done()
		}
		delete(h.timers, path)
	}
	h.mu.Unlock()
	h.pending.Wait()
}

func (h *hotFolder) process(ctx context.Context, path string) {
	h.busy.Lock()
	defer h.busy.Unlock()
	if ctx.Err() != nil {
		return
	}

	out := h.conv.out
	fmt.Fprintf(out, "processing %s\n", path)

	items, skipped, err := tableItems(path, h.params.ColumnPairs)
	if err != nil {
		fmt.Fprintf(out, "error %s: %v\n", filepath.Base(path), err)
		h.log.Warn("table rejected", "file", path, "error", err.Error())
		return
	}

	archive := strings.TrimSuffix(path, filepath.Ext(path)) + ".zip"
	if _, err := h.conv.convert(ctx, h.params, items, skipped, archive); err != nil {
		fmt.Fprintf(out, "error %s: %v\n", filepath.Base(path), err)
		h.log.Warn("conversion failed", "file", path, "error", err.Error())
	}
}
