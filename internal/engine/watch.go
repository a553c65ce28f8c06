package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces bursts of filesystem events into one rebuild.
const watchDebounce = 250 * time.Millisecond

// Watch converts the inputs once, then re-converts whenever an input
// file changes, until the context is cancelled. onBatch is called after
// every batch with its summary; it may be nil.
func (e *Engine) Watch(ctx context.Context, args []string, onBatch func(*Summary)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directories holding the inputs; editors replace files
	// rather than writing in place, so watching the files themselves
	// would lose them on the first save.
	dirs := make(map[string]struct{})
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return err
		}
		dir := arg
		if !info.IsDir() {
			dir = filepath.Dir(arg)
		}
		dirs[dir] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return err
		}
	}

	convert := func() {
		inputs, err := DiscoverInputs(args)
		if err != nil {
			e.logger.Error("input discovery failed", slog.Any("error", err))
			return
		}
		summary, err := e.ConvertAll(ctx, inputs)
		if err != nil {
			e.logger.Error("batch failed", slog.Any("error", err))
			return
		}
		if onBatch != nil {
			onBatch(summary)
		}
	}

	convert()
	e.logger.Info("watching for changes", slog.Int("dirs", len(dirs)))

	var debounce *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !IsInputFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			e.logger.Debug("change detected", slog.String("file", event.Name))
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case <-pending:
			convert()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("watch error", slog.Any("error", err))
		}
	}
}
