package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Invalidator drops cached state.
type Invalidator interface {
	Invalidate()
}

// Watcher invalidates a cache whenever files in a directory change, so rule
// files edited outside the API are picked up.
type Watcher struct {
	dir    string
	target Invalidator
	logger *slog.Logger
}

func NewWatcher(dir string, target Invalidator, logger *slog.Logger) *Watcher {
	return &Watcher{dir: dir, target: target, logger: logger.With("module", "rules_watcher", "dir", dir)}
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}

	defer func() {
		_ = watcher.Close()
	}()

	err = watcher.Add(w.dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.logger.InfoContext(ctx, "watching rules directory")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.logger.DebugContext(ctx, "rules changed", "op", event.Op.String(), "file", event.Name)
				w.target.Invalidate()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			w.logger.ErrorContext(ctx, "fsnotify error", "error", err)
		}
	}
}
