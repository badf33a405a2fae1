package internal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lychee-technology/propgrid"
	"go.uber.org/zap"
)

// LoadFunc builds the property tree of a document file.
type LoadFunc func(path string) (*propgrid.ComposedProperty, error)

// DocumentWatcher rebuilds a property tree whenever its document file
// changes. Bursts of events within the debounce interval trigger a single
// reload. The directory is watched rather than the file, so editors that
// replace the file through a rename keep being followed.
type DocumentWatcher struct {
	path     string
	debounce time.Duration
	load     LoadFunc

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

func NewDocumentWatcher(path string, debounce time.Duration, load LoadFunc) (*DocumentWatcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(absPath), err)
	}
	return &DocumentWatcher{
		path:     absPath,
		debounce: debounce,
		load:     load,
		watcher:  fsw,
	}, nil
}

// Run delivers every successfully rebuilt tree to apply until ctx is done or
// the watcher is closed. apply runs on the Run goroutine. Failed rebuilds are
// logged and skipped, leaving the previous tree in place.
func (w *DocumentWatcher) Run(ctx context.Context, apply func(root *propgrid.ComposedProperty)) error {
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			root, err := w.load(w.path)
			if err != nil {
				zap.S().Warnw("document reload failed", "path", w.path, "err", err)
				continue
			}
			zap.S().Infow("document reloaded", "path", w.path)
			apply(root)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			zap.S().Warnw("document watcher error", "path", w.path, "err", err)
		}
	}
}

func (w *DocumentWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.watcher.Close(); err != nil && !errors.Is(err, fsnotify.ErrClosed) {
		return err
	}
	return nil
}
