// Package watch is a recursive fsnotify watcher over the vault directory.
// It follows directory creates so new subfolders are picked up, and skips
// dot-directories the sync engine never looks at.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

var ErrWatcherClosed = errors.New("watcher closed")

type Watcher struct {
	Events chan fsnotify.Event
	Errors chan error

	watcher  *fsnotify.Watcher
	isClosed bool
	mu       sync.Mutex
}

func New() (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher: watcher,
		Events:  make(chan fsnotify.Event, 16),
		Errors:  make(chan error, 16),
	}, nil
}

// Start pumps fsnotify events into w.Events until the context ends or the
// watcher is closed.
func (w *Watcher) Start(ctx context.Context) error {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return ErrWatcherClosed
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			w.handleError(err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isClosed {
		return ErrWatcherClosed
	}
	w.isClosed = true
	close(w.Events)
	close(w.Errors)
	return w.watcher.Close()
}

// Add watches dir and all of its non-hidden subdirectories.
func (w *Watcher) Add(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isClosed {
		return ErrWatcherClosed
	}
	return w.addTree(dir)
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) {
		return
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.handleError(err)
			}
		}
	} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if err := w.watcher.Remove(event.Name); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			slog.Debug("remove watch", "path", event.Name, "error", err)
		}
	}

	select {
	case w.Events <- event:
	default:
		slog.Warn("dropped event: events channel full", "path", event.Name, "op", event.Op.String())
	}
}

func (w *Watcher) handleError(err error) {
	select {
	case w.Errors <- err:
	default:
		slog.Warn("dropped error: errors channel full", "error", err)
	}
}

func (w *Watcher) addTree(dir string) error {
	slog.Debug("watcher add", "dir", dir)
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk dir: %w", err)
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("fsnotify add watch: %w", err)
		}
		return nil
	})
}
