// Package watcher refreshes the in-memory configuration when dynamic files are
// edited outside the API.
package watcher

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches one directory for YAML changes and calls onChange after a quiet period
type Watcher struct {
	dir      string
	debounce time.Duration
	onChange func() error

	fs *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

func New(dir string, debounce time.Duration, onChange func() error) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &Watcher{dir: dir, debounce: debounce, onChange: onChange, fs: fw}, nil
}

// Run blocks until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()
	log.Printf("[Watcher] Watching %s (debounce %s)", w.dir, w.debounce)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Watcher] Stopped")
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !relevant(event) {
				continue
			}
			w.trigger()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			// Continue watching despite errors
			log.Printf("[Watcher] Error: %v", err)
		}
	}
}

func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.onChange(); err != nil {
			log.Printf("[Watcher] Refresh failed: %v", err)
		}
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	if err := w.fs.Close(); err != nil {
		log.Printf("[Watcher] Failed to close: %v", err)
	}
}

// relevant skips chmod-only events, hidden files (including atomic-write temporaries)
// and anything that is not YAML
func relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	return ext == ".yml" || ext == ".yaml"
}
