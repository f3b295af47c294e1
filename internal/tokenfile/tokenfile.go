// Package tokenfile keeps the client credential in sync with a file on disk.
package tokenfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events one editor save produces
const DefaultDebounce = 250 * time.Millisecond

// Read returns the trimmed content of path. A missing file is an empty token.
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(token string)
	logger   *slog.Logger

	mu      sync.Mutex
	current string
	timer   *time.Timer
}

// New creates a watcher for path. onChange runs on every change of the
// trimmed content, including a change to empty when the file is removed.
func New(path string, onChange func(token string), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		onChange: onChange,
		logger:   logger,
	}
}

// WithDebounce overrides DefaultDebounce
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// Load reads the file once and records it as the current token
func (w *Watcher) Load() (string, error) {
	token, err := Read(w.path)
	if err != nil {
		return "", err
	}
	w.mu.Lock()
	w.current = token
	w.mu.Unlock()
	return token, nil
}

// Run watches the file's directory until ctx ends. Watching the directory
// catches editors that replace the file by rename.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("token file watch init failed: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("token file watch add %s failed: %w", dir, err)
	}
	w.logger.Info("Watching token file", "path", w.path)

	defer w.stopTimer()

	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.schedule()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Token file watch error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) reload() {
	token, err := Read(w.path)
	if err != nil {
		w.logger.Warn("Failed to read token file", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	if token == w.current {
		w.mu.Unlock()
		return
	}
	w.current = token
	w.mu.Unlock()

	w.logger.Info("Token file changed", "path", w.path, "hasToken", token != "")
	w.onChange(token)
}
