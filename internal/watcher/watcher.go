// Package watcher reports debounced changes to a set of files.
package watcher

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/defluff/internal/log"
)

// Change lists the watched files written since the last notification.
type Change struct {
	Paths []string
}

// Has reports whether path is among the changed files.
func (c Change) Has(path string) bool {
	abs := absPath(path)
	for _, p := range c.Paths {
		if p == abs {
			return true
		}
	}
	return false
}

// Watcher monitors files for changes and sends debounced notifications.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	files     map[string]bool
	debounce  time.Duration
	onChange  chan Change
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	Paths       []string
	DebounceDur time.Duration
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(paths ...string) Config {
	return Config{
		Paths:       paths,
		DebounceDur: 150 * time.Millisecond,
	}
}

// New creates a watcher for cfg.Paths. Empty paths are ignored.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	files := make(map[string]bool, len(cfg.Paths))
	for _, p := range cfg.Paths {
		if p != "" {
			files[absPath(p)] = true
		}
	}

	return &Watcher{
		fsWatcher: fsw,
		files:     files,
		debounce:  cfg.DebounceDur,
		onChange:  make(chan Change, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching the directories containing the files.
// Watching directories rather than files survives editors that save by
// renaming a temp file over the original.
func (w *Watcher) Start() (<-chan Change, error) {
	dirs := make(map[string]bool)
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			return nil, fmt.Errorf("watching directory %s: %w", dir, err)
		}
	}

	go w.loop()

	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending = make(map[string]bool)
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			name, relevant := w.relevant(event)
			if !relevant {
				continue
			}
			pending[name] = true

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if len(pending) == 0 {
				continue
			}
			change := Change{Paths: make([]string, 0, len(pending))}
			for p := range pending {
				change.Paths = append(change.Paths, p)
			}
			sort.Strings(change.Paths)

			select {
			case w.onChange <- change:
				pending = make(map[string]bool)
			default:
				// Receiver is behind; keep the paths for the next tick.
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "watch error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// relevant reports whether event touches a watched file.
func (w *Watcher) relevant(event fsnotify.Event) (string, bool) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return "", false
	}
	name := absPath(event.Name)
	return name, w.files[name]
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if resolved, err := filepath.EvalSymlinks(filepath.Dir(p)); err == nil {
		p = filepath.Join(resolved, filepath.Base(p))
	}
	return filepath.Clean(p)
}
