package nodetypes

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ReloadObserver is notified after every reload attempt with the outcome
// ("success", "error" or "invalid") and the number of node types now served.
type ReloadObserver interface {
	RecordNodeTypeLoad(status string, count int)
}

// Watcher reloads a Registry when node type files change on disk. A reload
// that fails to load or validate keeps the previous snapshot.
type Watcher struct {
	dirs      []string
	registry  *Registry
	loader    *Loader
	validator *Validator
	logger    *zap.Logger
	debounce  time.Duration
	observer  ReloadObserver
	watcher   *fsnotify.Watcher
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long the watcher waits for events to settle before
// reloading.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithReloadObserver registers an observer for reload outcomes.
func WithReloadObserver(obs ReloadObserver) WatcherOption {
	return func(w *Watcher) {
		w.observer = obs
	}
}

// NewWatcher creates a watcher over dirs that reloads registry. The
// directories are registered recursively; call Run to start processing.
func NewWatcher(dirs []string, registry *Registry, logger *zap.Logger, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		dirs:      dirs,
		registry:  registry,
		loader:    NewLoader(),
		validator: NewValidator(),
		logger:    logger,
		debounce:  500 * time.Millisecond,
		watcher:   fw,
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, dir := range dirs {
		if err := w.addRecursive(dir); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Run processes file events until ctx is cancelled, then closes the
// underlying watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if err := w.addRecursive(event.Name); err != nil {
					w.logger.Warn("watching new directory failed", zap.String("path", event.Name), zap.Error(err))
				}
			}
			if !relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", zap.Error(err))

		case <-timerC:
			timerC = nil
			w.Reload()
		}
	}
}

// Reload loads and validates all directories and swaps the registry
// snapshot when they are valid. It reports whether the swap happened.
func (w *Watcher) Reload() bool {
	files, err := w.loader.LoadAll(w.dirs)
	if err != nil {
		w.logger.Error("node type reload failed", zap.Error(err))
		w.record("error")
		return false
	}

	if verrs := w.validator.Validate(files); len(verrs) > 0 {
		for _, ve := range verrs {
			w.logger.Warn("node type validation error",
				zap.String("path", ve.Path),
				zap.String("code", ve.Code),
				zap.String("error", ve.Message),
			)
		}
		w.record("invalid")
		return false
	}

	previous := w.registry.Checksum()
	w.registry.Replace(files)
	w.logger.Info("node types reloaded",
		zap.Int("files", len(files)),
		zap.Int("node_types", w.registry.Len()),
		zap.Bool("changed", previous != w.registry.Checksum()),
	)
	w.record("success")
	return true
}

func (w *Watcher) record(status string) {
	if w.observer != nil {
		w.observer.RecordNodeTypeLoad(status, w.registry.Len())
	}
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// relevant reports whether event touches a node type file or a directory
// that may hold them.
func relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	switch strings.ToLower(filepath.Ext(event.Name)) {
	case ".json", ".yaml", ".yml":
		return true
	case "":
		// Removed or renamed directories no longer stat.
		return event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) || isDir(event.Name)
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
