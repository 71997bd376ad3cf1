package registry

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Store when its source file changes.
//
// The parent directory is watched rather than the file itself so editors
// that replace the file through a rename are still picked up.
type Watcher struct {
	store    *Store
	target   string
	debounce time.Duration
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	onReload func(*Registry)
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewWatcher prepares a watcher for store's source file. onReload may be nil.
func NewWatcher(store *Store, debounce time.Duration, logger *slog.Logger, onReload func(*Registry)) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	target, err := filepath.Abs(store.Path())
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(filepath.Dir(target)); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}

	return &Watcher{
		store:    store,
		target:   target,
		debounce: debounce,
		logger:   logger,
		watcher:  fsWatcher,
		onReload: onReload,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching in a goroutine.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop terminates the watcher.
func (w *Watcher) Stop() {
	close(w.done)
	_ = w.watcher.Close()
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.matches(event.Name) {
				continue
			}
			w.logger.Debug("registry change detected", "file", event.Name, "op", event.Op.String())

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("registry watcher error", "error", err)

		case <-timerC:
			reg := w.store.Reload()
			if w.onReload != nil {
				w.onReload(reg)
			}
			timerC = nil
		}
	}
}

func (w *Watcher) matches(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	return abs == w.target
}
