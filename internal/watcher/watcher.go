// Package watcher notifies when a configuration file changes on disk.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce coalesces the bursts of events editors produce on save.
const DefaultDebounce = 100 * time.Millisecond

// Watcher calls onChange when the target file is written, created, replaced
// or removed. It watches the parent directory so the target may not exist
// yet and may be replaced atomically.
type Watcher struct {
	watcher    *fsnotify.Watcher
	ctx        context.Context
	cancel     context.CancelFunc
	onChange   func(path string)
	targetPath string
	parentPath string
	wg         sync.WaitGroup
	mu         sync.Mutex
	debounce   time.Duration
	running    bool
}

// New creates a Watcher for targetPath.
func New(targetPath string, onChange func(path string)) (*Watcher, error) {
	if targetPath == "" {
		return nil, errors.New("watcher: empty path")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(targetPath)
	if err != nil {
		abs = filepath.Clean(targetPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		targetPath: abs,
		parentPath: filepath.Dir(abs),
		onChange:   onChange,
		watcher:    fsw,
		ctx:        ctx,
		cancel:     cancel,
		debounce:   DefaultDebounce,
	}, nil
}

// SetDebounce overrides the debounce window. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// Start begins watching. A missing parent directory is logged, not fatal.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	w.running = true

	if err := w.addWatch(); err != nil {
		log.Warn().Err(err).Str("path", w.parentPath).Msg("Failed to add initial watch")
	}

	w.wg.Add(1)
	go w.watchLoop(w.debounce)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.cancel()
	err := w.watcher.Close()
	w.mu.Unlock()

	w.wg.Wait()
	return err
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.targetPath
}

func (w *Watcher) addWatch() error {
	if _, err := os.Stat(w.parentPath); err != nil {
		return err
	}
	return w.watcher.Add(w.parentPath)
}

func (w *Watcher) watchLoop(debounce time.Duration) {
	defer w.wg.Done()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-fire:
			fire = nil
			log.Info().Str("path", w.targetPath).Msg("Watched file changed")
			if w.onChange != nil {
				w.onChange(w.targetPath)
			}

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.targetPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}

			log.Debug().Str("path", w.targetPath).Str("op", event.Op.String()).Msg("File event")
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Str("path", w.targetPath).Msg("Watcher error")
		}
	}
}
