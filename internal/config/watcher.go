package config

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"whisper-desktop/internal/domain"
)

// Watcher keeps the latest valid settings and reloads them when the config
// file is written. It never writes the file.
type Watcher struct {
	path string

	mu       sync.RWMutex
	settings domain.Settings
	onChange func(domain.Settings)

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

// NewWatcher loads the initial settings from path.
func NewWatcher(path string) (*Watcher, error) {
	settings, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Watcher{path: path, settings: settings}, nil
}

// Settings returns the current settings.
func (w *Watcher) Settings() domain.Settings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.settings
}

// OnChange registers a callback invoked after each successful reload.
func (w *Watcher) OnChange(fn func(domain.Settings)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start watches the config directory until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher

	w.wg.Add(1)
	go w.watchLoop(ctx)

	log.Printf("Config watcher: watching %s for changes", w.path)
	return nil
}

// Stop closes the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.wg.Wait()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()
	name := filepath.Base(w.path)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				log.Printf("Config watcher: change detected in %s, reloading", event.Name)
				w.reload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Config watcher error: %v", err)

		case <-ctx.Done():
			return
		}
	}
}

// reload swaps in new settings only when they parse and validate.
func (w *Watcher) reload() {
	settings, err := Load(w.path)
	if err != nil {
		log.Printf("Config watcher: keeping previous settings: %v", err)
		return
	}

	w.mu.Lock()
	w.settings = settings
	onChange := w.onChange
	w.mu.Unlock()

	if onChange != nil {
		onChange(settings)
	}
}
