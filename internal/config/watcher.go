package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the configuration when its file changes on disk.
type Watcher struct {
	loader   *Loader
	path     string
	onChange func(*Config)

	fw   *fsnotify.Watcher
	stop chan struct{}
	done chan struct{}

	mu       sync.Mutex
	debounce *time.Timer
}

// WatchConfig starts watching the config file resolved by Load and runs
// onChange with the freshly loaded config after each edit that parses
// and validates. Invalid edits are ignored and the previous config stays
// in effect. Returns (nil, nil) when no config file is in use.
func (l *Loader) WatchConfig(onChange func(*Config)) (*Watcher, error) {
	path := l.v.ConfigFileUsed()
	if path == "" {
		return nil, nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}

	// Watch the parent directory: editors replace files via rename,
	// which drops a watch placed on the file itself.
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	w := &Watcher{
		loader:   l,
		path:     path,
		onChange: onChange,
		fw:       fw,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !sameFile(event.Name, w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}
		case _, ok := <-w.fw.Errors:
			if !ok {
				return
			}
		}
	}
}

// scheduleReload debounces bursts of write events from editors.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(200*time.Millisecond, w.reload)
}

func (w *Watcher) reload() {
	select {
	case <-w.stop:
		return
	default:
	}

	cfg, err := w.loader.Load()
	if err != nil {
		return
	}
	if err := ValidateConfig(cfg); err != nil {
		return
	}
	w.onChange(cfg)
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	close(w.stop)
	err := w.fw.Close()
	<-w.done

	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()
	return err
}

func sameFile(a, b string) bool {
	aa, err := filepath.Abs(a)
	if err != nil {
		return a == b
	}
	bb, err := filepath.Abs(b)
	if err != nil {
		return a == b
	}
	return aa == bb
}
