package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 100 * time.Millisecond

// Watcher reloads a configuration file when it changes on disk.
type Watcher struct {
	path    string
	lookup  func(string) (string, bool)
	watcher *fsnotify.Watcher
}

// NewWatcher watches the directory holding path so that editors replacing the
// file by rename are still observed.
func NewWatcher(path string, lookup func(string) (string, bool)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, err
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Watcher{path: abs, lookup: lookup, watcher: w}, nil
}

// Run delivers every successful reload to onReload until ctx is cancelled.
// A file that fails to load is reported to onError and otherwise ignored.
func (w *Watcher) Run(ctx context.Context, onReload func(Config), onError func(error)) {
	if onError == nil {
		onError = func(error) {}
	}

	defer w.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time
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
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			cfg, err := Load(w.path)
			if err != nil {
				onError(err)
				continue
			}
			if err := cfg.ApplyEnv(w.lookup); err != nil {
				onError(err)
			}
			onReload(cfg.Normalized())
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			onError(err)
		}
	}
}
