// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package filewatcher reloads model files when they change on disk.
package filewatcher

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mlspace/mlspace/loader"
	"github.com/mlspace/mlspace/logging"
)

// OnReload is called after every reload with the time it took and either the
// loaded result or the loading error.
type OnReload func(ctx context.Context, elapsed time.Duration, result *loader.Result, err error)

// FileWatcher watches the directories of a set of paths and reloads the model
// files found there whenever one of them is created, written, removed or
// renamed.
type FileWatcher struct {
	paths    []string
	loader   *loader.FileLoader
	onReload OnReload
	logger   logging.Logger
}

// NewFileWatcher returns a watcher reloading paths with fl.
func NewFileWatcher(paths []string, fl *loader.FileLoader, onReload OnReload, logger logging.Logger) *FileWatcher {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &FileWatcher{
		paths:    paths,
		loader:   fl,
		onReload: onReload,
		logger:   logger,
	}
}

// Start begins watching. Events are processed in a separate goroutine until
// ctx is cancelled.
func (w *FileWatcher) Start(ctx context.Context) error {
	watcher, err := w.getWatcher(w.paths)
	if err != nil {
		return err
	}
	go w.readWatcher(ctx, watcher)
	return nil
}

// Reload loads the paths once and reports the result to the callback.
func (w *FileWatcher) Reload(ctx context.Context) {
	t0 := time.Now()
	result, err := w.loader.All(w.paths)
	w.onReload(ctx, time.Since(t0), result, err)
}

func (w *FileWatcher) getWatcher(rootPaths []string) (*fsnotify.Watcher, error) {
	watchPaths, err := getWatchPaths(rootPaths)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, path := range watchPaths {
		w.logger.WithFields(map[string]any{"path": path}).Debug("watching path")
		if err := watcher.Add(path); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	return watcher, nil
}

func (w *FileWatcher) readWatcher(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	mask := fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if evt.Op&mask == 0 {
				continue
			}
			w.logger.WithFields(map[string]any{
				"event": evt.String(),
			}).Debug("Registered file event.")
			w.Reload(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error: %v", err)
		}
	}
}

func getWatchPaths(rootPaths []string) ([]string, error) {
	paths := []string{}

	for _, path := range rootPaths {
		result, err := loader.Paths(path, true)
		if err != nil {
			return nil, err
		}
		paths = append(paths, loader.Dirs(result)...)
	}

	return paths, nil
}
