// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch re-checks Python files as they change on disk: the
// editor-loop counterpart of the pre-commit invocation. Watch mode only
// reports; it never rewrites.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/fixturelint/services/lint/driver"
)

// defaultDebounce is how long a file must stay quiet before re-checking.
// Editors commonly truncate and rewrite, producing event bursts.
const defaultDebounce = 200 * time.Millisecond

// Watcher re-runs the checker on changed files under the watched roots.
type Watcher struct {
	drv      *driver.Driver
	log      *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the quiet period before a changed file is
// re-checked.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a Watcher running checks through drv.
func New(drv *driver.Driver, log *slog.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		drv:      drv,
		log:      log,
		debounce: defaultDebounce,
		pending:  make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the given roots until ctx is canceled. Directories are
// watched recursively; new subdirectories are picked up as they appear.
// When metricsAddr is non-empty, Prometheus metrics are served on
// /metrics for the lifetime of the watch.
func (w *Watcher) Run(ctx context.Context, roots []string, metricsAddr string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	for _, root := range roots {
		if err := addRecursive(fsw, root); err != nil {
			return err
		}
	}
	w.log.Info("watching for changes",
		slog.Int("roots", len(roots)),
		slog.Duration("debounce", w.debounce))

	if metricsAddr != "" {
		go w.serveMetrics(ctx, metricsAddr)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watch error", slog.String("error", err.Error()))

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fsw, ev)
		}
	}
}

// handleEvent schedules a re-check for changed Python files and extends
// the watch into newly created directories.
func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Op.Has(fsnotify.Create) {
		// fsnotify watches are not recursive by themselves; new
		// directories must be added explicitly.
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if err := addRecursive(fsw, ev.Name); err != nil {
				w.log.Warn("could not watch new directory",
					slog.String("dir", ev.Name),
					slog.String("error", err.Error()))
			}
			return
		}
	}

	if !isPythonFile(ev.Name) {
		return
	}
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[ev.Name]; ok {
		t.Reset(w.debounce)
		return
	}
	path := ev.Name
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.recheck(ctx, path)
	})
}

// recheck runs the checker over one file and logs its findings.
func (w *Watcher) recheck(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	summary, err := w.drv.Run(ctx, []string{path}, false)
	if err != nil {
		w.log.Error("re-check failed",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return
	}
	diags := summary.Diagnostics()
	if len(diags) == 0 {
		w.log.Debug("file clean", slog.String("file", path))
		return
	}
	for _, d := range diags {
		w.log.Warn(d)
	}
}

// serveMetrics exposes the promauto-registered metrics until ctx ends.
func (w *Watcher) serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	w.log.Info("serving metrics", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		w.log.Error("metrics server failed", slog.String("error", err.Error()))
	}
}

// addRecursive watches path and, if it is a directory, every directory
// beneath it.
func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

// isPythonFile reports whether path has a Python source extension.
func isPythonFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".py" || ext == ".pyi"
}
