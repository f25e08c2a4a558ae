// internal/server/watcher.go
package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// BuildFunc regenerates the site.
type BuildFunc func(ctx context.Context) error

// Watcher rebuilds the site whenever a file under its root is created,
// written, removed or renamed. Rebuilds run one at a time on the watch loop,
// one per event.
type Watcher struct {
	root      string
	ignore    []string
	build     BuildFunc
	onRebuild func()
	logger    *zap.Logger
	metrics   *Metrics

	mu      sync.Mutex
	watched map[string]bool
}

type WatcherOption func(w *Watcher)

// WithIgnore skips events for paths matching any of the doublestar
// patterns, given relative to the root. A pattern matching a directory
// covers everything below it.
func WithIgnore(patterns ...string) WatcherOption {
	return func(w *Watcher) {
		w.ignore = append(w.ignore, patterns...)
	}
}

// OnRebuild is called after every successful rebuild.
func OnRebuild(fn func()) WatcherOption {
	return func(w *Watcher) {
		w.onRebuild = fn
	}
}

func WithMetrics(m *Metrics) WatcherOption {
	return func(w *Watcher) {
		w.metrics = m
	}
}

func NewWatcher(root string, build BuildFunc, logger *zap.Logger, opts ...WatcherOption) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{
		root:    filepath.Clean(root),
		build:   build,
		logger:  logger,
		watched: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is done. It does not build before the first event.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create file watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.root); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", w.root, err)
	}
	w.logger.Info("watching for changes", zap.String("dir", w.root), zap.Int("dirs", len(w.Watched())))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	op := eventOp(event)
	if op == "" || w.Ignored(event.Name) {
		return
	}
	w.metrics.observeEvent(op)

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(fsw, event.Name); err != nil {
				w.logger.Warn("could not watch new directory", zap.String("dir", event.Name), zap.Error(err))
			}
		}
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.forget(event.Name)
	}

	w.logger.Info("change detected, rebuilding", zap.String("path", event.Name), zap.String("op", op))
	if err := w.Rebuild(ctx); err != nil {
		w.logger.Error("error rebuilding site", zap.Error(err))
	}
}

// Rebuild runs the build function once and records its outcome.
func (w *Watcher) Rebuild(ctx context.Context) error {
	start := time.Now()
	err := w.build(ctx)
	w.metrics.observeBuild(start, err)
	if err != nil {
		return err
	}
	w.logger.Debug("site rebuilt", zap.Duration("took", time.Since(start)))
	if w.onRebuild != nil {
		w.onRebuild()
	}
	return nil
}

func eventOp(event fsnotify.Event) string {
	switch {
	case event.Has(fsnotify.Create):
		return "create"
	case event.Has(fsnotify.Write):
		return "write"
	case event.Has(fsnotify.Remove):
		return "remove"
	case event.Has(fsnotify.Rename):
		return "rename"
	}
	return ""
}

// Ignored reports whether path, or a directory containing it, matches an
// ignore pattern.
func (w *Watcher) Ignored(path string) bool {
	if len(w.ignore) == 0 {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	rel = filepath.ToSlash(rel)
	for candidate := rel; candidate != "."; candidate = pathParent(candidate) {
		for _, pattern := range w.ignore {
			if ok, _ := doublestar.Match(pattern, candidate); ok {
				return true
			}
		}
	}
	return false
}

func pathParent(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return "."
	}
	return p[:i]
}

// addTree watches dir and every directory below it that is not ignored.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return err
	}
	var (
		mu   sync.Mutex
		dirs = []string{filepath.Clean(dir)}
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if w.Ignored(p) {
			return filepath.SkipDir
		}
		mu.Lock()
		dirs = append(dirs, filepath.Clean(p))
		mu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, d := range dirs {
		if w.watched[d] {
			continue
		}
		if err := fsw.Add(d); err != nil {
			w.logger.Warn("error adding watch", zap.String("dir", d), zap.Error(err))
			continue
		}
		w.logger.Debug("watching directory", zap.String("dir", d))
		w.watched[d] = true
	}
	return nil
}

// forget drops bookkeeping for a removed directory and everything below it.
// fsnotify drops the watches themselves.
func (w *Watcher) forget(path string) {
	path = filepath.Clean(path)
	prefix := path + string(filepath.Separator)
	w.mu.Lock()
	defer w.mu.Unlock()
	for d := range w.watched {
		if d == path || strings.HasPrefix(d, prefix) {
			delete(w.watched, d)
		}
	}
}

// Watched returns the directories currently registered, sorted.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	dirs := make([]string, 0, len(w.watched))
	for d := range w.watched {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}
