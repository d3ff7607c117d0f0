package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period after the last event before a run.
const DefaultDebounce = 300 * time.Millisecond

// Options configures Run.
type Options struct {
	// Root is the directory tree to watch.
	Root string
	// Ignore reports paths, relative to Root, whose events never trigger a
	// run. Ignored directories are not descended into.
	Ignore   func(rel string) bool
	Debounce time.Duration
	Log      zerolog.Logger
}

// Run calls fn after every settled burst of changes under opts.Root until
// ctx is done. An error from fn is logged and watching continues.
func Run(ctx context.Context, opts Options, fn func() error) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Ignore == nil {
		opts.Ignore = func(string) bool { return false }
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addTree(watcher, opts.Root, opts.Ignore); err != nil {
		return err
	}
	opts.Log.Info().Str("root", opts.Root).Msg("watching for changes")

	timer := time.NewTimer(opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(opts.Root, event.Name)
			if err != nil || opts.Ignore(filepath.ToSlash(rel)) {
				continue
			}
			opts.Log.Debug().Str("file", rel).Str("op", event.Op.String()).Msg("changed")
			if event.Op&fsnotify.Create != 0 {
				// New directories need their own watch.
				_ = addTree(watcher, event.Name, func(r string) bool {
					return opts.Ignore(filepath.ToSlash(filepath.Join(rel, r)))
				})
			}
			timer.Reset(opts.Debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			opts.Log.Warn().Err(err).Msg("watch error")

		case <-timer.C:
			if err := fn(); err != nil {
				opts.Log.Error().Err(err).Msg("pass failed")
			}
		}
	}
}

// addTree watches root and every directory below it that ignore accepts.
func addTree(w *fsnotify.Watcher, root string, ignore func(string) bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if rel != "." && ignore(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Under returns an Ignore func matching the given relative paths and
// everything below them.
func Under(paths ...string) func(string) bool {
	return func(rel string) bool {
		for _, p := range paths {
			if rel == p || strings.HasPrefix(rel, p+"/") {
				return true
			}
		}
		return false
	}
}
