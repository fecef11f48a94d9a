// Package watch reloads a lyrics file when it changes on disk, so timings
// can be edited while the viewer is running.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"karolbroda.com/lyricsync/internal/lyrics"
)

const DefaultDebounce = 150 * time.Millisecond

// Reload carries either a freshly parsed document or the parse error.
type Reload struct {
	Path string
	Doc  *lyrics.Document
	Err  error
}

type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	reloads  chan Reload
}

// New watches the directory holding path. Most editors save by writing a
// temp file and renaming it over the original, which drops a watch on the
// file itself.
func New(path string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:     abs,
		debounce: DefaultDebounce,
		logger:   logger,
		watcher:  fw,
		reloads:  make(chan Reload, 1),
	}, nil
}

func (w *Watcher) Reloads() <-chan Reload {
	return w.reloads
}

// Run forwards reloads until ctx is done. Bursts of events inside the
// debounce window collapse into one reload.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	defer close(w.reloads)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("lyrics file changed", "path", event.Name, "op", event.Op.String())

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.deliver(ctx, w.load())

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) load() Reload {
	doc, err := lyrics.LoadFile(w.path)
	if err != nil {
		w.logger.Warn("reload failed", "path", w.path, "error", err)
		return Reload{Path: w.path, Err: err}
	}
	w.logger.Info("lyrics reloaded", "path", w.path, "lines", len(doc.Lines))
	return Reload{Path: w.path, Doc: doc}
}

// deliver keeps only the newest reload if the consumer is behind.
func (w *Watcher) deliver(ctx context.Context, r Reload) {
	select {
	case <-w.reloads:
	default:
	}
	select {
	case w.reloads <- r:
	case <-ctx.Done():
	}
}
