// Package resolve finds lyrics for a playing track: an explicit file first,
// then the local library, then lrclib.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"karolbroda.com/lyricsync/internal/library"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/track"
)

var ErrNoLyrics = errors.New("no synced lyrics available")

type Source string

const (
	SourceFile    Source = "file"
	SourceLibrary Source = "library"
	SourceLrclib  Source = "lrclib"
	SourceCache   Source = "cache"
)

// Result is a resolved document plus the sync offset saved for the track.
// HasSyncOffset separates a saved zero from no saved offset at all.
type Result struct {
	Doc           *lyrics.Document
	SyncOffset    float64
	HasSyncOffset bool
	Source        Source
	Path          string
}

// Catalog is the part of the library the resolver needs.
type Catalog interface {
	Lookup(ctx context.Context, artist, title string) (library.Entry, error)
}

// Fetcher is the part of the lrclib client the resolver needs.
type Fetcher interface {
	Fetch(ctx context.Context, track *lyrics.TrackParams) (*lyrics.Response, error)
}

// Offsets looks up the sync offset saved for a song.
type Offsets interface {
	SyncOffset(artist, title string) (float64, bool)
}

type Resolver struct {
	catalog Catalog
	fetcher Fetcher
	offsets Offsets
	logger  *slog.Logger
}

type Option func(*Resolver)

// WithOffsets attaches saved offsets to every result, whichever source
// the lyrics came from.
func WithOffsets(offsets Offsets) Option {
	return func(r *Resolver) {
		r.offsets = offsets
	}
}

// New accepts nil for either backend; a nil backend is skipped.
func New(catalog Catalog, fetcher Fetcher, logger *slog.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{catalog: catalog, fetcher: fetcher, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Resolve(ctx context.Context, trk *track.Info) (Result, error) {
	if trk == nil {
		return Result{}, errors.New("nil track")
	}

	result, err := r.resolve(ctx, trk)
	if err != nil {
		return Result{}, err
	}

	if r.offsets != nil {
		if offset, ok := r.offsets.SyncOffset(trk.Artist, trk.Title); ok {
			result.SyncOffset = offset
			result.HasSyncOffset = true
		}
	}
	return result, nil
}

func (r *Resolver) resolve(ctx context.Context, trk *track.Info) (Result, error) {

	if trk.LyricsPath != "" {
		doc, err := lyrics.LoadFile(trk.LyricsPath)
		if err != nil {
			return Result{}, err
		}
		return Result{Doc: doc, Source: SourceFile, Path: trk.LyricsPath}, nil
	}

	if r.catalog != nil {
		result, err := r.fromCatalog(ctx, trk)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, library.ErrNotFound) {
			r.logger.Warn("library lookup failed", "track", trk.Label(), "error", err)
		}
	}

	if r.fetcher == nil {
		return Result{}, ErrNoLyrics
	}

	resp, err := r.fetcher.Fetch(ctx, &lyrics.TrackParams{
		Title:        trk.Title,
		Artist:       trk.Artist,
		Album:        trk.Album,
		DurationSecs: trk.DurationSecs(),
	})
	if err != nil {
		return Result{}, err
	}

	doc, err := resp.Document()
	if err != nil {
		if resp.Instrumental {
			return Result{}, fmt.Errorf("%s is instrumental: %w", trk.Label(), ErrNoLyrics)
		}
		return Result{}, ErrNoLyrics
	}

	source := SourceLrclib
	if resp.FromCache {
		source = SourceCache
	}
	return Result{
		Doc:           doc,
		SyncOffset:    resp.SyncOffset,
		HasSyncOffset: resp.SyncOffset != 0,
		Source:        source,
	}, nil
}

func (r *Resolver) fromCatalog(ctx context.Context, trk *track.Info) (Result, error) {
	entry, err := r.catalog.Lookup(ctx, trk.Artist, trk.Title)
	if err != nil {
		return Result{}, err
	}

	doc, err := lyrics.LoadFile(entry.Path)
	if err != nil {
		return Result{}, fmt.Errorf("library file %s: %w", entry.Path, err)
	}

	r.logger.Debug("lyrics found in library", "track", trk.Label(), "path", entry.Path)
	return Result{Doc: doc, Source: SourceLibrary, Path: entry.Path}, nil
}
