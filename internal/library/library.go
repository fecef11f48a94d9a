// Package library keeps a sqlite catalog of local lyrics files so a playing
// track can be matched to a file on disk before going to the network.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	_ "modernc.org/sqlite"

	"karolbroda.com/lyricsync/internal/lyrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS tracks (
	path        TEXT PRIMARY KEY,
	artist      TEXT NOT NULL,
	title       TEXT NOT NULL,
	artist_key  TEXT NOT NULL,
	title_key   TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	line_count  INTEGER NOT NULL,
	word_timed  INTEGER NOT NULL,
	imported_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS tracks_lookup ON tracks(artist_key, title_key);
`

var ErrNotFound = errors.New("no library entry for track")

type Entry struct {
	Path       string
	Artist     string
	Title      string
	DurationMs int64
	LineCount  int
	WordTimed  bool
	ImportedAt time.Time
}

type ImportResult struct {
	Added   int
	Skipped int
	Failed  []string
}

type Library struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open creates the catalog at path if needed. ":memory:" works for tests.
func Open(path string, logger *slog.Logger) (*Library, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create library directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}
	// one connection keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create library schema: %w", err)
	}

	return &Library{db: db, logger: logger, now: time.Now}, nil
}

func (l *Library) Close() error {
	return l.db.Close()
}

// Import walks dir for .json and .lrc lyrics files and upserts them. Files
// that fail to parse are reported, not fatal. The artist and title come
// from the document meta, then a "Artist - Title" document title, then the
// file name.
func (l *Library) Import(ctx context.Context, dir string) (ImportResult, error) {
	var result ImportResult

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".json" && ext != ".lrc" {
			result.Skipped++
			return nil
		}

		if err := l.Add(ctx, path); err != nil {
			l.logger.Warn("skipping lyrics file", "path", path, "error", err)
			result.Failed = append(result.Failed, path)
			return nil
		}
		result.Added++
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	l.logger.Info("library import finished", "dir", dir, "added", result.Added, "failed", len(result.Failed))
	return result, nil
}

// Add catalogs a single lyrics file.
func (l *Library) Add(ctx context.Context, path string) error {
	doc, err := lyrics.LoadFile(path)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	artist, title := splitTitle(doc.Meta.Title, path)
	if doc.Meta.Artist != "" && doc.Meta.Title != "" {
		artist, title = doc.Meta.Artist, doc.Meta.Title
	}

	wordTimed := 0
	if doc.HasWords() {
		wordTimed = 1
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO tracks (path, artist, title, artist_key, title_key, duration_ms, line_count, word_timed, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			artist = excluded.artist,
			title = excluded.title,
			artist_key = excluded.artist_key,
			title_key = excluded.title_key,
			duration_ms = excluded.duration_ms,
			line_count = excluded.line_count,
			word_timed = excluded.word_timed,
			imported_at = excluded.imported_at`,
		abs, artist, title, matchKey(artist), matchKey(title),
		doc.Meta.TotalDurationMs, len(doc.Lines), wordTimed, l.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store library entry: %w", err)
	}
	return nil
}

// Lookup finds the file for artist and title, ignoring case and
// punctuation. An empty artist matches on title alone. Files imported
// without an artist match any artist, ranked after exact artist matches.
func (l *Library) Lookup(ctx context.Context, artist, title string) (Entry, error) {
	query := `SELECT path, artist, title, duration_ms, line_count, word_timed, imported_at
		FROM tracks WHERE title_key = ?`
	args := []any{matchKey(title)}
	order := ` ORDER BY word_timed DESC, imported_at DESC LIMIT 1`
	if artist != "" {
		key := matchKey(artist)
		query += ` AND artist_key IN (?, '')`
		order = ` ORDER BY artist_key = ? DESC, word_timed DESC, imported_at DESC LIMIT 1`
		args = append(args, key, key)
	}
	query += order

	entry, err := scanEntry(l.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return entry, err
}

func (l *Library) List(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT path, artist, title, duration_ms, line_count, word_timed, imported_at
		FROM tracks ORDER BY artist_key, title_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list library: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (l *Library) Remove(ctx context.Context, path string) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM tracks WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("failed to remove library entry: %w", err)
	}
	return nil
}

// PruneMissing deletes entries whose files have been removed from disk.
func (l *Library) PruneMissing(ctx context.Context) (int, error) {
	entries, err := l.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if _, err := os.Stat(entry.Path); errors.Is(err, fs.ErrNotExist) {
			if err := l.Remove(ctx, entry.Path); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry      Entry
		wordTimed  int
		importedAt int64
	)
	err := row.Scan(&entry.Path, &entry.Artist, &entry.Title, &entry.DurationMs, &entry.LineCount, &wordTimed, &importedAt)
	if err != nil {
		return Entry{}, err
	}
	entry.WordTimed = wordTimed != 0
	entry.ImportedAt = time.Unix(importedAt, 0)
	return entry, nil
}

func splitTitle(docTitle, path string) (string, string) {
	name := strings.TrimSpace(docTitle)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if artist, title, ok := strings.Cut(name, " - "); ok {
		return strings.TrimSpace(artist), strings.TrimSpace(title)
	}
	return "", name
}

// matchKey lowercases and drops everything but letters and digits.
func matchKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
