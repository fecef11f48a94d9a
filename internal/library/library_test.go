package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"karolbroda.com/lyricsync/internal/logging"
)

const sampleJSON = `{
  "meta": {"title": "Night Drive", "artist": "The Examples", "totalDurationMs": 8000, "version": "1.0"},
  "lyrics": [
    {"id": "l1", "startTime": 1000, "endTime": 3000, "text": "hello there",
     "words": [{"text": "hello", "startTime": 1000, "endTime": 2000, "duration": 1000},
               {"text": "there", "startTime": 2000, "endTime": 3000, "duration": 1000}]}
  ]
}`

const sampleLRC = `[ar:Someone Else]
[ti:Plain Song]
[00:01.00]first line
[00:03.50]second line
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func openTestLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := Open(filepath.Join(t.TempDir(), "library.db"), logging.Discard())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { lib.Close() })
	return lib
}

func TestImportAndLookup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "night.json", sampleJSON)
	writeFile(t, dir, "nested/plain.lrc", sampleLRC)
	writeFile(t, dir, "cover.jpg", "not lyrics")
	writeFile(t, dir, "broken.json", "{")

	lib := openTestLibrary(t)
	ctx := context.Background()

	result, err := lib.Import(ctx, dir)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Added != 2 {
		t.Errorf("added = %d, want 2", result.Added)
	}
	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", result.Skipped)
	}
	if len(result.Failed) != 1 {
		t.Errorf("failed = %v, want one entry", result.Failed)
	}

	entry, err := lib.Lookup(ctx, "the examples", "NIGHT DRIVE!")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !entry.WordTimed || entry.LineCount != 1 || entry.DurationMs != 8000 {
		t.Errorf("entry = %+v", entry)
	}

	entry, err = lib.Lookup(ctx, "Someone Else", "Plain Song")
	if err != nil {
		t.Fatalf("Lookup lrc: %v", err)
	}
	if entry.LineCount != 2 {
		t.Errorf("lrc line count = %d, want 2", entry.LineCount)
	}
}

func TestLookupMiss(t *testing.T) {
	lib := openTestLibrary(t)
	_, err := lib.Lookup(context.Background(), "nobody", "nothing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLookupTitleOnly(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Untagged Tune.lrc", "[00:01.00]la la\n")

	lib := openTestLibrary(t)
	ctx := context.Background()
	if err := lib.Add(ctx, path); err != nil {
		t.Fatalf("Add: %v", err)
	}

	entry, err := lib.Lookup(ctx, "", "untagged tune")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if entry.Artist != "" || entry.Title != "Untagged Tune" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestLookupUntaggedMatchesAnyArtist(t *testing.T) {
	dir := t.TempDir()
	untagged := writeFile(t, dir, "Plain Song.lrc", "[00:01.00]la la\n")

	lib := openTestLibrary(t)
	ctx := context.Background()
	if err := lib.Add(ctx, untagged); err != nil {
		t.Fatalf("Add: %v", err)
	}

	entry, err := lib.Lookup(ctx, "Whoever Plays It", "plain song")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if entry.Path != untagged {
		t.Errorf("path = %s, want %s", entry.Path, untagged)
	}

	// a tagged file for the same artist outranks the untagged one
	tagged := writeFile(t, dir, "tagged/plain.lrc", sampleLRC)
	if err := lib.Add(ctx, tagged); err != nil {
		t.Fatalf("Add: %v", err)
	}
	entry, err = lib.Lookup(ctx, "someone else", "Plain Song")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if entry.Path != tagged {
		t.Errorf("path = %s, want the tagged file %s", entry.Path, tagged)
	}

	// another artist's tagged file never matches
	if _, err := lib.Lookup(ctx, "Third Band", "Other Song"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestReimportUpserts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "night.json", sampleJSON)

	lib := openTestLibrary(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := lib.Import(ctx, dir); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := lib.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}
}

func TestPruneMissing(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "night.json", sampleJSON)

	lib := openTestLibrary(t)
	ctx := context.Background()
	if _, err := lib.Import(ctx, dir); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	removed, err := lib.PruneMissing(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}

func TestSplitTitle(t *testing.T) {
	tests := []struct {
		title, path    string
		artist, wanted string
	}{
		{"Band - Song", "x.lrc", "Band", "Song"},
		{"Song", "x.lrc", "", "Song"},
		{"", "/music/Band - Song.lrc", "Band", "Song"},
	}
	for _, tt := range tests {
		artist, title := splitTitle(tt.title, tt.path)
		if artist != tt.artist || title != tt.wanted {
			t.Errorf("splitTitle(%q, %q) = %q, %q", tt.title, tt.path, artist, title)
		}
	}
}
