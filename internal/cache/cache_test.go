package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "lyrics"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }
	return store, &now
}

func sampleEntry() *Entry {
	return &Entry{
		TrackName:    "Song",
		ArtistName:   "Band",
		AlbumName:    "Album",
		Duration:     200,
		SyncedLyrics: "[00:01.00]hello\n[00:02.00]world",
		Source:       SourceLrclib,
	}
}

func TestSetThenGetSurvivesRestart(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.Set("Band", "Song", sampleEntry()); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// a fresh store only has the disk copy to go on
	reopened, err := NewStore(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	reopened.now = store.now

	got, err := reopened.Get(" band ", "SONG")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SyncedLyrics != sampleEntry().SyncedLyrics || got.Source != SourceLrclib {
		t.Errorf("entry = %+v", got)
	}
	if got.Version != cacheVersion {
		t.Errorf("version = %d, want %d", got.Version, cacheVersion)
	}
}

func TestGetMiss(t *testing.T) {
	store, _ := newTestStore(t)

	tests := []struct {
		name          string
		artist, title string
	}{
		{"unknown song", "Band", "Other"},
		{"empty artist", "", "Song"},
		{"empty title", "Band", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Get(tt.artist, tt.title); !errors.Is(err, ErrCacheMiss) {
				t.Errorf("err = %v, want ErrCacheMiss", err)
			}
		})
	}
}

func TestExpiredEntryIsRemoved(t *testing.T) {
	store, now := newTestStore(t)
	if err := store.Set("Band", "Song", sampleEntry()); err != nil {
		t.Fatal(err)
	}

	*now = now.Add(defaultTTL + time.Hour)

	if _, err := store.Get("Band", "Song"); !errors.Is(err, ErrCacheExpired) {
		t.Fatalf("err = %v, want ErrCacheExpired", err)
	}
	if count, _, _ := store.Stats(); count != 0 {
		t.Errorf("expired file still on disk, count = %d", count)
	}
}

func TestSetSyncOffset(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.Set("Band", "Song", sampleEntry()); err != nil {
		t.Fatal(err)
	}

	if err := store.SetSyncOffset("Band", "Song", -0.4); err != nil {
		t.Fatalf("SetSyncOffset: %v", err)
	}
	got, err := store.Get("Band", "Song")
	if err != nil {
		t.Fatal(err)
	}
	if got.SyncOffset != -0.4 {
		t.Errorf("offset = %v, want -0.4", got.SyncOffset)
	}

	if offset, ok := store.SyncOffset("band", "song"); !ok || offset != -0.4 {
		t.Errorf("SyncOffset = %v, %v, want -0.4, true", offset, ok)
	}
}

func TestSyncOffsetWithoutEntry(t *testing.T) {
	store, _ := newTestStore(t)

	if _, ok := store.SyncOffset("Someone", "Local Song"); ok {
		t.Fatal("offset reported before one was saved")
	}
	if err := store.SetSyncOffset("Someone", "Local Song", 0.7); err != nil {
		t.Fatalf("SetSyncOffset: %v", err)
	}

	reopened, err := NewStore(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if offset, ok := reopened.SyncOffset("Someone", "Local Song"); !ok || offset != 0.7 {
		t.Errorf("SyncOffset after reopen = %v, %v, want 0.7, true", offset, ok)
	}

	// the offset is not a lyrics entry
	if _, err := reopened.Get("Someone", "Local Song"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get err = %v, want ErrCacheMiss", err)
	}
	if count, _, _ := reopened.Stats(); count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestSyncOffsetSurvivesClear(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.SetSyncOffset("Band", "Song", 0); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}

	if offset, ok := store.SyncOffset("Band", "Song"); !ok || offset != 0 {
		t.Errorf("SyncOffset = %v, %v, want an explicit 0", offset, ok)
	}
	if err := store.SetSyncOffset("", "Song", 1); err == nil {
		t.Error("offset without an artist accepted")
	}
}

func TestInMemorySyncOffset(t *testing.T) {
	store := NewStoreInMemory()
	if err := store.SetSyncOffset("x", "local song", 0.7); err != nil {
		t.Fatal(err)
	}
	if offset, ok := store.SyncOffset("x", "local song"); !ok || offset != 0.7 {
		t.Errorf("SyncOffset = %v, %v, want 0.7, true", offset, ok)
	}
}

func TestCorruptEntry(t *testing.T) {
	store, _ := newTestStore(t)
	path := store.filePath(generateKey("Band", "Song"))
	if err := os.WriteFile(path, []byte("not gob"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get("Band", "Song"); !errors.Is(err, ErrCacheCorrupt) {
		t.Errorf("err = %v, want ErrCacheCorrupt", err)
	}

	pruned, err := store.Prune()
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}
}

func TestListDeleteClear(t *testing.T) {
	store, _ := newTestStore(t)
	for _, title := range []string{"One", "Two", "Three"} {
		e := sampleEntry()
		e.TrackName = title
		if err := store.Set("Band", title, e); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.ListAll()
	if err != nil || len(all) != 3 {
		t.Fatalf("ListAll = %d entries, %v", len(all), err)
	}

	if err := store.Delete("Band", "Two"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get("Band", "Two"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("deleted entry still readable: %v", err)
	}

	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	if count, size, _ := store.Stats(); count != 0 || size != 0 {
		t.Errorf("after clear: %d entries, %d bytes", count, size)
	}
}

func TestFindSimilar(t *testing.T) {
	store, _ := newTestStore(t)
	add := func(artist, title string) {
		e := sampleEntry()
		e.ArtistName, e.TrackName = artist, title
		if err := store.Set(artist, title, e); err != nil {
			t.Fatal(err)
		}
	}
	add("Band", "Song (Live)")
	add("Band", "Other")
	add("The Band", "Song")

	got := store.FindSimilar("band", "song", 5)
	if len(got) != 1 || got[0].TrackName != "Song (Live)" {
		t.Errorf("exact artist pass = %+v", got)
	}

	got = store.FindSimilar("orchestra", "song", 5)
	if len(got) != 0 {
		t.Errorf("unrelated artist matched %d entries", len(got))
	}

	got = store.FindSimilar("a", "song", 1)
	if len(got) != 1 {
		t.Errorf("limit ignored, got %d", len(got))
	}
}

func TestInMemoryStore(t *testing.T) {
	store := NewStoreInMemory()
	if err := store.Set("Band", "Song", sampleEntry()); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get("Band", "Song"); err != nil {
		t.Errorf("Get: %v", err)
	}
	if count, _, err := store.Stats(); count != 0 || err != nil {
		t.Errorf("memory store reported %d files, %v", count, err)
	}
}
