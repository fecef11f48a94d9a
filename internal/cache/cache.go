package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	cacheVersion   = 2
	defaultTTL     = 30 * 24 * time.Hour
	entryExtension = ".bin"
	offsetsFile    = "offsets.gob"
)

type Source string

const SourceLrclib Source = "lrclib"

var (
	ErrCacheMiss    = errors.New("cache miss")
	ErrCacheExpired = errors.New("cache expired")
	ErrCacheCorrupt = errors.New("cache corrupt")
)

// Entry keeps synced lyrics in their raw lrc form; conversion to a
// document happens on load so parser fixes apply to old entries too.
type Entry struct {
	Version      uint8
	TrackName    string
	ArtistName   string
	AlbumName    string
	Duration     float64
	Instrumental bool
	PlainLyrics  string
	SyncedLyrics string
	SyncOffset   float64
	Source       Source
	CreatedAt    int64
	ExpiresAt    int64
}

func (e *Entry) Expired(now time.Time) bool {
	return e.ExpiresAt <= now.Unix()
}

// Store is a two-level cache: a map in front of gob files on disk. A store
// with an empty base path is memory-only.
type Store struct {
	basePath string
	ttl      time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	memCache map[string]*Entry

	// offsets outlive lyrics entries: they are never expired, and clearing
	// or pruning the cache leaves them alone
	offsets       map[string]float64
	offsetsLoaded bool
}

// Open returns a store rooted at dir, falling back to memory-only when the
// directory cannot be created.
func Open(dir string) *Store {
	store, err := NewStore(dir)
	if err != nil {
		return NewStoreInMemory()
	}
	return store
}

func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("empty cache directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &Store{
		basePath: dir,
		ttl:      defaultTTL,
		now:      time.Now,
		memCache: make(map[string]*Entry),
	}, nil
}

func NewStoreInMemory() *Store {
	return &Store{
		ttl:      defaultTTL,
		now:      time.Now,
		memCache: make(map[string]*Entry),
	}
}

func (s *Store) Path() string {
	return s.basePath
}

func generateKey(artist, title string) string {
	normalized := strings.ToLower(strings.TrimSpace(artist)) + "|" + strings.ToLower(strings.TrimSpace(title))
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:12])
}

func (s *Store) filePath(key string) string {
	if s.basePath == "" {
		return ""
	}
	return filepath.Join(s.basePath, key+entryExtension)
}

func (s *Store) Get(artist, title string) (*Entry, error) {
	if artist == "" || title == "" {
		return nil, ErrCacheMiss
	}

	key := generateKey(artist, title)
	now := s.now()

	s.mu.RLock()
	entry, exists := s.memCache[key]
	s.mu.RUnlock()

	if exists {
		if !entry.Expired(now) {
			return entry, nil
		}
		s.mu.Lock()
		delete(s.memCache, key)
		s.mu.Unlock()
	}

	if s.basePath == "" {
		return nil, ErrCacheMiss
	}

	path := s.filePath(key)
	entry, err := readEntry(path)
	if err != nil {
		return nil, err
	}

	if entry.Expired(now) {
		_ = os.Remove(path)
		return nil, ErrCacheExpired
	}

	s.mu.Lock()
	s.memCache[key] = entry
	s.mu.Unlock()

	return entry, nil
}

func (s *Store) Set(artist, title string, entry *Entry) error {
	if artist == "" || title == "" || entry == nil {
		return errors.New("invalid cache entry")
	}

	key := generateKey(artist, title)

	now := s.now()
	entry.Version = cacheVersion
	entry.CreatedAt = now.Unix()
	entry.ExpiresAt = now.Add(s.ttl).Unix()

	s.mu.Lock()
	s.memCache[key] = entry
	s.mu.Unlock()

	if s.basePath == "" {
		return nil
	}

	return writeEntry(s.filePath(key), entry)
}

// SetSyncOffset remembers the offset for a song whatever its lyrics came
// from. A cached lrclib entry for the song is updated to match.
func (s *Store) SetSyncOffset(artist, title string, offset float64) error {
	if artist == "" || title == "" {
		return errors.New("invalid artist or title")
	}

	key := generateKey(artist, title)

	s.mu.Lock()
	s.loadOffsetsLocked()
	s.offsets[key] = offset
	var err error
	if s.basePath != "" {
		err = writeGob(filepath.Join(s.basePath, offsetsFile), s.offsets)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	entry, err := s.Get(artist, title)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) || errors.Is(err, ErrCacheExpired) || errors.Is(err, ErrCacheCorrupt) {
			return nil
		}
		return err
	}

	updated := *entry
	updated.SyncOffset = offset
	return s.Set(artist, title, &updated)
}

// SyncOffset reports the saved offset for a song, if one was ever set.
func (s *Store) SyncOffset(artist, title string) (float64, bool) {
	if artist == "" || title == "" {
		return 0, false
	}

	key := generateKey(artist, title)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadOffsetsLocked()
	offset, ok := s.offsets[key]
	return offset, ok
}

// loadOffsetsLocked reads the offsets file once. A missing or unreadable
// file starts an empty table. Caller holds mu.
func (s *Store) loadOffsetsLocked() {
	if s.offsetsLoaded {
		return
	}
	s.offsetsLoaded = true
	s.offsets = make(map[string]float64)

	if s.basePath == "" {
		return
	}

	file, err := os.Open(filepath.Join(s.basePath, offsetsFile))
	if err != nil {
		return
	}
	defer file.Close()

	var stored map[string]float64
	if err := gob.NewDecoder(file).Decode(&stored); err != nil {
		return
	}
	for k, v := range stored {
		s.offsets[k] = v
	}
}

func readEntry(path string) (*Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	defer file.Close()

	var entry Entry
	if err := gob.NewDecoder(file).Decode(&entry); err != nil {
		return nil, ErrCacheCorrupt
	}

	if entry.Version != cacheVersion {
		_ = os.Remove(path)
		return nil, ErrCacheCorrupt
	}

	return &entry, nil
}

func writeEntry(path string, entry *Entry) error {
	return writeGob(path, entry)
}

// writeGob goes through a temp file and rename so readers never see a
// half-written file.
func writeGob(path string, v any) error {
	tmpPath := path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(file).Encode(v); err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, path)
}

func (s *Store) entryFiles() ([]string, error) {
	if s.basePath == "" {
		return nil, nil
	}

	dirEntries, err := os.ReadDir(s.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, d := range dirEntries {
		if d.IsDir() || !strings.HasSuffix(d.Name(), entryExtension) {
			continue
		}
		paths = append(paths, filepath.Join(s.basePath, d.Name()))
	}
	return paths, nil
}

func (s *Store) Clear() error {
	s.mu.Lock()
	s.memCache = make(map[string]*Entry)
	s.mu.Unlock()

	paths, err := s.entryFiles()
	if err != nil {
		return err
	}
	for _, path := range paths {
		_ = os.Remove(path)
	}
	return nil
}

// Prune removes expired and unreadable entries and reports how many went.
func (s *Store) Prune() (int, error) {
	paths, err := s.entryFiles()
	if err != nil {
		return 0, err
	}

	pruned := 0
	now := s.now()
	for _, path := range paths {
		entry, err := readEntry(path)
		if err != nil || entry.Expired(now) {
			_ = os.Remove(path)
			pruned++
		}
	}

	return pruned, nil
}

func (s *Store) Stats() (count int, sizeBytes int64, err error) {
	paths, err := s.entryFiles()
	if err != nil {
		return 0, 0, err
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		count++
		sizeBytes += info.Size()
	}

	return count, sizeBytes, nil
}

func (s *Store) ListAll() ([]*Entry, error) {
	paths, err := s.entryFiles()
	if err != nil {
		return nil, err
	}

	var result []*Entry
	for _, path := range paths {
		entry, err := readEntry(path)
		if err != nil {
			continue
		}
		result = append(result, entry)
	}

	return result, nil
}

func (s *Store) Delete(artist, title string) error {
	if artist == "" || title == "" {
		return errors.New("invalid artist or title")
	}

	key := generateKey(artist, title)

	s.mu.Lock()
	delete(s.memCache, key)
	s.mu.Unlock()

	if s.basePath == "" {
		return nil
	}

	err := os.Remove(s.filePath(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// FindSimilar suggests up to limit cached songs for a failed lookup: exact
// artist with a loose title first, then loose matches on both.
func (s *Store) FindSimilar(artist, title string, limit int) []*Entry {
	all, err := s.ListAll()
	if err != nil || len(all) == 0 {
		return nil
	}

	artistLower := strings.ToLower(artist)
	titleLower := strings.ToLower(title)
	loose := func(a, b string) bool {
		return strings.Contains(a, b) || strings.Contains(b, a)
	}

	var matches []*Entry
	for _, entry := range all {
		if strings.ToLower(entry.ArtistName) == artistLower && loose(strings.ToLower(entry.TrackName), titleLower) {
			matches = append(matches, entry)
		}
	}

	if len(matches) == 0 {
		for _, entry := range all {
			if loose(strings.ToLower(entry.ArtistName), artistLower) && loose(strings.ToLower(entry.TrackName), titleLower) {
				matches = append(matches, entry)
			}
		}
	}

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
