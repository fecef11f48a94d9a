package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"karolbroda.com/lyricsync/internal/cache"
)

var (
	ErrNotFound   = errors.New("lyrics not found")
	ErrNoSynced   = errors.New("no synced lyrics available")
	ErrServerSlow = errors.New("lyrics server took too long to respond")
)

type Response struct {
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
	SyncOffset   float64 `json:"-"`
	FromCache    bool    `json:"-"`
}

// Document converts the synced lyrics into the engine's document format.
func (r *Response) Document() (*Document, error) {
	if r == nil || r.SyncedLyrics == "" {
		return nil, ErrNoSynced
	}

	doc := ParseLRC(r.SyncedLyrics, LRCOptions{
		Title:      r.TrackName,
		DurationMs: int64(r.Duration * 1000),
	})
	if doc == nil {
		return nil, ErrNoSynced
	}
	if doc.Meta.Artist == "" {
		doc.Meta.Artist = r.ArtistName
	}
	return doc, nil
}

type TrackParams struct {
	Title        string
	Artist       string
	Album        string
	DurationSecs int64
}

type Client struct {
	baseURL string
	http    *http.Client
	store   *cache.Store
	logger  *slog.Logger
	// pause between search strategies
	strategyDelay time.Duration
}

func NewClient(baseURL string, timeout time.Duration, store *cache.Store, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     60 * time.Second,
		TLSHandshakeTimeout: 2 * time.Second,
	}

	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		store:         store,
		logger:        logger,
		strategyDelay: 100 * time.Millisecond,
	}
}

type searchStrategy struct {
	artist   string
	title    string
	album    string
	duration int64
}

func buildStrategies(track *TrackParams) []searchStrategy {
	artist := normalizeString(track.Artist)
	title := normalizeString(track.Title)
	strippedArtist := stripVersionInfo(track.Artist)
	strippedTitle := stripVersionInfo(track.Title)

	candidates := []searchStrategy{
		{artist, title, track.Album, track.DurationSecs},
		{artist, title, "", track.DurationSecs},
		{artist, title, "", 0},
		{strippedArtist, strippedTitle, "", 0},
		// some artists are catalogued in all caps
		{strings.ToUpper(artist), strings.ToUpper(title), "", 0},
		{strings.ToLower(artist), strings.ToLower(title), "", 0},
		{toTitleCase(artist), toTitleCase(title), "", 0},
		{track.Artist, track.Title, "", 0},
	}

	seen := make(map[string]bool)
	var unique []searchStrategy
	for _, s := range candidates {
		if s.artist == "" || s.title == "" {
			continue
		}
		key := fmt.Sprintf("%s|%s|%s|%d", s.artist, s.title, s.album, s.duration)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, s)
	}
	return unique
}

// Fetch tries the cache, then walks the search strategies against lrclib
// until one returns lyrics. Hits are written back to the cache under the
// caller's original artist and title.
func (c *Client) Fetch(ctx context.Context, track *TrackParams) (*Response, error) {
	if track == nil {
		return nil, errors.New("nil track info")
	}
	if normalizeString(track.Title) == "" || normalizeString(track.Artist) == "" {
		return nil, errors.New("track title or artist is empty")
	}
	if c.baseURL == "" {
		return nil, errors.New("lrclib base url is empty")
	}

	if c.store != nil {
		if entry, err := c.store.Get(track.Artist, track.Title); err == nil {
			return responseFromEntry(entry), nil
		}
	}

	parsedURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid lrclib url %q: %w", c.baseURL, err)
	}

	var lastErr error
	for i, strategy := range buildStrategies(track) {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.strategyDelay):
			}
		}

		query := url.Values{}
		query.Set("artist_name", strategy.artist)
		query.Set("track_name", strategy.title)
		if strategy.album != "" {
			query.Set("album_name", strategy.album)
		}
		if strategy.duration > 0 {
			query.Set("duration", fmt.Sprintf("%d", strategy.duration))
		}
		parsedURL.RawQuery = query.Encode()

		payload, err := c.doRequest(ctx, parsedURL.String())
		if err != nil {
			lastErr = err
			c.logger.Debug("lrclib strategy failed", "strategy", i, "error", err)
			if isTimeoutError(err) {
				return nil, ErrServerSlow
			}
			continue
		}

		if payload.PlainLyrics == "" && payload.SyncedLyrics == "" && !payload.Instrumental {
			lastErr = ErrNotFound
			continue
		}

		if c.store != nil {
			storeErr := c.store.Set(track.Artist, track.Title, &cache.Entry{
				TrackName:    payload.TrackName,
				ArtistName:   payload.ArtistName,
				AlbumName:    payload.AlbumName,
				Duration:     payload.Duration,
				Instrumental: payload.Instrumental,
				PlainLyrics:  payload.PlainLyrics,
				SyncedLyrics: payload.SyncedLyrics,
				Source:       cache.SourceLrclib,
			})
			if storeErr != nil {
				c.logger.Warn("failed to cache lyrics", "artist", track.Artist, "title", track.Title, "error", storeErr)
			}
		}

		return payload, nil
	}

	if lastErr == nil {
		lastErr = ErrNotFound
	}
	return nil, fmt.Errorf("no lyrics found for %s - %s: %w", track.Artist, track.Title, lastErr)
}

func (c *Client) doRequest(ctx context.Context, requestURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build http request: %w", err)
	}
	req.Header.Set("User-Agent", "lyricsync/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("lrclib returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode lrclib json: %w", err)
	}

	return &payload, nil
}

func responseFromEntry(entry *cache.Entry) *Response {
	return &Response{
		TrackName:    entry.TrackName,
		ArtistName:   entry.ArtistName,
		AlbumName:    entry.AlbumName,
		Duration:     entry.Duration,
		Instrumental: entry.Instrumental,
		PlainLyrics:  entry.PlainLyrics,
		SyncedLyrics: entry.SyncedLyrics,
		SyncOffset:   entry.SyncOffset,
		FromCache:    true,
	}
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// normalizeString collapses runs of whitespace.
func normalizeString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripVersionInfo drops "(remix)" and "[live]" style suffixes.
func stripVersionInfo(s string) string {
	for _, pair := range [][2]string{{"(", ")"}, {"[", "]"}} {
		for {
			start := strings.Index(s, pair[0])
			end := strings.Index(s, pair[1])
			if start < 0 || end <= start {
				break
			}
			s = s[:start] + " " + s[end+1:]
		}
	}
	return normalizeString(s)
}

func toTitleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		if len(runes) > 0 {
			runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
