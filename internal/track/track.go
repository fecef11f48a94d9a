package track

import (
	"fmt"
	"time"
)

type Info struct {
	Title      string
	Artist     string
	Album      string
	Duration   time.Duration
	ArtworkURL string
	TrackID    string
	// LyricsPath points at a local lyrics file when the track came from
	// the library or the play command.
	LyricsPath string
}

func (t *Info) IsValid() bool {
	if t == nil {
		return false
	}
	return t.Title != "" && t.Artist != ""
}

func (t *Info) IsSameTrack(other *Info) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.TrackID != "" && other.TrackID != "" {
		return t.TrackID == other.TrackID
	}
	return t.Title == other.Title && t.Artist == other.Artist
}

func (t *Info) DurationSecs() int64 {
	if t == nil {
		return 0
	}
	return int64(t.Duration / time.Second)
}

func (t *Info) Label() string {
	if t == nil {
		return ""
	}
	if t.Artist == "" {
		return t.Title
	}
	return fmt.Sprintf("%s - %s", t.Artist, t.Title)
}
