package player

import (
	"time"

	"karolbroda.com/lyricsync/internal/track"
)

type Event int

const (
	EventTrackChanged Event = iota
	EventSeeked
	EventPlaybackStateChanged
)

type EventData struct {
	Type     Event
	Track    *track.Info
	Position float64
	Playing  bool
}

// State is a snapshot of the transport. Position is in seconds as of
// SampledAt.
type State struct {
	Track     *track.Info
	Position  float64
	Playing   bool
	SampledAt time.Time
}

// Transport is what the viewer needs from a playback source: the position
// and play state on every tick, and a way to send seeks back.
type Transport interface {
	Poll() error
	Snapshot() State
	Events() <-chan EventData
	Seek(seconds float64) error
	TogglePlayback() error
	Stop()
}

func emit(ch chan EventData, event EventData) {
	select {
	case ch <- event:
	default:
	}
}
