package player

import (
	"sync"
	"time"

	"karolbroda.com/lyricsync/internal/track"
)

// Clock is a local transport with no audio behind it. The play command
// uses it to preview a lyrics file against wall time.
type Clock struct {
	now       func() time.Time
	eventChan chan EventData

	mu       sync.Mutex
	track    *track.Info
	base     float64
	baseAt   time.Time
	playing  bool
	duration float64
	stopped  bool
}

type ClockOption func(*Clock)

// WithNow swaps the time source, mostly for tests.
func WithNow(now func() time.Time) ClockOption {
	return func(c *Clock) {
		c.now = now
	}
}

func NewClock(info *track.Info, opts ...ClockOption) *Clock {
	c := &Clock{
		now:       time.Now,
		eventChan: make(chan EventData, 16),
		track:     info,
	}
	for _, opt := range opts {
		opt(c)
	}
	if info != nil {
		c.duration = info.Duration.Seconds()
	}
	c.baseAt = c.now()
	return c
}

// position is the playhead at now, clamped to the track length.
// Caller holds mu.
func (c *Clock) position(now time.Time) float64 {
	pos := c.base
	if c.playing {
		pos += now.Sub(c.baseAt).Seconds()
	}
	if c.duration > 0 && pos > c.duration {
		pos = c.duration
	}
	if pos < 0 {
		pos = 0
	}
	return pos
}

func (c *Clock) Play() {
	c.setPlaying(true)
}

func (c *Clock) Pause() {
	c.setPlaying(false)
}

func (c *Clock) setPlaying(playing bool) {
	c.mu.Lock()
	if c.stopped || c.playing == playing {
		c.mu.Unlock()
		return
	}
	now := c.now()
	c.base = c.position(now)
	c.baseAt = now
	c.playing = playing
	pos := c.base
	c.mu.Unlock()

	emit(c.eventChan, EventData{Type: EventPlaybackStateChanged, Playing: playing, Position: pos})
}

func (c *Clock) TogglePlayback() error {
	c.mu.Lock()
	playing := c.playing
	c.mu.Unlock()

	c.setPlaying(!playing)
	return nil
}

func (c *Clock) Seek(seconds float64) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	if seconds < 0 {
		seconds = 0
	}
	if c.duration > 0 && seconds > c.duration {
		seconds = c.duration
	}
	c.base = seconds
	c.baseAt = c.now()
	playing := c.playing
	c.mu.Unlock()

	emit(c.eventChan, EventData{Type: EventSeeked, Position: seconds, Playing: playing})
	return nil
}

// Poll pauses the clock once it runs off the end of the track.
func (c *Clock) Poll() error {
	c.mu.Lock()
	ended := c.playing && c.duration > 0 && c.position(c.now()) >= c.duration
	c.mu.Unlock()

	if ended {
		c.Pause()
	}
	return nil
}

func (c *Clock) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var trackCopy *track.Info
	if c.track != nil {
		t := *c.track
		trackCopy = &t
	}
	return State{
		Track:     trackCopy,
		Position:  c.position(now),
		Playing:   c.playing,
		SampledAt: now,
	}
}

// SetTrack swaps the track, e.g. after the lyrics file is reloaded with a
// new length. The position is kept.
func (c *Clock) SetTrack(info *track.Info) {
	c.mu.Lock()
	c.track = info
	if info != nil {
		c.duration = info.Duration.Seconds()
	}
	c.mu.Unlock()
}

func (c *Clock) Events() <-chan EventData {
	return c.eventChan
}

func (c *Clock) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.playing = false
	c.mu.Unlock()
}
