// Package syncengine maps a playback position onto a lyrics document and
// decides when the lyrics viewport should follow along.
//
// The engine is single-threaded by contract: the host calls Tick on every
// playback update and forwards user input and scroll notifications from
// the same event loop. Viewport geometry is reached only through the
// Viewport interface.
package syncengine

import (
	"log/slog"
	"math"
	"time"

	"karolbroda.com/lyricsync/internal/lyrics"
)

// DefaultAttributionWindow is how long after a wheel, touch or key input a
// scroll event still counts as user initiated.
const DefaultAttributionWindow = 300 * time.Millisecond

type Mode int

const (
	// ModeSynced keeps the active line centered.
	ModeSynced Mode = iota
	// ModeManual suspends auto-scroll after the user scrolled away.
	ModeManual
)

func (m Mode) String() string {
	if m == ModeManual {
		return "manual"
	}
	return "synced"
}

// Viewport is the geometry the engine needs from whatever displays the
// lines.
type Viewport interface {
	// IsCentered reports whether the line currently sits inside the
	// centered band of the visible area.
	IsCentered(lineID string) bool
	// ScrollToCenter scrolls so the line is vertically centered.
	ScrollToCenter(lineID string)
}

type SeekFunc func(seconds float64)

// Input is what the host supplies on every playback tick.
type Input struct {
	Doc         *lyrics.Document
	CurrentTime float64 // seconds
	IsPlaying   bool
}

type Options struct {
	Viewport          Viewport
	OnSeek            SeekFunc
	AttributionWindow time.Duration
	Classifier        Classifier
	Logger            *slog.Logger
}

type Engine struct {
	viewport   Viewport
	onSeek     SeekFunc
	window     time.Duration
	classifier Classifier
	logger     *slog.Logger

	doc          *lyrics.Document
	mode         Mode
	lastActiveID string
	isPlaying    bool

	lastUserInputAt time.Time
	// set while the engine's own scroll call is running so any scroll
	// notification it triggers is not mistaken for the user
	programmatic bool
}

func New(opts Options) *Engine {
	e := &Engine{
		viewport:   opts.Viewport,
		onSeek:     opts.OnSeek,
		window:     opts.AttributionWindow,
		classifier: opts.Classifier,
		logger:     opts.Logger,
	}

	if e.window <= 0 {
		e.window = DefaultAttributionWindow
	}
	if e.classifier == nil {
		e.classifier = TimeClassifier{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

func (e *Engine) Mode() Mode {
	return e.mode
}

func (e *Engine) Document() *lyrics.Document {
	return e.doc
}

// ShowResync reports whether the re-sync control should be visible. While
// paused nothing advances, so there is nothing to re-sync to.
func (e *Engine) ShowResync() bool {
	return e.mode == ModeManual && e.isPlaying
}

// Tick recomputes the frame for the current playback position and applies
// the scroll policy for the current mode.
func (e *Engine) Tick(in Input) Frame {
	if in.Doc != e.doc {
		e.doc = in.Doc
		e.lastActiveID = ""
		e.setMode(ModeSynced, "document replaced")
	}
	e.isPlaying = in.IsPlaying

	frame := buildFrame(e.classifier, e.doc, secondsToMs(in.CurrentTime))

	if e.doc != nil {
		activeID := frame.ActiveLineID

		switch e.mode {
		case ModeSynced:
			if activeID != "" && activeID != e.lastActiveID {
				e.scrollTo(activeID)
			}
		case ModeManual:
			// playback caught up with where the user left the viewport
			if activeID != "" && e.viewport != nil && e.viewport.IsCentered(activeID) {
				e.setMode(ModeSynced, "active line back in view")
			}
		}

		e.lastActiveID = activeID
	}

	frame.Mode = e.mode
	frame.ShowResync = e.ShowResync()
	return frame
}

// Click emits a seek to the start of the line. The engine's own time is not
// touched; the host feeds the new position back on its next tick.
func (e *Engine) Click(lineID string) (float64, bool) {
	line, ok := e.doc.LineByID(lineID)
	if !ok {
		return 0, false
	}

	seconds := float64(line.StartTime) / 1000
	e.logger.Debug("seek requested", "line", lineID, "seconds", seconds)
	if e.onSeek != nil {
		e.onSeek(seconds)
	}
	return seconds, true
}

// UserInput records a wheel, touch, drag or scroll key at the given time.
// It must be reported before the scroll it causes.
func (e *Engine) UserInput(at time.Time) {
	e.lastUserInputAt = at
}

// Scrolled is called for every scroll of the viewport. It switches to
// manual mode only when the scroll follows user input within the
// attribution window; returns true if the mode changed.
func (e *Engine) Scrolled(at time.Time) bool {
	if e.programmatic || e.mode == ModeManual {
		return false
	}
	if !e.attributedToUser(at) {
		return false
	}

	e.setMode(ModeManual, "user scroll")
	return true
}

// Resync is the explicit way back: center the active line and follow
// playback again.
func (e *Engine) Resync() {
	if e.lastActiveID != "" {
		e.scrollTo(e.lastActiveID)
	}
	e.setMode(ModeSynced, "resync requested")
}

func (e *Engine) attributedToUser(at time.Time) bool {
	if e.lastUserInputAt.IsZero() {
		return false
	}
	elapsed := at.Sub(e.lastUserInputAt)
	return elapsed >= 0 && elapsed <= e.window
}

func (e *Engine) scrollTo(lineID string) {
	if e.viewport == nil {
		return
	}
	e.programmatic = true
	e.viewport.ScrollToCenter(lineID)
	e.programmatic = false
}

func (e *Engine) setMode(mode Mode, reason string) {
	if e.mode == mode {
		return
	}
	e.logger.Debug("sync mode changed", "from", e.mode.String(), "to", mode.String(), "reason", reason)
	e.mode = mode
}

func secondsToMs(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}
