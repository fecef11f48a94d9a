package ui

import (
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"karolbroda.com/lyricsync/internal/logging"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/player"
	"karolbroda.com/lyricsync/internal/resolve"
	"karolbroda.com/lyricsync/internal/syncengine"
	"karolbroda.com/lyricsync/internal/terminal"
	"karolbroda.com/lyricsync/internal/track"
	"karolbroda.com/lyricsync/internal/watch"
)

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

type recordingOffsets struct {
	artist, title string
	offset        float64
	calls         int
}

func (r *recordingOffsets) SetSyncOffset(artist, title string, offset float64) error {
	r.artist, r.title, r.offset = artist, title, offset
	r.calls++
	return nil
}

type harness struct {
	t     *testing.T
	clock *testClock
	audio *player.Clock
	model Model
}

func newHarness(t *testing.T, offsets OffsetStore) *harness {
	t.Helper()
	return newTrackHarness(t, nil, offsets)
}

// newTrackHarness runs the model against a local clock playing info.
func newTrackHarness(t *testing.T, info *track.Info, offsets OffsetStore) *harness {
	t.Helper()
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	audio := player.NewClock(info, player.WithNow(clock.now))

	h := &harness{t: t, clock: clock, audio: audio}
	h.model = NewModel(ModelConfig{
		Transport: audio,
		Offsets:   offsets,
		Logger:    logging.Discard(),
		Now:       clock.now,
	})
	h.send(tea.WindowSizeMsg{Width: 80, Height: 24})
	h.send(ReloadMsg{Reload: watch.Reload{Doc: testDoc()}})
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	h.t.Helper()
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	return cmd
}

// tick advances the fake clock and runs enough ticks for scroll
// animations to settle.
func (h *harness) tick(d time.Duration) {
	h.clock.t = h.clock.t.Add(d)
	for i := 0; i < scrollTicks+2; i++ {
		h.send(TickMsg(h.clock.t))
	}
}

func (h *harness) rowOf(lineID string) int {
	h.t.Helper()
	for row := 0; row < h.model.viewport.Height(); row++ {
		if id, ok := h.model.viewport.LineAt(row); ok && id == lineID {
			return row
		}
	}
	h.t.Fatalf("line %s not visible", lineID)
	return -1
}

func TestModelFollowsPlayback(t *testing.T) {
	h := newHarness(t, nil)
	_ = h.audio.Seek(7)
	h.audio.Play()
	h.tick(0)

	frame := h.model.Frame()
	if frame.ActiveLineID != "l3" {
		t.Fatalf("active = %q, want l3", frame.ActiveLineID)
	}
	if !h.model.viewport.IsCentered("l3") {
		t.Error("active line not centered while synced")
	}
	if frame.Mode != syncengine.ModeSynced {
		t.Errorf("mode = %v, want synced", frame.Mode)
	}
}

func TestWheelSwitchesToManual(t *testing.T) {
	h := newHarness(t, nil)
	_ = h.audio.Seek(1.5)
	h.audio.Play()
	h.tick(0)

	h.send(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})

	if h.model.Mode() != syncengine.ModeManual {
		t.Fatalf("mode = %v, want manual", h.model.Mode())
	}
	if !h.model.Frame().ShowResync {
		t.Error("resync affordance hidden while manual and playing")
	}

	// push the active line out of the centered band, then pause
	h.send(tea.KeyMsg{Type: tea.KeyPgDown})
	h.audio.Pause()
	h.tick(10 * time.Millisecond)

	if h.model.Mode() != syncengine.ModeManual {
		t.Errorf("mode = %v, want manual", h.model.Mode())
	}
	if h.model.Frame().ShowResync {
		t.Error("resync affordance shown while paused")
	}
}

func TestManualResyncsWhenLineDriftsIntoBand(t *testing.T) {
	h := newHarness(t, nil)
	_ = h.audio.Seek(1.5)
	h.audio.Play()
	h.tick(0)

	// a small nudge leaves the active line inside the band
	h.send(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	h.tick(10 * time.Millisecond)

	if h.model.Mode() != syncengine.ModeSynced {
		t.Errorf("mode = %v, want synced", h.model.Mode())
	}
}

func TestResyncKeyRecenters(t *testing.T) {
	h := newHarness(t, nil)
	_ = h.audio.Seek(7)
	h.audio.Play()
	h.tick(0)

	h.send(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})

	if h.model.Mode() != syncengine.ModeSynced {
		t.Fatalf("mode = %v, want synced", h.model.Mode())
	}
	h.tick(10 * time.Millisecond)
	if !h.model.viewport.IsCentered("l3") {
		t.Error("active line not recentered after resync")
	}
}

func TestClickSeeksTransport(t *testing.T) {
	h := newHarness(t, nil)
	h.tick(0)

	row := h.rowOf("l2")
	cmd := h.send(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft, Y: row})
	if cmd == nil {
		t.Fatal("click produced no seek")
	}
	if msg, ok := cmd().(seekDoneMsg); !ok || msg.Err != nil {
		t.Fatalf("seek result = %#v", msg)
	}

	if got := h.audio.Snapshot().Position; math.Abs(got-3.5) > 1e-9 {
		t.Errorf("position = %v, want 3.5", got)
	}
}

func TestClickCompensatesSyncOffset(t *testing.T) {
	h := newHarness(t, nil)
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("]")})
	h.tick(0)

	row := h.rowOf("l2")
	cmd := h.send(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft, Y: row})
	cmd()

	if got := h.audio.Snapshot().Position; math.Abs(got-3.0) > 1e-9 {
		t.Errorf("position = %v, want 3.0", got)
	}
}

func TestScrollWithoutInputStaysSynced(t *testing.T) {
	h := newHarness(t, nil)
	_ = h.audio.Seek(2)
	h.audio.Play()
	h.tick(0)

	// playback moves to the next line; the animated scroll is the engine's own
	_ = h.audio.Seek(4)
	h.tick(time.Second)

	if h.model.Mode() != syncengine.ModeSynced {
		t.Errorf("mode = %v, want synced", h.model.Mode())
	}
}

func TestSyncOffsetIsPersisted(t *testing.T) {
	offsets := &recordingOffsets{}
	h := newHarness(t, offsets)
	h.send(PlayerEventMsg{Event: player.EventData{
		Type:  player.EventTrackChanged,
		Track: &track.Info{Title: "Song", Artist: "Band"},
	}})

	cmd := h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("+")})
	if cmd == nil {
		t.Fatal("offset change did not schedule a save")
	}
	cmd()

	if offsets.calls != 1 || offsets.offset != 0.1 || offsets.title != "Song" {
		t.Errorf("saved = %+v", offsets)
	}
	if h.model.SyncOffset() != 0.1 {
		t.Errorf("offset = %v, want 0.1", h.model.SyncOffset())
	}
}

func TestReloadResetsToSynced(t *testing.T) {
	h := newHarness(t, nil)
	_ = h.audio.Seek(7)
	h.audio.Play()
	h.tick(0)
	h.send(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})

	h.send(ReloadMsg{Reload: watch.Reload{Doc: testDoc()}})

	if h.model.Mode() != syncengine.ModeSynced {
		t.Errorf("mode = %v, want synced after reload", h.model.Mode())
	}
}

func TestViewRendersWithoutPanic(t *testing.T) {
	h := newHarness(t, nil)
	_ = h.audio.Seek(6.5)
	h.audio.Play()
	h.tick(0)

	if h.model.View() == "" {
		t.Error("empty view")
	}
}

func TestReloadStretchesLocalClock(t *testing.T) {
	h := newTrackHarness(t, &track.Info{
		Title:    "Test",
		Artist:   "local file",
		Duration: testDoc().Length(),
		TrackID:  "file:/tmp/test.json",
	}, nil)

	longer := testDoc()
	longer.Lines = append(longer.Lines, lyrics.Line{ID: "l4", StartTime: 10000, EndTime: 20000, Text: "added while editing"})
	h.send(ReloadMsg{Reload: watch.Reload{Doc: longer}})

	_ = h.audio.Seek(12)
	h.audio.Play()
	h.tick(2 * time.Second)

	snap := h.audio.Snapshot()
	if math.Abs(snap.Position-14) > 1e-9 {
		t.Errorf("position = %v, want 14", snap.Position)
	}
	if snap.Track.Duration != 20*time.Second {
		t.Errorf("track duration = %v, want 20s", snap.Track.Duration)
	}
	if got := h.model.Frame().ActiveLineID; got != "l4" {
		t.Errorf("active = %q, want l4", got)
	}
}

func TestOffsetDoesNotCarryAcrossTracks(t *testing.T) {
	offsets := &recordingOffsets{}
	h := newHarness(t, offsets)

	first := &track.Info{Title: "First", Artist: "Band"}
	second := &track.Info{Title: "Second", Artist: "Band"}

	h.send(PlayerEventMsg{Event: player.EventData{Type: player.EventTrackChanged, Track: first}})
	h.send(LyricsFetchedMsg{For: first, Result: resolve.Result{Doc: testDoc(), SyncOffset: 1.5, HasSyncOffset: true}})
	if h.model.SyncOffset() != 1.5 {
		t.Fatalf("offset = %v, want the saved 1.5", h.model.SyncOffset())
	}

	h.send(PlayerEventMsg{Event: player.EventData{Type: player.EventTrackChanged, Track: second}})
	h.send(LyricsFetchedMsg{For: second, Result: resolve.Result{Doc: testDoc()}})
	if h.model.SyncOffset() != 0 {
		t.Fatalf("offset = %v, want 0 for a track with nothing saved", h.model.SyncOffset())
	}

	cmd := h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("+")})
	cmd()
	if offsets.title != "Second" || offsets.offset != 0.1 {
		t.Errorf("saved = %+v, want 0.1 for Second", offsets)
	}
}

func TestSavedZeroOffsetOverridesDefault(t *testing.T) {
	h := newHarness(t, nil)
	h.model.defaultOffset = 0.3

	trk := &track.Info{Title: "Song", Artist: "Band"}
	h.send(PlayerEventMsg{Event: player.EventData{Type: player.EventTrackChanged, Track: trk}})
	if h.model.SyncOffset() != 0.3 {
		t.Fatalf("offset = %v, want the configured 0.3", h.model.SyncOffset())
	}

	h.send(LyricsFetchedMsg{For: trk, Result: resolve.Result{Doc: testDoc(), HasSyncOffset: true}})
	if h.model.SyncOffset() != 0 {
		t.Errorf("offset = %v, want the saved 0", h.model.SyncOffset())
	}
}

func TestPollRunsAsCommand(t *testing.T) {
	h := newTrackHarness(t, &track.Info{Title: "Test", Artist: "local file", Duration: 8 * time.Second}, nil)
	h.audio.Play()
	h.clock.t = h.clock.t.Add(10 * time.Second)

	cmd := h.send(TickMsg(h.clock.t))
	if !h.model.polling {
		t.Fatal("tick did not start a poll")
	}
	if !h.audio.Snapshot().Playing {
		t.Fatal("transport polled inside Update")
	}

	// a second tick while the poll is out does not queue another
	h.send(TickMsg(h.clock.t))
	batch, ok := cmd().(tea.BatchMsg)
	if !ok || len(batch) != 2 {
		t.Fatalf("tick cmd = %#v, want a poll and the next tick", batch)
	}

	h.send(batch[0]())
	if h.model.polling {
		t.Error("poll still marked in flight")
	}
	if h.model.State().Playing {
		t.Error("clock past the end still playing after poll")
	}
}

func TestKittyViewClearsPreviousCover(t *testing.T) {
	h := newHarness(t, nil)
	h.send(PlayerEventMsg{Event: player.EventData{
		Type:  player.EventTrackChanged,
		Track: &track.Info{Title: "Song", Artist: "Band"},
	}})

	h.model.termCaps = &terminal.Capabilities{SupportsKittyGraphics: true}
	if view := h.model.View(); !strings.HasPrefix(view, terminal.ClearKittyImages()) {
		t.Error("kitty view does not clear the previous cover")
	}

	h.model.termCaps = &terminal.Capabilities{}
	if view := h.model.View(); strings.Contains(view, terminal.ClearKittyImages()) {
		t.Error("kitty escape sent to a terminal without kitty graphics")
	}
}
