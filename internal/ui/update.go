package ui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"karolbroda.com/lyricsync/internal/artwork"
	"karolbroda.com/lyricsync/internal/player"
	"karolbroda.com/lyricsync/internal/track"
)

const (
	fineOffsetStep   = 0.1
	coarseOffsetStep = 0.5
	wheelRows        = 3
	resolveTimeout   = 30 * time.Second
	artworkTimeout   = 5 * time.Second
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case PlayerEventMsg:
		return m.handlePlayerEvent(msg.Event)

	case ArtworkFetchedMsg:
		return m.handleArtworkFetched(msg)

	case LyricsFetchedMsg:
		return m.handleLyricsFetched(msg)

	case ReloadMsg:
		return m.handleReload(msg)

	case seekDoneMsg:
		if msg.Err != nil {
			m.logger.Warn("seek failed", "error", msg.Err)
			m.notice = "seek failed: " + msg.Err.Error()
		}
		return m, nil

	case TickMsg:
		return m.handleTick()

	case polledMsg:
		return m.handlePolled(msg)
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		m.Stop()
		return m, tea.Quit

	case "up", "k":
		m.userScroll(-1)
	case "down", "j":
		m.userScroll(1)
	case "pgup", "ctrl+u":
		m.userScroll(-max(m.viewport.Height()/2, 1))
	case "pgdown", "ctrl+d":
		m.userScroll(max(m.viewport.Height()/2, 1))

	case "s", "enter":
		m.engine.Resync()
		m.frame.Mode = m.engine.Mode()
		m.frame.ShowResync = m.engine.ShowResync()

	case " ", "p":
		return m, m.togglePlaybackCmd()

	case "+", "=":
		return m, m.adjustSyncOffset(fineOffsetStep)
	case "-", "_":
		return m, m.adjustSyncOffset(-fineOffsetStep)
	case "]", "right", "l":
		return m, m.adjustSyncOffset(coarseOffsetStep)
	case "[", "left", "h":
		return m, m.adjustSyncOffset(-coarseOffsetStep)
	case "0":
		return m, m.adjustSyncOffset(-m.syncOffset)

	case "tab", "i":
		m.hideHeader = !m.hideHeader
		m.resize(m.width, m.height)
	}

	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.userScroll(-wheelRows)
		return m, nil
	case tea.MouseButtonWheelDown:
		m.userScroll(wheelRows)
		return m, nil
	case tea.MouseButtonLeft:
	default:
		return m, nil
	}

	top, height := m.lyricsArea()
	if msg.Y == top+height && m.frame.ShowResync {
		m.engine.Resync()
		m.frame.Mode = m.engine.Mode()
		m.frame.ShowResync = m.engine.ShowResync()
		return m, nil
	}

	lineID, ok := m.viewport.LineAt(msg.Y - top)
	if !ok {
		return m, nil
	}

	seconds, ok := m.engine.Click(lineID)
	if !ok {
		return m, nil
	}
	// the offset shifts lyrics against the player, so undo it on the way out
	return m, m.seekCmd(seconds - m.syncOffset)
}

// userScroll reports the input before the scroll it causes, the order the
// engine needs to attribute the scroll to the user.
func (m *Model) userScroll(rows int) {
	now := m.now()
	m.engine.UserInput(now)
	if m.viewport.ScrollBy(rows) {
		m.engine.Scrolled(now)
		m.frame.Mode = m.engine.Mode()
		m.frame.ShowResync = m.engine.ShowResync()
	}
}

func (m *Model) adjustSyncOffset(delta float64) tea.Cmd {
	// keep tenths exact so repeated presses do not drift
	m.syncOffset = math.Round((m.syncOffset+delta)*10) / 10
	m.refreshFrame()
	return m.saveSyncOffsetCmd()
}

func (m Model) saveSyncOffsetCmd() tea.Cmd {
	trk := m.display.Track
	if trk == nil || m.offsets == nil {
		return nil
	}

	offsets := m.offsets
	logger := m.logger
	artist, title, offset := trk.Artist, trk.Title, m.syncOffset
	return func() tea.Msg {
		if err := offsets.SetSyncOffset(artist, title, offset); err != nil {
			logger.Warn("failed to save sync offset", "artist", artist, "title", title, "error", err)
		}
		return nil
	}
}

func (m Model) seekCmd(seconds float64) tea.Cmd {
	if m.transport == nil {
		return nil
	}
	transport := m.transport
	return func() tea.Msg {
		return seekDoneMsg{Err: transport.Seek(max(seconds, 0))}
	}
}

func (m Model) togglePlaybackCmd() tea.Cmd {
	if m.transport == nil {
		return nil
	}
	transport := m.transport
	return func() tea.Msg {
		if err := transport.TogglePlayback(); err != nil {
			return seekDoneMsg{Err: fmt.Errorf("toggle playback: %w", err)}
		}
		return nil
	}
}

func (m Model) handlePlayerEvent(event player.EventData) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.listenForPlayerEvents()}

	switch event.Type {
	case player.EventTrackChanged:
		return m.handleTrackChange(event.Track, cmds)

	case player.EventSeeked:
		m.state.Position = event.Position
		m.refreshFrame()

	case player.EventPlaybackStateChanged:
		m.state.Playing = event.Playing
		m.refreshFrame()
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleTrackChange(newTrack *track.Info, cmds []tea.Cmd) (tea.Model, tea.Cmd) {
	m.display.Track = newTrack
	m.resetForNewTrack()
	m.resize(m.width, m.height)

	if newTrack == nil || !newTrack.IsValid() {
		m.err = errors.New("no track playing")
		return m, tea.Batch(cmds...)
	}

	if newTrack.ArtworkURL != "" {
		m.setLoadingArtwork(true)
		cmds = append(cmds, fetchArtworkCmd(newTrack))
	}

	if m.resolver != nil {
		m.setLoadingLyrics(true)
		cmds = append(cmds, resolveLyricsCmd(m.resolver, newTrack))
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleArtworkFetched(msg ArtworkFetchedMsg) (tea.Model, tea.Cmd) {
	if !msg.For.IsSameTrack(m.display.Track) {
		return m, nil
	}
	m.setLoadingArtwork(false)

	if msg.Err != nil {
		m.logger.Debug("artwork unavailable", "error", msg.Err)
		return m, nil
	}

	m.display.Image = msg.Image
	if msg.Palette != nil {
		m.display.Palette = msg.Palette
	}
	return m, nil
}

func (m Model) handleLyricsFetched(msg LyricsFetchedMsg) (tea.Model, tea.Cmd) {
	// a slow lookup for the previous track must not replace the current one
	if !msg.For.IsSameTrack(m.display.Track) {
		return m, nil
	}
	m.setLoadingLyrics(false)

	if msg.Err != nil {
		m.logger.Info("lyrics unavailable", "track", msg.For.Label(), "error", msg.Err)
		m.err = msg.Err
		m.setDocument(nil)
		return m, nil
	}

	m.err = nil
	m.display.Source = msg.Result.Source
	if msg.Result.HasSyncOffset {
		m.syncOffset = msg.Result.SyncOffset
	}
	m.setDocument(msg.Result.Doc)

	return m, nil
}

func (m Model) handleReload(msg ReloadMsg) (tea.Model, tea.Cmd) {
	next := m.listenForReloads()

	if msg.Reload.Err != nil {
		m.notice = "reload failed: " + msg.Reload.Err.Error()
		return m, next
	}

	m.notice = ""
	m.err = nil
	m.followDocumentLength(msg.Reload.Doc)
	m.setDocument(msg.Reload.Doc)
	return m, next
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	m.tickCount++

	// only the engine starts animations, so their frames are never
	// reported back as scrolls
	m.viewport.Step(m.tickCount)

	var poll tea.Cmd
	if m.transport != nil {
		// a slow player must not stall rendering, so at most one poll is
		// in flight and the frame uses whatever the last one left behind
		if !m.polling {
			m.polling = true
			poll = m.pollCmd()
		}
		m.state = m.transport.Snapshot()
	}

	m.refreshFrame()
	return m, tea.Batch(poll, tickCmd())
}

func (m Model) handlePolled(msg polledMsg) (tea.Model, tea.Cmd) {
	m.polling = false
	if msg.Err != nil {
		m.logger.Debug("transport poll failed", "error", msg.Err)
	}
	if m.transport != nil {
		m.state = m.transport.Snapshot()
		m.refreshFrame()
	}
	return m, nil
}

func (m Model) pollCmd() tea.Cmd {
	transport := m.transport
	return func() tea.Msg {
		return polledMsg{Err: transport.Poll()}
	}
}

func fetchArtworkCmd(trk *track.Info) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), artworkTimeout)
		defer cancel()

		img, err := artwork.Fetch(ctx, trk.ArtworkURL)
		if err != nil {
			return ArtworkFetchedMsg{For: trk, Err: err}
		}
		return ArtworkFetchedMsg{
			For:     trk,
			Image:   img,
			Palette: artwork.ExtractPalette(img),
		}
	}
}

func resolveLyricsCmd(resolver LyricsResolver, trk *track.Info) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		defer cancel()

		result, err := resolver.Resolve(ctx, trk)
		return LyricsFetchedMsg{For: trk, Result: result, Err: err}
	}
}
