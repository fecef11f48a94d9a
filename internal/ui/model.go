package ui

import (
	"context"
	"image"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"karolbroda.com/lyricsync/internal/artwork"
	"karolbroda.com/lyricsync/internal/config"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/player"
	"karolbroda.com/lyricsync/internal/resolve"
	"karolbroda.com/lyricsync/internal/syncengine"
	"karolbroda.com/lyricsync/internal/terminal"
	"karolbroda.com/lyricsync/internal/track"
	"karolbroda.com/lyricsync/internal/watch"
)

type LoadingState int

const (
	LoadingNone LoadingState = iota
	LoadingLyrics
	LoadingArtwork
	LoadingBoth
)

func (l LoadingState) IsLoadingLyrics() bool {
	return l == LoadingLyrics || l == LoadingBoth
}

func (l LoadingState) IsLoadingArtwork() bool {
	return l == LoadingArtwork || l == LoadingBoth
}

type TickMsg time.Time

type ArtworkFetchedMsg struct {
	For     *track.Info
	Image   image.Image
	Palette *artwork.Palette
	Err     error
}

type LyricsFetchedMsg struct {
	For    *track.Info
	Result resolve.Result
	Err    error
}

type PlayerEventMsg struct {
	Event player.EventData
}

type ReloadMsg struct {
	Reload watch.Reload
}

type seekDoneMsg struct {
	Err error
}

type polledMsg struct {
	Err error
}

// LyricsResolver looks up lyrics for a track.
type LyricsResolver interface {
	Resolve(ctx context.Context, trk *track.Info) (resolve.Result, error)
}

// OffsetStore persists the per-track sync offset.
type OffsetStore interface {
	SetSyncOffset(artist, title string, offset float64) error
}

// trackUpdater is a transport whose track length comes from the lyrics,
// like the local clock.
type trackUpdater interface {
	SetTrack(info *track.Info)
}

type TrackDisplay struct {
	Track   *track.Info
	Image   image.Image
	Palette *artwork.Palette
	Doc     *lyrics.Document
	Source  resolve.Source
}

type Model struct {
	transport     player.Transport
	resolver      LyricsResolver
	offsets       OffsetStore
	reloads       <-chan watch.Reload
	logger        *slog.Logger
	syncOffset    float64
	defaultOffset float64
	hideHeader    bool
	termCaps      *terminal.Capabilities
	now           func() time.Time

	engine   *syncengine.Engine
	viewport *LyricsViewport

	display      TrackDisplay
	state        player.State
	frame        syncengine.Frame
	loadingState LoadingState
	err          error
	notice       string
	quitting     bool
	polling      bool
	width        int
	height       int
	tickCount    int
}

type ModelConfig struct {
	Transport         player.Transport
	Resolver          LyricsResolver
	Offsets           OffsetStore
	Reloads           <-chan watch.Reload
	Logger            *slog.Logger
	SyncOffset        float64
	HideHeader        bool
	TermCaps          *terminal.Capabilities
	AttributionWindow time.Duration
	CenterBand        float64
	Now               func() time.Time
}

func NewModel(cfg ModelConfig) Model {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	viewport := NewLyricsViewport(syncengine.Band{Fraction: cfg.CenterBand})
	engine := syncengine.New(syncengine.Options{
		Viewport:          viewport,
		AttributionWindow: cfg.AttributionWindow,
		Logger:            logger,
	})

	m := Model{
		transport:     cfg.Transport,
		resolver:      cfg.Resolver,
		offsets:       cfg.Offsets,
		reloads:       cfg.Reloads,
		logger:        logger,
		syncOffset:    cfg.SyncOffset,
		defaultOffset: cfg.SyncOffset,
		hideHeader:    cfg.HideHeader,
		termCaps:      cfg.TermCaps,
		now:           now,
		engine:        engine,
		viewport:      viewport,
	}

	m.frame.ActiveIndex = -1
	m.display.Palette = artwork.DefaultPalette()

	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(),
		m.listenForPlayerEvents(),
		m.listenForReloads(),
	}

	// transports that know their track up front, like the local clock,
	// never announce it with an event
	if m.transport != nil {
		if snap := m.transport.Snapshot(); snap.Track != nil {
			cmds = append(cmds, func() tea.Msg {
				return PlayerEventMsg{Event: player.EventData{Type: player.EventTrackChanged, Track: snap.Track}}
			})
		}
	}

	return tea.Batch(cmds...)
}

func tickCmd() tea.Cmd {
	return tea.Tick(config.PollInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) listenForPlayerEvents() tea.Cmd {
	if m.transport == nil {
		return nil
	}

	events := m.transport.Events()
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return PlayerEventMsg{Event: event}
	}
}

func (m Model) listenForReloads() tea.Cmd {
	if m.reloads == nil {
		return nil
	}

	reloads := m.reloads
	return func() tea.Msg {
		reload, ok := <-reloads
		if !ok {
			return nil
		}
		return ReloadMsg{Reload: reload}
	}
}

func (m *Model) setLoadingLyrics(loading bool) {
	if loading {
		if m.loadingState == LoadingArtwork {
			m.loadingState = LoadingBoth
		} else if m.loadingState == LoadingNone {
			m.loadingState = LoadingLyrics
		}
	} else {
		if m.loadingState == LoadingBoth {
			m.loadingState = LoadingArtwork
		} else if m.loadingState == LoadingLyrics {
			m.loadingState = LoadingNone
		}
	}
}

func (m *Model) setLoadingArtwork(loading bool) {
	if loading {
		if m.loadingState == LoadingLyrics {
			m.loadingState = LoadingBoth
		} else if m.loadingState == LoadingNone {
			m.loadingState = LoadingArtwork
		}
	} else {
		if m.loadingState == LoadingBoth {
			m.loadingState = LoadingLyrics
		} else if m.loadingState == LoadingArtwork {
			m.loadingState = LoadingNone
		}
	}
}

func (m *Model) resetForNewTrack() {
	m.display.Image = nil
	m.display.Palette = artwork.DefaultPalette()
	m.display.Source = ""
	m.err = nil
	m.notice = ""
	m.syncOffset = m.defaultOffset
	m.setDocument(nil)
}

// setDocument swaps the document wholesale. The engine notices the new
// pointer on its next tick and drops back to synced mode.
func (m *Model) setDocument(doc *lyrics.Document) {
	m.display.Doc = doc
	m.viewport.Layout(doc)
	m.refreshFrame()
}

// followDocumentLength stretches or shrinks the transport's track to the
// document so the playhead can reach lines added by a reload.
func (m *Model) followDocumentLength(doc *lyrics.Document) {
	updater, ok := m.transport.(trackUpdater)
	if !ok || doc == nil {
		return
	}
	snap := m.transport.Snapshot()
	if snap.Track == nil {
		return
	}

	updated := *snap.Track
	updated.Duration = doc.Length()
	updater.SetTrack(&updated)
}

// refreshFrame runs the engine against the latest transport snapshot.
func (m *Model) refreshFrame() {
	prevActive := m.frame.ActiveLineID
	m.frame = m.engine.Tick(syncengine.Input{
		Doc:         m.display.Doc,
		CurrentTime: m.state.Position + m.syncOffset,
		IsPlaying:   m.state.Playing,
	})
	if m.frame.ActiveLineID != "" && m.frame.ActiveLineID != prevActive {
		m.viewport.Anim().Flash()
	}
}

// lyricsArea is the rows between the header and the status line.
func (m Model) lyricsArea() (top int, height int) {
	top = m.headerRows(m.width, m.height)
	return top, max(m.height-top-footerRows, 0)
}

func (m *Model) resize(width int, height int) {
	m.width = width
	m.height = height
	_, lyricsHeight := m.lyricsArea()
	m.viewport.SetSize(width, lyricsHeight)

	// a new size moves the center; follow it unless the user took over
	if m.engine.Mode() == syncengine.ModeSynced {
		m.engine.Resync()
	}
}

func (m Model) Width() int  { return m.width }
func (m Model) Height() int { return m.height }

func (m Model) Track() *track.Info         { return m.display.Track }
func (m Model) Position() float64          { return m.state.Position }
func (m Model) Palette() *artwork.Palette  { return m.display.Palette }
func (m Model) Image() image.Image         { return m.display.Image }
func (m Model) Document() *lyrics.Document { return m.display.Doc }
func (m Model) Frame() syncengine.Frame    { return m.frame }
func (m Model) Mode() syncengine.Mode      { return m.engine.Mode() }
func (m Model) SyncOffset() float64        { return m.syncOffset }
func (m Model) HideHeader() bool           { return m.hideHeader }
func (m Model) TickCount() int             { return m.tickCount }
func (m Model) Err() error                 { return m.err }
func (m Model) IsQuitting() bool           { return m.quitting }
func (m Model) IsLoadingLyrics() bool      { return m.loadingState.IsLoadingLyrics() }
func (m Model) IsLoadingArtwork() bool     { return m.loadingState.IsLoadingArtwork() }
func (m Model) Viewport() *LyricsViewport  { return m.viewport }
func (m Model) Engine() *syncengine.Engine { return m.engine }
func (m Model) State() player.State        { return m.state }

func (m *Model) Stop() {
	if m.transport != nil {
		m.transport.Stop()
	}
}
