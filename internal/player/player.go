package player

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"karolbroda.com/lyricsync/internal/track"
)

const (
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisIface       = "org.mpris.MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
	mprisPrefix      = "org.mpris.MediaPlayer2."

	// a position jump bigger than this between polls counts as a seek
	seekThreshold = 3.0
)

// Service follows an MPRIS player on the session bus. Signals keep the
// state fresh; Poll is the fallback for players that do not emit them.
type Service struct {
	bus        *dbus.Conn
	service    string
	signalChan chan *dbus.Signal
	stopChan   chan struct{}
	stopOnce   sync.Once
	eventChan  chan EventData

	mu                 sync.RWMutex
	state              State
	lastPositionUpdate time.Time
}

func NewService(bus *dbus.Conn, mprisService string) (*Service, error) {
	if bus == nil {
		return nil, errors.New("nil dbus connection")
	}
	if mprisService == "" {
		return nil, errors.New("empty mpris service name")
	}

	return &Service{
		bus:       bus,
		service:   mprisService,
		eventChan: make(chan EventData, 16),
	}, nil
}

// ListPlayers returns the bus names of every running MPRIS player.
func ListPlayers(bus *dbus.Conn) ([]string, error) {
	var names []string
	err := bus.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names)
	if err != nil {
		return nil, fmt.Errorf("failed to list dbus names: %w", err)
	}

	var players []string
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			players = append(players, name)
		}
	}
	return players, nil
}

// Identity is the player's human readable name, or "" if it has none.
func Identity(bus *dbus.Conn, service string) string {
	variant, err := bus.Object(service, mprisPath).GetProperty(mprisIface + ".Identity")
	if err != nil {
		return ""
	}
	identity, _ := variant.Value().(string)
	return identity
}

func (s *Service) Start() error {
	s.signalChan = make(chan *dbus.Signal, 10)
	s.stopChan = make(chan struct{})

	s.bus.Signal(s.signalChan)

	matches := []string{
		fmt.Sprintf(
			"type='signal',sender='%s',interface='org.freedesktop.DBus.Properties',member='PropertiesChanged',path='%s'",
			s.service, mprisPath,
		),
		fmt.Sprintf(
			"type='signal',sender='%s',interface='%s',member='Seeked',path='%s'",
			s.service, mprisPlayerIface, mprisPath,
		),
	}

	for _, match := range matches {
		err := s.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, match).Err
		if err != nil {
			return fmt.Errorf("failed to add signal match: %w", err)
		}
	}

	go s.signalLoop()

	return nil
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		if s.stopChan != nil {
			close(s.stopChan)
		}
		if s.signalChan != nil {
			s.bus.RemoveSignal(s.signalChan)
		}
	})
}

func (s *Service) Events() <-chan EventData {
	return s.eventChan
}

// Snapshot returns the last known state with the position extrapolated to
// now while playing, so word highlighting stays smooth between polls.
func (s *Service) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state
	if s.state.Track != nil {
		trackCopy := *s.state.Track
		snapshot.Track = &trackCopy
	}

	now := time.Now()
	if snapshot.Playing && !s.lastPositionUpdate.IsZero() {
		snapshot.Position += now.Sub(s.lastPositionUpdate).Seconds()
	}
	snapshot.SampledAt = now
	return snapshot
}

func (s *Service) object() dbus.BusObject {
	return s.bus.Object(s.service, mprisPath)
}

func (s *Service) GetCurrentTrack() (*track.Info, error) {
	prop, err := s.object().GetProperty(mprisPlayerIface + ".Metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata property: %w", err)
	}

	metadata, ok := prop.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("unexpected metadata type %T", prop.Value())
	}

	info := trackFromMetadata(metadata)
	if !info.IsValid() {
		return nil, fmt.Errorf("missing title or artist in metadata (title=%q, artist=%q)", info.Title, info.Artist)
	}

	return info, nil
}

// GetCurrentPosition reads the position in seconds, keeping the
// microsecond precision word timing needs.
func (s *Service) GetCurrentPosition() (float64, error) {
	prop, err := s.object().GetProperty(mprisPlayerIface + ".Position")
	if err != nil {
		return 0, fmt.Errorf("failed to get position property: %w", err)
	}

	positionMicroseconds, ok := prop.Value().(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected position type %T", prop.Value())
	}
	if positionMicroseconds < 0 {
		return 0, nil
	}

	return float64(positionMicroseconds) / 1e6, nil
}

func (s *Service) GetPlaying() (bool, error) {
	prop, err := s.object().GetProperty(mprisPlayerIface + ".PlaybackStatus")
	if err != nil {
		return false, fmt.Errorf("failed to get playback status: %w", err)
	}
	status, _ := prop.Value().(string)
	return status == "Playing", nil
}

func (s *Service) Poll() error {
	trk, err := s.GetCurrentTrack()
	if err != nil {
		return err
	}

	pos, err := s.GetCurrentPosition()
	if err != nil {
		return err
	}

	playing, err := s.GetPlaying()
	if err != nil {
		// some players omit PlaybackStatus; keep what the signals told us
		s.mu.RLock()
		playing = s.state.Playing
		s.mu.RUnlock()
	}

	s.mu.Lock()
	seekDetected := s.detectSeek(pos)
	trackChanged := !trk.IsSameTrack(s.state.Track)
	playingChanged := playing != s.state.Playing

	s.state.Track = trk
	s.state.Playing = playing
	s.updatePosition(pos)
	s.mu.Unlock()

	switch {
	case trackChanged:
		emit(s.eventChan, EventData{Type: EventTrackChanged, Track: trk, Position: pos, Playing: playing})
	case seekDetected:
		emit(s.eventChan, EventData{Type: EventSeeked, Position: pos, Playing: playing})
	}
	if playingChanged && !trackChanged {
		emit(s.eventChan, EventData{Type: EventPlaybackStateChanged, Playing: playing, Position: pos})
	}

	return nil
}

// Seek moves the player with SetPosition, which needs the current track id.
func (s *Service) Seek(seconds float64) error {
	s.mu.RLock()
	var trackID string
	if s.state.Track != nil {
		trackID = s.state.Track.TrackID
	}
	s.mu.RUnlock()

	if trackID == "" {
		return errors.New("player did not report a track id; cannot seek")
	}
	if seconds < 0 {
		seconds = 0
	}

	micros := int64(math.Round(seconds * 1e6))
	err := s.object().Call(mprisPlayerIface+".SetPosition", 0, dbus.ObjectPath(trackID), micros).Err
	if err != nil {
		return fmt.Errorf("failed to set position: %w", err)
	}

	s.mu.Lock()
	s.updatePosition(seconds)
	s.mu.Unlock()

	return nil
}

func (s *Service) TogglePlayback() error {
	err := s.object().Call(mprisPlayerIface+".PlayPause", 0).Err
	if err != nil {
		return fmt.Errorf("failed to toggle playback: %w", err)
	}
	return nil
}

// detectSeek compares against where the last sample should have moved to.
// Caller holds mu.
func (s *Service) detectSeek(newPosition float64) bool {
	if s.lastPositionUpdate.IsZero() {
		return false
	}

	expected := s.state.Position
	if s.state.Playing {
		expected += time.Since(s.lastPositionUpdate).Seconds()
	}

	return math.Abs(newPosition-expected) > seekThreshold
}

func (s *Service) updatePosition(pos float64) {
	s.state.Position = pos
	s.lastPositionUpdate = time.Now()
}

func (s *Service) signalLoop() {
	for {
		select {
		case sig, ok := <-s.signalChan:
			if !ok {
				return
			}
			s.handleSignal(sig)
		case <-s.stopChan:
			return
		}
	}
}

func (s *Service) handleSignal(sig *dbus.Signal) {
	if sig == nil {
		return
	}

	switch sig.Name {
	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		s.handlePropertiesChanged(sig)
	case mprisPlayerIface + ".Seeked":
		s.handleSeeked(sig)
	}
}

func (s *Service) handlePropertiesChanged(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}

	interfaceName, ok := sig.Body[0].(string)
	if !ok || interfaceName != mprisPlayerIface {
		return
	}

	changedProps, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	if metadataVariant, exists := changedProps["Metadata"]; exists {
		if metadata, ok := metadataVariant.Value().(map[string]dbus.Variant); ok {
			info := trackFromMetadata(metadata)
			if info.IsValid() {
				s.mu.Lock()
				changed := !info.IsSameTrack(s.state.Track)
				s.state.Track = info
				if changed {
					s.updatePosition(0)
				}
				s.mu.Unlock()

				if changed {
					emit(s.eventChan, EventData{Type: EventTrackChanged, Track: info})
				}
			}
		}
	}

	if playbackVariant, exists := changedProps["PlaybackStatus"]; exists {
		if status, ok := playbackVariant.Value().(string); ok {
			playing := status == "Playing"
			s.mu.Lock()
			// fold elapsed play time in before the rate changes
			if s.state.Playing && !s.lastPositionUpdate.IsZero() {
				s.state.Position += time.Since(s.lastPositionUpdate).Seconds()
			}
			s.state.Playing = playing
			s.lastPositionUpdate = time.Now()
			s.mu.Unlock()

			emit(s.eventChan, EventData{Type: EventPlaybackStateChanged, Playing: playing})
		}
	}
}

func (s *Service) handleSeeked(sig *dbus.Signal) {
	if len(sig.Body) < 1 {
		return
	}

	positionMicroseconds, ok := sig.Body[0].(int64)
	if !ok || positionMicroseconds < 0 {
		return
	}

	pos := float64(positionMicroseconds) / 1e6

	s.mu.Lock()
	s.updatePosition(pos)
	playing := s.state.Playing
	s.mu.Unlock()

	emit(s.eventChan, EventData{Type: EventSeeked, Position: pos, Playing: playing})
}

func trackFromMetadata(metadata map[string]dbus.Variant) *track.Info {
	return &track.Info{
		Title:      extractString(metadata, "xesam:title"),
		Artist:     extractArtist(metadata, "xesam:artist"),
		Album:      extractString(metadata, "xesam:album"),
		ArtworkURL: extractString(metadata, "mpris:artUrl"),
		TrackID:    extractString(metadata, "mpris:trackid"),
		Duration:   extractDuration(metadata, "mpris:length"),
	}
}

func extractString(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}

	switch typed := variant.Value().(type) {
	case string:
		return typed
	case dbus.ObjectPath:
		return string(typed)
	default:
		return ""
	}
}

func extractArtist(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}

	switch typed := variant.Value().(type) {
	case []string:
		if len(typed) > 0 {
			return typed[0]
		}
		return ""
	case string:
		return typed
	default:
		return ""
	}
}

func extractDuration(metadata map[string]dbus.Variant, key string) time.Duration {
	variant, exists := metadata[key]
	if !exists {
		return 0
	}

	switch typed := variant.Value().(type) {
	case int64:
		if typed <= 0 {
			return 0
		}
		return time.Duration(typed) * time.Microsecond
	case uint64:
		return time.Duration(typed) * time.Microsecond
	default:
		return 0
	}
}
