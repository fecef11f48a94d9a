package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/logging"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/player"
	"karolbroda.com/lyricsync/internal/resolve"
	"karolbroda.com/lyricsync/internal/track"
	"karolbroda.com/lyricsync/internal/ui"
)

var (
	// flags for play
	playStart  float64
	playPaused bool
)

var playCmd = &cobra.Command{
	Use:   "play <file>",
	Short: "preview a lyrics file against a local clock",
	Long: `plays a lyrics file (json or lrc) without a music player, driven by a
local clock. space pauses, clicking a line seeks to it, and saving the
file reloads it in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().Float64Var(&playStart, "start", 0, "start position in seconds")
	playCmd.Flags().BoolVar(&playPaused, "paused", false, "start paused")
}

func runPlay(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closeLog := logging.Setup(cfg.LogFile, cfg.LogLevel)
	defer closeLog()

	// fail before the alt screen takes over the terminal
	doc, err := lyrics.LoadFile(path)
	if err != nil {
		return err
	}

	clock := player.NewClock(trackForDocument(doc, path))
	if playStart > 0 {
		_ = clock.Seek(playStart)
	}
	if !playPaused {
		clock.Play()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("previewing lyrics file", "path", path, "lines", len(doc.Lines))

	store := openStore(cfg)
	return runUI(cfg, logger, ui.ModelConfig{
		Transport: clock,
		Resolver:  resolve.New(nil, nil, logger, resolve.WithOffsets(store)),
		Offsets:   store,
		Reloads:   startWatcher(ctx, path, logger),
	})
}

// trackForDocument names the local track after the document, falling back
// to the file name so the viewer always has something valid to show.
func trackForDocument(doc *lyrics.Document, path string) *track.Info {
	title := doc.Meta.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	artist := doc.Meta.Artist
	if artist == "" {
		artist = "local file"
	}

	return &track.Info{
		Title:      title,
		Artist:     artist,
		Duration:   doc.Length(),
		TrackID:    "file:" + path,
		LyricsPath: path,
	}
}
