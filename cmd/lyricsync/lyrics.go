package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/artwork"
	"karolbroda.com/lyricsync/internal/logging"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/ui"
)

const (
	previewWidth   = 80
	maxSuggestions = 5
)

var (
	// flags for lyrics convert
	convertOutput string
	convertTitle  string
)

var lyricsCmd = &cobra.Command{
	Use:   "lyrics",
	Short: "lyrics search and management",
	Long:  `search for lyrics, pre-fetch to cache, preview in the terminal, or convert lrc files.`,
}

var lyricsSearchCmd = &cobra.Command{
	Use:   "search <artist> <title>",
	Short: "search for lyrics on lrclib",
	Long:  `search for lyrics on lrclib.net and display availability information. the cache is not consulted.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist, title := args[0], args[1]

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		fmt.Printf("searching for: %s - %s\n\n", artist, title)

		client := lyrics.NewClient(cfg.LrclibURL, cfg.HTTPTimeout, nil, logging.Discard())
		resp, err := client.Fetch(context.Background(), &lyrics.TrackParams{Title: title, Artist: artist})
		if err != nil {
			return fmt.Errorf("lyrics not found: %w", err)
		}

		fmt.Printf("found lyrics:\n")
		fmt.Printf("  track:        %s\n", resp.TrackName)
		fmt.Printf("  artist:       %s\n", resp.ArtistName)
		if resp.AlbumName != "" {
			fmt.Printf("  album:        %s\n", resp.AlbumName)
		}
		if resp.Duration > 0 {
			fmt.Printf("  duration:     %.0fs\n", resp.Duration)
		}
		fmt.Printf("  instrumental: %v\n", resp.Instrumental)

		if doc, err := resp.Document(); err == nil {
			fmt.Printf("  synced lines: %d\n", len(doc.Lines))
			fmt.Printf("  word timing:  %v\n", doc.HasWords())
		} else {
			fmt.Printf("  synced lines: none\n")
		}

		if resp.PlainLyrics != "" {
			fmt.Printf("  plain lines:  %d\n", len(strings.Split(resp.PlainLyrics, "\n")))
		} else {
			fmt.Printf("  plain lines:  none\n")
		}

		fmt.Println("\nuse 'lyricsync lyrics fetch' to save to cache")
		return nil
	},
}

var lyricsFetchCmd = &cobra.Command{
	Use:   "fetch <artist> <title>",
	Short: "pre-fetch and cache lyrics",
	Long:  `fetch lyrics from lrclib.net and save them to the local cache for instant loading.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist, title := args[0], args[1]

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		store := openStore(cfg)
		if cached, err := store.Get(artist, title); err == nil {
			fmt.Printf("'%s - %s' is already cached\n", artist, title)
			if cached.SyncOffset != 0 {
				fmt.Printf("sync offset: %.2fs\n", cached.SyncOffset)
			}
			return nil
		}

		fmt.Printf("fetching: %s - %s\n", artist, title)

		client := lyrics.NewClient(cfg.LrclibURL, cfg.HTTPTimeout, store, logging.Discard())
		resp, err := client.Fetch(context.Background(), &lyrics.TrackParams{Title: title, Artist: artist})
		if err != nil {
			return fmt.Errorf("failed to fetch lyrics: %w", err)
		}

		fmt.Printf("cached successfully: %s - %s\n", resp.ArtistName, resp.TrackName)
		switch {
		case resp.SyncedLyrics != "":
			fmt.Println("synced lyrics available")
		case resp.Instrumental:
			fmt.Println("track is instrumental")
		default:
			fmt.Println("only plain lyrics available (no timing)")
		}
		return nil
	},
}

var lyricsPreviewCmd = &cobra.Command{
	Use:   "preview <file> | <artist> <title>",
	Short: "preview lyrics in terminal",
	Long: `print lyrics with line timestamps. with one argument the lyrics are read
from a json or lrc file; with two they come from the cache or lrclib.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			doc, err := lyrics.LoadFile(args[0])
			if err != nil {
				return err
			}
			printDocument(doc, "", 0)
			return nil
		}

		artist, title := args[0], args[1]

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		store := openStore(cfg)
		client := lyrics.NewClient(cfg.LrclibURL, cfg.HTTPTimeout, store, logging.Discard())
		resp, err := client.Fetch(context.Background(), &lyrics.TrackParams{Title: title, Artist: artist})
		if err != nil {
			if suggestions := store.FindSimilar(artist, title, maxSuggestions); len(suggestions) > 0 {
				fmt.Fprintf(os.Stderr, "lyrics not found online\n\n")
				fmt.Fprintf(os.Stderr, "similar songs in cache:\n")
				for _, s := range suggestions {
					fmt.Fprintf(os.Stderr, "  %s - %s\n", s.ArtistName, s.TrackName)
				}
			}
			return fmt.Errorf("lyrics not found: %w", err)
		}
		if resp.FromCache {
			fmt.Println("(from cache)")
		}

		if resp.Instrumental {
			fmt.Printf("\n%s - %s\n\n[instrumental]\n", resp.ArtistName, resp.TrackName)
			return nil
		}

		doc, err := resp.Document()
		if errors.Is(err, lyrics.ErrNoSynced) && resp.PlainLyrics != "" {
			fmt.Printf("\n%s - %s\n", resp.ArtistName, resp.TrackName)
			fmt.Print("\nplain lyrics (no timestamps):\n\n")
			fmt.Println(resp.PlainLyrics)
			return nil
		}
		if err != nil {
			return err
		}

		printDocument(doc, resp.AlbumName, resp.SyncOffset)
		return nil
	},
}

var lyricsConvertCmd = &cobra.Command{
	Use:   "convert <file.lrc>",
	Short: "convert an lrc file to the json lyrics format",
	Long: `parse an lrc file, including enhanced <mm:ss.xx> word tags, and write
the json document the viewer and library use. writes to stdout unless -o
is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		title := convertTitle
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}

		doc := lyrics.ParseLRC(string(raw), lyrics.LRCOptions{Title: title})
		if doc == nil {
			return fmt.Errorf("%s: %w", args[0], lyrics.ErrEmptyDocument)
		}

		if convertOutput == "" {
			return lyrics.Encode(os.Stdout, doc)
		}

		f, err := os.Create(convertOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", convertOutput, err)
		}
		if err := lyrics.Encode(f, doc); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "wrote %d lines (%s word timing) to %s\n", len(doc.Lines), wordTiming(doc), convertOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lyricsCmd)

	lyricsCmd.AddCommand(lyricsSearchCmd)
	lyricsCmd.AddCommand(lyricsFetchCmd)
	lyricsCmd.AddCommand(lyricsPreviewCmd)
	lyricsCmd.AddCommand(lyricsConvertCmd)

	lyricsConvertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output file")
	lyricsConvertCmd.Flags().StringVar(&convertTitle, "title", "", "document title (default: file name)")
}

// helper functions

func printDocument(doc *lyrics.Document, album string, offset float64) {
	if doc.Meta.Title != "" {
		for _, row := range ui.RenderBanner(doc.Meta.Title, artwork.DefaultPalette().Gradient, previewWidth) {
			fmt.Println(row)
		}
	}

	if doc.Meta.Artist != "" {
		fmt.Printf("\n%s\n", doc.Meta.Artist)
	}
	if album != "" {
		fmt.Println(album)
	}
	fmt.Println(strings.Repeat("─", previewWidth))

	fmt.Printf("\n%d lines, %s word timing:\n\n", len(doc.Lines), wordTiming(doc))
	for _, line := range doc.Lines {
		fmt.Printf("[%s] %s\n", lyrics.FormatTimestamp(line.StartTime), line.Text)
	}

	if offset != 0 {
		fmt.Printf("\nsync offset: %.2fs\n", offset)
	}
}

func wordTiming(doc *lyrics.Document) string {
	if doc.HasWords() {
		return "with"
	}
	return "without"
}
