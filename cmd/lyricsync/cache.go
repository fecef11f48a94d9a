package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/cache"
)

var (
	// flags for cache list
	cacheSortBy  string
	cacheConfirm bool
)

var errSuggested = errors.New("song not found in cache")

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "manage the lyrics cache",
	Long:  `manage cached lyrics data, including viewing statistics, listing entries, and clearing the cache.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "show cache statistics",
	Long:  `display cache statistics including number of entries, total size, and cache location.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := commandStore(cmd)
		if err != nil {
			return err
		}

		count, sizeBytes, err := store.Stats()
		if err != nil {
			return fmt.Errorf("failed to get cache stats: %w", err)
		}

		fmt.Println("cache statistics:")
		fmt.Printf("  location: %s\n", store.Path())
		fmt.Printf("  entries:  %s\n", humanize.Comma(int64(count)))
		fmt.Printf("  size:     %s\n", humanize.IBytes(uint64(sizeBytes)))

		return nil
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "list all cached songs",
	Long:  `list all songs in the cache with their sync offsets and cache date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := commandStore(cmd)
		if err != nil {
			return err
		}

		entries, err := store.ListAll()
		if err != nil {
			return fmt.Errorf("failed to list cache: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("cache is empty")
			return nil
		}

		sortCacheEntries(entries, cacheSortBy)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ARTIST\tTITLE\tSYNCED\tSYNC OFFSET\tCACHED")

		for _, entry := range entries {
			syncStr := fmt.Sprintf("%+.1fs", entry.SyncOffset)
			if entry.SyncOffset == 0 {
				syncStr = "-"
			}
			synced := "no"
			if entry.SyncedLyrics != "" {
				synced = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				entry.ArtistName, entry.TrackName, synced, syncStr,
				humanize.Time(time.Unix(entry.CreatedAt, 0)))
		}

		w.Flush()

		fmt.Printf("\ntotal: %d songs\n", len(entries))

		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <artist> <title>",
	Short: "show cached entry for specific song",
	Long:  `display detailed information about a cached song including lyrics and sync offset.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist, title := args[0], args[1]

		store, err := commandStore(cmd)
		if err != nil {
			return err
		}

		entry, err := store.Get(artist, title)
		if err != nil {
			return notCached(store, artist, title, err)
		}

		fmt.Printf("artist:       %s\n", entry.ArtistName)
		fmt.Printf("title:        %s\n", entry.TrackName)
		fmt.Printf("album:        %s\n", entry.AlbumName)
		fmt.Printf("duration:     %.1fs\n", entry.Duration)
		fmt.Printf("sync offset:  %+.2fs\n", entry.SyncOffset)
		fmt.Printf("instrumental: %v\n", entry.Instrumental)
		fmt.Printf("source:       %s\n", entry.Source)
		fmt.Printf("cached:       %s\n", humanize.Time(time.Unix(entry.CreatedAt, 0)))
		fmt.Printf("expires:      %s\n", humanize.Time(time.Unix(entry.ExpiresAt, 0)))

		switch {
		case entry.SyncedLyrics != "":
			lines := strings.Split(strings.TrimSpace(entry.SyncedLyrics), "\n")
			fmt.Printf("\nsynced lyrics: %d lines\n", len(lines))
		case entry.PlainLyrics != "":
			lines := strings.Split(strings.TrimSpace(entry.PlainLyrics), "\n")
			fmt.Printf("\nplain lyrics: %d lines (no sync data)\n", len(lines))
		default:
			fmt.Println("\nno lyrics available")
		}

		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "clear all cached entries",
	Long:  `remove all cached lyrics data. use --confirm to skip confirmation prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := commandStore(cmd)
		if err != nil {
			return err
		}

		if !cacheConfirm {
			fmt.Print("are you sure you want to clear all cache? (y/n): ")
			var response string
			fmt.Scanln(&response)
			response = strings.ToLower(response)
			if response != "y" && response != "yes" {
				fmt.Println("cancelled")
				return nil
			}
		}

		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		fmt.Println("cache cleared successfully")
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "remove expired cache entries",
	Long:  `remove all expired cache entries to free up disk space.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := commandStore(cmd)
		if err != nil {
			return err
		}

		pruned, err := store.Prune()
		if err != nil {
			return fmt.Errorf("failed to prune cache: %w", err)
		}

		fmt.Printf("removed %d expired entries\n", pruned)
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <artist> <title>",
	Short: "remove specific song from cache",
	Long:  `remove a specific song from the cache by artist and title.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist, title := args[0], args[1]

		store, err := commandStore(cmd)
		if err != nil {
			return err
		}

		if _, err := store.Get(artist, title); err != nil {
			return notCached(store, artist, title, err)
		}

		if err := store.Delete(artist, title); err != nil {
			return fmt.Errorf("failed to delete from cache: %w", err)
		}

		fmt.Printf("deleted '%s - %s' from cache\n", artist, title)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)

	cacheListCmd.Flags().StringVar(&cacheSortBy, "sort", "date", "sort by: date, artist, title")
	cacheClearCmd.Flags().BoolVar(&cacheConfirm, "confirm", false, "skip confirmation prompt")
}

// helper functions

// commandStore opens the on-disk cache; management commands never fall
// back to memory since there would be nothing to manage.
func commandStore(cmd *cobra.Command) (*cache.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	store, err := cache.NewStore(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", cfg.CacheDir, err)
	}
	return store, nil
}

// notCached prints close matches before reporting a miss.
func notCached(store *cache.Store, artist, title string, cause error) error {
	suggestions := store.FindSimilar(artist, title, maxSuggestions)
	if len(suggestions) == 0 {
		return fmt.Errorf("%w: %w", errSuggested, cause)
	}

	fmt.Fprintf(os.Stderr, "did you mean one of these?\n")
	for _, s := range suggestions {
		fmt.Fprintf(os.Stderr, "  %s - %s\n", s.ArtistName, s.TrackName)
	}
	fmt.Fprintln(os.Stderr)
	return fmt.Errorf("%w: %s - %s", errSuggested, artist, title)
}

func sortCacheEntries(entries []*cache.Entry, sortBy string) {
	switch sortBy {
	case "artist":
		sort.Slice(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].ArtistName) < strings.ToLower(entries[j].ArtistName)
		})
	case "title":
		sort.Slice(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].TrackName) < strings.ToLower(entries[j].TrackName)
		})
	default:
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].CreatedAt > entries[j].CreatedAt
		})
	}
}
