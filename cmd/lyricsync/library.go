package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/colors"
	"karolbroda.com/lyricsync/internal/library"
	"karolbroda.com/lyricsync/internal/logging"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "manage local lyrics files",
	Long: `index local json and lrc lyrics files so the viewer finds them before
asking lrclib. files are matched to tracks by artist and title.`,
}

var libraryImportCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "index every lyrics file under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := commandLibrary(cmd)
		if err != nil {
			return err
		}
		defer lib.Close()

		result, err := lib.Import(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		fmt.Printf("added %s, skipped %s\n", humanize.Comma(int64(result.Added)), humanize.Comma(int64(result.Skipped)))
		if len(result.Failed) > 0 {
			fmt.Printf("\n%d file(s) could not be read:\n", len(result.Failed))
			for _, path := range result.Failed {
				fmt.Printf("  %s\n", path)
			}
		}
		return nil
	},
}

var libraryAddCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "index individual lyrics files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := commandLibrary(cmd)
		if err != nil {
			return err
		}
		defer lib.Close()

		for _, path := range args {
			if err := lib.Add(context.Background(), path); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Printf("added %s\n", path)
		}
		return nil
	},
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "list indexed lyrics files",
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := commandLibrary(cmd)
		if err != nil {
			return err
		}
		defer lib.Close()

		entries, err := lib.List(context.Background())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("library is empty")
			fmt.Println("\nuse 'lyricsync library import <dir>' to add lyrics files")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ARTIST\tTITLE\tLENGTH\tLINES\tWORDS\tIMPORTED\tPATH")
		for _, entry := range entries {
			words := "-"
			if entry.WordTimed {
				words = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
				entry.Artist, entry.Title,
				colors.FormatTime(float64(entry.DurationMs)/1000),
				entry.LineCount, words,
				humanize.Time(entry.ImportedAt), entry.Path)
		}
		w.Flush()

		fmt.Printf("\ntotal: %d files\n", len(entries))
		return nil
	},
}

var libraryRemoveCmd = &cobra.Command{
	Use:   "remove <file>",
	Short: "drop a file from the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := commandLibrary(cmd)
		if err != nil {
			return err
		}
		defer lib.Close()

		// entries are keyed by absolute path
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		if err := lib.Remove(context.Background(), path); err != nil {
			return err
		}
		fmt.Printf("removed %s\n", path)
		return nil
	},
}

var libraryPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "drop entries whose files no longer exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := commandLibrary(cmd)
		if err != nil {
			return err
		}
		defer lib.Close()

		removed, err := lib.PruneMissing(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("removed %d missing entries\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(libraryCmd)

	libraryCmd.AddCommand(libraryImportCmd)
	libraryCmd.AddCommand(libraryAddCmd)
	libraryCmd.AddCommand(libraryListCmd)
	libraryCmd.AddCommand(libraryRemoveCmd)
	libraryCmd.AddCommand(libraryPruneCmd)
}

func commandLibrary(cmd *cobra.Command) (*library.Library, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.LibraryPath == "" {
		return nil, fmt.Errorf("no library path configured")
	}

	level := logging.ParseLevel(cfg.LogLevel)
	return library.Open(cfg.LibraryPath, logging.New(os.Stderr, level, logging.FormatText))
}
