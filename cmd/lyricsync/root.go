package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/config"
)

var (
	// global flags
	configPath   string
	mprisService string
	syncOffset   float64
	hideHeader   bool
	lrclibURL    string
	noCache      bool
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "lyricsync",
	Short: "synchronized lyrics in the terminal",
	Long: `lyricsync follows an mpris player and highlights lyrics line by line and
word by word as the song plays. scroll away to read ahead; the view snaps
back once the sung line is in the middle again, or on demand.

when run without a subcommand, it starts the interactive viewer.`,
	Version: "0.3.0",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runViewer(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVarP(&mprisService, "mpris-service", "m", "", "mpris service name (e.g., org.mpris.MediaPlayer2.spotify)")
	rootCmd.PersistentFlags().Float64VarP(&syncOffset, "sync-offset", "s", 0, "initial sync offset in seconds")
	rootCmd.PersistentFlags().BoolVarP(&hideHeader, "hide-header", "H", false, "hide header section")
	rootCmd.PersistentFlags().StringVar(&lrclibURL, "lrclib-url", "", "custom lrclib api url")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "disable cache reads (always fetch fresh)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadConfig reads the config file and environment, then applies any
// flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if mprisService != "" {
		cfg.MprisService = mprisService
	}
	if lrclibURL != "" {
		cfg.LrclibURL = lrclibURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("sync-offset") {
		cfg.SyncOffset = syncOffset
	}
	if flags.Changed("hide-header") {
		cfg.HideHeader = hideHeader
	}

	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
