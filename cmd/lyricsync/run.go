package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/cache"
	"karolbroda.com/lyricsync/internal/config"
	"karolbroda.com/lyricsync/internal/library"
	"karolbroda.com/lyricsync/internal/logging"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/player"
	"karolbroda.com/lyricsync/internal/resolve"
	"karolbroda.com/lyricsync/internal/terminal"
	"karolbroda.com/lyricsync/internal/ui"
	"karolbroda.com/lyricsync/internal/watch"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "start the interactive lyrics viewer",
	Long:  `starts the lyrics viewer against the configured mpris player.`,
	RunE:  runViewer,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runViewer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closeLog := logging.Setup(cfg.LogFile, cfg.LogLevel)
	defer closeLog()

	bus, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer bus.Close()

	playerService, err := player.NewService(bus, cfg.MprisService)
	if err != nil {
		return fmt.Errorf("failed to create player service: %w", err)
	}

	if err := playerService.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not set up dbus signals: %v\n", err)
		logger.Warn("dbus signals unavailable, falling back to polling", "error", err)
	}

	store := openStore(cfg)
	client := lyrics.NewClient(cfg.LrclibURL, cfg.HTTPTimeout, store, logger)

	var catalog resolve.Catalog
	if cfg.LibraryPath != "" {
		lib, err := library.Open(cfg.LibraryPath, logger)
		if err != nil {
			logger.Warn("library unavailable", "path", cfg.LibraryPath, "error", err)
		} else {
			defer lib.Close()
			catalog = lib
		}
	}

	logger.Info("starting viewer",
		"player", cfg.MprisService,
		"cache", store.Path(),
		"library", cfg.LibraryPath,
	)

	return runUI(cfg, logger, ui.ModelConfig{
		Transport: playerService,
		Resolver:  resolve.New(catalog, client, logger, resolve.WithOffsets(store)),
		Offsets:   store,
	})
}

// openStore honours --no-cache by handing out a throwaway memory store.
func openStore(cfg *config.Config) *cache.Store {
	if noCache {
		return cache.NewStoreInMemory()
	}
	return cache.Open(cfg.CacheDir)
}

// runUI fills the shared parts of mc from cfg and runs the program until
// the user quits or a signal arrives.
func runUI(cfg *config.Config, logger *slog.Logger, mc ui.ModelConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	defer terminal.Reset()

	mc.Logger = logger
	mc.SyncOffset = cfg.SyncOffset
	mc.HideHeader = cfg.HideHeader
	mc.TermCaps = terminal.DetectCapabilities()
	mc.AttributionWindow = cfg.ResyncWindow
	mc.CenterBand = cfg.CenterBand

	p := tea.NewProgram(
		ui.NewModel(mc),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	go func() {
		<-ctx.Done()
		mc.Transport.Stop()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running bubble tea: %w", err)
	}

	return nil
}

// startWatcher follows path for edits until ctx ends. A watcher that fails
// to start only costs live reload.
func startWatcher(ctx context.Context, path string, logger *slog.Logger) <-chan watch.Reload {
	w, err := watch.New(path, logger)
	if err != nil {
		logger.Warn("live reload disabled", "path", path, "error", err)
		return nil
	}

	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Warn("file watcher stopped", "path", path, "error", err)
		}
	}()
	return w.Reloads()
}
