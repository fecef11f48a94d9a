package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMprisService = "org.mpris.MediaPlayer2.spotify"
	DefaultLrclibGetURL = "https://lrclib.net/api/get"
	DefaultHTTPTimeout  = 10 * time.Second
	DefaultResyncWindow = 300 * time.Millisecond
	DefaultCenterBand   = 1.0 / 3.0
	DefaultLogLevel     = "info"
	PollInterval        = 100 * time.Millisecond

	appDirName     = "lyricsync"
	configFileName = "config.yaml"
)

type Config struct {
	MprisService string        `yaml:"mpris_service"`
	LrclibURL    string        `yaml:"lrclib_url"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`
	SyncOffset   float64       `yaml:"sync_offset"`
	HideHeader   bool          `yaml:"hide_header"`

	// ResyncWindow is how long after a wheel or key input a viewport scroll
	// still counts as the user's.
	ResyncWindow time.Duration `yaml:"resync_window"`
	// CenterBand is the fraction of the viewport height, centered, where
	// the active line counts as back in view.
	CenterBand float64 `yaml:"center_band"`

	LibraryPath string `yaml:"library_path"`
	CacheDir    string `yaml:"cache_dir"`
	LogFile     string `yaml:"log_file"`
	LogLevel    string `yaml:"log_level"`

	path string
}

func Default() *Config {
	return &Config{
		MprisService: DefaultMprisService,
		LrclibURL:    DefaultLrclibGetURL,
		HTTPTimeout:  DefaultHTTPTimeout,
		ResyncWindow: DefaultResyncWindow,
		CenterBand:   DefaultCenterBand,
		LibraryPath:  filepath.Join(dataDir(), "library.db"),
		CacheDir:     filepath.Join(cacheHome(), appDirName, "lyrics"),
		LogFile:      filepath.Join(stateDir(), "lyricsync.log"),
		LogLevel:     DefaultLogLevel,
	}
}

// Load layers defaults, the yaml file, a .env file and the process
// environment, in that order. A missing config file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultPath())
}

func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, err
		}
	}

	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.normalize()

	return cfg, nil
}

func (c *Config) Path() string {
	return c.path
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.MprisService = getEnvOrDefault("MPRIS_SERVICE", c.MprisService)
	c.LrclibURL = getEnvOrDefault("LRCLIB_GET_URL", c.LrclibURL)
	c.LibraryPath = getEnvOrDefault("LIBRARY_PATH", c.LibraryPath)
	c.CacheDir = getEnvOrDefault("LYRICSYNC_CACHE_DIR", c.CacheDir)
	c.LogFile = getEnvOrDefault("LOG_FILE", c.LogFile)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)

	if value := os.Getenv("SYNC_OFFSET"); value != "" {
		if offset, err := strconv.ParseFloat(value, 64); err == nil {
			c.SyncOffset = offset
		}
	}

	if value := os.Getenv("HIDE_HEADER"); value != "" {
		c.HideHeader = value == "1" || value == "true" || value == "yes"
	}

	if value := os.Getenv("CENTER_BAND"); value != "" {
		if band, err := strconv.ParseFloat(value, 64); err == nil {
			c.CenterBand = band
		}
	}

	c.HTTPTimeout = parseDurationOrDefault(os.Getenv("HTTP_TIMEOUT"), c.HTTPTimeout)
	c.ResyncWindow = parseDurationOrDefault(os.Getenv("RESYNC_WINDOW"), c.ResyncWindow)
}

func (c *Config) normalize() {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.ResyncWindow <= 0 {
		c.ResyncWindow = DefaultResyncWindow
	}
	if c.CenterBand <= 0 || c.CenterBand > 1 {
		c.CenterBand = DefaultCenterBand
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// DefaultPath is $XDG_CONFIG_HOME/lyricsync/config.yaml, or the ~/.config
// equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appDirName, configFileName)
}

func getEnvOrDefault(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func parseDurationOrDefault(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func cacheHome() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(home, ".cache")
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appDirName)
	}
	return filepath.Join(home, ".local", "share", appDirName)
}

func stateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appDirName)
	}
	return filepath.Join(home, ".local", "state", appDirName)
}
