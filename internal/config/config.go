package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"

	"github.com/Nomadcxx/jellyname/internal/detector"
	"github.com/Nomadcxx/jellyname/internal/naming"
)

// Config holds all jellyname configuration
type Config struct {
	Rename   RenameConfig      `toml:"rename"`
	Patterns detector.Patterns `toml:"patterns"`
	Media    MediaConfig       `toml:"media"`
	Daemon   DaemonConfig      `toml:"daemon"`
	Log      LogConfig         `toml:"log"`
}

// RenameConfig holds the defaults a new session starts from
type RenameConfig struct {
	Template string `toml:"template"`
	Channel  string `toml:"channel"`
	Workers  int    `toml:"workers"` // preview parallelism, 0 = one per CPU
}

// MediaConfig defines which extensions count as which kind of media
type MediaConfig struct {
	Video         []string `toml:"video"`
	Audio         []string `toml:"audio"`
	Subtitle      []string `toml:"subtitle"`
	MaxFileSizeMB int64    `toml:"max_file_size_mb"` // 0 disables the limit
}

// DaemonConfig holds inbox sweeping settings
type DaemonConfig struct {
	Inbox        string `toml:"inbox"`
	Output       string `toml:"output"`
	Interval     string `toml:"interval"` // Go duration, e.g. "5m"
	Schedule     string `toml:"schedule"` // cron expression, overrides interval when set
	Workers      int    `toml:"workers"`
	KeepArchives bool   `toml:"keep_archives"` // rename processed zips to .done instead of deleting
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level      string `toml:"level"`  // debug, info, warn, error
	Format     string `toml:"format"` // console, json
	File       string `toml:"file"`   // also log to this rotated file when set
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// MinInterval is the shortest accepted daemon sweep interval.
const MinInterval = 10 * time.Second

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Rename: RenameConfig{
			Template: naming.DefaultTemplate,
			Channel:  "",
		},
		Patterns: detector.DefaultPatterns(),
		Media: MediaConfig{
			Video:         []string{".mp4", ".mkv", ".avi", ".mov", ".wmv", ".flv", ".webm", ".m4v"},
			Audio:         []string{".mp3", ".flac", ".wav", ".aac", ".m4a", ".ogg"},
			Subtitle:      []string{".srt", ".ass", ".vtt", ".sub"},
			MaxFileSizeMB: 2000,
		},
		Daemon: DaemonConfig{
			Interval:     "5m",
			Workers:      2,
			KeepArchives: true,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Dir returns the jellyname config directory
func Dir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "jellyname"), nil
}

// ConfigPath returns the path to the config file
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// SessionsPath returns the path to the session store beside the config file
func SessionsPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions.toml"), nil
}

// Load reads the default config file, creating it with defaults if it doesn't exist
func Load() (*Config, error) {
	configFile, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configFile)
}

// LoadFrom reads the config at path. A missing file is created with
// defaults; keys absent from an existing file keep their default values.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := SaveTo(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to the default location
func Save(cfg *Config) error {
	configFile, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(configFile, cfg)
}

// SaveTo writes the config to path, creating parent directories
func SaveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if _, err := detector.New(c.Patterns); err != nil {
		return fmt.Errorf("invalid patterns: %w", err)
	}

	if c.Rename.Workers < 0 {
		return fmt.Errorf("invalid rename workers: %d", c.Rename.Workers)
	}

	if len(c.Media.Video) == 0 && len(c.Media.Audio) == 0 {
		return fmt.Errorf("no media extensions configured")
	}
	for _, ext := range c.Media.all() {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("media extension %q must start with a dot", ext)
		}
	}
	if c.Media.MaxFileSizeMB < 0 {
		return fmt.Errorf("invalid max file size: %d", c.Media.MaxFileSizeMB)
	}

	if c.Daemon.Schedule != "" {
		if _, err := cron.ParseStandard(c.Daemon.Schedule); err != nil {
			return fmt.Errorf("invalid daemon schedule %q: %w", c.Daemon.Schedule, err)
		}
	} else if _, err := c.Daemon.IntervalDuration(); err != nil {
		return err
	}
	if c.Daemon.Workers < 1 {
		return fmt.Errorf("invalid daemon workers: %d (must be at least 1)", c.Daemon.Workers)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be console or json)", c.Log.Format)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation limits must not be negative")
	}

	return nil
}

// Detector compiles the configured pattern tables
func (c *Config) Detector() (*detector.Detector, error) {
	d, err := detector.New(c.Patterns)
	if err != nil {
		return nil, fmt.Errorf("invalid patterns: %w", err)
	}
	return d, nil
}

// IntervalDuration parses the daemon sweep interval
func (d DaemonConfig) IntervalDuration() (time.Duration, error) {
	interval, err := time.ParseDuration(d.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid daemon interval %q: %w", d.Interval, err)
	}
	if interval < MinInterval {
		return 0, fmt.Errorf("daemon interval %s is shorter than %s", interval, MinInterval)
	}
	return interval, nil
}

// patternList returns a pointer to the ordered list for kind
func (c *Config) patternList(kind string) (*[]string, error) {
	switch kind {
	case "episode":
		return &c.Patterns.Episode, nil
	case "quality":
		return &c.Patterns.Quality, nil
	case "audio":
		return &c.Patterns.Audio, nil
	}
	return nil, fmt.Errorf("unknown pattern kind: %s (must be episode, quality, or audio)", kind)
}

// AddPattern appends a pattern to the given table after checking it compiles
func (c *Config) AddPattern(kind, pattern string) error {
	list, err := c.patternList(kind)
	if err != nil {
		return err
	}

	if slices.Contains(*list, pattern) {
		return fmt.Errorf("pattern already configured: %s", pattern)
	}

	candidate := c.Patterns
	switch kind {
	case "episode":
		candidate.Episode = append(slices.Clone(candidate.Episode), pattern)
	case "quality":
		candidate.Quality = append(slices.Clone(candidate.Quality), pattern)
	case "audio":
		candidate.Audio = append(slices.Clone(candidate.Audio), pattern)
	}
	if _, err := detector.New(candidate); err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}

	*list = append(*list, pattern)
	return nil
}

// RemovePattern removes a pattern from the given table
func (c *Config) RemovePattern(kind, pattern string) error {
	list, err := c.patternList(kind)
	if err != nil {
		return err
	}

	for i, existing := range *list {
		if existing == pattern {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("pattern not found: %s", pattern)
}

// MediaKind is the category a file extension belongs to.
type MediaKind string

const (
	KindVideo    MediaKind = "video"
	KindAudio    MediaKind = "audio"
	KindSubtitle MediaKind = "subtitle"
	KindOther    MediaKind = "other"
)

// Classify returns the media kind of name by its extension, case-insensitively
func (m MediaConfig) Classify(name string) MediaKind {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return KindOther
	}

	switch {
	case containsFold(m.Video, ext):
		return KindVideo
	case containsFold(m.Audio, ext):
		return KindAudio
	case containsFold(m.Subtitle, ext):
		return KindSubtitle
	}
	return KindOther
}

// Renamable reports whether files of this kind get a generated name.
// Subtitles and everything else keep their original names.
func (k MediaKind) Renamable() bool {
	return k == KindVideo || k == KindAudio
}

// IsMedia reports whether name is a video, audio or subtitle file
func (m MediaConfig) IsMedia(name string) bool {
	return m.Classify(name) != KindOther
}

// MaxFileSize returns the size limit in bytes, 0 when unlimited
func (m MediaConfig) MaxFileSize() int64 {
	return m.MaxFileSizeMB * 1024 * 1024
}

func (m MediaConfig) all() []string {
	all := make([]string, 0, len(m.Video)+len(m.Audio)+len(m.Subtitle))
	all = append(all, m.Video...)
	all = append(all, m.Audio...)
	return append(all, m.Subtitle...)
}

func containsFold(list []string, ext string) bool {
	for _, candidate := range list {
		if strings.EqualFold(candidate, ext) {
			return true
		}
	}
	return false
}
