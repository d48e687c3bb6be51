// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pelletier/go-toml/v2"
)

// AppName is used for config directories and D-Bus identity.
const AppName = "notiwin"

// Default configuration values.
const (
	DefaultPollInterval = time.Second
	DefaultTTL          = 5 * time.Second
	DefaultFadeOut      = time.Second
	DefaultDismissFade  = 250 * time.Millisecond
	DefaultQueueSize    = 256
	DefaultNormalColor  = "#3b4252"
	DefaultErrorColor   = "#bf616a"
	DefaultFont         = "Sans 11"
)

// Config is the configuration for notiwin.
// Loaded from $XDG_CONFIG_HOME/notiwin/notiwin.toml
type Config struct {
	Popup   PopupConfig   `toml:"popup" yaml:"popup"`
	Display DisplayConfig `toml:"display" yaml:"display"`
	DBus    DBusConfig    `toml:"dbus" yaml:"dbus"`
	Audio   AudioConfig   `toml:"audio" yaml:"audio"`
	Metrics MetricsConfig `toml:"metrics" yaml:"metrics"`
}

// PopupConfig contains the popup lifecycle timings.
type PopupConfig struct {
	PollInterval Duration `toml:"poll_interval" yaml:"poll_interval"` // How often expired messages are evicted
	TTL          Duration `toml:"ttl" yaml:"ttl"`                     // Message lifetime
	FadeOut      Duration `toml:"fade_out" yaml:"fade_out"`           // Fade when the last message expires
	DismissFade  Duration `toml:"dismiss_fade" yaml:"dismiss_fade"`   // Fade when the popup is clicked away
	QueueSize    int      `toml:"queue_size" yaml:"queue_size"`       // Pending add requests before callers block
}

// DisplayConfig contains display-related settings.
type DisplayConfig struct {
	Position string      `toml:"position" yaml:"position"` // "top-right", "top-left", etc.
	OffsetX  int         `toml:"offset_x" yaml:"offset_x"` // Pixels from screen edge
	OffsetY  int         `toml:"offset_y" yaml:"offset_y"` // Pixels from screen edge
	Width    int         `toml:"width" yaml:"width"`       // Popup width in pixels
	MaxRows  int         `toml:"max_rows" yaml:"max_rows"` // Rows shown before older ones scroll away
	Monitor  int         `toml:"monitor" yaml:"monitor"`   // 0 = default, 1+ = specific monitor
	Font     string      `toml:"font" yaml:"font"`         // Pango font description
	Colors   ColorConfig `toml:"colors" yaml:"colors"`
}

// ColorConfig contains the background colours.
type ColorConfig struct {
	Normal string `toml:"normal" yaml:"normal"` // Background without errors
	Error  string `toml:"error" yaml:"error"`   // Background while an error is shown
}

// DBusConfig contains notification server settings.
type DBusConfig struct {
	Enabled   bool    `toml:"enabled" yaml:"enabled"`
	RateLimit float64 `toml:"rate_limit" yaml:"rate_limit"` // Accepted Notify calls per second, 0 = unlimited
	Burst     int     `toml:"burst" yaml:"burst"`
}

// AudioConfig contains audio settings.
type AudioConfig struct {
	Enabled    bool   `toml:"enabled" yaml:"enabled"`
	Volume     int    `toml:"volume" yaml:"volume"`           // 0-100
	ErrorSound string `toml:"error_sound" yaml:"error_sound"` // Played when an error message arrives
}

// MetricsConfig contains the Prometheus endpoint settings.
type MetricsConfig struct {
	Addr string `toml:"addr" yaml:"addr"` // e.g. "127.0.0.1:9464", empty = disabled
}

// Position represents a popup position on screen.
type Position string

const (
	PositionTopLeft      Position = "top-left"
	PositionTopRight     Position = "top-right"
	PositionTopCenter    Position = "top-center"
	PositionBottomLeft   Position = "bottom-left"
	PositionBottomRight  Position = "bottom-right"
	PositionBottomCenter Position = "bottom-center"
)

// ValidPositions returns all valid position values.
func ValidPositions() []Position {
	return []Position{
		PositionTopLeft,
		PositionTopRight,
		PositionTopCenter,
		PositionBottomLeft,
		PositionBottomRight,
		PositionBottomCenter,
	}
}

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Popup: PopupConfig{
			PollInterval: Duration(DefaultPollInterval),
			TTL:          Duration(DefaultTTL),
			FadeOut:      Duration(DefaultFadeOut),
			DismissFade:  Duration(DefaultDismissFade),
			QueueSize:    DefaultQueueSize,
		},
		Display: DisplayConfig{
			Position: string(PositionBottomRight),
			OffsetX:  10,
			OffsetY:  10,
			Width:    400,
			MaxRows:  10,
			Font:     DefaultFont,
			Colors: ColorConfig{
				Normal: DefaultNormalColor,
				Error:  DefaultErrorColor,
			},
		},
		DBus: DBusConfig{
			Enabled:   true,
			RateLimit: 20,
			Burst:     40,
		},
		Audio: AudioConfig{
			Enabled: false,
			Volume:  80,
		},
	}
}

// Path returns the path to the config file.
func Path() string {
	return filepath.Join(xdg.ConfigHome, AppName, AppName+".toml")
}

// Load loads the configuration from path, or from Path when path is empty.
// If the file doesn't exist, returns the default configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to path, or to Path when path is empty.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = xdg.ConfigFile(filepath.Join(AppName, AppName+".toml"))
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	durations := []struct {
		name string
		d    Duration
	}{
		{"poll_interval", c.Popup.PollInterval},
		{"ttl", c.Popup.TTL},
		{"fade_out", c.Popup.FadeOut},
		{"dismiss_fade", c.Popup.DismissFade},
	}
	for _, d := range durations {
		if d.d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", d.name, d.d.Duration())
		}
	}
	if c.Popup.PollInterval == 0 {
		return errors.New("poll_interval must be greater than zero")
	}
	if c.Popup.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1, got %d", c.Popup.QueueSize)
	}

	validPos := false
	for _, p := range ValidPositions() {
		if c.Display.Position == string(p) {
			validPos = true
			break
		}
	}
	if !validPos {
		return fmt.Errorf("invalid position %q, must be one of: %v", c.Display.Position, ValidPositions())
	}
	if c.Display.OffsetX < 0 || c.Display.OffsetY < 0 {
		return fmt.Errorf("offsets must not be negative, got %d,%d", c.Display.OffsetX, c.Display.OffsetY)
	}
	if c.Display.Width < 100 || c.Display.Width > 2000 {
		return fmt.Errorf("width must be between 100 and 2000, got %d", c.Display.Width)
	}
	if c.Display.MaxRows < 1 {
		return fmt.Errorf("max_rows must be at least 1, got %d", c.Display.MaxRows)
	}

	if _, err := colorful.Hex(c.Display.Colors.Normal); err != nil {
		return fmt.Errorf("invalid normal colour %q: %w", c.Display.Colors.Normal, err)
	}
	if _, err := colorful.Hex(c.Display.Colors.Error); err != nil {
		return fmt.Errorf("invalid error colour %q: %w", c.Display.Colors.Error, err)
	}

	if c.DBus.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative, got %v", c.DBus.RateLimit)
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}

	return nil
}

// Background returns the normalized background colour for the popup.
func (c ColorConfig) Background(hasError bool) string {
	hex := c.Normal
	if hasError {
		hex = c.Error
	}
	col, err := colorful.Hex(hex)
	if err != nil {
		return hex
	}
	return col.Hex()
}

// ErrorSoundPath returns the error sound path with ~ expanded.
func (c AudioConfig) ErrorSoundPath() string {
	return expandPath(c.ErrorSound)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
