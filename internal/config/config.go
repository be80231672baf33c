// Package config defines the mudra runtime configuration and how it is
// loaded.
package config

import (
	"fmt"
	"path/filepath"
)

// Locator names accepted by Config.Locator.
const (
	LocatorMediaPipe = "mediapipe"
	LocatorFull      = "full"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`
	// LogFile, when set, receives logs through a rotating writer instead of
	// stderr.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`
	// StaticDir serves the web UI when not empty.
	StaticDir string `koanf:"static_dir"`
	// DataDir holds the sqlite database.
	DataDir string `koanf:"data_dir"`

	// Source is a camera index ("0") or a video file path.
	Source string `koanf:"source"`
	// FPS caps how often the capture loop reads the source.
	FPS int `koanf:"fps"`
	// Locator selects the hand locator: mediapipe or full.
	Locator string `koanf:"locator"`

	QueueSize      int `koanf:"queue_size"`
	WindowSize     int `koanf:"window_size"`
	SmootherSize   int `koanf:"smoother_size"`
	CooldownFrames int `koanf:"cooldown_frames"`

	MotionPixelThreshold float64 `koanf:"motion_pixel_threshold"`
	MotionRatioThreshold float64 `koanf:"motion_ratio_threshold"`
	MotionBlurSize       int     `koanf:"motion_blur_size"`

	StaticUnsureThreshold   float64 `koanf:"static_unsure_threshold"`
	StaticPublishThreshold  float64 `koanf:"static_publish_threshold"`
	DynamicPublishThreshold float64 `koanf:"dynamic_publish_threshold"`

	// ResetWindowOnDynamic clears the frame window after every published
	// dynamic sign.
	ResetWindowOnDynamic bool `koanf:"reset_window_on_dynamic"`

	// Tray shows the system tray icon.
	Tray bool `koanf:"tray"`
	// HistorySize bounds the stored prediction history; 0 keeps everything.
	HistorySize int `koanf:"history_size"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":8080",
		DataDir:   "data",
		Source:    "0",
		FPS:       15,
		Locator:   LocatorMediaPipe,

		QueueSize:      10,
		WindowSize:     30,
		SmootherSize:   5,
		CooldownFrames: 10,

		MotionPixelThreshold: 25,
		MotionRatioThreshold: 0.02,

		StaticUnsureThreshold:   0.5,
		StaticPublishThreshold:  0.7,
		DynamicPublishThreshold: 0.6,

		ResetWindowOnDynamic: true,
		HistorySize:          1000,
	}
}

// DBPath returns the sqlite database location inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "mudra.db")
}

// Validate reports the first setting that cannot run.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.Source == "" {
		return fmt.Errorf("%w: source must not be empty", ErrInvalidConfig)
	}

	positive := []struct {
		name  string
		value int
	}{
		{"fps", c.FPS},
		{"queue_size", c.QueueSize},
		{"window_size", c.WindowSize},
		{"smoother_size", c.SmootherSize},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, p.name, p.value)
		}
	}
	if c.CooldownFrames < 0 {
		return fmt.Errorf("%w: cooldown_frames must not be negative", ErrInvalidConfig)
	}
	if c.MotionBlurSize < 0 {
		return fmt.Errorf("%w: motion_blur_size must not be negative", ErrInvalidConfig)
	}
	if c.HistorySize < 0 {
		return fmt.Errorf("%w: history_size must not be negative", ErrInvalidConfig)
	}
	if c.MotionPixelThreshold <= 0 || c.MotionPixelThreshold > 255 {
		return fmt.Errorf("%w: motion_pixel_threshold must be in (0, 255]", ErrInvalidConfig)
	}

	unit := []struct {
		name  string
		value float64
	}{
		{"motion_ratio_threshold", c.MotionRatioThreshold},
		{"static_unsure_threshold", c.StaticUnsureThreshold},
		{"static_publish_threshold", c.StaticPublishThreshold},
		{"dynamic_publish_threshold", c.DynamicPublishThreshold},
	}
	for _, u := range unit {
		if u.value < 0 || u.value > 1 {
			return fmt.Errorf("%w: %s must be in [0, 1], got %g", ErrInvalidConfig, u.name, u.value)
		}
	}
	if c.StaticUnsureThreshold > c.StaticPublishThreshold {
		return fmt.Errorf("%w: static_unsure_threshold exceeds static_publish_threshold", ErrInvalidConfig)
	}

	switch c.Locator {
	case LocatorMediaPipe, LocatorFull:
	default:
		return fmt.Errorf("%w: unknown locator %q", ErrInvalidConfig, c.Locator)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}

	return nil
}
