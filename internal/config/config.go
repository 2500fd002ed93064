package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full load/save
// behavior, including first-run config creation and 0600 permissions.
// Paths ending in ".toml" are read and written as TOML, everything else as
// YAML.

// ICSConfig describes a single ICS subscription source whose events are
// imported as timeline items.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url" toml:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id" toml:"id"`
	// Name is a human-friendly label shown in logs.
	Name string `yaml:"name" json:"name" toml:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username" toml:"username"`
	Password string `yaml:"password" json:"password" toml:"password"`
}

// LayoutConfig holds the fixed geometry constants of the timeline.
type LayoutConfig struct {
	ColumnWidth    int `yaml:"column_width" json:"column_width" toml:"column_width"`
	LaneHeight     int `yaml:"lane_height" json:"lane_height" toml:"lane_height"`
	LaneGap        int `yaml:"lane_gap" json:"lane_gap" toml:"lane_gap"`
	TopPadding     int `yaml:"top_padding" json:"top_padding" toml:"top_padding"`
	BottomPadding  int `yaml:"bottom_padding" json:"bottom_padding" toml:"bottom_padding"`
	MajorTickEvery int `yaml:"major_tick_every" json:"major_tick_every" toml:"major_tick_every"`
	AxisHeight     int `yaml:"axis_height" json:"axis_height" toml:"axis_height"`

	// EmptyStart / EmptyEnd (YYYY-MM-DD) bound the placeholder window used
	// when there are no items.
	EmptyStart string `yaml:"empty_start" json:"empty_start" toml:"empty_start"`
	EmptyEnd   string `yaml:"empty_end" json:"empty_end" toml:"empty_end"`
}

// CaptureConfig controls headless-browser PNG previews.
type CaptureConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled" toml:"enabled"`
	OutputPath string `yaml:"output" json:"output" toml:"output"`
	TimeoutSec int    `yaml:"timeout_sec" json:"timeout_sec" toml:"timeout_sec"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen" toml:"listen"`

	// ItemsFile is a YAML or JSON file holding the initial item collection.
	ItemsFile string `yaml:"items_file" json:"items_file" toml:"items_file"`

	// Watch reloads ItemsFile whenever it changes on disk.
	Watch bool `yaml:"watch" json:"watch" toml:"watch"`

	// Timezone is the IANA timezone used to cut ICS events into days.
	Timezone string `yaml:"timezone" json:"timezone" toml:"timezone"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic ICS refresh.
	RefreshCron string `yaml:"refresh" json:"refresh" toml:"refresh"`

	// ICSBackfillDays / ICSHorizonDays bound the window of imported
	// occurrences around "now".
	ICSBackfillDays int `yaml:"ics_backfill_days" json:"ics_backfill_days" toml:"ics_backfill_days"`
	ICSHorizonDays  int `yaml:"ics_horizon_days" json:"ics_horizon_days" toml:"ics_horizon_days"`

	// ICSCacheDir stores ETag/Last-Modified metadata and bodies per feed.
	ICSCacheDir string `yaml:"ics_cache_dir" json:"ics_cache_dir" toml:"ics_cache_dir"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics" toml:"ics"`

	Layout  LayoutConfig  `yaml:"layout" json:"layout" toml:"layout"`
	Capture CaptureConfig `yaml:"capture" json:"capture" toml:"capture"`

	// LogLevel is one of "debug", "info", "error".
	LogLevel string `yaml:"log_level" json:"log_level" toml:"log_level"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty" toml:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8080",
		ItemsFile:       "items.yaml",
		Watch:           true,
		Timezone:        "UTC",
		RefreshCron:     "*/15 * * * *",
		ICSBackfillDays: 30,
		ICSHorizonDays:  90,
		ICSCacheDir:     "./cache/ics-cache",
		ICS:             []ICSConfig{},
		Layout:          defaultLayout(),
		Capture: CaptureConfig{
			Enabled:    false,
			OutputPath: "./cache/preview.png",
			TimeoutSec: 30,
		},
		LogLevel:  "info",
		BasicAuth: nil,
	}
}

func defaultLayout() LayoutConfig {
	return LayoutConfig{
		ColumnWidth:    60,
		LaneHeight:     36,
		LaneGap:        6,
		TopPadding:     8,
		BottomPadding:  8,
		MajorTickEvery: 7,
		AxisHeight:     40,
		EmptyStart:     "2021-01-01",
		EmptyEnd:       "2021-12-31",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = d.RefreshCron
	}
	if c.ICSBackfillDays < 0 {
		c.ICSBackfillDays = 0
	}
	if c.ICSHorizonDays <= 0 {
		c.ICSHorizonDays = d.ICSHorizonDays
	}
	if c.ICSCacheDir == "" {
		c.ICSCacheDir = d.ICSCacheDir
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}

	l := &c.Layout
	dl := d.Layout
	if l.ColumnWidth <= 0 {
		l.ColumnWidth = dl.ColumnWidth
	}
	if l.LaneHeight <= 0 {
		l.LaneHeight = dl.LaneHeight
	}
	// Gap and paddings may legitimately be zero.
	if l.LaneGap < 0 {
		l.LaneGap = dl.LaneGap
	}
	if l.TopPadding < 0 {
		l.TopPadding = dl.TopPadding
	}
	if l.BottomPadding < 0 {
		l.BottomPadding = dl.BottomPadding
	}
	if l.MajorTickEvery <= 0 {
		l.MajorTickEvery = dl.MajorTickEvery
	}
	if l.AxisHeight <= 0 {
		l.AxisHeight = dl.AxisHeight
	}
	if l.EmptyStart == "" || l.EmptyEnd == "" {
		l.EmptyStart = dl.EmptyStart
		l.EmptyEnd = dl.EmptyEnd
	}

	if c.Capture.OutputPath == "" {
		c.Capture.OutputPath = d.Capture.OutputPath
	}
	if c.Capture.TimeoutSec <= 0 {
		c.Capture.TimeoutSec = d.Capture.TimeoutSec
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = d.LogLevel
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load loads configuration from the given path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - decode YAML (or TOML) into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	return decode(path, data)
}

// Read is Load without the first-run side effect: a missing file yields
// DefaultConfig and nothing is written.
func Read(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	return decode(path, data)
}

func decode(path string, data []byte) (*Config, error) {
	var cfg Config
	if isTOML(path) {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, err
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	cfg.Normalize()

	return &cfg, nil
}

func marshal(path string, cfg *Config) ([]byte, error) {
	if !isTOML(path) {
		return yaml.Marshal(cfg)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML or TOML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := marshal(path, cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".ganttline-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
