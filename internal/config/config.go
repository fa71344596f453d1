package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// RSSI to distance estimation
	TxPower = -59.0 // Reference power at 1 unit of distance (dBm)

	// Tracking defaults
	DefaultSmoothingAlpha = 0.3  // EMA smoothing factor (30% new, 70% old)
	DefaultMaxDistance    = 10.0 // Distance mapped to 0%

	// Device management
	DefaultLostAfter     = 30 * time.Second // Report a device lost after this much silence
	DefaultSweepInterval = 5 * time.Second  // How often to check for lost devices
	DefaultConnPoll      = 5 * time.Second  // hcitool con polling interval

	// Presentation
	DefaultListRefresh = 3 * time.Second
	TargetFPS          = 10

	// History
	HistoryLimit = 500

	// Demo mode
	DemoDeviceMin = 6
	DemoDeviceMax = 10

	// App
	AppName    = "BLE-FINDER"
	AppVersion = "1.0"
)

// ErrInvalidConfig is returned by Validate for out-of-range settings.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds runtime settings. Zero values are replaced by defaults in Load.
type Config struct {
	Scan     ScanConfig     `yaml:"scan"`
	Tracking TrackingConfig `yaml:"tracking"`
	UI       UIConfig       `yaml:"ui"`
	History  HistoryConfig  `yaml:"history"`
	Log      LogConfig      `yaml:"log"`
}

// ScanConfig controls the radio scan providers.
type ScanConfig struct {
	Adapter        string        `yaml:"adapter"`
	Demo           bool          `yaml:"demo"`
	IncludeUnnamed bool          `yaml:"include_unnamed"`
	LostAfter      time.Duration `yaml:"lost_after"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	ConnPoll       time.Duration `yaml:"conn_poll"`
	ResolveNames   bool          `yaml:"resolve_names"`
}

// TrackingConfig controls distance smoothing and percentage mapping.
type TrackingConfig struct {
	SmoothingAlpha float64 `yaml:"smoothing_alpha"`
	MaxDistance    float64 `yaml:"max_distance"`
}

// UIConfig controls presentation-side throttling.
type UIConfig struct {
	ListRefresh time.Duration `yaml:"list_refresh"`
}

// HistoryConfig points at the history database.
type HistoryConfig struct {
	DBPath string `yaml:"db_path"`
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		Scan: ScanConfig{
			Adapter:       "hci0",
			LostAfter:     DefaultLostAfter,
			SweepInterval: DefaultSweepInterval,
			ConnPoll:      DefaultConnPoll,
			ResolveNames:  true,
		},
		Tracking: TrackingConfig{
			SmoothingAlpha: DefaultSmoothingAlpha,
			MaxDistance:    DefaultMaxDistance,
		},
		UI: UIConfig{
			ListRefresh: DefaultListRefresh,
		},
		History: HistoryConfig{
			DBPath: defaultDBPath(),
		},
		Log: LogConfig{
			Level: "info",
			File:  defaultLogPath(),
		},
	}
}

// Load reads the YAML file at path on top of the defaults. An empty path
// yields the defaults. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges that the core relies on.
func (c Config) Validate() error {
	if c.Tracking.SmoothingAlpha <= 0 || c.Tracking.SmoothingAlpha > 1 {
		return fmt.Errorf("%w: smoothing_alpha %.3f not in (0,1]", ErrInvalidConfig, c.Tracking.SmoothingAlpha)
	}
	if c.Tracking.MaxDistance <= 0 {
		return fmt.Errorf("%w: max_distance must be positive", ErrInvalidConfig)
	}
	if c.Scan.LostAfter <= 0 {
		return fmt.Errorf("%w: lost_after must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BLE_FINDER_ADAPTER"); v != "" {
		c.Scan.Adapter = v
	}
	if v := os.Getenv("BLE_FINDER_DB"); v != "" {
		c.History.DBPath = v
	}
	if v := os.Getenv("BLE_FINDER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("BLE_FINDER_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("BLE_FINDER_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			c.Tracking.SmoothingAlpha = f
		}
	}
	if v := os.Getenv("BLE_FINDER_MAX_DISTANCE"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			c.Tracking.MaxDistance = f
		}
	}
}

// fillDefaults restores defaults for durations a YAML file left at zero.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Scan.Adapter == "" {
		c.Scan.Adapter = def.Scan.Adapter
	}
	if c.Scan.LostAfter == 0 {
		c.Scan.LostAfter = def.Scan.LostAfter
	}
	if c.Scan.SweepInterval <= 0 {
		c.Scan.SweepInterval = def.Scan.SweepInterval
	}
	if c.Scan.ConnPoll <= 0 {
		c.Scan.ConnPoll = def.Scan.ConnPoll
	}
	if c.UI.ListRefresh <= 0 {
		c.UI.ListRefresh = def.UI.ListRefresh
	}
	if c.History.DBPath == "" {
		c.History.DBPath = def.History.DBPath
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}
