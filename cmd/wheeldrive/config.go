package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the wheeldrive daemon.
//
// Keep defaults and validation centralized so the rest of the code can assume
// a well-formed config. The file is the primary configuration surface; flags
// only override a handful of fields.
type Config struct {
	Hardware HardwareConfig `yaml:"hardware"`
	Timing   TimingConfig   `yaml:"timing"`
	Filter   FilterConfig   `yaml:"filter"`
	Display  DisplayConfig  `yaml:"display"`
	Storage  StorageConfig  `yaml:"storage"`
	IPC      IPCConfig      `yaml:"ipc"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Hardware backends.
const (
	backendPeriph = "periph"
	backendSim    = "sim"
)

type HardwareConfig struct {
	Backend string `yaml:"backend"` // "periph" or "sim"

	PWMPin             string `yaml:"pwm_pin"`
	DirPin             string `yaml:"dir_pin"`
	ButtonPin          string `yaml:"button_pin"`
	ButtonActiveLow    bool   `yaml:"button_active_low"`
	PWMFrequencyHz     int    `yaml:"pwm_frequency_hz"`
	DutyResolutionBits int    `yaml:"duty_resolution_bits"`

	I2CBus string `yaml:"i2c_bus"`

	// Evdev devices created by the rotary-encoder overlay.
	WheelDevice string `yaml:"wheel_device"`
	MenuDevice  string `yaml:"menu_device"`
}

type TimingConfig struct {
	SampleIntervalMS  int `yaml:"sample_interval_ms"`
	PollIntervalMS    int `yaml:"poll_interval_ms"`
	DisplayIntervalMS int `yaml:"display_interval_ms"`
	DebounceMS        int `yaml:"debounce_ms"`
	LongPressMS       int `yaml:"long_press_ms"`
	TestHoldMS        int `yaml:"test_hold_ms"`
	StatusMS          int `yaml:"status_ms"`
}

type FilterConfig struct {
	Window    int     `yaml:"window"`
	Threshold float64 `yaml:"threshold"`
	Min       int     `yaml:"min"`
	Max       int     `yaml:"max"`
}

type DisplayConfig struct {
	OLED     bool `yaml:"oled"`
	Width    int  `yaml:"width"`
	Height   int  `yaml:"height"`
	PNGScale int  `yaml:"png_scale"`
}

// Storage backends.
const (
	storageFile   = "file"
	storageEEPROM = "eeprom"
	storageMemory = "memory"
)

type StorageConfig struct {
	Backend        string `yaml:"backend"` // "file", "eeprom" or "memory"
	Path           string `yaml:"path"`
	EEPROMAddr     int    `yaml:"eeprom_addr"`
	EEPROMPageSize int    `yaml:"eeprom_page_size"`
}

type IPCConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SocketPath string `yaml:"socket_path"`
}

type HTTPConfig struct {
	Port int `yaml:"port"` // 0 disables the server
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go.
func DefaultConfig() Config {
	return Config{
		Hardware: HardwareConfig{
			Backend:            backendPeriph,
			PWMPin:             "GPIO18",
			DirPin:             "GPIO23",
			ButtonPin:          "GPIO24",
			ButtonActiveLow:    true,
			PWMFrequencyHz:     defaultPWMFrequencyHz,
			DutyResolutionBits: defaultDutyResolutionBits,
			I2CBus:             "1",
			WheelDevice:        "/dev/input/by-path/platform-rotary@11-event",
			MenuDevice:         "/dev/input/by-path/platform-rotary@1b-event",
		},
		Timing: TimingConfig{
			SampleIntervalMS:  defaultSampleIntervalMS,
			PollIntervalMS:    defaultPollIntervalMS,
			DisplayIntervalMS: defaultDisplayIntervalMS,
			DebounceMS:        int(defaultDebounceInterval / time.Millisecond),
			LongPressMS:       int(defaultLongPressInterval / time.Millisecond),
			TestHoldMS:        defaultTestHoldMS,
			StatusMS:          defaultStatusMS,
		},
		Filter: FilterConfig{
			Window:    defaultFilterWindow,
			Threshold: defaultFilterThreshold,
			Min:       defaultFilterMin,
			Max:       defaultFilterMax,
		},
		Display: DisplayConfig{
			OLED:     true,
			Width:    128,
			Height:   32,
			PNGScale: 4,
		},
		Storage: StorageConfig{
			Backend:        storageFile,
			Path:           "/var/lib/wheeldrive/settings.eeprom",
			EEPROMAddr:     defaultEEPROMAddr,
			EEPROMPageSize: defaultEEPROMPageSize,
		},
		IPC: IPCConfig{
			Enabled:    true,
			SocketPath: "/tmp/wheeldrive.sock",
		},
		HTTP: HTTPConfig{
			Port: 3002,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of the defaults.
//
// Notes:
//   - The file must be valid YAML.
//   - Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides carries flag values to apply on top of the loaded config.
// Each override is only applied if its pointer is non-nil.
type FlagOverrides struct {
	Backend        *string
	StorageBackend *string
	StoragePath    *string
	IPCSocketPath  *string
	HTTPPort       *int
	LogLevel       *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.Backend != nil {
		cfg.Hardware.Backend = *o.Backend
		// The sim backend has no I2C bus to put a panel on.
		if cfg.Hardware.Backend == backendSim {
			cfg.Display.OLED = false
		}
	}
	if o.StorageBackend != nil {
		cfg.Storage.Backend = *o.StorageBackend
	}
	if o.StoragePath != nil {
		cfg.Storage.Path = *o.StoragePath
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.HTTPPort != nil {
		cfg.HTTP.Port = *o.HTTPPort
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// It is called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Hardware
	switch c.Hardware.Backend {
	case backendPeriph:
		if c.Hardware.PWMPin == "" || c.Hardware.DirPin == "" || c.Hardware.ButtonPin == "" {
			return errors.New("hardware.pwm_pin, hardware.dir_pin and hardware.button_pin must be set")
		}
		if c.Hardware.WheelDevice == "" || c.Hardware.MenuDevice == "" {
			return errors.New("hardware.wheel_device and hardware.menu_device must be set")
		}
	case backendSim:
	default:
		return fmt.Errorf("hardware.backend must be %q or %q", backendPeriph, backendSim)
	}
	if c.Hardware.PWMFrequencyHz <= 0 {
		return errors.New("hardware.pwm_frequency_hz must be > 0")
	}
	if c.Hardware.DutyResolutionBits < 1 || c.Hardware.DutyResolutionBits > 16 {
		return errors.New("hardware.duty_resolution_bits must be between 1 and 16")
	}

	// Timing
	t := c.Timing
	if t.SampleIntervalMS <= 0 || t.PollIntervalMS <= 0 || t.DisplayIntervalMS <= 0 {
		return errors.New("timing intervals must be > 0")
	}
	if t.DebounceMS < 0 {
		return errors.New("timing.debounce_ms must be >= 0")
	}
	if t.LongPressMS <= t.DebounceMS {
		return errors.New("timing.long_press_ms must be > timing.debounce_ms")
	}
	if t.TestHoldMS < 0 || t.StatusMS < 0 {
		return errors.New("timing.test_hold_ms and timing.status_ms must be >= 0")
	}

	// Filter
	if c.Filter.Window < 1 {
		return errors.New("filter.window must be >= 1")
	}
	if c.Filter.Threshold <= 0 {
		return errors.New("filter.threshold must be > 0")
	}
	if c.Filter.Min > c.Filter.Max {
		return errors.New("filter.min must be <= filter.max")
	}

	// Display
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return errors.New("display.width and display.height must be > 0")
	}
	if c.Display.OLED && c.Hardware.Backend == backendSim {
		return errors.New("display.oled requires hardware.backend periph")
	}

	// Storage
	switch c.Storage.Backend {
	case storageFile:
		if c.Storage.Path == "" {
			return errors.New("storage.path must not be empty for the file backend")
		}
	case storageEEPROM:
		if c.Hardware.Backend == backendSim {
			return errors.New("storage.backend eeprom requires hardware.backend periph")
		}
		if c.Storage.EEPROMAddr <= 0 || c.Storage.EEPROMAddr > 0x7F {
			return errors.New("storage.eeprom_addr must be a 7-bit I2C address")
		}
	case storageMemory:
	default:
		return fmt.Errorf("storage.backend must be %q, %q or %q", storageFile, storageEEPROM, storageMemory)
	}

	// IPC
	if c.IPC.Enabled && c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty when ipc.enabled")
	}

	// HTTP
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return errors.New("http.port must be between 0 and 65535")
	}

	// Logging
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// DutyMax is the full-scale duty for the configured resolution.
func (c *Config) DutyMax() int {
	return 1<<c.Hardware.DutyResolutionBits - 1
}

// ReducerConfig converts the file config into the reducer's static config.
func (c *Config) ReducerConfig() ReducerConfig {
	return ReducerConfig{
		DutyMax: c.DutyMax(),
		Button: ButtonTiming{
			Debounce:  msDuration(c.Timing.DebounceMS),
			LongPress: msDuration(c.Timing.LongPressMS),
		},
		Menu: MenuTiming{
			TestHold: msDuration(c.Timing.TestHoldMS),
			Status:   msDuration(c.Timing.StatusMS),
		},
	}
}

// Intervals converts the tick cadences.
func (c *Config) Intervals() DaemonIntervals {
	return DaemonIntervals{
		Sample:  msDuration(c.Timing.SampleIntervalMS),
		Poll:    msDuration(c.Timing.PollIntervalMS),
		Display: msDuration(c.Timing.DisplayIntervalMS),
	}
}

// NewFilter builds the smoothing filter from config.
func (c *Config) NewFilter() speedFilter {
	return newSpeedFilter(c.Filter.Window, c.Filter.Threshold, c.Filter.Min, c.Filter.Max)
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
