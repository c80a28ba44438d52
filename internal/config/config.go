package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"inkhat/internal/render"
)

// Duration is a time.Duration that reads and writes JSON as "60s" style strings.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		d.Duration = time.Duration(val) * time.Second
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}

// D is shorthand for building a Duration.
func D(v time.Duration) Duration { return Duration{v} }

type PanelConfig struct {
	Driver  string `json:"driver"` // uc8179, waveshare2in13v4, png
	SPIPort string `json:"spi_port"`
	SpeedHz int64  `json:"speed_hz"`
	DCPin   string `json:"dc_pin"`
	RSTPin  string `json:"rst_pin"`
	BusyPin string `json:"busy_pin"`
	PNGPath string `json:"png_path"`
	// SleepBetween puts the panel into deep sleep after each update.
	SleepBetween bool `json:"sleep_between"`
}

type ButtonConfig struct {
	Kind         string   `json:"kind"` // gpio or touch
	Pin          string   `json:"pin"`
	I2CBus       string   `json:"i2c_bus"`
	Debounce     Duration `json:"debounce"`
	DoubleWindow Duration `json:"double_window"`
}

type TimingConfig struct {
	RotateEvery      Duration `json:"rotate_every"`
	WeatherFlipEvery Duration `json:"weather_flip_every"`
	PollInterval     Duration `json:"poll_interval"`
	ResumeAfter      Duration `json:"resume_after"`
	FetchTimeout     Duration `json:"fetch_timeout"`
	MaxPartials      int      `json:"max_partials"`
	FullRefreshEvery Duration `json:"full_refresh_every"`
	SplashHold       Duration `json:"splash_hold"`
}

type WiFiConfig struct {
	Interface      string   `json:"interface"`
	APSSID         string   `json:"ap_ssid"`
	APPass         string   `json:"ap_pass"`
	Attempts       int      `json:"attempts"`
	AttemptTimeout Duration `json:"attempt_timeout"`
	// Disabled skips provisioning entirely (the host manages its own network).
	Disabled bool `json:"disabled"`
}

type PrefsConfig struct {
	Driver string `json:"driver"` // sqlite or postgres
	DSN    string `json:"dsn"`
}

// Config is the full device configuration.
type Config struct {
	TransitURL string        `json:"transit_url"`
	WeatherURL string        `json:"weather_url"`
	Timezone   string        `json:"timezone"`
	Latitude   float64       `json:"latitude"`
	Longitude  float64       `json:"longitude"`
	Text       render.Text   `json:"text"`
	Panel      PanelConfig   `json:"panel"`
	Button     ButtonConfig  `json:"button"`
	Timing     TimingConfig  `json:"timing"`
	Layout     render.Layout `json:"layout"`
	WiFi       WiFiConfig    `json:"wifi"`
	Prefs      PrefsConfig   `json:"prefs"`
	PortalAddr string        `json:"portal_addr"`
	StatusAddr string        `json:"status_addr"`
	Console    string        `json:"console"` // "stdin", a tty path, or "" for none
	LogLevel   string        `json:"log_level"`
}

// Default returns the stock configuration for the 7.5" panel.
func Default() *Config {
	return &Config{
		TransitURL: "http://127.0.0.1:8787/mta",
		WeatherURL: "http://127.0.0.1:8787/weather",
		Timezone:   "America/New_York",
		Latitude:   40.7506,
		Longitude:  -73.9935,
		Text:       render.DefaultText(),
		Panel: PanelConfig{
			Driver:  "uc8179",
			SpeedHz: 4_000_000,
			DCPin:   "GPIO25",
			RSTPin:  "GPIO17",
			BusyPin: "GPIO24",
			PNGPath: "/tmp/inkhat.png",
		},
		Button: ButtonConfig{
			Kind:         "gpio",
			Pin:          "GPIO27",
			I2CBus:       "1",
			Debounce:     D(300 * time.Millisecond),
			DoubleWindow: D(1200 * time.Millisecond),
		},
		Timing: TimingConfig{
			RotateEvery:      D(60 * time.Second),
			WeatherFlipEvery: D(20 * time.Second),
			PollInterval:     D(50 * time.Millisecond),
			FetchTimeout:     D(10 * time.Second),
			MaxPartials:      6,
			FullRefreshEvery: D(24 * time.Hour),
			SplashHold:       D(time.Second),
		},
		Layout: render.DefaultLayout(),
		WiFi: WiFiConfig{
			Interface:      "wlan0",
			APSSID:         "ESP32-SETUP",
			APPass:         "pitchfest",
			Attempts:       2,
			AttemptTimeout: D(8 * time.Second),
		},
		Prefs: PrefsConfig{
			Driver: "sqlite",
			DSN:    "/var/lib/inkhat/prefs.db",
		},
		PortalAddr: ":80",
		StatusAddr: ":9100",
		Console:    "stdin",
		LogLevel:   "info",
	}
}

// Load builds the configuration: defaults, then the JSON file at path (if it
// exists), then a .env file, then INKHAT_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(b, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.TransitURL = getEnv("INKHAT_TRANSIT_URL", c.TransitURL)
	c.WeatherURL = getEnv("INKHAT_WEATHER_URL", c.WeatherURL)
	c.Timezone = getEnv("INKHAT_TIMEZONE", c.Timezone)
	c.Panel.Driver = getEnv("INKHAT_PANEL", c.Panel.Driver)
	c.Panel.PNGPath = getEnv("INKHAT_PNG_PATH", c.Panel.PNGPath)
	c.Button.Kind = getEnv("INKHAT_BUTTON", c.Button.Kind)
	c.Prefs.Driver = getEnv("INKHAT_PREFS_DRIVER", c.Prefs.Driver)
	c.Prefs.DSN = getEnv("INKHAT_PREFS_DSN", c.Prefs.DSN)
	c.PortalAddr = getEnv("INKHAT_PORTAL_ADDR", c.PortalAddr)
	c.StatusAddr = getEnv("INKHAT_STATUS_ADDR", c.StatusAddr)
	c.Console = getEnv("INKHAT_CONSOLE", c.Console)
	c.LogLevel = getEnv("INKHAT_LOG_LEVEL", c.LogLevel)
	c.Timing.RotateEvery = D(getEnvDuration("INKHAT_ROTATE_EVERY", c.Timing.RotateEvery.Duration))
	c.Timing.WeatherFlipEvery = D(getEnvDuration("INKHAT_WEATHER_FLIP_EVERY", c.Timing.WeatherFlipEvery.Duration))
	c.Timing.MaxPartials = getEnvInt("INKHAT_MAX_PARTIALS", c.Timing.MaxPartials)
	c.WiFi.Disabled = getEnvBool("INKHAT_WIFI_DISABLED", c.WiFi.Disabled)
}

// ValidationError reports a rejected configuration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Validate rejects values the device loop cannot run with.
func (c *Config) Validate() error {
	switch c.Panel.Driver {
	case "uc8179", "waveshare2in13v4", "png":
	default:
		return &ValidationError{"panel.driver", fmt.Sprintf("unknown driver %q", c.Panel.Driver)}
	}
	switch c.Button.Kind {
	case "gpio", "touch":
	default:
		return &ValidationError{"button.kind", fmt.Sprintf("unknown kind %q", c.Button.Kind)}
	}
	switch c.Prefs.Driver {
	case "sqlite", "postgres":
	default:
		return &ValidationError{"prefs.driver", fmt.Sprintf("unknown driver %q", c.Prefs.Driver)}
	}
	if c.TransitURL == "" || c.WeatherURL == "" {
		return &ValidationError{"transit_url/weather_url", "required"}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return &ValidationError{"timezone", err.Error()}
	}
	if c.Timing.RotateEvery.Duration <= 0 {
		return &ValidationError{"timing.rotate_every", "must be positive"}
	}
	if c.Timing.WeatherFlipEvery.Duration <= 0 {
		return &ValidationError{"timing.weather_flip_every", "must be positive"}
	}
	if c.Timing.PollInterval.Duration <= 0 {
		return &ValidationError{"timing.poll_interval", "must be positive"}
	}
	if c.Timing.FetchTimeout.Duration <= 0 {
		return &ValidationError{"timing.fetch_timeout", "must be positive"}
	}
	if c.Timing.ResumeAfter.Duration < 0 {
		return &ValidationError{"timing.resume_after", "must not be negative"}
	}
	if c.Button.Debounce.Duration < 0 || c.Button.DoubleWindow.Duration <= 0 {
		return &ValidationError{"button", "debounce must be >= 0 and double_window > 0"}
	}
	if c.WiFi.Attempts < 1 {
		return &ValidationError{"wifi.attempts", "must be at least 1"}
	}
	if len(c.WiFi.APPass) < 8 {
		return &ValidationError{"wifi.ap_pass", "must be at least 8 characters"}
	}
	if c.Layout.Width <= 0 || c.Layout.Height <= 0 {
		return &ValidationError{"layout", "width and height must be positive"}
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Save writes cfg as indented JSON, creating the parent directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}
