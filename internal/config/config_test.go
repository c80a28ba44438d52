package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timing.RotateEvery.Duration != 60*time.Second {
		t.Errorf("rotate = %v", cfg.Timing.RotateEvery)
	}
	if cfg.Button.DoubleWindow.Duration != 1200*time.Millisecond {
		t.Errorf("double window = %v", cfg.Button.DoubleWindow)
	}
	if cfg.Layout.Width != 800 || cfg.Layout.Height != 480 {
		t.Errorf("layout = %dx%d", cfg.Layout.Width, cfg.Layout.Height)
	}
}

func TestSaveLoadRoundTripWithOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg := Default()
	cfg.Panel.Driver = "png"
	cfg.Timing.RotateEvery = D(90 * time.Second)
	cfg.Button.Debounce = D(50 * time.Millisecond)
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Panel.Driver != "png" || got.Timing.RotateEvery.Duration != 90*time.Second {
		t.Errorf("got panel=%q rotate=%v", got.Panel.Driver, got.Timing.RotateEvery)
	}
	if got.Button.Debounce.Duration != 50*time.Millisecond {
		t.Errorf("debounce = %v", got.Button.Debounce)
	}
}

func TestDurationAcceptsSeconds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	if err := os.WriteFile(path, []byte(`{"timing":{"rotate_every":30,"weather_flip_every":"5s"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timing.RotateEvery.Duration != 30*time.Second || cfg.Timing.WeatherFlipEvery.Duration != 5*time.Second {
		t.Errorf("timing = %+v", cfg.Timing)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("INKHAT_PANEL", "png")
	t.Setenv("INKHAT_ROTATE_EVERY", "2m")
	t.Setenv("INKHAT_WIFI_DISABLED", "true")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Panel.Driver != "png" || cfg.Timing.RotateEvery.Duration != 2*time.Minute || !cfg.WiFi.Disabled {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"ok", func(*Config) {}, ""},
		{"driver", func(c *Config) { c.Panel.Driver = "lcd" }, "panel.driver"},
		{"button", func(c *Config) { c.Button.Kind = "knob" }, "button.kind"},
		{"prefs", func(c *Config) { c.Prefs.Driver = "mysql" }, "prefs.driver"},
		{"timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "timezone"},
		{"rotate", func(c *Config) { c.Timing.RotateEvery = D(0) }, "timing.rotate_every"},
		{"fetch timeout", func(c *Config) { c.Timing.FetchTimeout = D(0) }, "timing.fetch_timeout"},
		{"ap pass", func(c *Config) { c.WiFi.APPass = "short" }, "wifi.ap_pass"},
		{"attempts", func(c *Config) { c.WiFi.Attempts = 0 }, "wifi.attempts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("err = %v, want field %s", err, tt.field)
			}
		})
	}
}
