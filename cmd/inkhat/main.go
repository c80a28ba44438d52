package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"periph.io/x/host/v3"

	"inkhat/internal/button"
	"inkhat/internal/clock"
	"inkhat/internal/config"
	"inkhat/internal/console"
	"inkhat/internal/device"
	"inkhat/internal/fetch"
	"inkhat/internal/logging"
	"inkhat/internal/metrics"
	"inkhat/internal/nav"
	"inkhat/internal/panel"
	"inkhat/internal/portal"
	"inkhat/internal/prefs"
	"inkhat/internal/render"
	"inkhat/internal/store"
	"inkhat/internal/wifi"
)

const (
	version = "1.0.0"
	// NetworkManager's shared-mode hotspot address.
	hotspotURL = "http://10.42.0.1/"
)

func main() {
	configPath := flag.String("config", "/etc/inkhat/config.json", "settings file path")
	writeConfig := flag.Bool("write-config", false, "write the effective settings to -config and exit")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *writeConfig {
		if err := config.Save(*configPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write configuration: %v\n", err)
			os.Exit(1)
		}
		return
	}

	logger := logging.NewStructuredLogger("inkhat", version, logging.ParseLevel(cfg.LogLevel))

	restart, err := run(cfg, logger)
	if err != nil {
		logger.Fatal(context.Background(), "[FATAL] device stopped", nil, err)
	}
	if restart {
		reexec(logger)
	}
}

// run drives the device until a signal arrives or a restart is requested.
// It reports whether the process should restart itself.
func run(cfg *config.Config, logger *logging.StructuredLogger) (bool, error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var restartRequested atomic.Bool
	requestRestart := func() {
		logger.Info(ctx, "[RESTART] requested", nil)
		restartRequested.Store(true)
		cancel()
	}

	if _, err := host.Init(); err != nil {
		if cfg.Panel.Driver != "png" {
			return false, fmt.Errorf("periph host init: %w", err)
		}
		logger.Warn(ctx, "[STARTUP] no GPIO host, running headless", logging.Fields{"error": err.Error()})
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCollector("inkhat", reg)

	loc := cfg.Location()
	clk := clock.System{Loc: loc}

	p, err := openPanel(cfg)
	if err != nil {
		return false, err
	}
	defer p.Close()

	st := store.New()
	rnd, err := render.New(cfg.Layout, cfg.Text, st, render.WithSunrise(func(now time.Time) (time.Time, error) {
		return clock.NextSunrise(now, cfg.Latitude, cfg.Longitude, loc)
	}))
	if err != nil {
		return false, err
	}
	ref := panel.NewRefresher(p, panel.Policy{
		MaxPartials:  cfg.Timing.MaxPartials,
		FullEvery:    cfg.Timing.FullRefreshEvery.Duration,
		SleepBetween: cfg.Panel.SleepBetween,
	}, clk.Now, logger, m)

	btn, closeButton, err := openButton(cfg)
	if err != nil {
		logger.Warn(ctx, "[STARTUP] button unavailable", logging.Fields{"kind": cfg.Button.Kind, "error": err.Error()})
		btn = idleButton{}
	} else {
		defer closeButton()
	}

	prefStore, err := prefs.Open(ctx, cfg.Prefs.Driver, cfg.Prefs.DSN)
	if err != nil {
		return false, err
	}
	defer prefStore.Close()

	net := wifi.NewManager(cfg.WiFi.Interface, cfg.WiFi.Attempts, cfg.WiFi.AttemptTimeout.Duration, logger)
	opts := []fetch.Option{
		fetch.WithLogger(logger),
		fetch.WithMetrics(m),
		fetch.WithTimeout(cfg.Timing.FetchTimeout.Duration),
		fetch.WithClock(clk.Now),
	}
	if !cfg.WiFi.Disabled {
		opts = append(opts, fetch.WithNetworkChecker(net))
	}
	client := fetch.NewClient(opts...)

	commands := make(chan console.Command, 8)
	if rc, err := console.Open(cfg.Console); err != nil {
		logger.Warn(ctx, "[STARTUP] console unavailable", logging.Fields{"console": cfg.Console, "error": err.Error()})
	} else if rc != nil {
		defer rc.Close()
		go func() {
			if err := console.Read(ctx, rc, commands); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn(ctx, "[CONSOLE] read stopped", logging.Fields{"error": err.Error()})
			}
		}()
	}

	dev, err := device.New(device.Config{
		Nav: nav.Config{
			RotateEvery: cfg.Timing.RotateEvery.Duration,
			FlipEvery:   cfg.Timing.WeatherFlipEvery.Duration,
			ResumeAfter: cfg.Timing.ResumeAfter.Duration,
		},
		Debounce:     cfg.Button.Debounce.Duration,
		DoubleWindow: cfg.Button.DoubleWindow.Duration,
		PollInterval: cfg.Timing.PollInterval.Duration,
		SplashHold:   cfg.Timing.SplashHold.Duration,
	}, device.Deps{
		Renderer:  rnd,
		Refresher: ref,
		Store:     st,
		Button:    btn,
		Transit:   &fetch.TransitFetcher{Client: client, URL: cfg.TransitURL, Store: st},
		Weather:   &fetch.WeatherFetcher{Client: client, URL: cfg.WeatherURL, Store: st},
		Clock:     clk,
		Commands:  commands,
		Creds:     prefStore,
		Restart:   requestRestart,
		Log:       logger,
		Metrics:   m,
	})
	if err != nil {
		return false, err
	}

	online := true
	if !cfg.WiFi.Disabled {
		creds, _, err := prefStore.LoadCredentials(ctx)
		if err != nil {
			logger.Error(ctx, "[STARTUP] load credentials", nil, err)
		}
		online, err = dev.Provision(ctx, net, creds.SSID, creds.Pass, device.AccessPoint{
			SSID: cfg.WiFi.APSSID,
			Pass: cfg.WiFi.APPass,
			URL:  hotspotURL,
		})
		if err != nil {
			return false, err
		}
	}

	addr := cfg.StatusAddr
	if !online {
		addr = cfg.PortalAddr
	}
	handler := portal.NewHandler(prefStore, func() interface{} { return dev.Status() }, requestRestart, reg, logger, m)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if addr != "" {
		go func() {
			logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{"address": addr, "setup": !online})
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error(ctx, "[SERVER_ERROR] server failed", nil, err)
			}
		}()
	}

	if online {
		err = dev.Run(ctx)
	} else {
		err = setupLoop(ctx, dev, commands)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "[SHUTDOWN_ERROR] server forced to shutdown", nil, err)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return false, err
	}
	return restartRequested.Load(), nil
}

// setupLoop waits for the portal to save credentials while still serving
// console commands.
func setupLoop(ctx context.Context, dev *device.Device, commands <-chan console.Command) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-commands:
			dev.HandleCommand(ctx, cmd)
		}
	}
}

func openPanel(cfg *config.Config) (panel.Panel, error) {
	switch cfg.Panel.Driver {
	case "uc8179":
		return panel.OpenUC8179(cfg.Panel.SPIPort, cfg.Panel.SpeedHz, cfg.Panel.DCPin, cfg.Panel.RSTPin, cfg.Panel.BusyPin,
			panel.UC8179Opts{Width: cfg.Layout.Width, Height: cfg.Layout.Height})
	case "waveshare2in13v4":
		return panel.OpenWaveshare(cfg.Panel.SPIPort)
	default:
		return panel.NewPNGSink(cfg.Panel.PNGPath, cfg.Layout.Bounds())
	}
}

func openButton(cfg *config.Config) (button.Source, func() error, error) {
	if cfg.Button.Kind == "touch" {
		t, err := button.OpenTouch(cfg.Button.I2CBus)
		if err != nil {
			return nil, nil, err
		}
		return t, t.Close, nil
	}
	g, err := button.OpenGPIO(cfg.Button.Pin)
	if err != nil {
		return nil, nil, err
	}
	return g, func() error { return nil }, nil
}

type idleButton struct{}

func (idleButton) Pressed() bool { return false }

// reexec replaces the process with a fresh copy of itself.
func reexec(logger *logging.StructuredLogger) {
	exe, err := os.Executable()
	if err == nil {
		err = syscall.Exec(exe, os.Args, os.Environ())
	}
	logger.Fatal(context.Background(), "[RESTART] re-exec failed", nil, err)
}
