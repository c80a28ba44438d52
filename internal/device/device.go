// Package device runs the display: it polls the button, advances the
// navigation machine and pushes rendered screens to the panel.
package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"inkhat/internal/button"
	"inkhat/internal/clock"
	"inkhat/internal/console"
	"inkhat/internal/fetch"
	"inkhat/internal/logging"
	"inkhat/internal/metrics"
	"inkhat/internal/nav"
	"inkhat/internal/panel"
	"inkhat/internal/render"
	"inkhat/internal/store"
)

type Config struct {
	Nav          nav.Config
	Debounce     time.Duration
	DoubleWindow time.Duration
	PollInterval time.Duration
	SplashHold   time.Duration
}

// CredentialClearer erases stored network credentials.
type CredentialClearer interface {
	ClearCredentials(ctx context.Context) error
}

// Deps are the collaborators a Device drives. Transit, Weather and Button
// are required.
type Deps struct {
	Renderer  *render.Renderer
	Refresher *panel.Refresher
	Store     *store.Store
	Button    button.Source
	Transit   fetch.Fetcher
	Weather   fetch.Fetcher
	Clock     clock.Clock
	Commands  <-chan console.Command
	Creds     CredentialClearer
	// Restart is called after a console command that needs a fresh boot.
	Restart func()
	Log     *logging.StructuredLogger
	Metrics *metrics.Collector
	// Sleep waits for d or until ctx ends. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Status is a point-in-time summary for the status endpoint.
type Status struct {
	State          string    `json:"state"`
	Manual         bool      `json:"manual"`
	Partials       int       `json:"partials"`
	TransitUpdated time.Time `json:"transit_updated"`
	WeatherUpdated time.Time `json:"weather_updated"`
	WeatherCount   int       `json:"weather_count"`
}

type Device struct {
	cfg Config
	Deps

	detector *button.Detector
	machine  *nav.Machine
	minute   time.Time

	mu     sync.RWMutex
	status Status
}

func New(cfg Config, deps Deps) (*Device, error) {
	if deps.Renderer == nil || deps.Refresher == nil || deps.Store == nil {
		return nil, fmt.Errorf("device: renderer, refresher and store are required")
	}
	if deps.Button == nil || deps.Transit == nil || deps.Weather == nil {
		return nil, fmt.Errorf("device: button and fetchers are required")
	}
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Sleep == nil {
		deps.Sleep = sleep
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 50 * time.Millisecond
	}
	return &Device{
		cfg:      cfg,
		Deps:     deps,
		detector: button.NewDetector(cfg.Debounce, cfg.DoubleWindow),
		status:   Status{State: nav.Clock.String()},
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start shows the splash, then the clock screen, and arms the rotation timer.
func (d *Device) Start(ctx context.Context) error {
	d.push(ctx, d.Renderer.Splash())
	if err := d.Sleep(ctx, d.cfg.SplashHold); err != nil {
		return err
	}
	now := d.Clock.Now()
	d.machine = nav.NewMachine(d.cfg.Nav, now)
	d.showClock(ctx, now)
	d.publish()
	d.Log.Info(ctx, "[DEVICE] started", logging.Fields{"state": d.machine.State().String()})
	return nil
}

// Run calls Start and then Step every poll interval until ctx ends.
func (d *Device) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.Log.Info(context.Background(), "[DEVICE] stopping", nil)
			return nil
		case <-ticker.C:
			d.Step(ctx)
		}
	}
}

// Step runs one scheduler iteration. Fetches and refreshes inside it block.
// It does nothing until Start has run.
func (d *Device) Step(ctx context.Context) {
	if d.machine == nil {
		return
	}
	now := d.Clock.Now()
	ev := d.detector.Update(now, d.Button.Pressed())
	if ev != button.None {
		d.Log.Debug(ctx, "[BUTTON] event", logging.Fields{"event": ev.String()})
	}

	if tr, ok := d.machine.Tick(now, ev); ok {
		d.apply(ctx, tr, now)
		d.publish()
	} else if d.machine.State() == nav.Clock && !now.Truncate(time.Minute).Equal(d.minute) {
		d.minute = now.Truncate(time.Minute)
		d.push(ctx, d.Renderer.ClockDigits(now))
		d.publish()
	}

	d.drain(ctx)
}

func (d *Device) apply(ctx context.Context, tr nav.Transition, now time.Time) {
	manual := d.machine.Manual()
	d.Metrics.RecordTransition(tr.Kind.String(), tr.To.String(), int(tr.To), manual)
	d.Log.Info(ctx, "[NAV] transition", logging.Fields{
		"from":   tr.From.String(),
		"to":     tr.To.String(),
		"kind":   tr.Kind.String(),
		"manual": manual,
	})

	if tr.Kind == nav.Flip {
		d.push(ctx, d.Renderer.WeatherPage(tr.To.WeatherPage()))
		return
	}

	switch tr.To.Screen() {
	case nav.ScreenClock:
		d.showClock(ctx, now)
	case nav.ScreenTransit:
		d.push(ctx, d.Renderer.Transit())
		if d.fetch(ctx, "transit", d.Transit) == nil {
			d.push(ctx, d.Renderer.TransitDots())
		}
	case nav.ScreenWeather:
		_ = d.fetch(ctx, "weather", d.Weather)
		d.push(ctx, d.Renderer.WeatherFrame())
		d.push(ctx, d.Renderer.WeatherPage(tr.To.WeatherPage()))
	}
}

func (d *Device) showClock(ctx context.Context, now time.Time) {
	d.minute = now.Truncate(time.Minute)
	d.push(ctx, d.Renderer.Clock(now))
}

func (d *Device) fetch(ctx context.Context, source string, f fetch.Fetcher) error {
	err := f.Fetch(ctx)
	if err != nil {
		d.Log.Debug(ctx, "[DEVICE] showing previous data", logging.Fields{"source": source})
	}
	return err
}

func (d *Device) push(ctx context.Context, u render.Update) {
	// The refresher logs and counts failures; the loop carries on.
	_, _ = d.Refresher.Push(ctx, d.Renderer.Frame(), u.Rect, u.Full)
}

func (d *Device) publish() {
	st := Status{Partials: d.Refresher.Partials()}
	if d.machine != nil {
		st.State = d.machine.State().String()
		st.Manual = d.machine.Manual()
	}
	d.mu.Lock()
	d.status = st
	d.mu.Unlock()
}

// Status is safe to call from other goroutines.
func (d *Device) Status() Status {
	d.mu.RLock()
	st := d.status
	d.mu.RUnlock()
	st.TransitUpdated, st.WeatherUpdated = d.Store.Updated()
	st.WeatherCount = d.Store.Weather().Count
	return st
}
