package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"inkhat/internal/clock"
	"inkhat/internal/console"
	"inkhat/internal/nav"
	"inkhat/internal/panel"
	"inkhat/internal/render"
	"inkhat/internal/store"
	"inkhat/internal/wifi"
)

type fakeButton struct{ down bool }

func (b *fakeButton) Pressed() bool { return b.down }

type fakeFetcher struct {
	calls int
	err   error
	fill  func()
}

func (f *fakeFetcher) Fetch(ctx context.Context) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.fill != nil {
		f.fill()
	}
	return nil
}

type fakeCreds struct{ cleared int }

func (c *fakeCreds) ClearCredentials(ctx context.Context) error {
	c.cleared++
	return nil
}

type rig struct {
	dev     *Device
	rec     *panel.Recorder
	clk     *clock.Fake
	btn     *fakeButton
	transit *fakeFetcher
	weather *fakeFetcher
	cmds    chan console.Command
	creds   *fakeCreds
	restart int
	slept   time.Duration
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		clk:   clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
		btn:   &fakeButton{},
		cmds:  make(chan console.Command, 4),
		creds: &fakeCreds{},
	}
	st := store.New()
	r.transit = &fakeFetcher{fill: func() {
		st.SetArrivals([]store.Arrival{{Train: 'N', Minutes: 2}, {Train: 'N', Minutes: 9}}, []store.Arrival{{Train: 'W', Minutes: 4}}, r.clk.Now())
	}}
	r.weather = &fakeFetcher{fill: func() {
		samples := make([]store.Sample, 72)
		for i := range samples {
			samples[i] = store.Sample{Temp: 50, Code: 3, IsDay: true}
		}
		st.SetWeather(0, samples, r.clk.Now())
	}}

	layout := render.DefaultLayout()
	rnd, err := render.New(layout, render.DefaultText(), st)
	if err != nil {
		t.Fatal(err)
	}
	r.rec = panel.NewRecorder(layout.Bounds())
	ref := panel.NewRefresher(r.rec, panel.Policy{}, r.clk.Now, nil, nil)

	dev, err := New(Config{
		Nav:          nav.Config{RotateEvery: time.Minute, FlipEvery: 20 * time.Second},
		Debounce:     300 * time.Millisecond,
		DoubleWindow: 1200 * time.Millisecond,
		SplashHold:   time.Second,
	}, Deps{
		Renderer:  rnd,
		Refresher: ref,
		Store:     st,
		Button:    r.btn,
		Transit:   r.transit,
		Weather:   r.weather,
		Clock:     r.clk,
		Commands:  r.cmds,
		Creds:     r.creds,
		Restart:   func() { r.restart++ },
		Sleep: func(ctx context.Context, d time.Duration) error {
			r.slept += d
			r.clk.Advance(d)
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	r.dev = dev
	return r
}

func (r *rig) start(t *testing.T) {
	t.Helper()
	if err := r.dev.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	r.rec.Reset()
}

// step advances the clock and runs one loop iteration, returning the panel
// operations it produced.
func (r *rig) step(d time.Duration) []panel.Kind {
	r.rec.Reset()
	r.clk.Advance(d)
	r.dev.Step(context.Background())
	var kinds []panel.Kind
	for _, op := range r.rec.Snapshot() {
		kinds = append(kinds, op.Kind)
	}
	return kinds
}

func kindsEqual(a, b []panel.Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStepBeforeStartIsNoop(t *testing.T) {
	r := newRig(t)
	r.btn.down = true
	if kinds := r.step(time.Minute); len(kinds) != 0 {
		t.Errorf("panel ops before Start = %v", kinds)
	}
	if st := r.dev.Status(); st.State != "clock" || st.Manual {
		t.Errorf("status = %+v", st)
	}
}

func TestStartShowsSplashThenClock(t *testing.T) {
	r := newRig(t)
	if err := r.dev.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	ops := r.rec.Snapshot()
	if len(ops) != 2 || ops[0].Kind != panel.KindFull || ops[1].Kind != panel.KindFull {
		t.Fatalf("ops = %+v", ops)
	}
	if r.slept != time.Second {
		t.Errorf("splash hold = %v", r.slept)
	}
	if st := r.dev.Status(); st.State != "clock" || st.Manual {
		t.Errorf("status = %+v", st)
	}
}

func TestAutomaticCycle(t *testing.T) {
	r := newRig(t)
	r.start(t)

	full, partial := panel.KindFull, panel.KindPartial

	if got := r.step(time.Minute); !kindsEqual(got, []panel.Kind{full, partial}) {
		t.Fatalf("transit ops = %v", got)
	}
	if r.transit.calls != 1 || r.weather.calls != 0 {
		t.Fatalf("fetches transit=%d weather=%d", r.transit.calls, r.weather.calls)
	}

	if got := r.step(time.Minute); !kindsEqual(got, []panel.Kind{full, partial}) {
		t.Fatalf("weather ops = %v", got)
	}
	if r.weather.calls != 1 {
		t.Fatalf("weather fetches = %d", r.weather.calls)
	}

	for i := 0; i < 2; i++ {
		if got := r.step(20 * time.Second); !kindsEqual(got, []panel.Kind{partial}) {
			t.Fatalf("flip %d ops = %v", i, got)
		}
	}
	if r.weather.calls != 1 {
		t.Fatalf("flip fetched: %d", r.weather.calls)
	}
	if st := r.dev.Status(); st.State != "weather-2" || st.WeatherCount != 72 {
		t.Fatalf("status = %+v", st)
	}

	if got := r.step(20 * time.Second); !kindsEqual(got, []panel.Kind{full}) {
		t.Fatalf("back to clock ops = %v", got)
	}
	if st := r.dev.Status(); st.State != "clock" {
		t.Fatalf("state = %s", st.State)
	}
}

func TestClockDigitsOnMinuteChange(t *testing.T) {
	r := newRig(t)
	r.start(t)
	// Start advanced the clock by the splash hold to 09:00:01.
	if got := r.step(30 * time.Second); len(got) != 0 {
		t.Fatalf("same minute ops = %v", got)
	}
	// 09:01:00 is a new minute, one second before the rotation is due.
	if got := r.step(29 * time.Second); !kindsEqual(got, []panel.Kind{panel.KindPartial}) {
		t.Fatalf("minute change ops = %v", got)
	}
}

func TestFailedTransitFetchSkipsDots(t *testing.T) {
	r := newRig(t)
	r.start(t)
	r.transit.err = errors.New("offline")
	if got := r.step(time.Minute); !kindsEqual(got, []panel.Kind{panel.KindFull}) {
		t.Fatalf("ops = %v", got)
	}
}

func TestButtonEntersManualMode(t *testing.T) {
	r := newRig(t)
	r.start(t)

	r.btn.down = true
	r.step(10 * time.Millisecond)
	r.btn.down = false
	r.step(50 * time.Millisecond)
	if got := r.step(1300 * time.Millisecond); !kindsEqual(got, []panel.Kind{panel.KindFull, panel.KindPartial}) {
		t.Fatalf("next ops = %v", got)
	}
	st := r.dev.Status()
	if st.State != "transit" || !st.Manual {
		t.Fatalf("status = %+v", st)
	}

	for i := 0; i < 5; i++ {
		if got := r.step(time.Minute); len(got) != 0 {
			t.Fatalf("manual mode rotated: %v", got)
		}
	}
}

func TestDoublePressGoesBack(t *testing.T) {
	r := newRig(t)
	r.start(t)

	for _, down := range []bool{true, false} {
		r.btn.down = down
		r.step(10 * time.Millisecond)
	}
	r.step(400 * time.Millisecond)
	r.btn.down = true
	r.step(10 * time.Millisecond)
	if st := r.dev.Status(); st.State != "weather-2" {
		t.Fatalf("state = %s", st.State)
	}
	if r.weather.calls != 1 {
		t.Fatalf("weather fetches = %d", r.weather.calls)
	}
}

func TestConsoleCommands(t *testing.T) {
	r := newRig(t)
	r.start(t)

	r.cmds <- console.Unknown
	r.cmds <- console.ClearWiFi
	r.step(time.Millisecond)
	if r.creds.cleared != 1 || r.restart != 1 {
		t.Fatalf("cleared=%d restart=%d", r.creds.cleared, r.restart)
	}

	before := r.slept
	r.cmds <- console.PinDump
	r.step(time.Millisecond)
	if got := r.slept - before; got != 10*time.Second {
		t.Fatalf("pin dump slept %v", got)
	}
}

type fakeNetwork struct {
	results []error
	apErr   error
	ap      string
}

func (n *fakeNetwork) Connect(ctx context.Context, ssid, pass string, progress wifi.Progress) error {
	var err error
	for i, res := range n.results {
		err = res
		progress(i+1, res == nil || i == len(n.results)-1, res)
		if res == nil {
			return nil
		}
	}
	return err
}

func (n *fakeNetwork) StartAP(ctx context.Context, ssid, pass string) error {
	n.ap = ssid
	return n.apErr
}

func TestProvision(t *testing.T) {
	ap := AccessPoint{SSID: "ESP32-SETUP", Pass: "pitchfest", URL: "http://10.42.0.1/"}
	boom := errors.New("timeout")

	tests := []struct {
		name    string
		ssid    string
		results []error
		online  bool
		ops     []panel.Kind
	}{
		{"connects first try", "home", []error{nil}, true, []panel.Kind{panel.KindFull, panel.KindPartial}},
		{"retry then success", "home", []error{boom, nil}, true, []panel.Kind{panel.KindFull, panel.KindPartial, panel.KindPartial}},
		{"gives up", "home", []error{boom, boom}, false, []panel.Kind{panel.KindFull, panel.KindPartial, panel.KindPartial, panel.KindFull}},
		{"no credentials", "", nil, false, []panel.Kind{panel.KindFull}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			net := &fakeNetwork{results: tt.results}
			online, err := r.dev.Provision(context.Background(), net, tt.ssid, "pw", ap)
			if err != nil {
				t.Fatal(err)
			}
			if online != tt.online {
				t.Errorf("online = %v", online)
			}
			if !tt.online && net.ap != ap.SSID {
				t.Errorf("hotspot = %q", net.ap)
			}
			var got []panel.Kind
			for _, op := range r.rec.Snapshot() {
				got = append(got, op.Kind)
			}
			if !kindsEqual(got, tt.ops) {
				t.Errorf("ops = %v, want %v", got, tt.ops)
			}
		})
	}
}
