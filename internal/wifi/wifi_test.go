package wifi

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeRunner struct {
	calls   [][]string
	outputs []string
	errs    []error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	i := len(f.calls)
	f.calls = append(f.calls, append([]string{name}, args...))
	var out string
	var err error
	if i < len(f.outputs) {
		out = f.outputs[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return []byte(out), err
}

func TestOnline(t *testing.T) {
	tests := []struct {
		name string
		out  string
		err  error
		want bool
	}{
		{"connected", "connected\n", nil, true},
		{"portal", "connected (site only)\n", nil, false},
		{"disconnected", "disconnected\n", nil, false},
		{"nmcli missing", "", errors.New("exec: not found"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{outputs: []string{tt.out}, errs: []error{tt.err}}
			m := &Manager{Runner: r}
			if got := m.Online(context.Background()); got != tt.want {
				t.Errorf("Online = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConnectRetriesThenFails(t *testing.T) {
	boom := errors.New("timeout")
	r := &fakeRunner{errs: []error{boom, boom}}
	m := &Manager{Runner: r, Interface: "wlan0", Attempts: 2, AttemptTimeout: 8 * time.Second}

	type report struct {
		attempt int
		final   bool
	}
	var got []report
	err := m.Connect(context.Background(), "home", "secret", func(attempt int, final bool, err error) {
		got = append(got, report{attempt, final})
	})
	if !errors.Is(err, ErrConnectFailed) {
		t.Fatalf("err = %v", err)
	}
	want := []report{{1, false}, {2, true}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("progress = %+v", got)
	}
	cmd := strings.Join(r.calls[0], " ")
	if cmd != "nmcli --wait 8 device wifi connect home password secret ifname wlan0" {
		t.Errorf("cmd = %q", cmd)
	}
}

func TestConnectSucceedsOnSecondAttempt(t *testing.T) {
	r := &fakeRunner{errs: []error{errors.New("no"), nil}}
	m := &Manager{Runner: r, Attempts: 3}
	var finals []bool
	err := m.Connect(context.Background(), "open-net", "", func(_ int, final bool, _ error) {
		finals = append(finals, final)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(finals) != 2 || finals[0] || !finals[1] {
		t.Fatalf("finals = %v", finals)
	}
	if cmd := strings.Join(r.calls[1], " "); strings.Contains(cmd, "password") {
		t.Errorf("open network passed a password: %q", cmd)
	}
}

func TestStartAP(t *testing.T) {
	r := &fakeRunner{}
	m := &Manager{Runner: r, Interface: "wlan0"}
	if err := m.StartAP(context.Background(), "ESP32-SETUP", "pitchfest"); err != nil {
		t.Fatal(err)
	}
	want := "nmcli device wifi hotspot ssid ESP32-SETUP password pitchfest ifname wlan0"
	if got := strings.Join(r.calls[0], " "); got != want {
		t.Errorf("cmd = %q", got)
	}
}
