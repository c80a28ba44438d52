// Package nav is the screen navigation state machine.
package nav

import (
	"time"

	"inkhat/internal/button"
)

// State is one of the five navigation positions.
type State int

const (
	Clock State = iota
	Transit
	WeatherPage0
	WeatherPage1
	WeatherPage2

	NumStates = 5
)

var stateNames = [NumStates]string{"clock", "transit", "weather-0", "weather-1", "weather-2"}

func (s State) String() string {
	if s < 0 || s >= NumStates {
		return "invalid"
	}
	return stateNames[s]
}

// Next is (s+1) mod 5.
func (s State) Next() State { return (s + 1) % NumStates }

// Prev is (s+4) mod 5.
func (s State) Prev() State { return (s + NumStates - 1) % NumStates }

// Screen groups the weather pages into one screen.
type Screen int

const (
	ScreenClock Screen = iota
	ScreenTransit
	ScreenWeather
)

func (s State) Screen() Screen {
	switch s {
	case Clock:
		return ScreenClock
	case Transit:
		return ScreenTransit
	default:
		return ScreenWeather
	}
}

// WeatherPage is the page index for weather states, or -1.
func (s State) WeatherPage() int {
	if s.Screen() != ScreenWeather {
		return -1
	}
	return int(s - WeatherPage0)
}

// Kind says what caused a transition.
type Kind int

const (
	Auto Kind = iota
	Manual
	Flip
)

func (k Kind) String() string {
	switch k {
	case Manual:
		return "manual"
	case Flip:
		return "flip"
	default:
		return "auto"
	}
}

type Transition struct {
	From, To State
	Kind     Kind
}

type Config struct {
	RotateEvery time.Duration
	FlipEvery   time.Duration
	// ResumeAfter re-enables rotation after this long without input. Zero
	// keeps manual mode until restart.
	ResumeAfter time.Duration
}

// Machine advances the navigation state on button events and elapsed time.
// All timing comes from the now passed to Tick.
type Machine struct {
	cfg    Config
	state  State
	manual bool

	lastSwitch time.Time
	lastFlip   time.Time
	lastInput  time.Time
}

func NewMachine(cfg Config, now time.Time) *Machine {
	return &Machine{cfg: cfg, lastSwitch: now, lastFlip: now}
}

func (m *Machine) State() State { return m.state }
func (m *Machine) Manual() bool { return m.manual }

// Tick processes one scheduler step and reports the transition, if any.
func (m *Machine) Tick(now time.Time, ev button.Event) (Transition, bool) {
	from := m.state

	if ev == button.Next || ev == button.Prev {
		to := from.Next()
		if ev == button.Prev {
			to = from.Prev()
		}
		m.manual = true
		m.lastInput = now
		return m.move(now, to, Manual), true
	}

	if m.manual {
		if m.cfg.ResumeAfter <= 0 || now.Sub(m.lastInput) < m.cfg.ResumeAfter {
			return Transition{}, false
		}
		m.manual = false
		m.lastSwitch = now
		m.lastFlip = now
	}

	if now.Sub(m.lastSwitch) >= m.cfg.RotateEvery {
		var to State
		switch from.Screen() {
		case ScreenClock:
			to = Transit
		case ScreenTransit:
			to = WeatherPage0
		default:
			to = Clock
		}
		return m.move(now, to, Auto), true
	}

	if from.Screen() == ScreenWeather && now.Sub(m.lastFlip) >= m.cfg.FlipEvery {
		m.lastFlip = now
		to := WeatherPage0 + State((from.WeatherPage()+1)%3)
		m.state = to
		return Transition{From: from, To: to, Kind: Flip}, true
	}
	return Transition{}, false
}

func (m *Machine) move(now time.Time, to State, kind Kind) Transition {
	t := Transition{From: m.state, To: to, Kind: kind}
	m.state = to
	m.lastSwitch = now
	m.lastFlip = now
	return t
}
