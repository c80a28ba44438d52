// Package button turns a polled push-button level into next/previous events.
package button

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Event is the outcome of one Detector update.
type Event int

const (
	None Event = iota
	Next
	Prev
)

func (e Event) String() string {
	switch e {
	case Next:
		return "next"
	case Prev:
		return "prev"
	default:
		return "none"
	}
}

// Source reports whether the button is currently held down.
type Source interface {
	Pressed() bool
}

// GPIO is a button wired between a pin and ground, using the internal pull-up.
type GPIO struct {
	pin gpio.PinIn
}

// OpenGPIO configures the named pin as a pulled-up input.
func OpenGPIO(name string) (*GPIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("button: gpio %q not found", name)
	}
	return NewGPIO(p)
}

func NewGPIO(p gpio.PinIn) (*GPIO, error) {
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("button: configure %s: %w", p, err)
	}
	return &GPIO{pin: p}, nil
}

// Pressed is true while the line is pulled low.
func (g *GPIO) Pressed() bool {
	return g.pin.Read() == gpio.Low
}

// Level returns the raw pin level, for diagnostics.
func (g *GPIO) Level() gpio.Level {
	return g.pin.Read()
}

func (g *GPIO) String() string {
	return g.pin.String()
}

// Detector classifies presses. A press opens a window; a second press inside
// it is Prev, otherwise the window expiring yields Next. A second press after
// the window emits the pending Next and opens a new window.
type Detector struct {
	Debounce time.Duration
	Window   time.Duration

	held     bool
	lastEdge time.Time
	edges    int
	pending  bool
	first    time.Time
}

func NewDetector(debounce, window time.Duration) *Detector {
	return &Detector{Debounce: debounce, Window: window}
}

// Update feeds one poll sample taken at now.
func (d *Detector) Update(now time.Time, pressed bool) Event {
	ev := None
	edge := pressed && !d.held
	d.held = pressed

	if edge && (d.edges == 0 || now.Sub(d.lastEdge) > d.Debounce) {
		d.edges++
		d.lastEdge = now
		switch {
		case !d.pending:
			d.pending = true
			d.first = now
		case now.Sub(d.first) <= d.Window:
			d.pending = false
			ev = Prev
		default:
			ev = Next
			d.first = now
		}
	}

	if ev == None && d.pending && now.Sub(d.first) > d.Window {
		d.pending = false
		ev = Next
	}
	return ev
}

// Pending reports whether a single press is waiting for its window to close.
func (d *Detector) Pending() bool {
	return d.pending
}
