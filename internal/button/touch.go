package button

import (
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// GT1151 touch controller registers.
const (
	gt1151Addr  = 0x14
	regStatus   = 0x814E
	regPoints   = 0x814F
	statusReady = 0x80
	pointSize   = 8
	maxPoints   = 5
	touchMaxX   = 121
	touchMaxY   = 249
)

// Touch treats any contact on a GT1151 touch panel (the 2.13" touch HAT) as
// the button being held.
type Touch struct {
	dev    conn.Conn
	closer func() error
	err    error
	held   bool
}

// OpenTouch opens the controller on the named I²C bus ("1" on a Pi).
func OpenTouch(bus string) (*Touch, error) {
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, fmt.Errorf("button: open i2c %q: %w", bus, err)
	}
	t := NewTouch(&i2c.Dev{Bus: b, Addr: gt1151Addr})
	t.closer = b.Close
	return t, nil
}

func NewTouch(dev conn.Conn) *Touch {
	return &Touch{dev: dev}
}

func (t *Touch) Close() error {
	if t.closer != nil {
		return t.closer()
	}
	return nil
}

// Pressed polls the controller once. Between reports the last known state
// holds; a report with no points is a release. Bus errors read as released
// and are kept for Err.
func (t *Touch) Pressed() bool {
	held, err := t.poll()
	t.err = err
	t.held = held
	return held
}

// Err is the error from the last poll, if any.
func (t *Touch) Err() error {
	return t.err
}

func (t *Touch) String() string {
	return "gt1151"
}

func (t *Touch) poll() (bool, error) {
	status, err := t.read(regStatus, 1)
	if err != nil {
		return false, err
	}
	if status[0]&statusReady == 0 {
		return t.held, nil
	}
	count := int(status[0] & 0x0F)
	if count == 0 {
		_ = t.write(regStatus, 0x00)
		return false, nil
	}
	if count > maxPoints {
		_ = t.write(regStatus, 0x00)
		return t.held, nil
	}
	data, err := t.read(regPoints, count*pointSize)
	if err != nil {
		return false, err
	}
	_ = t.write(regStatus, 0x00)
	x := int(data[1]) | int(data[2])<<8
	y := int(data[3]) | int(data[4])<<8
	return x <= touchMaxX && y <= touchMaxY, nil
}

func (t *Touch) read(reg uint16, n int) ([]byte, error) {
	r := make([]byte, n)
	if err := t.dev.Tx([]byte{byte(reg >> 8), byte(reg)}, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (t *Touch) write(reg uint16, b byte) error {
	return t.dev.Tx([]byte{byte(reg >> 8), byte(reg), b}, nil)
}
