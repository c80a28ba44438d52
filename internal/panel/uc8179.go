package panel

import (
	"fmt"
	"image"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// UC8179 commands.
const (
	cmdPanelSetting   = 0x00
	cmdPowerSetting   = 0x01
	cmdPowerOff       = 0x02
	cmdPowerOn        = 0x04
	cmdBoosterSoft    = 0x06
	cmdDeepSleep      = 0x07
	cmdDataOld        = 0x10
	cmdDisplayRefresh = 0x12
	cmdDataNew        = 0x13
	cmdDualSPI        = 0x15
	cmdVCOMInterval   = 0x50
	cmdTCON           = 0x60
	cmdResolution     = 0x61
	cmdPartialWindow  = 0x90
	cmdPartialIn      = 0x91
	cmdPartialOut     = 0x92

	deepSleepCheck = 0xa5
	maxChunk       = 4096
)

// UC8179Opts configures the 7.5" 800x480 controller.
type UC8179Opts struct {
	Width, Height int
	BusyTimeout   time.Duration
}

// UC8179 drives a UC8179-based panel (GDEY075T7) over SPI with DC, RST and
// BUSY lines. BUSY is active low.
type UC8179 struct {
	conn   conn.Conn
	closer func() error
	dc     gpio.PinOut
	rst    gpio.PinOut
	busy   gpio.PinIn

	bounds      image.Rectangle
	busyTimeout time.Duration
	delay       func(time.Duration)

	ready bool
	old   *image.Gray
}

// OpenUC8179 opens the SPI port and GPIO pins by name and initialises the panel.
func OpenUC8179(port string, speedHz int64, dcName, rstName, busyName string, opts UC8179Opts) (*UC8179, error) {
	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("panel: open spi %q: %w", port, err)
	}
	c, err := p.Connect(physic.Frequency(speedHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("panel: connect spi: %w", err)
	}
	pins := make([]gpio.PinIO, 3)
	for i, name := range []string{dcName, rstName, busyName} {
		pins[i] = gpioreg.ByName(name)
		if pins[i] == nil {
			p.Close()
			return nil, fmt.Errorf("panel: gpio %q not found", name)
		}
	}
	d, err := NewUC8179(c, pins[0], pins[1], pins[2], opts)
	if err != nil {
		p.Close()
		return nil, err
	}
	d.closer = p.Close
	return d, nil
}

// NewUC8179 wraps an already connected SPI conn and pins.
func NewUC8179(c conn.Conn, dc, rst gpio.PinOut, busy gpio.PinIn, opts UC8179Opts) (*UC8179, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 800, 480
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 30 * time.Second
	}
	if err := busy.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("panel: busy pin: %w", err)
	}
	if err := dc.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("panel: dc pin: %w", err)
	}
	if err := rst.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("panel: rst pin: %w", err)
	}
	return &UC8179{
		conn:        c,
		dc:          dc,
		rst:         rst,
		busy:        busy,
		bounds:      image.Rect(0, 0, opts.Width, opts.Height),
		busyTimeout: opts.BusyTimeout,
		delay:       time.Sleep,
	}, nil
}

func (d *UC8179) Bounds() image.Rectangle { return d.bounds }

func (d *UC8179) reset() error {
	for _, step := range []struct {
		l gpio.Level
		t time.Duration
	}{{gpio.High, 20 * time.Millisecond}, {gpio.Low, 2 * time.Millisecond}, {gpio.High, 20 * time.Millisecond}} {
		if err := d.rst.Out(step.l); err != nil {
			return err
		}
		d.delay(step.t)
	}
	return nil
}

func (d *UC8179) init() error {
	if err := d.reset(); err != nil {
		return err
	}
	w, h := d.bounds.Dx(), d.bounds.Dy()
	seq := []struct {
		cmd  byte
		data []byte
		wait bool
	}{
		{cmdPowerSetting, []byte{0x07, 0x07, 0x3f, 0x3f}, false},
		{cmdBoosterSoft, []byte{0x17, 0x17, 0x28, 0x17}, false},
		{cmdPowerOn, nil, true},
		{cmdPanelSetting, []byte{0x1f}, false},
		{cmdResolution, []byte{byte(w >> 8), byte(w), byte(h >> 8), byte(h)}, false},
		{cmdDualSPI, []byte{0x00}, false},
		{cmdVCOMInterval, []byte{0x10, 0x07}, false},
		{cmdTCON, []byte{0x22}, false},
	}
	for _, s := range seq {
		if err := d.command(s.cmd, s.data...); err != nil {
			return err
		}
		if s.wait {
			if err := d.waitIdle(); err != nil {
				return err
			}
		}
	}
	d.ready = true
	return nil
}

func (d *UC8179) wake() error {
	if d.ready {
		return nil
	}
	return d.init()
}

// Full writes the previous and new frames and runs a full refresh.
func (d *UC8179) Full(img *image.Gray) error {
	if err := d.wake(); err != nil {
		return err
	}
	old := d.old
	if old == nil {
		old = img
	}
	if err := d.command(cmdDataOld, pack(old, d.bounds)...); err != nil {
		return err
	}
	if err := d.command(cmdDataNew, pack(img, d.bounds)...); err != nil {
		return err
	}
	if err := d.refresh(); err != nil {
		return err
	}
	d.old = cloneGray(img)
	return nil
}

// Partial refreshes the window r. r must be aligned to 8 columns.
func (d *UC8179) Partial(r image.Rectangle, img *image.Gray) error {
	r = alignRect(r, d.bounds)
	if r.Empty() {
		return nil
	}
	if d.old == nil {
		return d.Full(img)
	}
	if err := d.wake(); err != nil {
		return err
	}
	if err := d.command(cmdVCOMInterval, 0xa9, 0x07); err != nil {
		return err
	}
	if err := d.command(cmdPartialIn); err != nil {
		return err
	}
	x0, x1 := r.Min.X, r.Max.X-1
	y0, y1 := r.Min.Y, r.Max.Y-1
	window := []byte{
		byte(x0 >> 8), byte(x0 & 0xf8),
		byte(x1 >> 8), byte(x1 | 0x07),
		byte(y0 >> 8), byte(y0),
		byte(y1 >> 8), byte(y1),
		0x01,
	}
	if err := d.command(cmdPartialWindow, window...); err != nil {
		return err
	}
	if err := d.command(cmdDataOld, pack(d.old, r)...); err != nil {
		return err
	}
	if err := d.command(cmdDataNew, pack(img, r)...); err != nil {
		return err
	}
	if err := d.refresh(); err != nil {
		return err
	}
	if err := d.command(cmdPartialOut); err != nil {
		return err
	}
	if err := d.command(cmdVCOMInterval, 0x10, 0x07); err != nil {
		return err
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		copy(d.old.Pix[d.old.PixOffset(r.Min.X, y):d.old.PixOffset(r.Max.X, y)],
			img.Pix[img.PixOffset(r.Min.X, y):img.PixOffset(r.Max.X, y)])
	}
	return nil
}

func (d *UC8179) refresh() error {
	if err := d.command(cmdDisplayRefresh); err != nil {
		return err
	}
	d.delay(time.Millisecond)
	return d.waitIdle()
}

// Sleep powers off and enters deep sleep. The panel is re-initialised on the
// next update.
func (d *UC8179) Sleep() error {
	if !d.ready {
		return nil
	}
	if err := d.command(cmdPowerOff); err != nil {
		return err
	}
	if err := d.waitIdle(); err != nil {
		return err
	}
	if err := d.command(cmdDeepSleep, deepSleepCheck); err != nil {
		return err
	}
	d.ready = false
	return nil
}

func (d *UC8179) Close() error {
	err := d.Sleep()
	if d.closer != nil {
		if cerr := d.closer(); err == nil {
			err = cerr
		}
	}
	return err
}

func (d *UC8179) command(cmd byte, data ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.conn.Tx([]byte{cmd}, nil); err != nil {
		return fmt.Errorf("panel: command 0x%02x: %w", cmd, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(data) > 0 {
		n := len(data)
		if n > maxChunk {
			n = maxChunk
		}
		if err := d.conn.Tx(data[:n], nil); err != nil {
			return fmt.Errorf("panel: data for 0x%02x: %w", cmd, err)
		}
		data = data[n:]
	}
	return nil
}

func (d *UC8179) waitIdle() error {
	deadline := time.Now().Add(d.busyTimeout)
	for d.busy.Read() == gpio.Low {
		if time.Now().After(deadline) {
			return ErrBusyTimeout
		}
		d.delay(5 * time.Millisecond)
	}
	return nil
}
