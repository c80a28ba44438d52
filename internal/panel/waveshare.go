package panel

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"reflect"
	"unsafe"

	"golang.org/x/image/draw"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/devices/v3/waveshare2in13v4"
)

// Waveshare drives the 2.13" v4 HAT. Frames are scaled down to the panel's
// 250x122 landscape area and rotated into its portrait memory layout.
type Waveshare struct {
	port     spi.PortCloser
	display  *waveshare2in13v4.Dev
	last     *image.Gray
	sleeping bool
}

func OpenWaveshare(port string) (*Waveshare, error) {
	spiPort, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("panel: open spi %q: %w", port, err)
	}
	opts := waveshare2in13v4.EPD2in13v4
	display, err := waveshare2in13v4.NewHat(spiPort, &opts)
	if err != nil {
		spiPort.Close()
		return nil, fmt.Errorf("panel: waveshare hat: %w", err)
	}
	if err := display.Init(); err != nil {
		spiPort.Close()
		return nil, fmt.Errorf("panel: waveshare init: %w", err)
	}
	_ = setDisplayMode(display, false)
	if err := display.Clear(color.White); err != nil {
		spiPort.Close()
		return nil, err
	}
	return &Waveshare{port: spiPort, display: display}, nil
}

// Bounds is the landscape drawing area.
func (w *Waveshare) Bounds() image.Rectangle {
	b := w.display.Bounds()
	return image.Rect(0, 0, b.Dy(), b.Dx())
}

func (w *Waveshare) Full(img *image.Gray) error {
	portrait := landscapeToPortrait(fit(img, w.Bounds()))
	if err := w.wake(false); err != nil {
		return err
	}
	if err := w.draw(w.display.Bounds(), portrait); err != nil {
		return err
	}
	w.last = portrait
	return nil
}

// Partial recomputes the changed area in panel space, since scaling makes the
// frame rectangle only approximate.
func (w *Waveshare) Partial(_ image.Rectangle, img *image.Gray) error {
	portrait := landscapeToPortrait(fit(img, w.Bounds()))
	diff, ok := diffRect(w.last, portrait, portrait.Rect)
	if !ok {
		return nil
	}
	if err := w.wake(true); err != nil {
		return err
	}
	if err := w.draw(alignRect(diff, w.display.Bounds()), portrait); err != nil {
		return err
	}
	w.last = portrait
	return nil
}

func (w *Waveshare) wake(partial bool) error {
	if w.sleeping {
		if err := w.display.Init(); err != nil {
			return fmt.Errorf("panel: waveshare wake: %w", err)
		}
		w.sleeping = false
	}
	return setDisplayMode(w.display, partial)
}

func (w *Waveshare) draw(r image.Rectangle, portrait *image.Gray) error {
	img := image1bit.NewVerticalLSB(w.display.Bounds())
	draw.Draw(img, img.Bounds(), portrait, image.Point{}, draw.Src)
	return w.display.Draw(r, img, image.Point{})
}

func (w *Waveshare) Sleep() error {
	if err := w.display.Sleep(); err != nil {
		return err
	}
	w.sleeping = true
	return nil
}

func (w *Waveshare) Close() error {
	err := w.display.Halt()
	if cerr := w.port.Close(); err == nil {
		err = cerr
	}
	return err
}

// setDisplayMode flips the driver's unexported refresh mode.
func setDisplayMode(display *waveshare2in13v4.Dev, partial bool) error {
	v := reflect.ValueOf(display).Elem().FieldByName("mode")
	if !v.IsValid() || !v.CanAddr() {
		return errors.New("display mode field unavailable")
	}
	ptr := reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
	if partial {
		ptr.Set(reflect.ValueOf(waveshare2in13v4.Partial))
	} else {
		ptr.Set(reflect.ValueOf(waveshare2in13v4.Full))
	}
	return nil
}

// fit scales src into a white canvas of size bounds, preserving aspect ratio.
func fit(src *image.Gray, bounds image.Rectangle) *image.Gray {
	dst := image.NewGray(bounds)
	draw.Draw(dst, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	sw, sh := src.Rect.Dx(), src.Rect.Dy()
	if sw == 0 || sh == 0 {
		return dst
	}
	dw, dh := bounds.Dx(), bounds.Dy()
	if sw*dh > sh*dw {
		dh = sh * dw / sw
	} else {
		dw = sw * dh / sh
	}
	off := image.Pt((bounds.Dx()-dw)/2, (bounds.Dy()-dh)/2)
	dr := image.Rectangle{Min: off, Max: off.Add(image.Pt(dw, dh))}
	draw.BiLinear.Scale(dst, dr, src, src.Rect, draw.Src, nil)
	return dst
}

// landscapeToPortrait rotates src 90 degrees clockwise.
func landscapeToPortrait(src *image.Gray) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, h, w))
	for y := 0; y < w; y++ {
		for x := 0; x < h; x++ {
			dst.SetGray(x, y, src.GrayAt(src.Rect.Min.X+y, src.Rect.Min.Y+h-1-x))
		}
	}
	return dst
}
