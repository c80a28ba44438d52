// Package panel pushes frames to e-paper hardware.
package panel

import (
	"errors"
	"image"
)

// ErrBusyTimeout is returned when the controller never releases BUSY.
var ErrBusyTimeout = errors.New("panel: busy timeout")

// Panel is an e-paper display. Rectangles and images are in frame coordinates.
type Panel interface {
	Bounds() image.Rectangle
	// Full redraws the whole panel from img.
	Full(img *image.Gray) error
	// Partial redraws only r. Drivers without a partial mode may redraw more.
	Partial(r image.Rectangle, img *image.Gray) error
	// Sleep puts the controller into its lowest-power state. The next
	// Full or Partial wakes it.
	Sleep() error
	Close() error
}

// pack converts r of img to 1 bit per pixel, MSB first, 1 = white.
func pack(img *image.Gray, r image.Rectangle) []byte {
	stride := (r.Dx() + 7) / 8
	buf := make([]byte, stride*r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := buf[(y-r.Min.Y)*stride:]
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.GrayAt(x, y).Y >= 0x80 {
				bx := x - r.Min.X
				row[bx>>3] |= 0x80 >> uint(bx&7)
			}
		}
	}
	return buf
}

// alignRect widens r to whole bytes horizontally, as the controllers address
// columns in groups of 8.
func alignRect(r, bounds image.Rectangle) image.Rectangle {
	if r.Empty() {
		return r
	}
	x0 := r.Min.X &^ 7
	x1 := (r.Max.X + 7) &^ 7
	if x0 < bounds.Min.X {
		x0 = bounds.Min.X
	}
	if x1 > bounds.Max.X {
		x1 = bounds.Max.X
	}
	if x1 <= x0 {
		return bounds
	}
	return image.Rect(x0, r.Min.Y, x1, r.Max.Y).Intersect(bounds)
}

// diffRect returns the bounding box of pixels that differ between prev and
// curr inside within. ok is false when nothing changed.
func diffRect(prev, curr *image.Gray, within image.Rectangle) (image.Rectangle, bool) {
	if prev == nil || !prev.Rect.Eq(curr.Rect) {
		return within, true
	}
	within = within.Intersect(curr.Rect)
	minX, minY := within.Max.X, within.Max.Y
	maxX, maxY := within.Min.X, within.Min.Y
	changed := false
	for y := within.Min.Y; y < within.Max.Y; y++ {
		for x := within.Min.X; x < within.Max.X; x++ {
			if prev.GrayAt(x, y) != curr.GrayAt(x, y) {
				changed = true
				if x < minX {
					minX = x
				}
				if y < minY {
					minY = y
				}
				if x > maxX {
					maxX = x
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if !changed {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

func cloneGray(src *image.Gray) *image.Gray {
	dst := image.NewGray(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}
