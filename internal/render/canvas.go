package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	Ink   uint8 = 0x00
	Paper uint8 = 0xff
)

func wipe(img *image.Gray, r image.Rectangle) {
	draw.Draw(img, r.Intersect(img.Rect), image.NewUniform(color.Gray{Y: Paper}), image.Point{}, draw.Src)
}

// text draws s with its baseline starting at (x, y).
func text(img *image.Gray, face font.Face, x, y int, s string, fg uint8) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Gray{Y: fg}),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func textWidth(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

// centerText draws s horizontally centred on cx.
func centerText(img *image.Gray, face font.Face, cx, y int, s string, fg uint8) {
	text(img, face, cx-textWidth(face, s)/2, y, s, fg)
}

// middleText draws s centred on (cx, cy) using the face's ascent/descent.
func middleText(img *image.Gray, face font.Face, cx, cy int, s string, fg uint8) {
	m := face.Metrics()
	y := cy + (m.Ascent.Ceil()-m.Descent.Ceil())/2
	centerText(img, face, cx, y, s, fg)
}

func fillRect(img *image.Gray, x0, y0, x1, y1 int, c uint8) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if image.Pt(x, y).In(img.Rect) {
				img.SetGray(x, y, color.Gray{Y: c})
			}
		}
	}
}

func rectOutline(img *image.Gray, x0, y0, x1, y1 int, c uint8) {
	line(img, x0, y0, x1, y0, c)
	line(img, x0, y1, x1, y1, c)
	line(img, x0, y0, x0, y1, c)
	line(img, x1, y0, x1, y1, c)
}

func line(img *image.Gray, x0, y0, x1, y1 int, c uint8) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		if image.Pt(x0, y0).In(img.Rect) {
			img.SetGray(x0, y0, color.Gray{Y: c})
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func circle(img *image.Gray, cx, cy, r int, c uint8, fill bool) {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			d := x*x + y*y
			if fill {
				if d <= r*r {
					px, py := cx+x, cy+y
					if image.Pt(px, py).In(img.Rect) {
						img.SetGray(px, py, color.Gray{Y: c})
					}
				}
			} else if d >= (r-1)*(r-1) && d <= r*r {
				px, py := cx+x, cy+y
				if image.Pt(px, py).In(img.Rect) {
					img.SetGray(px, py, color.Gray{Y: c})
				}
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
