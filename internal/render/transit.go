package render

import (
	"image"
	"strconv"

	"inkhat/internal/store"
)

// Transit draws the full arrivals screen.
func (r *Renderer) Transit() Update {
	u := r.full()
	r.header(r.text.TransitTitle)
	r.drawHalves(r.frame, true)
	return u
}

// TransitDots redraws the route, dots, and arrival text of both halves.
func (r *Renderer) TransitDots() Update {
	dst, u := r.window(r.layout.TransitWindow)
	r.drawHalves(dst, false)
	return u
}

func (r *Renderer) drawHalves(dst *image.Gray, chrome bool) {
	l := r.layout
	line(dst, 0, l.SplitY, l.Width-1, l.SplitY, Ink)
	r.drawHalf(dst, 0, store.North, chrome)
	r.drawHalf(dst, l.HalfHeight, store.South, chrome)
}

func (r *Renderer) drawHalf(dst *image.Gray, y0 int, dir store.Direction, chrome bool) {
	l := r.layout
	if chrome {
		label := r.text.North
		if dir == store.South {
			label = r.text.South
		}
		text(dst, r.faces.label, l.TrainIconX, y0+l.LabelDY, label, Ink)
		r.drawTrainIcon(dst, l.TrainIconX, y0+l.TrainIconDY, l.TrainIconSize, dir)
	}

	routeY := y0 + l.RouteDY
	trackY := routeY + 12
	text(dst, r.faces.label, l.RouteX, routeY-2, "*", Ink)
	line(dst, l.RouteX+8, routeY-8, l.RouteX+28, trackY, Ink)
	line(dst, l.RouteX+28, trackY, l.RouteX+55, trackY, Ink)
	line(dst, l.RouteX+55, trackY, l.DotX[0]-l.DotR-8, trackY, Ink)

	arrivals := r.store.Arrivals(dir)
	for i := 0; i < ArrivalDots; i++ {
		x := l.DotX[i]
		circle(dst, x, trackY, l.DotR, Ink, false)
		if i < ArrivalDots-1 {
			line(dst, x+l.DotR, trackY, l.DotX[i+1]-l.DotR, trackY, Ink)
		}
		a := store.EmptyArrival
		if i < len(arrivals) {
			a = arrivals[i]
		}
		centerText(dst, r.faces.label, x, trackY+l.TrainTextDY, string(a.Train), Ink)
		centerText(dst, r.faces.label, x, trackY+l.MinTextDY, minutesLabel(a.Minutes), Ink)
	}
}

func minutesLabel(m int) string {
	if m < 0 {
		return "--"
	}
	return strconv.Itoa(m)
}

// drawTrainIcon draws the route bullet with a direction arrow.
func (r *Renderer) drawTrainIcon(dst *image.Gray, x, y, size int, dir store.Direction) {
	rectOutline(dst, x, y, x+size-1, y+size-1, Ink)
	cx, cy := x+size/2, y+size/2+size/12
	circle(dst, cx, cy, size*3/10, Ink, true)
	middleText(dst, r.faces.splash, cx, cy, r.text.Route, Paper)

	// Arrow: apex towards the direction of travel.
	h := size / 10
	for i := 0; i <= h; i++ {
		ay := y + size/16 + i
		if dir == store.South {
			ay = y + size/16 + h - i
		}
		line(dst, cx-i, ay, cx+i, ay, Ink)
	}
}
