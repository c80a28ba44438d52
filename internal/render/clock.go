package render

import (
	"image"
	"time"
)

const (
	dateLayout  = "Monday, January 2"
	clockLayout = "15:04"
)

// Clock draws the full clock screen.
func (r *Renderer) Clock(now time.Time) Update {
	l := r.layout
	u := r.full()
	r.header(r.text.ClockTitle)
	centerText(r.frame, r.faces.medium, l.Width/2, l.GreetingBaseline, r.text.Greeting, Ink)
	r.drawDigits(r.frame, now)

	date := now.Format(dateLayout)
	centerText(r.frame, r.faces.medium, l.Width/2, l.DateBaseline, date, Ink)
	r.lastDate = date

	if r.sunrise != nil {
		if sr, err := r.sunrise(now); err == nil {
			centerText(r.frame, r.faces.label, l.Width/2, l.SunriseBaseline, "Sunrise "+sr.Format(clockLayout), Ink)
		}
	}
	return u
}

// ClockDigits redraws only the time window. When the date has rolled over
// since the last full draw it falls back to Clock.
func (r *Renderer) ClockDigits(now time.Time) Update {
	if r.lastDate != now.Format(dateLayout) {
		return r.Clock(now)
	}
	dst, u := r.window(r.layout.ClockWindow)
	r.drawDigits(dst, now)
	return u
}

func (r *Renderer) drawDigits(dst *image.Gray, now time.Time) {
	w := r.layout.ClockWindow.Rect()
	c := w.Min.Add(w.Max).Div(2)
	middleText(dst, r.faces.big, c.X, c.Y, now.Format(clockLayout), Ink)
}
