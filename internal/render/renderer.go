// Package render draws the display screens into an 8-bit gray frame buffer.
package render

import (
	"image"
	"time"

	"inkhat/internal/store"
)

// Update describes which part of the frame changed and how to push it.
type Update struct {
	Rect image.Rectangle
	Full bool
}

// SunriseFunc returns the next sunrise after now.
type SunriseFunc func(now time.Time) (time.Time, error)

// Renderer owns the frame buffer. It is not safe for concurrent use.
type Renderer struct {
	layout Layout
	text   Text
	store  *store.Store
	faces  faces
	frame  *image.Gray

	sunrise  SunriseFunc
	lastDate string
}

// Option mutates the renderer during construction.
type Option func(*Renderer)

// WithSunrise adds a sunrise line to the clock screen.
func WithSunrise(f SunriseFunc) Option {
	return func(r *Renderer) { r.sunrise = f }
}

func New(layout Layout, txt Text, st *store.Store, opts ...Option) (*Renderer, error) {
	fc, err := loadFaces()
	if err != nil {
		return nil, err
	}
	r := &Renderer{
		layout: layout,
		text:   txt,
		store:  st,
		faces:  fc,
		frame:  image.NewGray(layout.Bounds()),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	wipe(r.frame, r.frame.Rect)
	return r, nil
}

// Frame returns the live frame buffer.
func (r *Renderer) Frame() *image.Gray {
	return r.frame
}

func (r *Renderer) Layout() Layout {
	return r.layout
}

// full wipes the frame and returns a full-window update.
func (r *Renderer) full() Update {
	wipe(r.frame, r.frame.Rect)
	return Update{Rect: r.frame.Rect, Full: true}
}

// window wipes b and returns a sub-image clipped to it for drawing.
func (r *Renderer) window(b Box) (*image.Gray, Update) {
	rect := b.Rect().Intersect(r.frame.Rect)
	wipe(r.frame, rect)
	return r.frame.SubImage(rect).(*image.Gray), Update{Rect: rect}
}

func (r *Renderer) header(title string) {
	l := r.layout
	centerText(r.frame, r.faces.label, l.Width/2, l.HeaderBaseline, title, Ink)
	line(r.frame, 0, l.HeaderRule, l.Width-1, l.HeaderRule, Ink)
}

// Splash draws the boot logo.
func (r *Renderer) Splash() Update {
	u := r.full()
	middleText(r.frame, r.faces.splash, r.layout.Width/2, r.layout.Height/2, r.text.Splash, Ink)
	return u
}
