package render

import (
	"fmt"
	"image"
)

// Setup draws the provisioning instructions shown while the access point is up.
func (r *Renderer) Setup(ssid, pass, url string) Update {
	l := r.layout
	u := r.full()
	r.header(r.text.SetupTitle)
	cx := l.Width / 2
	centerText(r.frame, r.faces.medium, cx, 150, "WiFi setup required", Ink)
	centerText(r.frame, r.faces.label, cx, 220, fmt.Sprintf("Join network: %s", ssid), Ink)
	centerText(r.frame, r.faces.label, cx, 255, fmt.Sprintf("Password: %s", pass), Ink)
	centerText(r.frame, r.faces.label, cx, 290, fmt.Sprintf("Then open %s", url), Ink)
	return u
}

// ConnectStatus is the state shown while joining a network.
type ConnectStatus int

const (
	Connecting ConnectStatus = iota
	Connected
	Retrying
	Failed
)

func (s ConnectStatus) String() string {
	switch s {
	case Connected:
		return "Success"
	case Retrying:
		return "Failed. Trying Again"
	case Failed:
		return "Failed. Starting Setup"
	default:
		return "Connecting..."
	}
}

// Connecting draws the connection test screen (full) on the first attempt and
// only the status window afterwards.
func (r *Renderer) Connecting(attempt int, status ConnectStatus) Update {
	l := r.layout
	if attempt <= 1 && status == Connecting {
		u := r.full()
		r.header(r.text.SetupTitle)
		r.drawStatus(status)
		return u
	}
	_, u := r.window(l.StatusWindow)
	r.drawStatus(status)
	return u
}

func (r *Renderer) drawStatus(status ConnectStatus) {
	l := r.layout
	dst := r.frame.SubImage(l.StatusWindow.Rect().Intersect(r.frame.Rect)).(*image.Gray)
	cx := l.Width / 2
	centerText(dst, r.faces.label, cx, l.StatusWindow.Y+20, "Testing Connection", Ink)
	centerText(dst, r.faces.label, cx, l.StatusWindow.Y+45, status.String(), Ink)
}
