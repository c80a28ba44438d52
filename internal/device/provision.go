package device

import (
	"context"
	"fmt"

	"inkhat/internal/logging"
	"inkhat/internal/render"
	"inkhat/internal/wifi"
)

// Network joins a station network or raises the setup hotspot.
type Network interface {
	Connect(ctx context.Context, ssid, pass string, progress wifi.Progress) error
	StartAP(ctx context.Context, ssid, pass string) error
}

// AccessPoint describes the setup hotspot and where its portal is served.
type AccessPoint struct {
	SSID string
	Pass string
	URL  string
}

// Provision joins ssid, showing progress on the panel. When there is no ssid
// or every attempt fails it raises the hotspot, draws the setup screen and
// returns online=false.
func (d *Device) Provision(ctx context.Context, net Network, ssid, pass string, ap AccessPoint) (bool, error) {
	if ssid != "" {
		d.push(ctx, d.Renderer.Connecting(1, render.Connecting))
		err := net.Connect(ctx, ssid, pass, func(attempt int, final bool, err error) {
			switch {
			case err == nil:
				d.push(ctx, d.Renderer.Connecting(attempt, render.Connected))
			case final:
				d.push(ctx, d.Renderer.Connecting(attempt, render.Failed))
			default:
				d.push(ctx, d.Renderer.Connecting(attempt, render.Retrying))
			}
		})
		if err == nil {
			return true, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		d.Log.Warn(ctx, "[WIFI] falling back to setup", logging.Fields{"ssid": ssid, "error": err.Error()})
	}

	if err := net.StartAP(ctx, ap.SSID, ap.Pass); err != nil {
		return false, fmt.Errorf("device: setup hotspot: %w", err)
	}
	d.push(ctx, d.Renderer.Setup(ap.SSID, ap.Pass, ap.URL))
	return false, nil
}
