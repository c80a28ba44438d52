package device

import (
	"context"
	"time"

	"periph.io/x/conn/v3/gpio"

	"inkhat/internal/console"
	"inkhat/internal/logging"
)

const (
	dumpSamples  = 100
	dumpInterval = 100 * time.Millisecond
)

func (d *Device) drain(ctx context.Context) {
	for {
		select {
		case cmd, ok := <-d.Commands:
			if !ok {
				d.Commands = nil
				return
			}
			d.HandleCommand(ctx, cmd)
		default:
			return
		}
	}
}

// HandleCommand executes one console command. It blocks for the duration of
// a pin dump.
func (d *Device) HandleCommand(ctx context.Context, cmd console.Command) {
	switch cmd {
	case console.ClearWiFi:
		d.Log.Info(ctx, "[CONSOLE] clearing WiFi credentials", nil)
		if d.Creds != nil {
			if err := d.Creds.ClearCredentials(ctx); err != nil {
				d.Log.Error(ctx, "[CONSOLE] clear failed", nil, err)
				return
			}
		}
		if d.Restart != nil {
			d.Restart()
		}
	case console.PinDump:
		d.dumpPin(ctx)
	default:
		d.Log.Info(ctx, console.Help, nil)
	}
}

type leveler interface {
	Level() gpio.Level
}

// dumpPin samples the button for ten seconds and logs each level change.
func (d *Device) dumpPin(ctx context.Context) {
	d.Log.Info(ctx, "[PIN] dump start", logging.Fields{"samples": dumpSamples, "interval": dumpInterval.String()})
	changes := 0
	var last bool
	for i := 0; i < dumpSamples; i++ {
		pressed := d.Button.Pressed()
		if i == 0 || pressed != last {
			f := logging.Fields{"sample": i, "pressed": pressed}
			if lv, ok := d.Button.(leveler); ok {
				f["level"] = lv.Level().String()
			}
			d.Log.Info(ctx, "[PIN] level", f)
			if i > 0 {
				changes++
			}
			last = pressed
		}
		if err := d.Sleep(ctx, dumpInterval); err != nil {
			return
		}
	}
	d.Log.Info(ctx, "[PIN] dump done", logging.Fields{"changes": changes})
}
