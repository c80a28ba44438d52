// Package console reads single-character maintenance commands from a serial
// line or stdin.
package console

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
)

type Command int

const (
	Unknown Command = iota
	ClearWiFi
	PinDump
)

func (c Command) String() string {
	switch c {
	case ClearWiFi:
		return "clear-wifi"
	case PinDump:
		return "pin-dump"
	default:
		return "unknown"
	}
}

// Help is logged for any unrecognised command.
const Help = "Unknown command. Use 'W' to clear WiFi or 'D' for pin debug."

// Parse maps one input byte to a command. Line endings and spaces are
// ignored (ok=false).
func Parse(b byte) (Command, bool) {
	switch b {
	case 'W', 'w':
		return ClearWiFi, true
	case 'D', 'd':
		return PinDump, true
	case '\r', '\n', ' ', '\t':
		return Unknown, false
	default:
		return Unknown, true
	}
}

// Read forwards commands from r to out until r is exhausted or ctx ends.
// A read already blocked in r is not interrupted by ctx.
func Read(ctx context.Context, r io.Reader, out chan<- Command) error {
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		cmd, ok := Parse(b)
		if !ok {
			continue
		}
		select {
		case out <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Open resolves the configured console: "" disables it, "stdin" is the
// process stdin, anything else is opened as a device path.
func Open(name string) (io.ReadCloser, error) {
	switch name {
	case "":
		return nil, nil
	case "stdin":
		return io.NopCloser(os.Stdin), nil
	default:
		return os.Open(name)
	}
}
