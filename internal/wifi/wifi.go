// Package wifi joins a station network or raises a setup hotspot through
// NetworkManager's nmcli.
package wifi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"inkhat/internal/logging"
)

var ErrConnectFailed = errors.New("wifi: connect failed")

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	if err != nil {
		return out.Bytes(), fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(out.String()))
	}
	return out.Bytes(), nil
}

// Progress is called after every connection attempt. final is true on the
// last attempt regardless of outcome.
type Progress func(attempt int, final bool, err error)

type Manager struct {
	Runner         Runner
	Interface      string
	Attempts       int
	AttemptTimeout time.Duration
	Log            *logging.StructuredLogger
}

func NewManager(iface string, attempts int, timeout time.Duration, log *logging.StructuredLogger) *Manager {
	return &Manager{
		Runner:         ExecRunner{},
		Interface:      iface,
		Attempts:       attempts,
		AttemptTimeout: timeout,
		Log:            log,
	}
}

// Online reports whether NetworkManager has full connectivity.
func (m *Manager) Online(ctx context.Context) bool {
	out, err := m.Runner.Run(ctx, "nmcli", "-t", "-f", "STATE", "general")
	if err != nil {
		m.Log.Debug(ctx, "[WIFI] state query failed", logging.Fields{"error": err.Error()})
		return false
	}
	return strings.TrimSpace(string(out)) == "connected"
}

// Connect tries to join ssid up to Attempts times.
func (m *Manager) Connect(ctx context.Context, ssid, pass string, progress Progress) error {
	attempts := m.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		last = m.connectOnce(ctx, ssid, pass)
		final := last == nil || attempt == attempts
		if progress != nil {
			progress(attempt, final, last)
		}
		if last == nil {
			m.Log.Info(ctx, "[WIFI] connected", logging.Fields{"ssid": ssid, "attempt": attempt})
			return nil
		}
		m.Log.Warn(ctx, "[WIFI] connect attempt failed", logging.Fields{"ssid": ssid, "attempt": attempt, "error": last.Error()})
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %s after %d attempts: %v", ErrConnectFailed, ssid, attempts, last)
}

func (m *Manager) connectOnce(ctx context.Context, ssid, pass string) error {
	actx := ctx
	args := []string{}
	if m.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, m.AttemptTimeout)
		defer cancel()
		secs := int(m.AttemptTimeout.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		args = append(args, "--wait", strconv.Itoa(secs))
	}
	args = append(args, "device", "wifi", "connect", ssid)
	if pass != "" {
		args = append(args, "password", pass)
	}
	if m.Interface != "" {
		args = append(args, "ifname", m.Interface)
	}
	_, err := m.Runner.Run(actx, "nmcli", args...)
	return err
}

// StartAP raises a WPA2 hotspot for the setup portal.
func (m *Manager) StartAP(ctx context.Context, ssid, pass string) error {
	args := []string{"device", "wifi", "hotspot", "ssid", ssid, "password", pass}
	if m.Interface != "" {
		args = append(args, "ifname", m.Interface)
	}
	if _, err := m.Runner.Run(ctx, "nmcli", args...); err != nil {
		return fmt.Errorf("wifi: start hotspot: %w", err)
	}
	m.Log.Info(ctx, "[WIFI] hotspot up", logging.Fields{"ssid": ssid})
	return nil
}
