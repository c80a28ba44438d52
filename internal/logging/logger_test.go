package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewStructuredLogger("inkhat", "test", InfoLevel)
	l.SetOutput(&buf)

	l.Debug(context.Background(), "hidden", nil)
	if buf.Len() != 0 {
		t.Fatalf("debug written below level: %q", buf.String())
	}

	ctx := WithRequestID(context.Background())
	l.Error(ctx, "[FETCH_ERROR] transit", Fields{"status": 503}, errors.New("boom"))

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry.Level != "ERROR" || entry.Error != "boom" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.RequestID == "" || entry.RequestID != RequestID(ctx) {
		t.Errorf("request id = %q", entry.RequestID)
	}
	if entry.Fields["status"].(float64) != 503 {
		t.Errorf("fields = %v", entry.Fields)
	}
}

func TestContextLoggerMerges(t *testing.T) {
	var buf bytes.Buffer
	l := NewStructuredLogger("inkhat", "test", DebugLevel)
	l.SetOutput(&buf)

	l.WithFields(Fields{"component": "nav", "state": 1}).Info(nil, "moved", Fields{"state": 2})
	out := buf.String()
	if !strings.Contains(out, `"component":"nav"`) || !strings.Contains(out, `"state":2`) {
		t.Errorf("merged output = %s", out)
	}
}

func TestNilLoggerIsSilent(t *testing.T) {
	var l *StructuredLogger
	l.Info(context.Background(), "nothing", nil)
	l.WithFields(Fields{"a": 1}).Warn(context.Background(), "nothing", nil)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug": DebugLevel, "WARN": WarnLevel, "error": ErrorLevel, "": InfoLevel, "bogus": InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
