package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, LevelWarning)

	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	l.Warning("warn %d", 3)
	l.Error("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("Expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "WARNING: warn 3") {
		t.Errorf("Expected warning line, got %q", out)
	}
	if !strings.Contains(out, "ERROR: error 4") {
		t.Errorf("Expected error line, got %q", out)
	}
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, LevelError)
	l.Debug("hidden")
	l.SetLevel(LevelDebug)
	l.Debug("visible")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("Expected first debug line to be dropped")
	}
	if !strings.Contains(buf.String(), "DEBUG: visible") {
		t.Errorf("Expected debug line after SetLevel, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"WARN", LevelWarning},
		{" error ", LevelError},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestLogger_NilSafe(t *testing.T) {
	var l *Logger
	l.Info("no panic")
}
