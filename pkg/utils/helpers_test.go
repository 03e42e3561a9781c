package utils

import (
	"testing"
	"time"
)

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{-5, "0.0 KB/s"},
		{0, "0.0 KB/s"},
		{512.25, "512.2 KB/s"},
		{1024, "1.0 MB/s"},
		{1536, "1.5 MB/s"},
		{2 * 1024 * 1024, "2.0 GB/s"},
	}
	for _, tt := range tests {
		if got := FormatSpeed(tt.in); got != tt.want {
			t.Errorf("FormatSpeed(%v): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536 * 1024, "1.5 MB"},
		{8 << 30, "8.0 GB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		1234567:  "1,234,567",
		-1234567: "-1,234,567",
	}
	for in, want := range tests {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%d): expected %s, got %s", in, want, got)
		}
	}
}

func TestFormatTimeAgo(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{5 * time.Second, "5s ago"},
		{3 * time.Minute, "3m ago"},
		{2 * time.Hour, "2h ago"},
		{3 * 24 * time.Hour, "3d ago"},
		{30 * 24 * time.Hour, "2024-02-09"},
	}
	for _, tt := range tests {
		if got := FormatTimeAgo(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("FormatTimeAgo(%v): expected %s, got %s", tt.ago, tt.want, got)
		}
	}
}

func TestFormatUptime(t *testing.T) {
	if got := FormatUptime(3*86400 + 4*3600 + 5*60); got != "3d 4h 5m" {
		t.Errorf("Expected 3d 4h 5m, got %s", got)
	}
	if got := FormatUptime(59); got != "0m" {
		t.Errorf("Expected 0m, got %s", got)
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("postgres: checkpointer", 10); got != "postgre..." {
		t.Errorf("Expected postgre..., got %s", got)
	}
	if got := TruncateString("init", 10); got != "init" {
		t.Errorf("Expected init, got %s", got)
	}
	if got := TruncateString("日本語テキスト", 5); got != "日本..." {
		t.Errorf("Expected rune-safe truncation, got %s", got)
	}
}

func TestLevels(t *testing.T) {
	if CPULevel(90) != LevelCritical || CPULevel(10) != LevelLow {
		t.Errorf("Unexpected CPU levels")
	}
	if UsageLevel(80) != LevelHigh || UsageLevel(60) != LevelMedium {
		t.Errorf("Unexpected usage levels")
	}
	if TemperatureLevel(70) != LevelMedium {
		t.Errorf("Unexpected temperature level")
	}
}
