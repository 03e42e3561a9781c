package utils

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Level is a coarse severity bucket used for coloring values.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
	LevelCritical
)

// FormatSpeed formats a rate given in KB/s as KB/s, MB/s or GB/s.
func FormatSpeed(kbps float64) string {
	if kbps < 0 || math.IsNaN(kbps) {
		return "0.0 KB/s"
	}
	if kbps < 1024 {
		return fmt.Sprintf("%.1f KB/s", kbps)
	}
	mbps := kbps / 1024
	if mbps < 1024 {
		return fmt.Sprintf("%.1f MB/s", mbps)
	}
	return fmt.Sprintf("%.1f GB/s", mbps/1024)
}

// FormatBytes formats bytes into human readable format
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit && exp < 5; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatGB formats a size already expressed in GB.
func FormatGB(gb float64) string {
	if gb >= 1024 {
		return fmt.Sprintf("%.1f TB", gb/1024)
	}
	return fmt.Sprintf("%.1f GB", gb)
}

// FormatPercentage formats a float as percentage
func FormatPercentage(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}

// FormatNumber formats an integer with thousands separators.
func FormatNumber(value int64) string {
	s := strconv.FormatInt(value, 10)
	sign := ""
	if value < 0 {
		sign, s = "-", s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + s
}

// FormatTimeAgo renders how long before now t was, e.g. "5s ago".
func FormatTimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
	return t.Format("2006-01-02")
}

// FormatUptime renders seconds as "3d 4h 5m".
func FormatUptime(seconds uint64) string {
	d := seconds / 86400
	h := (seconds % 86400) / 3600
	m := (seconds % 3600) / 60
	switch {
	case d > 0:
		return fmt.Sprintf("%dd %dh %dm", d, h, m)
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// Round rounds a float64 to specified decimal places
func Round(value float64, decimals int) float64 {
	shift := math.Pow(10, float64(decimals))
	return math.Round(value*shift) / shift
}

// TruncateString shortens s to maxLen runes, ending in "...".
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// CPULevel buckets CPU usage.
func CPULevel(percent float64) Level {
	switch {
	case percent > 85:
		return LevelCritical
	case percent > 60:
		return LevelHigh
	case percent > 30:
		return LevelMedium
	}
	return LevelLow
}

// UsageLevel buckets memory and disk usage.
func UsageLevel(percent float64) Level {
	switch {
	case percent > 90:
		return LevelCritical
	case percent > 75:
		return LevelHigh
	case percent > 50:
		return LevelMedium
	}
	return LevelLow
}

// TemperatureLevel buckets a temperature in Celsius.
func TemperatureLevel(celsius float64) Level {
	switch {
	case celsius > 85:
		return LevelCritical
	case celsius > 75:
		return LevelHigh
	case celsius > 60:
		return LevelMedium
	}
	return LevelLow
}
