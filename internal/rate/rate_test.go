package rate

import (
	"math"
	"testing"
	"time"
)

func TestSaturatingSub(t *testing.T) {
	tests := []struct {
		prev, curr, want uint64
	}{
		{100, 150, 50},
		{150, 100, 0}, // counter reset
		{0, 0, 0},
		{math.MaxUint64, 5, 0}, // wraparound
	}
	for _, tt := range tests {
		if got := SaturatingSub(tt.prev, tt.curr); got != tt.want {
			t.Errorf("SaturatingSub(%d, %d): expected %d, got %d", tt.prev, tt.curr, tt.want, got)
		}
	}
}

func TestCompute_KilobytesPerSecond(t *testing.T) {
	t0 := time.Unix(1000, 0)
	t1 := t0.Add(time.Second)

	got, ok := Compute(1000, 2024, t0, t1, 1024)
	if !ok {
		t.Fatalf("Expected a fresh rate")
	}
	if got != 1.0 {
		t.Errorf("Expected 1.0 KB/s, got %f", got)
	}
}

func TestCompute_CounterResetIsZero(t *testing.T) {
	t0 := time.Unix(1000, 0)
	got, ok := Compute(5000, 10, t0, t0.Add(2*time.Second), 1024)
	if !ok || got != 0 {
		t.Errorf("Expected (0, true), got (%f, %v)", got, ok)
	}
}

func TestCompute_BelowMinElapsedIsUnchanged(t *testing.T) {
	t0 := time.Unix(1000, 0)

	if _, ok := Compute(0, 1<<20, t0, t0.Add(500*time.Microsecond), 1024); ok {
		t.Errorf("Expected unchanged for sub-millisecond interval")
	}
	if _, ok := Compute(0, 1<<20, t0, t0, 1024); ok {
		t.Errorf("Expected unchanged for zero interval")
	}
	if _, ok := Compute(0, 1<<20, t0, t0.Add(-time.Second), 1024); ok {
		t.Errorf("Expected unchanged for backwards clock")
	}
}

func TestSmooth(t *testing.T) {
	got := Smooth(10, 20, 0.7)
	if math.Abs(got-13.0) > 1e-9 {
		t.Errorf("Expected 13.0, got %f", got)
	}
	if got := Smooth(10, 20, 0); got != 20 {
		t.Errorf("Expected weight 0 to take the sample, got %f", got)
	}
}

func TestClampPercent(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-5, 0},
		{42.5, 42.5},
		{180, 100},
		{math.NaN(), 0},
		{math.Inf(1), 100},
	}
	for _, tt := range tests {
		if got := ClampPercent(tt.in); got != tt.want {
			t.Errorf("ClampPercent(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}
