// Package rate turns cumulative counters into per-second rates.
package rate

import (
	"math"
	"time"

	constants "sysmon/config"
)

// MinElapsed is the shortest interval over which a rate is recomputed.
const MinElapsed = constants.MIN_RATE_INTERVAL_MS * time.Millisecond

// SaturatingSub returns curr-prev, or 0 when the counter went backwards.
func SaturatingSub(prev, curr uint64) uint64 {
	if curr < prev {
		return 0
	}
	return curr - prev
}

// PerSecond scales delta over elapsed into units per second. The caller
// guarantees elapsed >= MinElapsed.
func PerSecond(delta uint64, elapsed time.Duration, divisor float64) float64 {
	if divisor <= 0 {
		divisor = 1
	}
	return float64(delta) / elapsed.Seconds() / divisor
}

// Compute returns the rate between two counter readings. ok is false when
// the elapsed time is below MinElapsed (including clock steps backwards),
// in which case the caller keeps its previous value.
func Compute(prev, curr uint64, prevTime, currTime time.Time, divisor float64) (float64, bool) {
	elapsed := currTime.Sub(prevTime)
	if elapsed < MinElapsed {
		return 0, false
	}
	return PerSecond(SaturatingSub(prev, curr), elapsed, divisor), true
}

// Smooth blends a new sample into the previous value:
// prev*weight + sample*(1-weight).
func Smooth(prev, sample, weight float64) float64 {
	if weight < 0 {
		weight = 0
	} else if weight > 1 {
		weight = 1
	}
	return prev*weight + sample*(1-weight)
}

// ClampPercent ensures the percentage is between 0 and 100. NaN maps to 0.
func ClampPercent(value float64) float64 {
	if math.IsNaN(value) {
		return 0
	}
	return math.Min(100, math.Max(0, value))
}

// NonNegative clamps negative and NaN values to 0.
func NonNegative(value float64) float64 {
	if math.IsNaN(value) || value < 0 {
		return 0
	}
	return value
}
