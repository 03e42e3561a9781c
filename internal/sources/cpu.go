package sources

import (
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"

	"sysmon/internal/rate"
)

// HostCPU derives per-core busy percentages from consecutive frames.
type HostCPU struct {
	prev []cpu.TimesStat
}

// NewHostCPU creates a CPU adapter with no baseline.
func NewHostCPU() *HostCPU {
	return &HostCPU{}
}

// CPU returns per-core usage in [0,100]. The first frame, or a frame whose
// core count differs from the baseline, only sets the baseline and yields
// zeros.
func (c *HostCPU) CPU(f *Frame) ([]float64, error) {
	if err := f.Err(DomainCPU); err != nil {
		return []float64{}, err
	}
	if len(f.CPUTimes) == 0 {
		return []float64{}, unavailable(DomainCPU, nil)
	}

	curr := make([]cpu.TimesStat, len(f.CPUTimes))
	copy(curr, f.CPUTimes)

	usage := make([]float64, len(curr))
	if len(c.prev) == len(curr) {
		for i := range curr {
			usage[i] = calculateBusy(c.prev[i], curr[i])
		}
	}
	c.prev = curr
	return usage, nil
}

// Reset drops the baseline.
func (c *HostCPU) Reset() {
	c.prev = nil
}

// calculateBusy calculates the CPU busy percentage between two time points.
func calculateBusy(t1, t2 cpu.TimesStat) float64 {
	t1All, t1Busy := getAllBusy(t1)
	t2All, t2Busy := getAllBusy(t2)

	if t2All <= t1All || t2Busy <= t1Busy {
		return 0
	}

	return rate.ClampPercent((t2Busy - t1Busy) / (t2All - t1All) * 100)
}

// getAllBusy returns (total CPU time, busy CPU time). On Linux guest time
// is already part of user time, so it is removed from the total to match htop.
func getAllBusy(t cpu.TimesStat) (float64, float64) {
	tot := t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq +
		t.Softirq + t.Steal + t.Guest + t.GuestNice

	if runtime.GOOS == "linux" {
		tot -= t.Guest
		tot -= t.GuestNice
	}

	busy := tot - t.Idle - t.Iowait
	return tot, busy
}
