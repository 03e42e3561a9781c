// Package sources reads host metrics and normalizes them into plain
// readings. Every domain is best-effort: a failing domain yields an empty
// reading and a *DomainError, never a whole-cycle failure.
package sources

import (
	"context"
	"runtime"
)

// Domain names one metric family.
type Domain string

const (
	DomainCPU     Domain = "cpu"
	DomainMemory  Domain = "memory"
	DomainDisk    Domain = "disk"
	DomainNetwork Domain = "network"
	DomainProcess Domain = "process"
	DomainGPU     Domain = "gpu"
)

// DiskKind classifies storage media.
type DiskKind string

const (
	DiskHDD     DiskKind = "HDD"
	DiskSSD     DiskKind = "SSD"
	DiskUnknown DiskKind = "Unknown"
)

// MemoryReading is physical memory usage in bytes.
type MemoryReading struct {
	UsedBytes  uint64
	TotalBytes uint64
}

// DiskReading describes one physical partition.
type DiskReading struct {
	Name        string // device, e.g. /dev/sda1
	MountPoint  string
	Kind        DiskKind
	TotalBytes  uint64
	UsedBytes   uint64
	UsedPercent float64
	HasIO       bool // ReadBytes/WriteBytes are real cumulative counters
	ReadBytes   uint64
	WriteBytes  uint64
}

// NetworkReading carries cumulative byte counters for one interface.
type NetworkReading struct {
	Name    string
	RxBytes uint64
	TxBytes uint64
}

// ProcessReading is one row of the process table.
type ProcessReading struct {
	PID        int32
	Name       string
	CPUTimeMs  uint64 // cumulative user+system time
	RSSBytes   uint64
	HasIO      bool
	ReadBytes  uint64
	WriteBytes uint64
}

// GPUReading is one graphics adapter. Memory is in GB (1e9 bytes), power
// in watts, temperature in Celsius.
type GPUReading struct {
	Name          string
	Utilization   float64
	Temperature   float64
	MemoryUsedGB  float64
	MemoryTotalGB float64
	PowerWatts    float64
	Source        string // strategy that produced the reading
	Synthetic     bool   // estimated, not measured
}

// Hint passes already-collected context to sources that estimate.
type Hint struct {
	CPUAverage float64
}

// Refresher captures one time-consistent frame of OS counters per cycle.
type Refresher interface {
	Refresh(ctx context.Context) *Frame
}

// CPUSource returns per-core busy percentages.
type CPUSource interface {
	CPU(f *Frame) ([]float64, error)
}

// MemorySource returns physical memory usage.
type MemorySource interface {
	Memory(f *Frame) (MemoryReading, error)
}

// DiskSource returns one reading per physical partition.
type DiskSource interface {
	Disks(f *Frame) ([]DiskReading, error)
}

// NetworkSource returns per-interface counters.
type NetworkSource interface {
	Networks(f *Frame) ([]NetworkReading, error)
}

// ProcessSource returns the process table.
type ProcessSource interface {
	Processes(f *Frame) ([]ProcessReading, error)
}

// GPUSource returns graphics adapters.
type GPUSource interface {
	GPUs(ctx context.Context, hint Hint) ([]GPUReading, error)
}

// Resetter is implemented by sources that carry state between frames.
type Resetter interface {
	Reset()
}

// Set bundles the sources a collector samples from.
type Set struct {
	Refresher Refresher
	CPU       CPUSource
	Memory    MemorySource
	Disk      DiskSource
	Network   NetworkSource
	Process   ProcessSource
	GPU       GPUSource
}

// PlatformName returns a human-readable OS family name.
func PlatformName() string {
	return platformName(runtime.GOOS)
}

func platformName(goos string) string {
	switch goos {
	case "windows":
		return "Windows"
	case "darwin":
		return "macOS"
	case "linux":
		return "Linux"
	default:
		return "Unknown OS"
	}
}
