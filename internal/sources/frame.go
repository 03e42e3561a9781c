package sources

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"

	"sysmon/internal/logger"
)

// Partition is a mounted physical partition with its usage, if readable.
type Partition struct {
	Device     string
	Mountpoint string
	Fstype     string
	Usage      *disk.UsageStat
}

// Frame is the raw OS state captured once per cycle. Every domain adapter
// in a cycle reads the same frame.
type Frame struct {
	Time       time.Time
	CPUTimes   []cpu.TimesStat
	Memory     *mem.VirtualMemoryStat
	Partitions []Partition
	DiskIO     map[string]disk.IOCountersStat
	NetIO      []net.IOCountersStat
	Processes  []ProcessReading

	errs map[Domain]error
}

// NewFrame returns an empty frame stamped with t.
func NewFrame(t time.Time) *Frame {
	return &Frame{
		Time:   t,
		DiskIO: map[string]disk.IOCountersStat{},
		errs:   map[Domain]error{},
	}
}

// Err returns the refresh error recorded for d, if any.
func (f *Frame) Err(d Domain) error {
	if f == nil {
		return unavailable(d, nil)
	}
	return f.errs[d]
}

// SetErr records a refresh failure for d.
func (f *Frame) SetErr(d Domain, err error) {
	if err == nil {
		delete(f.errs, d)
		return
	}
	f.errs[d] = err
}

// HostRefresher reads the live host through gopsutil.
type HostRefresher struct {
	log         *logger.Logger
	skipProcess bool
}

// NewHostRefresher creates a refresher. skipProcess disables the process
// table scan, which is the most expensive part of a refresh.
func NewHostRefresher(log *logger.Logger, skipProcess bool) *HostRefresher {
	return &HostRefresher{log: log, skipProcess: skipProcess}
}

// Refresh captures the current OS counters. Per-domain failures are
// recorded on the frame.
func (h *HostRefresher) Refresh(ctx context.Context) *Frame {
	f := NewFrame(time.Now())

	if times, err := cpu.TimesWithContext(ctx, true); err != nil {
		f.SetErr(DomainCPU, unavailable(DomainCPU, err))
	} else {
		f.CPUTimes = times
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		f.SetErr(DomainMemory, unavailable(DomainMemory, err))
	} else {
		f.Memory = vm
	}

	h.refreshDisks(ctx, f)

	if counters, err := net.IOCountersWithContext(ctx, true); err != nil {
		f.SetErr(DomainNetwork, unavailable(DomainNetwork, err))
	} else {
		f.NetIO = counters
	}

	if !h.skipProcess {
		h.refreshProcesses(ctx, f)
	}

	return f
}

func (h *HostRefresher) refreshDisks(ctx context.Context, f *Frame) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		f.SetErr(DomainDisk, unavailable(DomainDisk, err))
		return
	}

	for _, p := range parts {
		part := Partition{Device: p.Device, Mountpoint: p.Mountpoint, Fstype: p.Fstype}
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			h.log.Debug("disk usage %s: %v", p.Mountpoint, err)
		} else {
			part.Usage = usage
		}
		f.Partitions = append(f.Partitions, part)
	}

	// Not every platform exposes per-device counters; rates fall back to
	// estimates when they are missing.
	counters, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		h.log.Debug("disk io counters: %v", err)
		return
	}
	for name, c := range counters {
		f.DiskIO[name] = c
	}
}

func (h *HostRefresher) refreshProcesses(ctx context.Context, f *Frame) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		f.SetErr(DomainProcess, unavailable(DomainProcess, err))
		return
	}

	f.Processes = make([]ProcessReading, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// Process exited between listing and inspection
			continue
		}
		r := ProcessReading{PID: p.Pid, Name: name}

		if t, err := p.TimesWithContext(ctx); err == nil && t != nil {
			r.CPUTimeMs = uint64((t.User + t.System) * 1000)
		}
		if m, err := p.MemoryInfoWithContext(ctx); err == nil && m != nil {
			r.RSSBytes = m.RSS
		}
		if io, err := p.IOCountersWithContext(ctx); err == nil && io != nil {
			r.HasIO = true
			r.ReadBytes = io.ReadBytes
			r.WriteBytes = io.WriteBytes
		}
		f.Processes = append(f.Processes, r)
	}
}
