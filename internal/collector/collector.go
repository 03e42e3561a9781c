// Package collector runs the sampling cycle: it reads every source once,
// folds the readings into per-entity state and ring histories, and
// assembles one immutable snapshot.
package collector

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strconv"
	"sync"
	"time"

	constants "sysmon/config"
	"sysmon/internal/history"
	"sysmon/internal/logger"
	"sysmon/internal/metrics"
	"sysmon/internal/rate"
	"sysmon/internal/sources"
	"sysmon/internal/tracker"
)

var (
	// ErrCycleFailure is returned when a panic escapes a cycle.
	ErrCycleFailure = errors.New("collection cycle failed")
	// ErrStateCorruption is returned by the first request after a failed
	// cycle, once the shared state has been repaired.
	ErrStateCorruption = errors.New("collector state was corrupted and has been repaired")
)

// Options configures a Collector.
type Options struct {
	HistoryLength int
	TopProcesses  int
	Platform      string
	Log           *logger.Logger
}

// Collector owns all aggregation state. Every cycle holds the lock for
// its full duration, so on-demand requests and the periodic loop never
// interleave.
type Collector struct {
	mu   sync.Mutex
	src  sources.Set
	opts Options
	log  *logger.Logger

	cpuHistory    *history.Group
	memoryHistory *history.Series
	network       *tracker.Tracker
	disks         *tracker.Tracker
	gpuHistory    *history.Store
	procCPU       *tracker.Tracker
	procIO        *tracker.Tracker
	sysDiskRead   *history.Series
	sysDiskWrite  *history.Series
	sysDiskRates  tracker.Rates
	ioSince       time.Time // end of the last system disk I/O window

	poisoned bool
}

// New creates a collector over src.
func New(src sources.Set, opts Options) *Collector {
	if opts.HistoryLength < 1 {
		opts.HistoryLength = constants.HISTORY_LENGTH
	}
	if opts.TopProcesses < 1 {
		opts.TopProcesses = constants.TOP_PROCESS_LIMIT
	}
	if opts.Platform == "" {
		opts.Platform = sources.PlatformName()
	}
	if opts.Log == nil {
		opts.Log = logger.Default()
	}

	c := &Collector{src: src, opts: opts, log: opts.Log}
	c.reset()
	return c
}

func (c *Collector) reset() {
	n := c.opts.HistoryLength
	c.cpuHistory = history.NewGroup(n)
	c.memoryHistory = history.NewSeries(n)
	c.network = newNetworkTracker(n)
	c.disks = newDiskTracker(n)
	c.gpuHistory = history.NewStore(n)
	c.procCPU = newProcCPUTracker()
	c.procIO = newProcIOTracker()
	c.sysDiskRead = history.NewSeries(n)
	c.sysDiskWrite = history.NewSeries(n)
	c.sysDiskRates = tracker.Rates{}
	c.ioSince = time.Time{}
}

func newNetworkTracker(n int) *tracker.Tracker {
	return tracker.New(tracker.Options{HistoryLength: n, Divisor: constants.KB_DIVISOR})
}

func newDiskTracker(n int) *tracker.Tracker {
	return tracker.New(tracker.Options{
		HistoryLength:   n,
		Divisor:         constants.KB_DIVISOR,
		SmoothingWeight: constants.SMOOTHING_PREVIOUS_WEIGHT,
	})
}

// newProcCPUTracker rates cumulative CPU milliseconds as percent of one
// core.
func newProcCPUTracker() *tracker.Tracker {
	return tracker.New(tracker.Options{HistoryLength: 1, Divisor: constants.CPU_MS_TO_PERCENT})
}

func newProcIOTracker() *tracker.Tracker {
	return tracker.New(tracker.Options{HistoryLength: 1})
}

// Platform returns the platform name stamped on snapshots.
func (c *Collector) Platform() string { return c.opts.Platform }

// Poisoned reports whether the last cycle aborted and the state still
// awaits repair.
func (c *Collector) Poisoned() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poisoned
}

// Collect runs one full cycle and returns its snapshot. If the previous
// cycle aborted, the state is repaired first and ErrStateCorruption is
// returned for this request.
func (c *Collector) Collect(ctx context.Context) (*metrics.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.poisoned {
		repairs := c.repair()
		c.poisoned = false
		c.log.Warning("Collector state repaired after failed cycle (%d fixes)", repairs)
		return nil, ErrStateCorruption
	}

	return c.cycle(ctx)
}

func (c *Collector) cycle(ctx context.Context) (snap *metrics.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.poisoned = true
			c.log.Error("Collection cycle panicked: %v\n%s", r, debug.Stack())
			snap = nil
			err = fmt.Errorf("%w: %v", ErrCycleFailure, r)
		}
	}()

	// Phase 1: one OS frame for the whole cycle
	f := c.src.Refresher.Refresh(ctx)
	if f == nil {
		return nil, fmt.Errorf("%w: no frame captured", ErrCycleFailure)
	}

	// Phase 2: per-domain reads, isolated from each other
	r := c.read(ctx, f)

	// Phase 3: derive rates, update histories and assemble
	snap = metrics.NewSnapshot(f.Time, c.opts.Platform)
	c.applyCPU(snap, r.cpu)
	c.applyMemory(snap, r.memory)
	c.applyNetwork(snap, r.networks, f.Time)
	c.applyDisks(snap, r.disks, f.Time)
	c.applyGPUs(snap, r.gpus)
	c.applyProcesses(snap, r.processes, f.Time)
	c.prune()

	snap.EnsureComplete()
	return snap, nil
}

// =============================================================================
// Domain Reads
// =============================================================================

type readings struct {
	cpu       []float64
	memory    sources.MemoryReading
	disks     []sources.DiskReading
	networks  []sources.NetworkReading
	processes []sources.ProcessReading
	gpus      []sources.GPUReading
}

func (c *Collector) read(ctx context.Context, f *sources.Frame) readings {
	var r readings

	c.domain(sources.DomainCPU, func() (err error) {
		if c.src.CPU != nil {
			r.cpu, err = c.src.CPU.CPU(f)
		}
		return err
	})
	c.domain(sources.DomainMemory, func() (err error) {
		if c.src.Memory != nil {
			r.memory, err = c.src.Memory.Memory(f)
		}
		return err
	})
	c.domain(sources.DomainDisk, func() (err error) {
		if c.src.Disk != nil {
			r.disks, err = c.src.Disk.Disks(f)
		}
		return err
	})
	c.domain(sources.DomainNetwork, func() (err error) {
		if c.src.Network != nil {
			r.networks, err = c.src.Network.Networks(f)
		}
		return err
	})
	c.domain(sources.DomainProcess, func() (err error) {
		if c.src.Process != nil {
			r.processes, err = c.src.Process.Processes(f)
		}
		return err
	})
	c.domain(sources.DomainGPU, func() (err error) {
		if c.src.GPU != nil {
			r.gpus, err = c.src.GPU.GPUs(ctx, sources.Hint{CPUAverage: average(r.cpu)})
		}
		return err
	})

	return r
}

// domain runs one source read. Errors and panics are logged and leave the
// domain empty for this cycle.
func (c *Collector) domain(d sources.Domain, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("%s source panicked: %v", d, r)
		}
	}()

	err := fn()
	switch {
	case err == nil:
	case errors.Is(err, sources.ErrInvalidReading):
		c.log.Warning("%v", err)
	default:
		c.log.Debug("%v", err)
	}
}

// =============================================================================
// Derive & Assemble
// =============================================================================

func (c *Collector) applyCPU(snap *metrics.Snapshot, usage []float64) {
	if len(usage) == 0 {
		// no reading this cycle; keep the per-core histories as they are
		snap.CPUUsage = []float64{}
		snap.CPUHistory = c.cpuHistory.Values()
		return
	}

	prev := c.cpuHistory.Len()
	if c.cpuHistory.ResizeToKeyCount(len(usage)) && prev > 0 {
		c.log.Warning("CPU core count changed from %d to %d, history reset", prev, len(usage))
	}

	snap.CPUUsage = make([]float64, len(usage))
	for i, v := range usage {
		v = rate.ClampPercent(v)
		snap.CPUUsage[i] = v
		c.cpuHistory.Push(i, v)
	}
	snap.CPUHistory = c.cpuHistory.Values()
}

func (c *Collector) applyMemory(snap *metrics.Snapshot, m sources.MemoryReading) {
	if m.TotalBytes > 0 {
		snap.MemoryUsed = float64(m.UsedBytes) / constants.GIB_DIVISOR
		snap.MemoryTotal = float64(m.TotalBytes) / constants.GIB_DIVISOR
	}
	c.memoryHistory.Push(rate.ClampPercent(snap.MemoryPercent()))
	snap.MemoryHistory = c.memoryHistory.Values()
}

func (c *Collector) applyNetwork(snap *metrics.Snapshot, nets []sources.NetworkReading, now time.Time) {
	for _, n := range nets {
		e := c.network.Observe(n.Name, tracker.Counters{In: n.RxBytes, Out: n.TxBytes}, now)
		snap.NetworkData[n.Name] = metrics.NetworkData{
			RxHistory:      e.InHistory,
			TxHistory:      e.OutHistory,
			CurrentRxSpeed: e.Rates.In,
			CurrentTxSpeed: e.Rates.Out,
		}
	}
}

func (c *Collector) applyDisks(snap *metrics.Snapshot, disks []sources.DiskReading, now time.Time) {
	for _, d := range disks {
		var e tracker.Entry
		if d.HasIO {
			e = c.disks.Observe(d.Name, tracker.Counters{In: d.ReadBytes, Out: d.WriteBytes}, now)
		} else {
			e = c.disks.ObserveEstimate(d.Name, estimateDiskIO(d.UsedPercent), now)
		}

		snap.DiskData[d.Name] = metrics.DiskData{
			Name:             d.Name,
			MountPoint:       d.MountPoint,
			DiskType:         string(d.Kind),
			TotalSpace:       float64(d.TotalBytes) / constants.GIB_DIVISOR,
			UsedSpace:        float64(d.UsedBytes) / constants.GIB_DIVISOR,
			UsedPercentage:   rate.ClampPercent(d.UsedPercent),
			ReadBytesPerSec:  e.Rates.In,
			WriteBytesPerSec: e.Rates.Out,
			ReadHistory:      e.InHistory,
			WriteHistory:     e.OutHistory,
			IOEstimated:      !d.HasIO,
		}
	}
}

// estimateDiskIO derives a KB/s activity sample from how full the disk is,
// for platforms without per-device counters.
func estimateDiskIO(usedPercent float64) tracker.Rates {
	activity := rate.ClampPercent(usedPercent) / 100 * 10
	return tracker.Rates{In: activity, Out: activity * 0.8}
}

func (c *Collector) applyGPUs(snap *metrics.Snapshot, gpus []sources.GPUReading) {
	keep := make(map[string]struct{}, len(gpus))
	for _, g := range gpus {
		util := rate.ClampPercent(g.Utilization)
		c.gpuHistory.Push(g.Name, util)
		keep[g.Name] = struct{}{}

		snap.GPUData = append(snap.GPUData, metrics.GPUData{
			Name:               g.Name,
			Utilization:        util,
			Temperature:        g.Temperature,
			MemoryUsed:         g.MemoryUsedGB,
			MemoryTotal:        g.MemoryTotalGB,
			PowerUsage:         g.PowerWatts,
			UtilizationHistory: c.gpuHistory.Values(g.Name),
			Source:             g.Source,
			Synthetic:          g.Synthetic,
		})
	}
	if removed := c.gpuHistory.Retain(keep); len(removed) > 0 {
		c.log.Info("GPU removed: %v", removed)
	}
}

// applyProcesses derives per-process CPU % and the system-wide disk I/O
// rate from per-PID deltas. Within rate.MinElapsed of the previous window
// both keep their last values and the stored counters are left alone.
func (c *Collector) applyProcesses(snap *metrics.Snapshot, procs []sources.ProcessReading, now time.Time) {
	elapsed := time.Duration(0)
	if !c.ioSince.IsZero() {
		elapsed = now.Sub(c.ioSince)
	}
	fresh := elapsed >= rate.MinElapsed

	var readDelta, writeDelta uint64
	top := make([]metrics.ProcessInfo, 0, len(procs))
	for _, p := range procs {
		id := strconv.FormatInt(int64(p.PID), 10)

		cpu := c.procCPU.Observe(id, tracker.Counters{In: p.CPUTimeMs}, now)

		if p.HasIO {
			if fresh || !c.procIO.Has(id) {
				hasPrior, delta := c.procIO.Upsert(id, tracker.Counters{In: p.ReadBytes, Out: p.WriteBytes}, now)
				if hasPrior {
					readDelta += delta.In
					writeDelta += delta.Out
				}
			} else {
				c.procIO.Touch(id)
			}
		}

		top = append(top, metrics.ProcessInfo{
			PID:        uint32(p.PID),
			Name:       p.Name,
			CPUPercent: float32(cpu.Rates.In),
			MemoryMB:   p.RSSBytes / uint64(constants.MB_DIVISOR),
		})
	}

	sort.SliceStable(top, func(i, j int) bool {
		if top[i].CPUPercent != top[j].CPUPercent {
			return top[i].CPUPercent > top[j].CPUPercent
		}
		return top[i].PID < top[j].PID
	})
	if len(top) > c.opts.TopProcesses {
		top = top[:c.opts.TopProcesses]
	}
	snap.TopProcesses = top

	switch {
	case fresh:
		c.sysDiskRates = tracker.Rates{
			In:  rate.PerSecond(readDelta, elapsed, constants.KB_DIVISOR),
			Out: rate.PerSecond(writeDelta, elapsed, constants.KB_DIVISOR),
		}
		c.ioSince = now
	case c.ioSince.IsZero():
		c.sysDiskRates = tracker.Rates{}
		c.ioSince = now
	}
	c.sysDiskRead.Push(c.sysDiskRates.In)
	c.sysDiskWrite.Push(c.sysDiskRates.Out)

	snap.SystemDiskReadPerSec = c.sysDiskRates.In
	snap.SystemDiskWritePerSec = c.sysDiskRates.Out
	snap.SystemDiskReadHistory = c.sysDiskRead.Values()
	snap.SystemDiskWriteHistory = c.sysDiskWrite.Values()
}

func (c *Collector) prune() {
	if removed := c.network.Prune(); len(removed) > 0 {
		c.log.Info("Network interface removed: %v", removed)
	}
	if removed := c.disks.Prune(); len(removed) > 0 {
		c.log.Info("Disk removed: %v", removed)
	}
	c.procCPU.Prune()
	c.procIO.Prune()
}

// =============================================================================
// Recovery
// =============================================================================

// repair re-validates every sub-state left behind by an aborted cycle and
// resets what cannot be fixed in place. It returns the number of fixes.
func (c *Collector) repair() int {
	fixes := 0
	n := c.opts.HistoryLength

	trackers := []struct {
		t     **tracker.Tracker
		build func() *tracker.Tracker
	}{
		{&c.network, func() *tracker.Tracker { return newNetworkTracker(n) }},
		{&c.disks, func() *tracker.Tracker { return newDiskTracker(n) }},
		{&c.procCPU, newProcCPUTracker},
		{&c.procIO, newProcIOTracker},
	}
	for _, tr := range trackers {
		if *tr.t == nil {
			*tr.t = tr.build()
			fixes++
			continue
		}
		fixes += (*tr.t).Validate()
	}

	if c.gpuHistory == nil {
		c.gpuHistory = history.NewStore(n)
		fixes++
	} else {
		fixes += c.gpuHistory.Validate()
	}

	for _, s := range []**history.Series{&c.memoryHistory, &c.sysDiskRead, &c.sysDiskWrite} {
		if !(*s).ValidWithCap(n) {
			*s = history.NewSeries(n)
			fixes++
		}
	}

	// The CPU baseline may be half-updated, so per-core history restarts.
	if c.cpuHistory == nil {
		c.cpuHistory = history.NewGroup(n)
		fixes++
	} else {
		c.cpuHistory.Reset()
	}
	if r, ok := c.src.CPU.(sources.Resetter); ok {
		r.Reset()
	}
	return fixes
}

func average(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
