package sources

import (
	"context"
	"io/fs"
	"runtime"

	"sysmon/internal/logger"
	"sysmon/internal/rate"
)

// Placement decides when a GPU strategy runs inside a chain.
type Placement int

const (
	// Always runs regardless of what earlier strategies found.
	Always Placement = iota
	// Fallback runs only while the chain has found no GPU yet.
	Fallback
)

// GPUStrategy is one way of discovering graphics adapters.
type GPUStrategy interface {
	Name() string
	Placement() Placement
	Probe(ctx context.Context, hint Hint) ([]GPUReading, error)
}

// StrategyChain runs GPU strategies in order and merges their results.
// Adapters are de-duplicated by exact name; the first strategy to report a
// name wins. Two physical cards with the same name therefore collapse into
// one reading.
type StrategyChain struct {
	strategies []GPUStrategy
	log        *logger.Logger
}

// NewStrategyChain creates a chain over strategies, run in the given order.
func NewStrategyChain(log *logger.Logger, strategies ...GPUStrategy) *StrategyChain {
	return &StrategyChain{strategies: strategies, log: log}
}

// Strategies returns the strategy names in run order.
func (c *StrategyChain) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// GPUs runs the chain. It never fails as a whole: strategy errors are
// logged at debug and an empty result is reported as ErrSourceUnavailable.
func (c *StrategyChain) GPUs(ctx context.Context, hint Hint) ([]GPUReading, error) {
	out := []GPUReading{}
	seen := map[string]struct{}{}

	for _, s := range c.strategies {
		if s.Placement() == Fallback && len(out) > 0 {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		readings, err := s.Probe(ctx, hint)
		if err != nil {
			c.log.Debug("gpu strategy %s: %v", s.Name(), err)
			continue
		}

		for _, r := range readings {
			if r.Name == "" {
				continue
			}
			if _, dup := seen[r.Name]; dup {
				c.log.Debug("gpu strategy %s: %q already reported, skipping", s.Name(), r.Name)
				continue
			}
			seen[r.Name] = struct{}{}
			if r.Source == "" {
				r.Source = s.Name()
			}
			out = append(out, normalizeGPU(r))
		}
	}

	if len(out) == 0 {
		return out, unavailable(DomainGPU, nil)
	}
	return out, nil
}

func normalizeGPU(r GPUReading) GPUReading {
	r.Utilization = rate.ClampPercent(r.Utilization)
	r.Temperature = rate.NonNegative(r.Temperature)
	r.MemoryTotalGB = rate.NonNegative(r.MemoryTotalGB)
	r.MemoryUsedGB = rate.NonNegative(r.MemoryUsedGB)
	if r.MemoryTotalGB > 0 && r.MemoryUsedGB > r.MemoryTotalGB {
		r.MemoryUsedGB = r.MemoryTotalGB
	}
	r.PowerWatts = rate.NonNegative(r.PowerWatts)
	return r
}

// GPUOptions selects and configures strategies for the host.
type GPUOptions struct {
	Runner    Runner
	SysFS     fs.FS    // filesystem root holding sys/class/drm
	Names     []string // explicit strategy order; empty picks per-platform defaults
	Synthetic bool     // append the synthetic estimator
	Log       *logger.Logger
}

// DefaultGPUStrategyNames returns the per-platform strategy order.
func DefaultGPUStrategyNames(goos string) []string {
	switch goos {
	case "linux":
		return []string{StrategyNvidiaSMI, StrategyDRM, StrategyLspci, StrategyRadeontop, StrategyIntelGPUTop}
	case "darwin":
		return []string{StrategySystemProfiler}
	case "windows":
		return []string{StrategyNvidiaSMI, StrategyCIM}
	default:
		return []string{StrategyNvidiaSMI}
	}
}

// NewGPUChain builds a chain from options. Unknown names are logged and
// skipped. The synthetic estimator, when enabled, is always last.
func NewGPUChain(opts GPUOptions) *StrategyChain {
	names := opts.Names
	if len(names) == 0 {
		names = DefaultGPUStrategyNames(runtime.GOOS)
	}

	var strategies []GPUStrategy
	for _, name := range names {
		var s GPUStrategy
		switch name {
		case StrategyNvidiaSMI:
			s = &NvidiaSMI{runner: opts.Runner}
		case StrategyDRM:
			s = &DRM{fsys: opts.SysFS, runner: opts.Runner}
		case StrategyLspci:
			s = &Lspci{runner: opts.Runner}
		case StrategyRadeontop:
			s = &Radeontop{runner: opts.Runner}
		case StrategyIntelGPUTop:
			s = &IntelGPUTop{runner: opts.Runner}
		case StrategySystemProfiler:
			s = &SystemProfiler{runner: opts.Runner}
		case StrategyCIM:
			s = &CIM{runner: opts.Runner}
		case StrategySynthetic:
			continue
		default:
			opts.Log.Warning("unknown gpu strategy %q ignored", name)
			continue
		}
		strategies = append(strategies, s)
	}
	if opts.Synthetic {
		strategies = append(strategies, Synthetic{})
	}
	return NewStrategyChain(opts.Log, strategies...)
}
