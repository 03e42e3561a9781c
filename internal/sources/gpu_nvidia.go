package sources

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	constants "sysmon/config"
)

// Strategy names, as accepted in configuration.
const (
	StrategyNvidiaSMI      = "nvidia-smi"
	StrategyDRM            = "drm"
	StrategyLspci          = "lspci"
	StrategyRadeontop      = "radeontop"
	StrategyIntelGPUTop    = "intel_gpu_top"
	StrategySystemProfiler = "system_profiler"
	StrategyCIM            = "cim"
	StrategySynthetic      = "synthetic"
)

const nvidiaQuery = "--query-gpu=name,utilization.gpu,temperature.gpu,memory.used,memory.total,power.draw"

// NvidiaSMI queries NVIDIA adapters through nvidia-smi's CSV output.
type NvidiaSMI struct {
	runner Runner
}

func (*NvidiaSMI) Name() string         { return StrategyNvidiaSMI }
func (*NvidiaSMI) Placement() Placement { return Always }

func (n *NvidiaSMI) Probe(ctx context.Context, _ Hint) ([]GPUReading, error) {
	out, err := n.runner.Run(ctx, "nvidia-smi", nvidiaQuery, "--format=csv,noheader,nounits")
	if err != nil {
		return nil, err
	}
	return parseNvidiaSMI(string(out))
}

// parseNvidiaSMI parses lines of
// "name, util %, temp C, mem used MiB, mem total MiB, power W".
// Fields reported as [N/A] or [Not Supported] read as 0.
func parseNvidiaSMI(output string) ([]GPUReading, error) {
	var gpus []GPUReading
	for i, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 6 {
			return nil, fmt.Errorf("nvidia-smi line %d: expected 6 fields, got %d", i+1, len(fields))
		}
		name := strings.TrimSpace(fields[0])
		if name == "" {
			name = fmt.Sprintf("NVIDIA GPU %d", i)
		}
		gpus = append(gpus, GPUReading{
			Name:          name,
			Utilization:   parseNumber(fields[1]),
			Temperature:   parseNumber(fields[2]),
			MemoryUsedGB:  mibToGB(parseNumber(fields[3])),
			MemoryTotalGB: mibToGB(parseNumber(fields[4])),
			PowerWatts:    parseNumber(fields[5]),
		})
	}
	return gpus, nil
}

func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func mibToGB(mib float64) float64 {
	return mib * constants.MB_DIVISOR / constants.GPU_GB_DIVISOR
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
