package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	constants "sysmon/config"
)

// SystemProfiler lists macOS adapters from `system_profiler
// SPDisplaysDataType -json`. macOS exposes no load counters to it, so
// load, temperature and power are fixed per-family estimates and the
// readings are flagged synthetic.
type SystemProfiler struct {
	runner Runner
}

func (*SystemProfiler) Name() string         { return StrategySystemProfiler }
func (*SystemProfiler) Placement() Placement { return Always }

func (s *SystemProfiler) Probe(ctx context.Context, _ Hint) ([]GPUReading, error) {
	out, err := s.runner.Run(ctx, "system_profiler", "SPDisplaysDataType", "-json")
	if err != nil {
		return nil, err
	}
	return parseSystemProfiler(out)
}

type spDisplays struct {
	Displays []struct {
		Model string `json:"sppci_model"`
		VRAM  string `json:"spdisplays_vram"`
		// Apple silicon and some Intel Macs report shared memory here
		VRAMShared string `json:"spdisplays_vram_shared"`
	} `json:"SPDisplaysDataType"`
}

func parseSystemProfiler(data []byte) ([]GPUReading, error) {
	var doc spDisplays
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("system_profiler: %w", err)
	}

	var gpus []GPUReading
	for _, d := range doc.Displays {
		name := strings.TrimSpace(d.Model)
		if name == "" {
			name = "Unknown Mac GPU"
		}
		total, ok := parseVRAM(d.VRAM)
		if !ok {
			total, ok = parseVRAM(d.VRAMShared)
		}
		if !ok {
			total = estimateMacVRAM(name)
		}
		gpus = append(gpus, macReading(name, total))
	}

	if len(gpus) == 0 {
		gpus = append(gpus, macReading("Mac Graphics", 2.0))
	}
	return gpus, nil
}

func macReading(name string, totalGB float64) GPUReading {
	util, temp, power := 25.0, 55.0, 15.0
	if strings.Contains(strings.ToLower(name), "intel") {
		util, temp, power = 15.0, 50.0, 10.0
	}
	return GPUReading{
		Name:          name,
		Utilization:   util,
		Temperature:   temp,
		MemoryTotalGB: totalGB,
		MemoryUsedGB:  clamp(util/100*totalGB, 0, totalGB),
		PowerWatts:    power,
		Synthetic:     true,
	}
}

// parseVRAM reads values such as "1536 MB" or "8 GB" into GB.
func parseVRAM(s string) (float64, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	if len(fields) > 1 && strings.EqualFold(fields[1], "GB") {
		return v, true
	}
	return v / 1024, true
}

func estimateMacVRAM(name string) float64 {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "intel iris"), strings.Contains(lower, "intel hd"):
		return 1.5
	case strings.Contains(lower, "radeon pro"):
		return 4.0
	case strings.Contains(lower, "apple m"):
		return 8.0
	default:
		return 2.0
	}
}

const cimScript = `$v = @(Get-CimInstance Win32_VideoController | Select-Object Name,AdapterRAM);` +
	`$e = @(Get-CimInstance Win32_PerfFormattedData_GPUPerformanceCounters_GPUEngine -ErrorAction SilentlyContinue | Select-Object Name,UtilizationPercentage);` +
	`$t = @(Get-CimInstance -Namespace root/wmi MSAcpi_ThermalZoneTemperature -ErrorAction SilentlyContinue | Select-Object InstanceName,CurrentTemperature);` +
	`@{controllers=$v;engines=$e;thermal=$t} | ConvertTo-Json -Compress -Depth 3`

// CIM queries Windows adapters, engine load and ACPI thermal zones through
// PowerShell's Get-CimInstance.
type CIM struct {
	runner Runner
}

func (*CIM) Name() string         { return StrategyCIM }
func (*CIM) Placement() Placement { return Always }

func (c *CIM) Probe(ctx context.Context, _ Hint) ([]GPUReading, error) {
	out, err := c.runner.Run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", cimScript)
	if err != nil {
		return nil, err
	}
	return parseCIM(out)
}

type cimDoc struct {
	Controllers []struct {
		Name       string  `json:"Name"`
		AdapterRAM *uint64 `json:"AdapterRAM"`
	} `json:"controllers"`
	Engines []struct {
		Name                  string `json:"Name"`
		UtilizationPercentage uint64 `json:"UtilizationPercentage"`
	} `json:"engines"`
	Thermal []struct {
		InstanceName       string `json:"InstanceName"`
		CurrentTemperature uint64 `json:"CurrentTemperature"` // tenths of Kelvin
	} `json:"thermal"`
}

func parseCIM(data []byte) ([]GPUReading, error) {
	var doc cimDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("cim: %w", err)
	}

	// Engine counters are per process and engine; sum them per adapter luid
	perLUID := map[string]float64{}
	for _, e := range doc.Engines {
		perLUID[engineLUID(e.Name)] += float64(e.UtilizationPercentage)
	}
	busiest := 0.0
	for _, v := range perLUID {
		if v > busiest {
			busiest = v
		}
	}

	var gpus []GPUReading
	seen := map[string]struct{}{}
	for _, ctrl := range doc.Controllers {
		name := strings.TrimSpace(ctrl.Name)
		if name == "" {
			name = "Unknown GPU"
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		g := GPUReading{Name: name, MemoryTotalGB: 4.0}
		if ctrl.AdapterRAM != nil && *ctrl.AdapterRAM > 0 {
			g.MemoryTotalGB = float64(*ctrl.AdapterRAM) / constants.GPU_GB_DIVISOR
		}
		gpus = append(gpus, g)
	}

	// Counter instances cannot be mapped to controllers reliably, so load
	// is only assigned when there is a single adapter.
	if len(gpus) == 1 {
		gpus[0].Utilization = clamp(busiest, 0, 100)
	}

	for i := range gpus {
		g := &gpus[i]
		lowerName := strings.ToLower(g.Name)
		for _, tz := range doc.Thermal {
			if thermalMatches(strings.ToLower(tz.InstanceName), lowerName) {
				g.Temperature = clamp(float64(tz.CurrentTemperature)/10-273.15, 0, 120)
			}
		}
		if g.PowerWatts <= 0 {
			g.PowerWatts = estimateWindowsPower(g.Utilization, lowerName)
		}
		if g.Temperature <= 0 {
			g.Temperature = clamp(40+g.Utilization*0.4, 30, 95)
		}
		if g.MemoryUsedGB <= 0 && g.MemoryTotalGB > 0 {
			g.MemoryUsedGB = g.Utilization / 100 * g.MemoryTotalGB
		}
	}
	return gpus, nil
}

// engineLUID extracts "luid_0x..._0x..." from an engine counter instance
// name such as pid_1234_luid_0x00000000_0x0000C3A1_phys_0_eng_0_engtype_3D.
func engineLUID(instance string) string {
	i := strings.Index(instance, "luid_")
	if i < 0 {
		return instance
	}
	rest := instance[i:]
	if j := strings.Index(rest, "_phys"); j >= 0 {
		return rest[:j]
	}
	return rest
}

func thermalMatches(instance, gpuName string) bool {
	switch {
	case strings.Contains(instance, "nv") && strings.Contains(gpuName, "nvidia"):
		return true
	case (strings.Contains(instance, "amd") || strings.Contains(instance, "radeon")) &&
		(strings.Contains(gpuName, "amd") || strings.Contains(gpuName, "radeon")):
		return true
	case strings.Contains(instance, "intel") && strings.Contains(gpuName, "intel"):
		return true
	}
	return false
}

func estimateWindowsPower(util float64, lowerName string) float64 {
	scale := 0.5
	switch {
	case strings.Contains(lowerName, "nvidia"):
		scale = 2.0
	case strings.Contains(lowerName, "amd"), strings.Contains(lowerName, "radeon"):
		scale = 1.5
	}
	return clamp(15+util*scale, 5, 350)
}

// Synthetic estimates an integrated GPU from CPU load. It only runs when
// no real adapter was found and its readings are flagged.
type Synthetic struct{}

func (Synthetic) Name() string         { return StrategySynthetic }
func (Synthetic) Placement() Placement { return Fallback }

func (Synthetic) Probe(_ context.Context, hint Hint) ([]GPUReading, error) {
	util := clamp(hint.CPUAverage*0.8, 0, 100)
	return []GPUReading{{
		Name:          "Simulated Integrated GPU",
		Utilization:   util,
		Temperature:   clamp(45+util*0.3, 30, 90),
		MemoryUsedGB:  clamp(0.5+util/100*1.5, 0.1, 4),
		MemoryTotalGB: 4,
		PowerWatts:    clamp(5+util*0.15, 3, 25),
		Synthetic:     true,
	}}, nil
}
