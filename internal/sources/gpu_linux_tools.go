package sources

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	constants "sysmon/config"
)

// Lspci names AMD and Intel adapters from `lspci -vmm` when nothing
// better found them. It reports no load metrics.
type Lspci struct {
	runner Runner
}

func (*Lspci) Name() string         { return StrategyLspci }
func (*Lspci) Placement() Placement { return Fallback }

func (l *Lspci) Probe(ctx context.Context, _ Hint) ([]GPUReading, error) {
	out, err := l.runner.Run(ctx, "lspci", "-vmm")
	if err != nil {
		return nil, err
	}
	return parseLspci(string(out)), nil
}

func parseLspci(output string) []GPUReading {
	var gpus []GPUReading
	var class, vendor, device string

	flush := func() {
		defer func() { class, vendor, device = "", "", "" }()
		if device == "" || !isDisplayClass(class) {
			return
		}
		lv := strings.ToLower(vendor + " " + device)
		if strings.Contains(lv, "nvidia") {
			return
		}
		if !strings.Contains(lv, "amd") && !strings.Contains(lv, "ati ") &&
			!strings.Contains(lv, "advanced micro devices") &&
			!strings.Contains(lv, "radeon") && !strings.Contains(lv, "intel") {
			return
		}
		gpus = append(gpus, GPUReading{Name: device})
	}

	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "Class":
			class = value
		case "Vendor":
			vendor = value
		case "Device":
			device = value
		}
	}
	flush()
	return gpus
}

func isDisplayClass(class string) bool {
	return strings.HasPrefix(class, "VGA compatible controller") ||
		strings.HasPrefix(class, "3D controller") ||
		strings.HasPrefix(class, "Display controller")
}

var (
	radeontopGPU  = regexp.MustCompile(`gpu\s+([0-9.]+)%`)
	radeontopVRAM = regexp.MustCompile(`vram\s+([0-9.]+)%\s+([0-9.]+)mb`)
)

// Radeontop samples AMD load once with `radeontop -d - -l 1`.
type Radeontop struct {
	runner Runner
}

func (*Radeontop) Name() string         { return StrategyRadeontop }
func (*Radeontop) Placement() Placement { return Fallback }

func (r *Radeontop) Probe(ctx context.Context, _ Hint) ([]GPUReading, error) {
	out, err := r.runner.Run(ctx, "radeontop", "-d", "-", "-l", "1")
	if err != nil {
		return nil, err
	}
	g, ok := parseRadeontop(string(out))
	if !ok {
		return nil, fmt.Errorf("radeontop: no gpu sample in output")
	}
	return []GPUReading{g}, nil
}

func parseRadeontop(output string) (GPUReading, bool) {
	m := radeontopGPU.FindStringSubmatch(output)
	if m == nil {
		return GPUReading{}, false
	}
	util, _ := strconv.ParseFloat(m[1], 64)
	util = clamp(util, 0, 100)

	g := GPUReading{
		Name:          "AMD Radeon (radeontop)",
		Utilization:   util,
		Temperature:   60,
		MemoryTotalGB: 4,
		MemoryUsedGB:  util / 100 * 4,
	}
	if v := radeontopVRAM.FindStringSubmatch(output); v != nil {
		pct, _ := strconv.ParseFloat(v[1], 64)
		mb, _ := strconv.ParseFloat(v[2], 64)
		used := mb * constants.MB_DIVISOR / constants.GPU_GB_DIVISOR
		g.MemoryUsedGB = used
		if pct > 0 {
			g.MemoryTotalGB = used / pct * 100
		}
	}
	return g, true
}

var intelRender = regexp.MustCompile(`"Render/3D[^"]*"\s*:\s*\{\s*"busy"\s*:\s*([0-9.]+)`)

// IntelGPUTop samples Intel render-engine load from intel_gpu_top JSON.
type IntelGPUTop struct {
	runner Runner
}

func (*IntelGPUTop) Name() string         { return StrategyIntelGPUTop }
func (*IntelGPUTop) Placement() Placement { return Fallback }

func (t *IntelGPUTop) Probe(ctx context.Context, _ Hint) ([]GPUReading, error) {
	util, err := sampleIntelGPUTop(ctx, t.runner)
	if err != nil {
		return nil, err
	}
	g := GPUReading{Name: "Intel Graphics (intel_gpu_top)"}
	applyIntelGPUTop(&g, util)
	return []GPUReading{g}, nil
}

func sampleIntelGPUTop(ctx context.Context, runner Runner) (float64, error) {
	if runner == nil {
		return 0, ErrSourceUnavailable
	}
	out, err := runner.Run(ctx, "intel_gpu_top", "-J", "-s", "500", "-o", "-")
	if err != nil {
		return 0, err
	}
	return parseIntelGPUTop(string(out))
}

// parseIntelGPUTop returns the render engine busy percentage of the last
// complete sample in the stream.
func parseIntelGPUTop(output string) (float64, error) {
	matches := intelRender.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("intel_gpu_top: no render engine sample in output")
	}
	util, err := strconv.ParseFloat(matches[len(matches)-1][1], 64)
	if err != nil {
		return 0, fmt.Errorf("intel_gpu_top: %w", err)
	}
	return clamp(util, 0, 100), nil
}

// applyIntelGPUTop fills the fields intel_gpu_top does not report with
// estimates derived from load.
func applyIntelGPUTop(g *GPUReading, util float64) {
	g.Utilization = util
	g.MemoryTotalGB = 2.0
	g.MemoryUsedGB = util / 100 * g.MemoryTotalGB * 0.7
	g.PowerWatts = clamp(5+util/100*15, 3, 30)
	g.Temperature = clamp(40+util/100*25, 35, 90)
}
