package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"sysmon/internal/metrics"
	"sysmon/pkg/utils"
)

// RenderSnapshot renders every section of a snapshot for the terminal.
func RenderSnapshot(s *metrics.Snapshot, now time.Time) string {
	var b strings.Builder
	sections := []func(*strings.Builder, *metrics.Snapshot){
		writeCPU, writeMemory, writeNetwork, writeDisks, writeGPUs, writeProcesses,
	}

	b.WriteString(RenderKeyValue("Platform", s.PlatformName) + "\n")
	b.WriteString(RenderKeyValue("Captured", utils.FormatTimeAgo(s.Timestamp, now)) + "\n\n")
	for _, write := range sections {
		write(&b, s)
		b.WriteString("\n")
	}
	return b.String()
}

func writeCPU(b *strings.Builder, s *metrics.Snapshot) {
	avg := s.CPUAverage()
	b.WriteString(RenderSectionStart(fmt.Sprintf("CPU (%d cores)", len(s.CPUUsage))) + "\n")
	b.WriteString(fmt.Sprintf("  %-8s %s %s\n", "average",
		RenderProgressBar(avg, 30, utils.CPULevel(avg)), utils.FormatPercentage(avg)))

	for i, v := range s.CPUUsage {
		spark := ""
		if i < len(s.CPUHistory) {
			spark = Sparkline(s.CPUHistory[i], 30, 100)
		}
		b.WriteString(fmt.Sprintf("  %-8s %s %6s\n", fmt.Sprintf("core %d", i),
			AccentStyle.Render(spark), LevelStyle(utils.CPULevel(v)).Render(utils.FormatPercentage(v))))
	}
	b.WriteString(RenderSectionEnd() + "\n")
}

func writeMemory(b *strings.Builder, s *metrics.Snapshot) {
	pct := s.MemoryPercent()
	b.WriteString(RenderSectionStart("Memory") + "\n")
	b.WriteString(fmt.Sprintf("  %s %s (%s / %s)\n",
		RenderProgressBar(pct, 30, utils.UsageLevel(pct)),
		utils.FormatPercentage(pct), utils.FormatGB(s.MemoryUsed), utils.FormatGB(s.MemoryTotal)))
	b.WriteString("  " + AccentStyle.Render(Sparkline(s.MemoryHistory, 60, 100)) + "\n")
	b.WriteString(RenderSectionEnd() + "\n")
}

func writeNetwork(b *strings.Builder, s *metrics.Snapshot) {
	b.WriteString(RenderSectionStart("Network") + "\n")
	if len(s.NetworkData) == 0 {
		b.WriteString(MutedStyle.Render("  no interfaces") + "\n")
	}
	for _, name := range sortedKeys(s.NetworkData) {
		n := s.NetworkData[name]
		b.WriteString(fmt.Sprintf("  %-16s ↓ %-12s ↑ %-12s %s\n",
			utils.TruncateString(name, 16),
			utils.FormatSpeed(n.CurrentRxSpeed), utils.FormatSpeed(n.CurrentTxSpeed),
			AccentStyle.Render(Sparkline(n.RxHistory, 20, 0))))
	}
	b.WriteString(RenderSectionEnd() + "\n")
}

func writeDisks(b *strings.Builder, s *metrics.Snapshot) {
	b.WriteString(RenderSectionStart("Disks") + "\n")
	if len(s.DiskData) == 0 {
		b.WriteString(MutedStyle.Render("  no disks") + "\n")
	}
	for _, name := range sortedKeys(s.DiskData) {
		d := s.DiskData[name]
		io := fmt.Sprintf("r %s  w %s", utils.FormatSpeed(d.ReadBytesPerSec), utils.FormatSpeed(d.WriteBytesPerSec))
		if d.IOEstimated {
			io = SyntheticStyle.Render(io + " (est)")
		}
		b.WriteString(fmt.Sprintf("  %-18s %-12s %-4s %s %s  %s\n",
			utils.TruncateString(name, 18), utils.TruncateString(d.MountPoint, 12), d.DiskType,
			RenderProgressBar(d.UsedPercentage, 12, utils.UsageLevel(d.UsedPercentage)),
			utils.FormatPercentage(d.UsedPercentage), io))
	}
	b.WriteString(fmt.Sprintf("  %-18s r %s  w %s\n", "all processes",
		utils.FormatSpeed(s.SystemDiskReadPerSec), utils.FormatSpeed(s.SystemDiskWritePerSec)))
	b.WriteString(RenderSectionEnd() + "\n")
}

func writeGPUs(b *strings.Builder, s *metrics.Snapshot) {
	b.WriteString(RenderSectionStart("GPU") + "\n")
	if len(s.GPUData) == 0 {
		b.WriteString(MutedStyle.Render("  no GPU detected") + "\n")
	}
	for _, g := range s.GPUData {
		name := utils.TruncateString(g.Name, 32)
		if g.Synthetic {
			name = SyntheticStyle.Render(name + " (estimated)")
		}
		b.WriteString("  " + WhiteStyle.Render(name) + MutedStyle.Render(" via "+g.Source) + "\n")
		b.WriteString(fmt.Sprintf("    %s %s  %s  %.1f/%.1f GB  %.0f W  %s\n",
			RenderProgressBar(g.Utilization, 12, utils.CPULevel(g.Utilization)),
			utils.FormatPercentage(g.Utilization),
			LevelStyle(utils.TemperatureLevel(g.Temperature)).Render(fmt.Sprintf("%.0f°C", g.Temperature)),
			g.MemoryUsed, g.MemoryTotal, g.PowerUsage,
			AccentStyle.Render(Sparkline(g.UtilizationHistory, 20, 100))))
	}
	b.WriteString(RenderSectionEnd() + "\n")
}

func writeProcesses(b *strings.Builder, s *metrics.Snapshot) {
	b.WriteString(RenderSectionStart("Top processes") + "\n")
	if len(s.TopProcesses) == 0 {
		b.WriteString(MutedStyle.Render("  no processes") + "\n")
	} else {
		b.WriteString("  " + HeaderRowStyle.Render(fmt.Sprintf("%-8s %-28s %8s %10s", "PID", "NAME", "CPU%", "MEMORY")) + "\n")
	}
	for _, p := range s.TopProcesses {
		cpu := float64(p.CPUPercent)
		b.WriteString(fmt.Sprintf("  %-8d %-28s %8s %10s\n",
			p.PID, utils.TruncateString(p.Name, 28),
			LevelStyle(utils.CPULevel(cpu)).Render(fmt.Sprintf("%.1f", cpu)),
			utils.FormatBytes(p.MemoryMB*1024*1024)))
	}
	b.WriteString(RenderSectionEnd() + "\n")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
