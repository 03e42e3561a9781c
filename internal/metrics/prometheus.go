package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const promNamespace = "sysmon"

// PrometheusCollector exposes the latest snapshot to a Prometheus registry.
type PrometheusCollector struct {
	latest *Latest

	cpuUsage      *prometheus.Desc
	memoryUsed    *prometheus.Desc
	memoryTotal   *prometheus.Desc
	netRx         *prometheus.Desc
	netTx         *prometheus.Desc
	diskUsed      *prometheus.Desc
	diskRead      *prometheus.Desc
	diskWrite     *prometheus.Desc
	sysDiskRead   *prometheus.Desc
	sysDiskWrite  *prometheus.Desc
	gpuUtil       *prometheus.Desc
	gpuTemp       *prometheus.Desc
	gpuMemUsed    *prometheus.Desc
	gpuPower      *prometheus.Desc
	processCPU    *prometheus.Desc
	lastTimestamp *prometheus.Desc
}

// NewPrometheusCollector creates a collector reading from latest.
func NewPrometheusCollector(latest *Latest) *PrometheusCollector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(promNamespace, "", name), help, labels, nil)
	}
	return &PrometheusCollector{
		latest:        latest,
		cpuUsage:      desc("cpu_usage_percent", "Per-core CPU busy percentage.", "core"),
		memoryUsed:    desc("memory_used_gigabytes", "Physical memory in use."),
		memoryTotal:   desc("memory_total_gigabytes", "Physical memory installed."),
		netRx:         desc("network_receive_kilobytes_per_second", "Interface receive rate.", "interface"),
		netTx:         desc("network_transmit_kilobytes_per_second", "Interface transmit rate.", "interface"),
		diskUsed:      desc("disk_used_percent", "Partition usage.", "device", "mountpoint", "kind"),
		diskRead:      desc("disk_read_kilobytes_per_second", "Partition read rate.", "device", "estimated"),
		diskWrite:     desc("disk_write_kilobytes_per_second", "Partition write rate.", "device", "estimated"),
		sysDiskRead:   desc("system_disk_read_kilobytes_per_second", "Process disk read rate, all processes."),
		sysDiskWrite:  desc("system_disk_write_kilobytes_per_second", "Process disk write rate, all processes."),
		gpuUtil:       desc("gpu_utilization_percent", "GPU utilization.", "gpu", "source", "synthetic"),
		gpuTemp:       desc("gpu_temperature_celsius", "GPU temperature.", "gpu", "source", "synthetic"),
		gpuMemUsed:    desc("gpu_memory_used_gigabytes", "GPU memory in use.", "gpu", "source", "synthetic"),
		gpuPower:      desc("gpu_power_watts", "GPU power draw.", "gpu", "source", "synthetic"),
		processCPU:    desc("process_cpu_percent", "CPU usage of the top processes.", "pid", "name"),
		lastTimestamp: desc("snapshot_timestamp_seconds", "Capture time of the exported snapshot."),
	}
}

// Describe implements prometheus.Collector.
func (c *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.cpuUsage, c.memoryUsed, c.memoryTotal, c.netRx, c.netTx,
		c.diskUsed, c.diskRead, c.diskWrite, c.sysDiskRead, c.sysDiskWrite,
		c.gpuUtil, c.gpuTemp, c.gpuMemUsed, c.gpuPower, c.processCPU, c.lastTimestamp,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector. Nothing is emitted before the
// first snapshot.
func (c *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.latest.Load()
	if s == nil {
		return
	}
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	for i, v := range s.CPUUsage {
		gauge(c.cpuUsage, v, strconv.Itoa(i))
	}
	gauge(c.memoryUsed, s.MemoryUsed)
	gauge(c.memoryTotal, s.MemoryTotal)

	for name, n := range s.NetworkData {
		gauge(c.netRx, n.CurrentRxSpeed, name)
		gauge(c.netTx, n.CurrentTxSpeed, name)
	}

	for name, d := range s.DiskData {
		est := strconv.FormatBool(d.IOEstimated)
		gauge(c.diskUsed, d.UsedPercentage, name, d.MountPoint, d.DiskType)
		gauge(c.diskRead, d.ReadBytesPerSec, name, est)
		gauge(c.diskWrite, d.WriteBytesPerSec, name, est)
	}
	gauge(c.sysDiskRead, s.SystemDiskReadPerSec)
	gauge(c.sysDiskWrite, s.SystemDiskWritePerSec)

	for _, g := range s.GPUData {
		syn := strconv.FormatBool(g.Synthetic)
		gauge(c.gpuUtil, g.Utilization, g.Name, g.Source, syn)
		gauge(c.gpuTemp, g.Temperature, g.Name, g.Source, syn)
		gauge(c.gpuMemUsed, g.MemoryUsed, g.Name, g.Source, syn)
		gauge(c.gpuPower, g.PowerUsage, g.Name, g.Source, syn)
	}

	for _, p := range s.TopProcesses {
		gauge(c.processCPU, float64(p.CPUPercent), strconv.FormatUint(uint64(p.PID), 10), p.Name)
	}

	gauge(c.lastTimestamp, float64(s.Timestamp.UnixNano())/1e9)
}
