// Package metrics defines the snapshot handed to consumers and the
// exporters that publish it.
package metrics

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// Process Tuple
// =============================================================================

// ProcessInfo is one top-process row. It serializes as the tuple
// [pid, name, cpu_percent, memory_mb] in both JSON and CBOR.
type ProcessInfo struct {
	_          struct{} `cbor:",toarray"`
	PID        uint32
	Name       string
	CPUPercent float32
	MemoryMB   uint64
}

// MarshalJSON encodes the row as a 4-element array.
func (p ProcessInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{p.PID, p.Name, p.CPUPercent, p.MemoryMB})
}

// UnmarshalJSON decodes a 4-element array.
func (p *ProcessInfo) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 4 {
		return fmt.Errorf("process tuple: expected 4 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.PID); err != nil {
		return fmt.Errorf("process tuple pid: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Name); err != nil {
		return fmt.Errorf("process tuple name: %w", err)
	}
	if err := json.Unmarshal(raw[2], &p.CPUPercent); err != nil {
		return fmt.Errorf("process tuple cpu: %w", err)
	}
	if err := json.Unmarshal(raw[3], &p.MemoryMB); err != nil {
		return fmt.Errorf("process tuple memory: %w", err)
	}
	return nil
}

// =============================================================================
// Per-Entity Data
// =============================================================================

// NetworkData holds one interface's speeds (KB/s) and their histories.
type NetworkData struct {
	RxHistory      []float64 `json:"rx_history"`
	TxHistory      []float64 `json:"tx_history"`
	CurrentRxSpeed float64   `json:"current_rx_speed"`
	CurrentTxSpeed float64   `json:"current_tx_speed"`
}

// DiskData holds one partition. Space is in GB (1024^3), rates in KB/s.
type DiskData struct {
	Name             string    `json:"name"`
	MountPoint       string    `json:"mount_point"`
	DiskType         string    `json:"disk_type"`
	TotalSpace       float64   `json:"total_space"`
	UsedSpace        float64   `json:"used_space"`
	UsedPercentage   float64   `json:"used_percentage"`
	ReadBytesPerSec  float64   `json:"read_bytes_per_sec"`
	WriteBytesPerSec float64   `json:"write_bytes_per_sec"`
	ReadHistory      []float64 `json:"read_history"`
	WriteHistory     []float64 `json:"write_history"`
	IOEstimated      bool      `json:"io_estimated"` // rates are a smoothed estimate, not counters
}

// GPUData holds one adapter. Memory is in GB (1e9 bytes), power in watts.
type GPUData struct {
	Name               string    `json:"name"`
	Utilization        float64   `json:"utilization"`
	Temperature        float64   `json:"temperature"`
	MemoryUsed         float64   `json:"memory_used"`
	MemoryTotal        float64   `json:"memory_total"`
	PowerUsage         float64   `json:"power_usage"`
	UtilizationHistory []float64 `json:"utilization_history"`
	Source             string    `json:"source"`
	Synthetic          bool      `json:"synthetic"`
}

// =============================================================================
// Snapshot
// =============================================================================

// Snapshot is one complete, immutable view of the host built by a single
// cycle. Every slice and map is populated (possibly empty) and owned by
// the snapshot.
type Snapshot struct {
	CPUUsage               []float64              `json:"cpu_usage"`
	CPUHistory             [][]float64            `json:"cpu_history"`
	MemoryUsed             float64                `json:"memory_used"`  // GB
	MemoryTotal            float64                `json:"memory_total"` // GB
	MemoryHistory          []float64              `json:"memory_history"`
	TopProcesses           []ProcessInfo          `json:"top_processes"`
	NetworkData            map[string]NetworkData `json:"network_data"`
	DiskData               map[string]DiskData    `json:"disk_data"`
	GPUData                []GPUData              `json:"gpu_data"`
	SystemDiskReadPerSec   float64                `json:"system_disk_read_per_sec"`
	SystemDiskWritePerSec  float64                `json:"system_disk_write_per_sec"`
	SystemDiskReadHistory  []float64              `json:"system_disk_read_history"`
	SystemDiskWriteHistory []float64              `json:"system_disk_write_history"`
	Timestamp              time.Time              `json:"timestamp"`
	PlatformName           string                 `json:"platform_name"`
}

// NewSnapshot returns a snapshot with every collection initialized.
func NewSnapshot(ts time.Time, platform string) *Snapshot {
	s := &Snapshot{Timestamp: ts, PlatformName: platform}
	s.EnsureComplete()
	return s
}

// EnsureComplete replaces nil collections with empty ones so the
// serialized shape never has missing or null fields.
func (s *Snapshot) EnsureComplete() {
	if s.CPUUsage == nil {
		s.CPUUsage = []float64{}
	}
	if s.CPUHistory == nil {
		s.CPUHistory = [][]float64{}
	}
	for i, h := range s.CPUHistory {
		if h == nil {
			s.CPUHistory[i] = []float64{}
		}
	}
	if s.MemoryHistory == nil {
		s.MemoryHistory = []float64{}
	}
	if s.TopProcesses == nil {
		s.TopProcesses = []ProcessInfo{}
	}
	if s.NetworkData == nil {
		s.NetworkData = map[string]NetworkData{}
	}
	for k, n := range s.NetworkData {
		n.RxHistory = nonNil(n.RxHistory)
		n.TxHistory = nonNil(n.TxHistory)
		s.NetworkData[k] = n
	}
	if s.DiskData == nil {
		s.DiskData = map[string]DiskData{}
	}
	for k, d := range s.DiskData {
		d.ReadHistory = nonNil(d.ReadHistory)
		d.WriteHistory = nonNil(d.WriteHistory)
		s.DiskData[k] = d
	}
	if s.GPUData == nil {
		s.GPUData = []GPUData{}
	}
	for i := range s.GPUData {
		s.GPUData[i].UtilizationHistory = nonNil(s.GPUData[i].UtilizationHistory)
	}
	s.SystemDiskReadHistory = nonNil(s.SystemDiskReadHistory)
	s.SystemDiskWriteHistory = nonNil(s.SystemDiskWriteHistory)
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.CPUUsage = copyFloats(s.CPUUsage)
	c.CPUHistory = make([][]float64, len(s.CPUHistory))
	for i, h := range s.CPUHistory {
		c.CPUHistory[i] = copyFloats(h)
	}
	c.MemoryHistory = copyFloats(s.MemoryHistory)
	c.TopProcesses = append([]ProcessInfo{}, s.TopProcesses...)
	c.NetworkData = make(map[string]NetworkData, len(s.NetworkData))
	for k, n := range s.NetworkData {
		n.RxHistory = copyFloats(n.RxHistory)
		n.TxHistory = copyFloats(n.TxHistory)
		c.NetworkData[k] = n
	}
	c.DiskData = make(map[string]DiskData, len(s.DiskData))
	for k, d := range s.DiskData {
		d.ReadHistory = copyFloats(d.ReadHistory)
		d.WriteHistory = copyFloats(d.WriteHistory)
		c.DiskData[k] = d
	}
	c.GPUData = make([]GPUData, len(s.GPUData))
	for i, g := range s.GPUData {
		g.UtilizationHistory = copyFloats(g.UtilizationHistory)
		c.GPUData[i] = g
	}
	c.SystemDiskReadHistory = copyFloats(s.SystemDiskReadHistory)
	c.SystemDiskWriteHistory = copyFloats(s.SystemDiskWriteHistory)
	return &c
}

// CPUAverage returns the mean per-core usage.
func (s *Snapshot) CPUAverage() float64 {
	if len(s.CPUUsage) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range s.CPUUsage {
		sum += v
	}
	return sum / float64(len(s.CPUUsage))
}

// MemoryPercent returns used/total as a percentage.
func (s *Snapshot) MemoryPercent() float64 {
	if s.MemoryTotal <= 0 {
		return 0
	}
	return s.MemoryUsed / s.MemoryTotal * 100
}

func copyFloats(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func nonNil(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
