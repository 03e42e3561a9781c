package sources

import (
	"context"
	"errors"
	"math"
	"testing"
	"testing/fstest"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
)

func TestHostCPU_FirstFrameIsBaseline(t *testing.T) {
	c := NewHostCPU()

	f1 := NewFrame(time.Unix(0, 0))
	f1.CPUTimes = []cpu.TimesStat{
		{CPU: "cpu0", User: 10, Idle: 90},
		{CPU: "cpu1", User: 50, Idle: 50},
	}
	usage, err := c.CPU(f1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(usage) != 2 || usage[0] != 0 || usage[1] != 0 {
		t.Errorf("Expected two zeros on first frame, got %v", usage)
	}

	f2 := NewFrame(time.Unix(1, 0))
	f2.CPUTimes = []cpu.TimesStat{
		{CPU: "cpu0", User: 35, Idle: 165}, // 25 busy of 100
		{CPU: "cpu1", User: 125, Idle: 75}, // 75 busy of 100
	}
	usage, _ = c.CPU(f2)
	if math.Abs(usage[0]-25) > 1e-9 || math.Abs(usage[1]-75) > 1e-9 {
		t.Errorf("Expected [25 75], got %v", usage)
	}
}

func TestHostCPU_CoreCountChangeResetsBaseline(t *testing.T) {
	c := NewHostCPU()
	f1 := NewFrame(time.Unix(0, 0))
	f1.CPUTimes = []cpu.TimesStat{{User: 10, Idle: 90}}
	c.CPU(f1)

	f2 := NewFrame(time.Unix(1, 0))
	f2.CPUTimes = []cpu.TimesStat{{User: 20, Idle: 180}, {User: 5, Idle: 5}}
	usage, _ := c.CPU(f2)
	if len(usage) != 2 || usage[0] != 0 {
		t.Errorf("Expected zeros after core count change, got %v", usage)
	}
}

func TestHostCPU_RefreshError(t *testing.T) {
	f := NewFrame(time.Now())
	f.SetErr(DomainCPU, unavailable(DomainCPU, errors.New("boom")))

	usage, err := NewHostCPU().CPU(f)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Expected ErrSourceUnavailable, got %v", err)
	}
	var de *DomainError
	if !errors.As(err, &de) || de.Domain != DomainCPU {
		t.Errorf("Expected DomainError for cpu, got %v", err)
	}
	if usage == nil {
		t.Errorf("Expected empty non-nil usage")
	}
}

func TestHostMemory(t *testing.T) {
	f := NewFrame(time.Now())
	f.Memory = &mem.VirtualMemoryStat{Total: 0}
	if _, err := (HostMemory{}).Memory(f); !errors.Is(err, ErrInvalidReading) {
		t.Errorf("Expected ErrInvalidReading for zero total, got %v", err)
	}

	f.Memory = &mem.VirtualMemoryStat{Total: 100, Used: 150}
	r, err := (HostMemory{}).Memory(f)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if r.UsedBytes != 100 {
		t.Errorf("Expected used clamped to 100, got %d", r.UsedBytes)
	}
}

func TestHostNetwork_DedupAndSkipEmpty(t *testing.T) {
	f := NewFrame(time.Now())
	f.NetIO = []net.IOCountersStat{
		{Name: "eth0", BytesRecv: 1000, BytesSent: 10},
		{Name: "", BytesRecv: 5},
		{Name: "eth0", BytesRecv: 9},
	}
	got, err := (HostNetwork{}).Networks(f)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(got) != 1 || got[0].RxBytes != 1000 || got[0].TxBytes != 10 {
		t.Errorf("Expected single eth0 reading, got %+v", got)
	}
}

func TestHostDisk_KindDedupAndCounters(t *testing.T) {
	sysfs := fstest.MapFS{
		"sys/block/sda/queue/rotational":     {Data: []byte("1\n")},
		"sys/block/nvme0n1/queue/rotational": {Data: []byte("0\n")},
	}
	d := NewHostDisk(sysfs)
	d.goos = "linux"

	f := NewFrame(time.Now())
	f.Partitions = []Partition{
		{Device: "/dev/sda1", Mountpoint: "/data", Usage: &disk.UsageStat{Total: 200, Used: 50}},
		{Device: "/dev/nvme0n1p2", Mountpoint: "/", Usage: &disk.UsageStat{Total: 100, Used: 25}},
		{Device: "/dev/nvme0n1p2", Mountpoint: "/var/snap", Usage: &disk.UsageStat{Total: 100, Used: 25}},
		{Device: "/dev/sdb1", Mountpoint: "/broken"},
	}
	f.DiskIO["nvme0n1p2"] = disk.IOCountersStat{Name: "nvme0n1p2", ReadBytes: 4096, WriteBytes: 2048}

	got, err := d.Disks(f)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 disks, got %d: %+v", len(got), got)
	}
	if got[0].Kind != DiskHDD || got[0].HasIO {
		t.Errorf("Expected sda1 HDD without counters, got %+v", got[0])
	}
	if got[0].UsedPercent != 25 {
		t.Errorf("Expected 25%% used, got %f", got[0].UsedPercent)
	}
	if got[1].Kind != DiskSSD || !got[1].HasIO || got[1].ReadBytes != 4096 {
		t.Errorf("Expected nvme SSD with counters, got %+v", got[1])
	}
	if got[1].MountPoint != "/" {
		t.Errorf("Expected first mount to win, got %s", got[1].MountPoint)
	}
}

func TestParentDevice(t *testing.T) {
	tests := map[string]string{
		"sda1":      "sda",
		"vdb12":     "vdb",
		"nvme0n1p2": "nvme0n1",
		"mmcblk0p1": "mmcblk0",
		"disk3s1":   "disk3",
		"C:":        "C:",
		"dm-0":      "dm-0",
	}
	for in, want := range tests {
		if got := parentDevice(in); got != want {
			t.Errorf("parentDevice(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestPlatformName(t *testing.T) {
	tests := map[string]string{
		"windows": "Windows",
		"darwin":  "macOS",
		"linux":   "Linux",
		"plan9":   "Unknown OS",
	}
	for goos, want := range tests {
		if got := platformName(goos); got != want {
			t.Errorf("platformName(%q): expected %q, got %q", goos, want, got)
		}
	}
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := NewExecRunner(time.Second)
	_, err := r.Run(context.Background(), "sysmon-definitely-not-a-real-tool")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Expected ErrSourceUnavailable, got %v", err)
	}
}
