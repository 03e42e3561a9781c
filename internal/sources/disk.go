package sources

import (
	"io/fs"
	"path"
	"regexp"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"

	"sysmon/internal/rate"
)

var (
	// nvme0n1p2 -> nvme0n1, mmcblk0p1 -> mmcblk0
	pSuffixPartition = regexp.MustCompile(`^((?:nvme\d+n\d+)|(?:mmcblk\d+)|(?:loop\d+))p\d+$`)
	// disk3s1 -> disk3
	darwinPartition = regexp.MustCompile(`^(disk\d+)s\d+`)
	// sda1 -> sda, vdb3 -> vdb
	numSuffixPartition = regexp.MustCompile(`^([a-z]+)\d+$`)
)

// HostDisk turns partitions into disk readings. Media kind is looked up
// under sys/block in sysfs.
type HostDisk struct {
	sysfs fs.FS
	goos  string
}

// NewHostDisk creates a disk adapter. sysfs is the filesystem root that
// contains sys/block; nil disables kind detection.
func NewHostDisk(sysfs fs.FS) *HostDisk {
	return &HostDisk{sysfs: sysfs, goos: runtime.GOOS}
}

// Disks returns one reading per device. When a device is mounted more than
// once, the first mount wins.
func (d *HostDisk) Disks(f *Frame) ([]DiskReading, error) {
	if err := f.Err(DomainDisk); err != nil {
		return []DiskReading{}, err
	}

	out := make([]DiskReading, 0, len(f.Partitions))
	seen := make(map[string]struct{}, len(f.Partitions))
	for _, p := range f.Partitions {
		if p.Device == "" || p.Usage == nil {
			continue
		}
		if _, dup := seen[p.Device]; dup {
			continue
		}
		seen[p.Device] = struct{}{}

		base := path.Base(strings.ReplaceAll(p.Device, `\`, "/"))
		r := DiskReading{
			Name:        p.Device,
			MountPoint:  p.Mountpoint,
			Kind:        d.kind(base),
			TotalBytes:  p.Usage.Total,
			UsedBytes:   p.Usage.Used,
			UsedPercent: usedPercent(p.Usage.Used, p.Usage.Total),
		}
		if r.UsedBytes > r.TotalBytes {
			r.UsedBytes = r.TotalBytes
		}

		if c, ok := lookupIO(f, p.Device, base); ok {
			r.HasIO = true
			r.ReadBytes = c.ReadBytes
			r.WriteBytes = c.WriteBytes
		}
		out = append(out, r)
	}
	return out, nil
}

func usedPercent(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return rate.ClampPercent(float64(used) / float64(total) * 100)
}

func lookupIO(f *Frame, device, base string) (disk.IOCountersStat, bool) {
	for _, key := range []string{base, device, parentDevice(base)} {
		if key == "" {
			continue
		}
		if c, ok := f.DiskIO[key]; ok {
			return c, true
		}
	}
	return disk.IOCountersStat{}, false
}

// parentDevice strips a partition suffix from a block device name.
func parentDevice(name string) string {
	if m := pSuffixPartition.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	if m := darwinPartition.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	if m := numSuffixPartition.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return name
}

func (d *HostDisk) kind(base string) DiskKind {
	if d.sysfs == nil || d.goos != "linux" {
		return DiskUnknown
	}
	for _, dev := range []string{base, parentDevice(base)} {
		data, err := fs.ReadFile(d.sysfs, path.Join("sys/block", dev, "queue/rotational"))
		if err != nil {
			continue
		}
		switch strings.TrimSpace(string(data)) {
		case "1":
			return DiskHDD
		case "0":
			return DiskSSD
		}
	}
	return DiskUnknown
}
