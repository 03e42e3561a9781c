package sources

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/host"

	"sysmon/internal/logger"
)

// HostOptions configures the live host source set.
type HostOptions struct {
	ProbeTimeout  time.Duration
	GPUStrategies []string
	GPUSynthetic  bool
	SkipProcesses bool
	Log           *logger.Logger
}

// NewHostSet wires every domain to the live host.
func NewHostSet(opts HostOptions) Set {
	root := os.DirFS("/")
	return Set{
		Refresher: NewHostRefresher(opts.Log, opts.SkipProcesses),
		CPU:       NewHostCPU(),
		Memory:    HostMemory{},
		Disk:      NewHostDisk(root),
		Network:   HostNetwork{},
		Process:   HostProcess{},
		GPU: NewGPUChain(GPUOptions{
			Runner:    NewExecRunner(opts.ProbeTimeout),
			SysFS:     root,
			Names:     opts.GPUStrategies,
			Synthetic: opts.GPUSynthetic,
			Log:       opts.Log,
		}),
	}
}

// Platform describes the host for the platform endpoint.
type Platform struct {
	Name            string `json:"platform_name" cbor:"platform_name"`
	OS              string `json:"os" cbor:"os"`
	Arch            string `json:"arch" cbor:"arch"`
	Hostname        string `json:"hostname,omitempty" cbor:"hostname,omitempty"`
	Distribution    string `json:"distribution,omitempty" cbor:"distribution,omitempty"`
	PlatformVersion string `json:"platform_version,omitempty" cbor:"platform_version,omitempty"`
	KernelVersion   string `json:"kernel_version,omitempty" cbor:"kernel_version,omitempty"`
	UptimeSeconds   uint64 `json:"uptime_seconds,omitempty" cbor:"uptime_seconds,omitempty"`
}

// DescribePlatform returns the platform name plus whatever host details
// gopsutil can read.
func DescribePlatform(ctx context.Context) Platform {
	p := Platform{Name: PlatformName(), OS: runtime.GOOS, Arch: runtime.GOARCH}
	info, err := host.InfoWithContext(ctx)
	if err != nil || info == nil {
		return p
	}
	p.Hostname = info.Hostname
	p.Distribution = info.Platform
	p.PlatformVersion = info.PlatformVersion
	p.KernelVersion = info.KernelVersion
	p.UptimeSeconds = info.Uptime
	return p
}
