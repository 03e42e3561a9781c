package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	gopsprocess "github.com/shirou/gopsutil/v4/process"

	constants "sysmon/config"
)

// ErrNotRunning is returned by Stop when no daemon holds the lock.
var ErrNotRunning = errors.New("sysmon is not running")

// DefaultPIDPath returns the per-user PID file location.
func DefaultPIDPath() string {
	if runtime.GOOS == "linux" {
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			return filepath.Join(dir, "sysmon.pid")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, constants.CONFIG_DIR_NAME, "sysmon.pid")
	}
	return constants.PID_FILE
}

// IsSysmonDaemon reports whether pid runs "sysmon run". It guards against
// PID reuse before signalling.
func IsSysmonDaemon(ctx context.Context, pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := gopsprocess.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return false
	}
	cmdline, err := p.CmdlineWithContext(ctx)
	if err != nil {
		return false
	}
	cmdline = strings.ToLower(cmdline)
	return strings.Contains(cmdline, "sysmon") && strings.Contains(cmdline, " run")
}

// Stop terminates the daemon holding the lock on path.
func Stop(ctx context.Context, path string) (int, error) {
	running, pid, err := Check(path)
	if err != nil {
		return 0, err
	}
	if !running {
		return 0, ErrNotRunning
	}
	if !IsSysmonDaemon(ctx, pid) {
		return pid, fmt.Errorf("PID %d is not a sysmon daemon", pid)
	}

	p, err := gopsprocess.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return pid, err
	}
	return pid, p.TerminateWithContext(ctx)
}
