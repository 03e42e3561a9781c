//go:build windows

package process

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	gopsprocess "github.com/shirou/gopsutil/v4/process"
)

// ErrAlreadyRunning is returned when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another sysmon instance is already running")

// LockFile is an exclusively created PID file. A file left by a dead
// process is treated as stale.
type LockFile struct {
	path string
	f    *os.File
}

// Path returns the locked file.
func (lf *LockFile) Path() string { return lf.path }

// Acquire creates path exclusively and writes the current PID into it.
func Acquire(path string) (*LockFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create PID directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		if running, _, _ := Check(path); running {
			return nil, ErrAlreadyRunning
		}
		os.Remove(path)
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	}
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write PID: %w", err)
	}
	return &LockFile{path: path, f: f}, nil
}

// Release closes and removes the file.
func (lf *LockFile) Release() error {
	if lf == nil || lf.f == nil {
		return nil
	}
	lf.f.Close()
	lf.f = nil
	if err := os.Remove(lf.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Check reports whether the PID recorded in path is alive.
func Check(path string) (bool, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return false, 0, nil
	}
	alive, err := gopsprocess.PidExists(int32(pid))
	if err != nil || !alive {
		return false, 0, nil
	}
	return true, pid, nil
}
