//go:build !windows

package process

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"sysmon/internal/logger"
)

// ErrAlreadyRunning is returned when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another sysmon instance is already running")

// LockFile is an exclusive flock on a PID file, held for the life of the
// daemon. The kernel drops the lock if the process dies.
type LockFile struct {
	path string
	fd   int
}

// Path returns the locked file.
func (lf *LockFile) Path() string { return lf.path }

// Acquire locks path and writes the current PID into it.
func Acquire(path string) (*LockFile, error) {
	return acquire(path, true)
}

func acquire(path string, retryStale bool) (*LockFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create PID directory: %w", err)
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0644)
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}

	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(fd)
		if stale, pid := staleLock(path); stale && retryStale {
			logger.Info("Removing stale PID file (process %d is gone)", pid)
			os.Remove(path)
			return acquire(path, false)
		}
		return nil, ErrAlreadyRunning
	}

	if err := unix.Ftruncate(fd, 0); err != nil {
		unlock(fd)
		return nil, fmt.Errorf("truncate PID file: %w", err)
	}
	if _, err := unix.Write(fd, []byte(fmt.Sprintf("%d\n", os.Getpid()))); err != nil {
		unlock(fd)
		return nil, fmt.Errorf("write PID: %w", err)
	}

	logger.Debug("Acquired PID lock %s (PID %d)", path, os.Getpid())
	return &LockFile{path: path, fd: fd}, nil
}

func unlock(fd int) {
	unix.Flock(fd, unix.LOCK_UN)
	unix.Close(fd)
}

// Release drops the lock and removes the file. Calling it again is a no-op.
func (lf *LockFile) Release() error {
	if lf == nil || lf.fd <= 0 {
		return nil
	}
	unlock(lf.fd)
	lf.fd = 0
	if err := os.Remove(lf.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Check reports whether a live process holds the lock on path, and its
// PID.
func Check(path string) (bool, int, error) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("open PID file: %w", err)
	}
	defer unix.Close(fd)

	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return true, readPID(fd), nil
	}
	unix.Flock(fd, unix.LOCK_UN)
	return false, 0, nil
}

// staleLock reports whether path exists but nobody holds its lock.
func staleLock(path string) (bool, int) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return false, 0
	}
	defer unix.Close(fd)

	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return false, 0
	}
	unix.Flock(fd, unix.LOCK_UN)
	return true, readPID(fd)
}

func readPID(fd int) int {
	buf := make([]byte, 32)
	n, err := unix.Read(fd, buf)
	if err != nil || n == 0 {
		return 0
	}
	var pid int
	fmt.Sscanf(string(buf[:n]), "%d", &pid)
	return pid
}
