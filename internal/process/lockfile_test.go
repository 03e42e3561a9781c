//go:build !windows

package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

func testPIDPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "run", "sysmon.pid")
}

func TestLockfile_SingleInstance(t *testing.T) {
	path := testPIDPath(t)

	lock1, err := Acquire(path)
	if err != nil {
		t.Fatalf("First instance failed to acquire lock: %v", err)
	}
	defer lock1.Release()

	lock2, err := Acquire(path)
	if err == nil {
		lock2.Release()
		t.Fatal("Second instance should not have acquired lock")
	}
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Expected ErrAlreadyRunning, got: %v", err)
	}
}

func TestLockfile_ReleaseAndReacquire(t *testing.T) {
	path := testPIDPath(t)

	lock1, err := Acquire(path)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	lock1.Release()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("PID file should be removed on release")
	}

	lock2, err := Acquire(path)
	if err != nil {
		t.Fatalf("Failed to reacquire lock after release: %v", err)
	}
	defer lock2.Release()
}

func TestLockfile_StaleFileIsReplaced(t *testing.T) {
	path := testPIDPath(t)
	os.MkdirAll(filepath.Dir(path), 0755)
	if err := os.WriteFile(path, []byte("999999\n"), 0644); err != nil {
		t.Fatalf("Failed to write stale file: %v", err)
	}

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Expected stale file to be taken over, got %v", err)
	}
	defer lock.Release()

	data, _ := os.ReadFile(path)
	if strings.TrimSpace(string(data)) != fmt.Sprint(os.Getpid()) {
		t.Errorf("Expected our PID in file, got %q", data)
	}
}

func TestLockfile_Check(t *testing.T) {
	path := testPIDPath(t)

	running, pid, err := Check(path)
	if err != nil {
		t.Errorf("Check should not error when no lock exists: %v", err)
	}
	if running || pid != 0 {
		t.Errorf("Expected not running, got running=%v pid=%d", running, pid)
	}

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	defer lock.Release()

	running, pid, err = Check(path)
	if err != nil {
		t.Errorf("Check failed: %v", err)
	}
	if !running {
		t.Error("Check should return true when lock is held")
	}
	if pid != os.Getpid() {
		t.Errorf("Expected PID %d, got %d", os.Getpid(), pid)
	}
}

func TestLockfile_ConcurrentAcquisition(t *testing.T) {
	path := testPIDPath(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []*LockFile
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lock, err := Acquire(path); err == nil {
				mu.Lock()
				winners = append(winners, lock)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for _, l := range winners {
		defer l.Release()
	}
	if len(winners) != 1 {
		t.Errorf("Expected exactly one winner, got %d", len(winners))
	}
}

func TestLockfile_MultipleReleases(t *testing.T) {
	lock, err := Acquire(testPIDPath(t))
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("First release failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("Second release should be a no-op, got %v", err)
	}

	var nilLock *LockFile
	if err := nilLock.Release(); err != nil {
		t.Errorf("Nil release should be a no-op, got %v", err)
	}
}

func TestIsSysmonDaemon(t *testing.T) {
	if IsSysmonDaemon(context.Background(), 0) {
		t.Error("PID 0 is never a daemon")
	}
	// The test binary is not started with "run".
	if IsSysmonDaemon(context.Background(), os.Getpid()) {
		t.Error("Test process should not look like a daemon")
	}
}

func TestStop_NotRunning(t *testing.T) {
	if _, err := Stop(context.Background(), testPIDPath(t)); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Expected ErrNotRunning, got %v", err)
	}
}

func TestDefaultPIDPath(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG runtime dir is only used on linux")
	}
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	if got := DefaultPIDPath(); got != "/run/user/1000/sysmon.pid" {
		t.Errorf("Expected XDG path, got %s", got)
	}
}
