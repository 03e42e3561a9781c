//go:build !windows

package service

import (
	"testing"
	"time"

	"sysmon/internal/logger"
)

func TestWatchdogInterval(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")
	if got := WatchdogInterval(); got != 0 {
		t.Errorf("Expected 0 without WATCHDOG_USEC, got %v", got)
	}

	t.Setenv("WATCHDOG_USEC", "10000000")
	if got := WatchdogInterval(); got != 5*time.Second {
		t.Errorf("Expected 5s, got %v", got)
	}

	t.Setenv("WATCHDOG_USEC", "garbage")
	if got := WatchdogInterval(); got != 0 {
		t.Errorf("Expected 0 for garbage, got %v", got)
	}
}

func TestNotifier_DisabledWithoutSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	n := NewNotifier(logger.Discard())
	if n.enabled {
		t.Errorf("Expected notifier disabled without NOTIFY_SOCKET")
	}
	n.Ready()
	n.Status("sampling")
	n.Watchdog()
	n.Stopping()
}
