//go:build !windows

// Package service installs sysmon as a system service and reports its
// lifecycle to systemd.
package service

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/okzk/sdnotify"
	"github.com/takama/daemon"

	"sysmon/internal/logger"
)

const (
	serviceName        = "sysmon"
	serviceDescription = "sysmon host telemetry sampler"
)

// Service wraps takama/daemon for systemd and launchd management.
type Service struct {
	daemon daemon.Daemon
	args   []string
}

// New creates a service definition. args are passed to the installed
// executable, e.g. []string{"run", "--config", path}.
func New(args ...string) (*Service, error) {
	kind := daemon.UserAgent
	if os.Geteuid() == 0 {
		kind = daemon.SystemDaemon
	}

	d, err := daemon.New(serviceName, serviceDescription, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to create daemon: %w", err)
	}
	if len(args) == 0 {
		args = []string{"run"}
	}
	return &Service{daemon: d, args: args}, nil
}

// Install writes the unit or plist.
func (s *Service) Install() (string, error) {
	status, err := s.daemon.Install(s.args...)
	if err != nil {
		return status, err
	}
	logger.Info("Service installed: %s", status)
	return status, nil
}

// Remove deletes the unit or plist.
func (s *Service) Remove() (string, error) {
	status, err := s.daemon.Remove()
	if err != nil {
		return status, err
	}
	logger.Info("Service removed: %s", status)
	return status, nil
}

func (s *Service) Start() (string, error) { return s.daemon.Start() }

func (s *Service) Stop() (string, error) { return s.daemon.Stop() }

func (s *Service) Status() (string, error) { return s.daemon.Status() }

// Notifier reports daemon state to systemd. Outside Linux, or when
// NOTIFY_SOCKET is unset, every call is a no-op.
type Notifier struct {
	enabled bool
	log     *logger.Logger
}

// NewNotifier creates a notifier for the current platform.
func NewNotifier(log *logger.Logger) *Notifier {
	return &Notifier{enabled: runtime.GOOS == "linux" && os.Getenv("NOTIFY_SOCKET") != "", log: log}
}

// Ready sends READY=1.
func (n *Notifier) Ready() {
	if !n.enabled {
		return
	}
	if err := sdnotify.Ready(); err != nil {
		n.log.Debug("sd_notify ready: %v", err)
	}
}

// Stopping sends STOPPING=1.
func (n *Notifier) Stopping() {
	if n.enabled {
		sdnotify.Stopping()
	}
}

// Status sends a free-form status line.
func (n *Notifier) Status(status string) {
	if n.enabled {
		sdnotify.Status(status)
	}
}

// Watchdog sends WATCHDOG=1.
func (n *Notifier) Watchdog() {
	if n.enabled {
		sdnotify.Watchdog()
	}
}

// WatchdogInterval returns half of WATCHDOG_USEC, or zero when systemd
// did not request watchdog pings.
func WatchdogInterval() time.Duration {
	usec := os.Getenv("WATCHDOG_USEC")
	if usec == "" {
		return 0
	}
	var n int64
	if _, err := fmt.Sscanf(usec, "%d", &n); err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Microsecond / 2
}
