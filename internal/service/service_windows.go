//go:build windows

package service

import (
	"fmt"
	"time"

	"github.com/takama/daemon"

	"sysmon/internal/logger"
)

const (
	serviceName        = "sysmon"
	serviceDescription = "sysmon host telemetry sampler"
)

// Service wraps takama/daemon for the Windows service manager.
type Service struct {
	daemon daemon.Daemon
	args   []string
}

// New creates a service definition.
func New(args ...string) (*Service, error) {
	d, err := daemon.New(serviceName, serviceDescription, daemon.SystemDaemon)
	if err != nil {
		return nil, fmt.Errorf("failed to create daemon: %w", err)
	}
	if len(args) == 0 {
		args = []string{"run"}
	}
	return &Service{daemon: d, args: args}, nil
}

func (s *Service) Install() (string, error) { return s.daemon.Install(s.args...) }
func (s *Service) Remove() (string, error)  { return s.daemon.Remove() }
func (s *Service) Start() (string, error)   { return s.daemon.Start() }
func (s *Service) Stop() (string, error)    { return s.daemon.Stop() }
func (s *Service) Status() (string, error)  { return s.daemon.Status() }

// Notifier is a no-op on Windows.
type Notifier struct{}

func NewNotifier(*logger.Logger) *Notifier { return &Notifier{} }

func (n *Notifier) Ready()         {}
func (n *Notifier) Stopping()      {}
func (n *Notifier) Status(string)  {}
func (n *Notifier) Watchdog()      {}

func WatchdogInterval() time.Duration { return 0 }
