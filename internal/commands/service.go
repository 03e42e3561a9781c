package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"sysmon/internal/service"
	"sysmon/internal/ui"
)

// NewServiceCmd creates the service command with subcommands
func NewServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the sysmon system service",
		Long: `Manage sysmon as a system service (systemd on Linux, launchd on
macOS, the service manager on Windows). The installed service runs
'sysmon run', with --config when one was given.

Examples:
  sysmon service install
  sysmon service start
  sysmon service status
  sysmon service remove`,
	}

	cmd.AddCommand(
		serviceAction("install", "Install sysmon as a system service", "Installing Service",
			func(s *service.Service) (string, error) { return s.Install() }),
		serviceAction("remove", "Remove the sysmon system service", "Removing Service",
			func(s *service.Service) (string, error) {
				s.Stop()
				return s.Remove()
			}),
		serviceAction("start", "Start the sysmon service", "Starting Service",
			func(s *service.Service) (string, error) { return s.Start() }),
		serviceAction("stop", "Stop the sysmon service", "Stopping Service",
			func(s *service.Service) (string, error) { return s.Stop() }),
		serviceAction("restart", "Restart the sysmon service", "Restarting Service",
			func(s *service.Service) (string, error) {
				s.Stop()
				return s.Start()
			}),
		serviceAction("status", "Check the sysmon service status", "Service Status",
			func(s *service.Service) (string, error) { return s.Status() }),
	)
	return cmd
}

func serviceAction(use, short, title string, fn func(*service.Service) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.RenderSectionStart(title))
			defer fmt.Fprintln(out, ui.RenderSectionEnd())

			svc, err := service.New(serviceArgs()...)
			if err != nil {
				return err
			}
			status, err := fn(svc)
			if err != nil {
				fmt.Fprintln(out, ui.RenderStatus("error", fmt.Sprintf("%s: %v", use, err)))
				if use == "start" {
					fmt.Fprintln(out, ui.RenderStatus("info", "Try 'sysmon service install' first"))
				}
				return err
			}
			fmt.Fprintln(out, ui.RenderStatus("success", status))
			return nil
		},
	}
}

func serviceArgs() []string {
	args := []string{"run"}
	if configPath != "" {
		if abs, err := filepath.Abs(configPath); err == nil {
			args = append(args, "--config", abs)
		}
	}
	return args
}
