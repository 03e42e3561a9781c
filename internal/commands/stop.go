package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sysmon/internal/process"
	"sysmon/internal/ui"
)

// NewStopCmd creates the stop command
func NewStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a sysmon daemon started with 'sysmon run'",
		Long: `Terminate the daemon that holds the PID lock. Daemons managed by
the service manager should be stopped with 'sysmon service stop'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.RenderSectionStart("Stopping Daemon"))
			defer fmt.Fprintln(out, ui.RenderSectionEnd())

			pid, err := process.Stop(cmd.Context(), process.DefaultPIDPath())
			if errors.Is(err, process.ErrNotRunning) {
				fmt.Fprintln(out, ui.RenderStatus("warning", "sysmon is not running"))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, ui.RenderStatus("success", fmt.Sprintf("Stopped pid %d", pid)))
			return nil
		},
	}
}
