package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sysmon/internal/process"
	"sysmon/internal/ui"
)

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show a summary of the host",
		Long: `Display CPU, memory, network, disk, GPU and process information.

The snapshot is taken from a running daemon when one answers on
listen_addr, otherwise from the snapshot cache, otherwise by sampling
locally for one interval.

Examples:
  sysmon status`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg, false)

			snap, from, err := acquireSnapshot(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, ui.RenderSnapshot(snap, time.Now()))

			fmt.Fprintln(out, ui.RenderSectionStart("Daemon"))
			running, pid, err := process.Check(process.DefaultPIDPath())
			switch {
			case err != nil:
				fmt.Fprintln(out, ui.RenderStatus("error", fmt.Sprintf("Cannot read lock: %v", err)))
			case running:
				fmt.Fprintln(out, ui.RenderStatus("success", fmt.Sprintf("Running (pid %d)", pid)))
			default:
				fmt.Fprintln(out, ui.RenderStatus("warning", "Not running"))
			}
			fmt.Fprintln(out, ui.RenderKeyValue("Data source", from))
			fmt.Fprintln(out, ui.RenderSectionEnd())
			return nil
		},
	}
}
