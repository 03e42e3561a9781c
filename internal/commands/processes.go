package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"sysmon/internal/metrics"
	"sysmon/internal/ui"
	"sysmon/pkg/utils"
)

// NewProcessesCmd creates the processes command
func NewProcessesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "processes",
		Short: "Show the busiest processes",
		Long: `List the top processes of the latest snapshot.

Examples:
  sysmon processes              # by CPU
  sysmon processes --by memory  # by resident memory
  sysmon processes -n 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			by, _ := cmd.Flags().GetString("by")
			if by != "cpu" && by != "memory" {
				return fmt.Errorf("--by must be cpu or memory, got %q", by)
			}

			snap, _, err := acquireSnapshot(cmd.Context(), cfg, newLogger(cfg, false))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			title := "Top Processes by CPU"
			if by == "memory" {
				title = "Top Processes by Memory"
			}
			fmt.Fprintln(out, ui.RenderSectionStart(title))
			rows := sortProcesses(snap.TopProcesses, by, limit)
			if len(rows) == 0 {
				fmt.Fprintln(out, ui.RenderStatus("warning", "No process information available"))
			}
			for _, p := range rows {
				label := fmt.Sprintf("%-7d %s", p.PID, utils.TruncateString(p.Name, 28))
				value := fmt.Sprintf("%6.1f%%  %s", p.CPUPercent, utils.FormatBytes(p.MemoryMB*1024*1024))
				fmt.Fprintln(out, ui.RenderKeyValue(label, value))
			}
			fmt.Fprintln(out, ui.RenderSectionEnd())
			return nil
		},
	}

	cmd.Flags().IntP("limit", "n", 10, "Number of processes to show")
	cmd.Flags().String("by", "cpu", "sort key: cpu or memory")
	return cmd
}

// sortProcesses returns a sorted copy of procs, at most limit long.
func sortProcesses(procs []metrics.ProcessInfo, by string, limit int) []metrics.ProcessInfo {
	out := make([]metrics.ProcessInfo, len(procs))
	copy(out, procs)
	sort.SliceStable(out, func(i, j int) bool {
		if by == "memory" {
			return out[i].MemoryMB > out[j].MemoryMB
		}
		return out[i].CPUPercent > out[j].CPUPercent
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}
