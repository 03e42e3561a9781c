// Package commands builds the sysmon command tree.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"sysmon/internal/ui"
)

// Version is set by main from build flags.
var Version = "dev"

// configPath is the --config flag shared by every subcommand.
var configPath string

// NewRootCmd creates the sysmon command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:                "sysmon",
		Short:              "Host telemetry sampler",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		CompletionOptions:  cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(cmd.OutOrStdout(), "v%s\n", Version)
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.RenderBanner())
			fmt.Fprintln(out, ui.RenderSectionStart("Commands"))
			for _, row := range [][2]string{
				{"run", "Sample continuously and serve the HTTP API"},
				{"snapshot", "Take one snapshot and print it"},
				{"status", "Show a summary of the host"},
				{"processes", "Show the busiest processes"},
				{"watch", "Live terminal view"},
				{"config", "Show or change configuration"},
				{"service", "Manage the system service"},
				{"stop", "Stop a running daemon"},
			} {
				fmt.Fprintln(out, ui.RenderKeyValue(row[0], row[1]))
			}
			fmt.Fprintln(out, ui.RenderSectionEnd())
			fmt.Fprintln(out, ui.RenderStatus("info", "Use 'sysmon [command] --help' for detailed help"))
			return nil
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.sysmon/config.yaml)")

	rootCmd.AddCommand(
		NewRunCmd(),
		NewSnapshotCmd(),
		NewStatusCmd(),
		NewProcessesCmd(),
		NewWatchCmd(),
		NewConfigCmd(),
		NewServiceCmd(),
		NewStopCmd(),
		NewVersionCmd(),
	)
	return rootCmd
}

// NewVersionCmd prints the build version.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sysmon v%s\n", Version)
		},
	}
}
