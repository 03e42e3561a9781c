package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"sysmon/internal/encoding"
	"sysmon/internal/metrics"
	"sysmon/internal/ui"
)

// NewSnapshotCmd creates the snapshot command
func NewSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Take one snapshot and print it",
		Long: `Sample the host twice, one interval apart, and print the second
snapshot. The first cycle only primes the rate counters.

Examples:
  sysmon snapshot            # indented JSON
  sysmon snapshot --cbor > s.cbor`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			asCBOR, _ := cmd.Flags().GetBool("cbor")
			log := newLogger(cfg, false)

			var snap *metrics.Snapshot
			sample := func() error {
				var err error
				snap, err = sampleTwice(cmd.Context(), newCollector(cfg, log), cfg.Interval)
				return err
			}
			if term.IsTerminal(os.Stderr.Fd()) {
				err = ui.WithSpinner(os.Stderr, "Sampling", sample)
			} else {
				err = sample()
			}
			if err != nil {
				return fmt.Errorf("snapshot: %w", err)
			}

			var data []byte
			if asCBOR {
				data, err = encoding.MarshalCBOR(snap)
			} else {
				data, err = json.MarshalIndent(snap, "", "  ")
				data = append(data, '\n')
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().Bool("cbor", false, "write CBOR instead of JSON")
	return cmd
}
