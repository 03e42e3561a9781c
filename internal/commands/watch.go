package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	constants "sysmon/config"
	"sysmon/internal/collector"
	"sysmon/internal/publisher"
	"sysmon/internal/ui"
)

// NewWatchCmd creates the watch command
func NewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live terminal view",
		Long: `Sample locally every interval and redraw a live view.

Keys: q or esc to quit, up/down to scroll.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(os.Stdout.Fd()) {
				return errors.New("watch needs a terminal; use 'sysmon snapshot' for scripted output")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg, false)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			pub := publisher.New(log)
			feed := publisher.NewChannelConsumer(constants.SSE_BUFFER_SIZE)
			pub.Subscribe("watch", feed)

			col := newCollector(cfg, log)
			runner := publisher.NewRunner(col, pub, cfg.Interval, log).WithRecoverable(collector.ErrStateCorruption)
			done := make(chan struct{})
			go func() {
				defer close(done)
				runner.Run(ctx)
			}()

			_, err = tea.NewProgram(ui.NewWatchModel(feed.Events()), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			cancel()
			<-done
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("watch: %w", err)
			}
			return nil
		},
	}
}
