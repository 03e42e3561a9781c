package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"sysmon/internal/config"
	"sysmon/internal/ui"
)

// NewConfigCmd creates the config command
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
		Long: `Show the effective configuration (file, SYSMON_* environment and
defaults merged) or change a single key in the config file.

Examples:
  sysmon config show
  sysmon config set interval 2s
  sysmon config set gpu.strategies nvidia,drm`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd)
		},
	})
	cmd.AddCommand(newConfigSetCmd())
	return cmd
}

func showConfig(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, ui.RenderSectionStart("Configuration"))
	file := cfg.File()
	if file == "" {
		file = "(none, defaults and environment)"
	}
	fmt.Fprintln(out, ui.RenderKeyValue("file", file))
	values := configValues(cfg)
	for _, key := range config.Keys() {
		fmt.Fprintln(out, ui.RenderKeyValue(key, values[key]))
	}
	fmt.Fprintln(out, ui.RenderSectionEnd())
	return nil
}

// configValues renders every key of cfg for display. Header values are
// masked.
func configValues(cfg *config.Config) map[string]string {
	headers := make([]string, 0, len(cfg.OTel.Headers))
	for k := range cfg.OTel.Headers {
		headers = append(headers, k+"=***")
	}
	sort.Strings(headers)

	return map[string]string{
		"interval":       cfg.Interval.String(),
		"history_length": fmt.Sprint(cfg.HistoryLength),
		"top_processes":  fmt.Sprint(cfg.TopProcesses),
		"probe_timeout":  cfg.ProbeTimeout.String(),
		"listen_addr":    cfg.ListenAddr,
		"serve":          fmt.Sprint(cfg.Serve),
		"log_file":       orNone(cfg.LogFile),
		"log_level":      cfg.LogLevel,
		"cache_file":     cfg.CacheFile,
		"prometheus":     fmt.Sprint(cfg.Prometheus),
		"gpu.strategies": orNone(strings.Join(cfg.GPU.Strategies, ",")),
		"gpu.synthetic":  fmt.Sprint(cfg.GPU.Synthetic),
		"otel.endpoint":  orNone(cfg.OTel.Endpoint),
		"otel.interval":  cfg.OTel.Interval.String(),
		"otel.insecure":  fmt.Sprint(cfg.OTel.Insecure),
		"otel.headers":   orNone(strings.Join(headers, ",")),
	}
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
