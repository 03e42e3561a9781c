package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sysmon/internal/config"
	"sysmon/internal/ui"
)

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value> | set key=value...",
		Short: "Change configuration keys in the config file",
		Long: `Change one or more keys in the config file. The result must still
be a valid configuration; nothing is written otherwise.

Keys: ` + strings.Join(config.Keys(), ", ") + `

Examples:
  sysmon config set interval 500ms
  sysmon config set history_length=300 top_processes=20`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := parseAssignments(args)
			if err != nil {
				return err
			}

			path := configPath
			if path == "" {
				path = config.DefaultPath()
			}
			out := cmd.OutOrStdout()
			for _, kv := range pairs {
				if _, err := config.SetValue(path, kv[0], kv[1]); err != nil {
					return fmt.Errorf("set %s: %w", kv[0], err)
				}
				fmt.Fprintln(out, ui.RenderStatus("success", fmt.Sprintf("%s = %s", kv[0], kv[1])))
			}
			fmt.Fprintln(out, ui.RenderStatus("info", "Saved to "+path+"; restart the daemon to apply"))
			return nil
		},
	}
}

// parseAssignments accepts either "key value" or any number of
// "key=value" arguments.
func parseAssignments(args []string) ([][2]string, error) {
	if len(args) == 2 && !strings.Contains(args[0], "=") {
		return [][2]string{{args[0], args[1]}}, nil
	}
	pairs := make([][2]string, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected key=value", arg)
		}
		pairs = append(pairs, [2]string{key, value})
	}
	return pairs, nil
}
