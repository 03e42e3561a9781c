package main

import (
	"context"
	"fmt"
	"os"

	"sysmon/internal/commands"
	"sysmon/internal/ui"
)

// VERSION is set during build via ldflags
var VERSION string

func main() {
	if VERSION != "" {
		commands.Version = VERSION
	}

	if err := commands.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderStatus("error", err.Error()))
		os.Exit(1)
	}
}
