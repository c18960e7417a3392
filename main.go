// Appendix Client - CLI and GUI front end for the appendix generator
//
// - No args + display available → GUI mode
// - No args + no display → CLI help
// - --gui → GUI mode
// - --cli → CLI mode (force)
// - CLI subcommands/flags → CLI mode
package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/rescale/appendix-client/internal/cli"
	"github.com/rescale/appendix-client/internal/gui"
)

func main() {
	cli.GUILauncher = gui.LaunchGUI

	if isCLIMode(os.Args[1:], gui.HasDisplay()) {
		if err := cli.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := gui.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliPatterns are the subcommands and flags that select CLI mode.
var cliPatterns = []string{
	// Subcommands
	"generate", "gen", "health", "theme", "config", "gui", "completion", "help",
	// Flags
	"--help", "-h", "--version", "-v",
}

// isCLIMode determines whether to run in CLI mode based on arguments and
// display availability.
//
// CLI mode when:
// - --cli flag is present (force CLI mode)
// - CLI subcommands or flags are present
// - No arguments and no display
// - Unknown arguments, so cobra can report them
//
// GUI mode when:
// - --gui flag is present (force GUI mode)
// - No arguments and a display is available
// - Only --config/-c is given and a display is available
func isCLIMode(args []string, hasDisplay bool) bool {
	if slices.Contains(args, "--cli") {
		return true
	}
	if slices.Contains(args, "--gui") {
		return false
	}

	for _, arg := range args {
		if slices.Contains(cliPatterns, arg) {
			return true
		}
	}

	if len(args) == 0 || onlyConfigFlag(args) {
		return !hasDisplay
	}

	return true
}

func onlyConfigFlag(args []string) bool {
	return len(args) == 2 && (args[0] == "--config" || args[0] == "-c")
}
