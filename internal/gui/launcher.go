package gui

import (
	"errors"
	"os"
	"runtime"
)

// ErrNoDisplay is returned when no display server is available.
var ErrNoDisplay = errors.New("GUI mode requires a display: DISPLAY and WAYLAND_DISPLAY are not set; " +
	"use 'appendix-client generate' for CLI mode")

// HasDisplay reports whether a window can be opened. Only Linux can run
// without one.
func HasDisplay() bool {
	if runtime.GOOS != "linux" {
		return true
	}
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

// Run launches the GUI mode.
func Run(args []string) error {
	if !HasDisplay() {
		return ErrNoDisplay
	}

	configFile := ""
	for i, arg := range args {
		if (arg == "--config" || arg == "-c") && i+1 < len(args) {
			configFile = args[i+1]
			break
		}
	}

	return LaunchGUI(configFile)
}
