package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rescale/appendix-client/internal/config"
	"github.com/rescale/appendix-client/internal/constants"
)

// newThemeCmd creates the 'theme' command.
func newThemeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "theme [light|dark|toggle]",
		Short: "Show or change the GUI theme",
		Long: `Show or change the theme the GUI starts with.

Without an argument the current theme is printed. The choice is stored in
prefs.ini next to the config file.`,
		ValidArgs: []string{constants.ThemeLight, constants.ThemeDark, "toggle"},
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs := config.LoadPreferences(prefsFile)
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				fmt.Fprintln(out, prefs.Theme())
				return nil
			}

			var theme string
			switch strings.ToLower(args[0]) {
			case "toggle":
				next, err := prefs.ToggleTheme()
				if err != nil {
					return fmt.Errorf("failed to save theme: %w", err)
				}
				theme = next
			default:
				if err := prefs.SetTheme(args[0]); err != nil {
					return fmt.Errorf("failed to save theme: %w", err)
				}
				theme = prefs.Theme()
			}

			GetLogger().Debug().Str("path", prefs.Path()).Str("theme", theme).Msg("Theme saved")
			fmt.Fprintln(out, theme)
			return nil
		},
	}
}
