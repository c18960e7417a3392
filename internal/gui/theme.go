package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"github.com/rescale/appendix-client/internal/constants"
)

// appTheme pins the light or dark variant chosen in the preferences,
// independent of the desktop setting.
type appTheme struct {
	variant fyne.ThemeVariant
}

func newAppTheme(name string) *appTheme {
	if name == constants.ThemeDark {
		return &appTheme{variant: theme.VariantDark}
	}
	return &appTheme{variant: theme.VariantLight}
}

func (t *appTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0x00, G: 0x7A, B: 0xCC, A: 0xFF}
	case theme.ColorNameSuccess:
		return color.NRGBA{R: 0x4C, G: 0xAF, B: 0x50, A: 0xFF}
	case theme.ColorNameError:
		return color.NRGBA{R: 0xF4, G: 0x43, B: 0x36, A: 0xFF}
	default:
		return theme.DefaultTheme().Color(name, t.variant)
	}
}

func (t *appTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *appTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *appTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameText:
		return 13
	case theme.SizeNameHeadingText:
		return 20
	default:
		return theme.DefaultTheme().Size(name)
	}
}

// Dark reports whether the dark variant is pinned.
func (t *appTheme) Dark() bool {
	return t.variant == theme.VariantDark
}
