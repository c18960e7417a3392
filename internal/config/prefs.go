package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/ini.v1"

	"github.com/rescale/appendix-client/internal/constants"
)

// Preferences is the small key/value store for UI state that survives
// restarts. It is read once at startup and written on every change.
//
//	[ui]
//	theme = light
type Preferences struct {
	path string

	mu    sync.Mutex
	theme string
}

// LoadPreferences reads path (DefaultPreferencesPath when empty). A missing
// or unreadable file yields defaults.
func LoadPreferences(path string) *Preferences {
	if path == "" {
		path = DefaultPreferencesPath()
	}
	p := &Preferences{path: path, theme: constants.ThemeLight}

	iniFile, err := ini.Load(path)
	if err != nil {
		return p
	}
	p.theme = NormalizeTheme(iniFile.Section("ui").Key("theme").String())
	return p
}

// Path returns the backing file.
func (p *Preferences) Path() string {
	return p.path
}

// Theme returns "light" or "dark".
func (p *Preferences) Theme() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.theme
}

// SetTheme stores theme and persists it immediately.
func (p *Preferences) SetTheme(theme string) error {
	p.mu.Lock()
	p.theme = NormalizeTheme(theme)
	p.mu.Unlock()
	return p.save()
}

// ToggleTheme flips light and dark, persists, and returns the new value.
func (p *Preferences) ToggleTheme() (string, error) {
	next := constants.ThemeDark
	if p.Theme() == constants.ThemeDark {
		next = constants.ThemeLight
	}
	return next, p.SetTheme(next)
}

func (p *Preferences) save() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0700); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	iniFile := ini.Empty()
	ui, err := iniFile.NewSection("ui")
	if err != nil {
		return fmt.Errorf("failed to create ui section: %w", err)
	}
	ui.Key("theme").SetValue(p.Theme())

	return saveAtomic(iniFile, p.path)
}

// NormalizeTheme maps anything other than "dark" to "light".
func NormalizeTheme(theme string) string {
	if theme == constants.ThemeDark {
		return constants.ThemeDark
	}
	return constants.ThemeLight
}
