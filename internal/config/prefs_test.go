package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPreferencesDefaultToLight(t *testing.T) {
	p := LoadPreferences(filepath.Join(t.TempDir(), "prefs.ini"))
	if p.Theme() != "light" {
		t.Errorf("Theme() = %q, want light", p.Theme())
	}
}

func TestPreferencesPersistToggle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "prefs.ini")
	p := LoadPreferences(path)

	theme, err := p.ToggleTheme()
	if err != nil {
		t.Fatalf("ToggleTheme failed: %v", err)
	}
	if theme != "dark" {
		t.Errorf("toggle from light = %q, want dark", theme)
	}

	reloaded := LoadPreferences(path)
	if reloaded.Theme() != "dark" {
		t.Errorf("reloaded theme = %q, want dark", reloaded.Theme())
	}

	theme, err = reloaded.ToggleTheme()
	if err != nil || theme != "light" {
		t.Errorf("second toggle = %q, %v", theme, err)
	}
	if LoadPreferences(path).Theme() != "light" {
		t.Error("light theme not persisted")
	}
}

func TestPreferencesUnknownValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.ini")
	if err := os.WriteFile(path, []byte("[ui]\ntheme = solarized\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := LoadPreferences(path).Theme(); got != "light" {
		t.Errorf("Theme() = %q, want light for unknown value", got)
	}
}

func TestNormalizeTheme(t *testing.T) {
	tests := map[string]string{
		"dark":  "dark",
		"light": "light",
		"":      "light",
		"Dark":  "light",
	}
	for in, want := range tests {
		if got := NormalizeTheme(in); got != want {
			t.Errorf("NormalizeTheme(%q) = %q, want %q", in, got, want)
		}
	}
}
