package gui

import (
	"errors"
	"testing"
)

func TestThemePreferenceFromString(t *testing.T) {
	tests := []struct {
		raw  string
		want ThemePreference
	}{
		{raw: "dark", want: ThemeDark},
		{raw: " Light ", want: ThemeLight},
		{raw: "auto", want: ThemeAuto},
		{raw: "", want: ThemeAuto},
		{raw: "solarized", want: ThemeAuto},
	}
	for _, tt := range tests {
		if got := ThemePreferenceFromString(tt.raw); got != tt.want {
			t.Fatalf("ThemePreferenceFromString(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestPaletteForPreference(t *testing.T) {
	prev := detectDarkMode
	t.Cleanup(func() { detectDarkMode = prev })

	tests := []struct {
		name   string
		pref   ThemePreference
		detect func() (bool, error)
		want   string
	}{
		{name: "forced dark", pref: ThemeDark, want: darkPalette.ThemeName},
		{name: "forced light", pref: ThemeLight, detect: func() (bool, error) { return true, nil }, want: lightPalette.ThemeName},
		{name: "auto dark", pref: ThemeAuto, detect: func() (bool, error) { return true, nil }, want: darkPalette.ThemeName},
		{name: "auto light", pref: ThemeAuto, detect: func() (bool, error) { return false, nil }, want: lightPalette.ThemeName},
		{name: "detection fails", pref: ThemeAuto, detect: func() (bool, error) { return false, errors.New("no portal") }, want: lightPalette.ThemeName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detectDarkMode = tt.detect
			if got := paletteForPreference(tt.pref).ThemeName; got != tt.want {
				t.Fatalf("paletteForPreference(%v) = %q, want %q", tt.pref, got, tt.want)
			}
		})
	}
}
