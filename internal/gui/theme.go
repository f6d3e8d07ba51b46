package gui

import (
	"log/slog"
	"strings"

	darkmode "github.com/thiagokokada/dark-mode-go"

	"github.com/thiagokokada/gitlanes/internal/gui/widgets"
)

type ThemePreference int

const (
	ThemeAuto ThemePreference = iota
	ThemeLight
	ThemeDark
)

func (p ThemePreference) String() string {
	switch p {
	case ThemeLight:
		return "light"
	case ThemeDark:
		return "dark"
	default:
		return "auto"
	}
}

type colorPalette struct {
	ThemeName string
	Graph     widgets.Palette
}

var (
	lightPalette = colorPalette{
		ThemeName: "azure light",
		Graph: widgets.Palette{
			Background: "#ffffff",
			Text:       "#111111",
			Selection:  "#cfe7ff",
			NodeFill:   "white",
			HeadFill:   "#ffd75e",
			// Based on gitk's default colors.
			Lanes:  []string{"#00cc00", "#cc0000", "#0055cc", "#aa00aa", "#555555", "#8b4513", "#ff8c00"},
			Local:  widgets.LabelStyle{Fill: "#dff5de", Outline: "#00cc00", Text: "#111111"},
			Remote: widgets.LabelStyle{Fill: "#dbeafe", Outline: "#2563eb", Text: "#111111"},
			Tag:    widgets.LabelStyle{Fill: "#e6e6e6", Outline: "#8a8a8a", Text: "#111111"},
			Head:   widgets.LabelStyle{Fill: "#ffd75e", Outline: "#c9a300", Text: "#111111"},
		},
	}
	darkPalette = colorPalette{
		ThemeName: "azure dark",
		Graph: widgets.Palette{
			Background: "#1e1e1e",
			Text:       "#eaeaea",
			Selection:  "#253446",
			NodeFill:   "#1e1e1e",
			HeadFill:   "#b58900",
			Lanes:      []string{"#00ff00", "#ff5c5c", "#4fa3ff", "#d56bff", "#a0a0a0", "#d09a6b", "#ffb347"},
			Local:      widgets.LabelStyle{Fill: "#1f3b2a", Outline: "#00ff00", Text: "#eaeaea"},
			Remote:     widgets.LabelStyle{Fill: "#253446", Outline: "#4fa3ff", Text: "#eaeaea"},
			Tag:        widgets.LabelStyle{Fill: "#3a3a3a", Outline: "#6b6b6b", Text: "#eaeaea"},
			Head:       widgets.LabelStyle{Fill: "#b58900", Outline: "#8a6a00", Text: "#111111"},
		},
	}
	detectDarkMode = darkmode.IsDarkMode
)

func ThemePreferenceFromString(raw string) ThemePreference {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ThemeDark.String():
		return ThemeDark
	case ThemeLight.String():
		return ThemeLight
	default:
		return ThemeAuto
	}
}

func paletteForPreference(pref ThemePreference) colorPalette {
	switch pref {
	case ThemeDark:
		return darkPalette
	case ThemeLight:
		return lightPalette
	default:
		if detectDarkMode != nil {
			if dark, err := detectDarkMode(); err == nil {
				if dark {
					return darkPalette
				}
			} else {
				slog.Warn("detect dark-mode", slog.Any("error", err))
			}
		}
		return lightPalette
	}
}
