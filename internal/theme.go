package internal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ThemeID identifies a visual palette
type ThemeID string

const (
	ThemeSerene    ThemeID = "serene"
	ThemeEden      ThemeID = "eden"
	ThemeNocturnal ThemeID = "nocturnal"
	ThemeMinimal   ThemeID = "minimal"
)

// Palette holds the terminal colors of a theme
type Palette struct {
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Text       lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	UserBubble lipgloss.Color
	UserText   lipgloss.Color
	Reflection lipgloss.Color
	Error      lipgloss.Color
}

// Theme is a named palette
type Theme struct {
	ID      ThemeID
	Name    string
	Palette Palette
}

var themes = []Theme{
	{
		ID:   ThemeSerene,
		Name: "Sereno",
		Palette: Palette{
			Primary:    lipgloss.Color("62"),
			Accent:     lipgloss.Color("63"),
			Text:       lipgloss.Color("252"),
			Muted:      lipgloss.Color("244"),
			Border:     lipgloss.Color("250"),
			UserBubble: lipgloss.Color("62"),
			UserText:   lipgloss.Color("231"),
			Reflection: lipgloss.Color("179"),
			Error:      lipgloss.Color("203"),
		},
	},
	{
		ID:   ThemeEden,
		Name: "Éden",
		Palette: Palette{
			Primary:    lipgloss.Color("29"),
			Accent:     lipgloss.Color("35"),
			Text:       lipgloss.Color("254"),
			Muted:      lipgloss.Color("145"),
			Border:     lipgloss.Color("144"),
			UserBubble: lipgloss.Color("29"),
			UserText:   lipgloss.Color("194"),
			Reflection: lipgloss.Color("114"),
			Error:      lipgloss.Color("167"),
		},
	},
	{
		ID:   ThemeNocturnal,
		Name: "Noturno",
		Palette: Palette{
			Primary:    lipgloss.Color("99"),
			Accent:     lipgloss.Color("141"),
			Text:       lipgloss.Color("253"),
			Muted:      lipgloss.Color("240"),
			Border:     lipgloss.Color("238"),
			UserBubble: lipgloss.Color("99"),
			UserText:   lipgloss.Color("231"),
			Reflection: lipgloss.Color("252"),
			Error:      lipgloss.Color("196"),
		},
	},
	{
		ID:   ThemeMinimal,
		Name: "Minimalista",
		Palette: Palette{
			Primary:    lipgloss.Color("255"),
			Accent:     lipgloss.Color("255"),
			Text:       lipgloss.Color("255"),
			Muted:      lipgloss.Color("246"),
			Border:     lipgloss.Color("250"),
			UserBubble: lipgloss.Color("16"),
			UserText:   lipgloss.Color("255"),
			Reflection: lipgloss.Color("252"),
			Error:      lipgloss.Color("160"),
		},
	},
}

// Themes returns the registry in display order
func Themes() []Theme {
	out := make([]Theme, len(themes))
	copy(out, themes)
	return out
}

// LookupTheme finds a theme by id (case-insensitive)
func LookupTheme(id ThemeID) (Theme, bool) {
	for _, th := range themes {
		if strings.EqualFold(string(th.ID), string(id)) {
			return th, true
		}
	}
	return Theme{}, false
}

// ParseTheme resolves a theme id or display name
func ParseTheme(s string) (Theme, error) {
	needle := strings.TrimSpace(s)
	for _, th := range themes {
		if strings.EqualFold(string(th.ID), needle) || strings.EqualFold(th.Name, needle) {
			return th, nil
		}
	}
	return Theme{}, fmt.Errorf("%w: %q", ErrUnknownTheme, s)
}

// ResolveTheme picks the theme to use: an explicit override, then the stored
// preference, then nocturnal on a dark terminal, then serene.
func ResolveTheme(override, stored ThemeID, darkTerminal bool) Theme {
	if th, ok := LookupTheme(override); ok && override != "" {
		return th
	}
	if th, ok := LookupTheme(stored); ok && stored != "" {
		return th
	}
	if darkTerminal {
		th, _ := LookupTheme(ThemeNocturnal)
		return th
	}
	th, _ := LookupTheme(ThemeSerene)
	return th
}
