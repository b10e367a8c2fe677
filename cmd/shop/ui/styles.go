// Package ui provides the terminal pages of the storefront.
// Styles follow the shop's black and white look with a red cart badge, in light
// and dark variants.
package ui

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Light mode
	LightBackground = lipgloss.Color("#f9fafb") // gray-50
	LightForeground = lipgloss.Color("#1f2937") // gray-800
	LightPrimary    = lipgloss.Color("#000000")
	LightAccent     = lipgloss.Color("#374151") // gray-700
	LightMuted      = lipgloss.Color("#6b7280") // gray-500
	LightBorder     = lipgloss.Color("#e5e7eb") // gray-200
	LightCard       = lipgloss.Color("#ffffff")

	// Dark mode
	DarkBackground = lipgloss.Color("#111827") // gray-900
	DarkForeground = lipgloss.Color("#f3f4f6") // gray-100
	DarkPrimary    = lipgloss.Color("#ffffff")
	DarkAccent     = lipgloss.Color("#d1d5db") // gray-300
	DarkMuted      = lipgloss.Color("#9ca3af") // gray-400
	DarkBorder     = lipgloss.Color("#374151") // gray-700
	DarkCard       = lipgloss.Color("#1f2937") // gray-800

	// Semantic colors, same in both modes
	Destructive = lipgloss.Color("#ef4444") // red-500, also the cart badge
	Success     = lipgloss.Color("#16a34a") // green-600
	Warning     = lipgloss.Color("#f59e0b")
	Info        = lipgloss.Color("#3b82f6")
)

// Theme holds the current color scheme.
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme.
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
		Card:       LightCard,
	}
}

// DarkTheme returns the dark mode theme.
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Card:       DarkCard,
		IsDark:     true,
	}
}

// DetectTheme guesses from COLORFGBG, then STOREFRONT_DARK_MODE, else light.
func DetectTheme() Theme {
	// "foreground;background"; background 0-6 or 8 is a dark terminal
	if fgbg := os.Getenv("COLORFGBG"); fgbg != "" {
		parts := strings.Split(fgbg, ";")
		if len(parts) == 2 {
			if bg, err := strconv.Atoi(parts[1]); err == nil {
				if (bg >= 0 && bg <= 6) || bg == 8 {
					return DarkTheme()
				}
			}
		}
	}

	if os.Getenv("STOREFRONT_DARK_MODE") == "1" {
		return DarkTheme()
	}

	return LightTheme()
}

// ThemeFor resolves the ui.theme config value.
func ThemeFor(name string) Theme {
	switch name {
	case "dark":
		return DarkTheme()
	case "light":
		return LightTheme()
	default:
		return DetectTheme()
	}
}

// Styles holds all the styled components.
type Styles struct {
	Theme    Theme
	Currency string

	// Layout
	Navbar  lipgloss.Style
	NavLink lipgloss.Style
	NavOn   lipgloss.Style
	Footer  lipgloss.Style
	Content lipgloss.Style
	Card    lipgloss.Style
	Modal   lipgloss.Style

	// Text
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style
	Strike   lipgloss.Style
	Price    lipgloss.Style

	// Form
	Label      lipgloss.Style
	FieldError lipgloss.Style
	Prompt     lipgloss.Style
	Input      lipgloss.Style
	Button     lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	// Components
	Spinner  lipgloss.Style
	Divider  lipgloss.Style
	Badge    lipgloss.Style
	Selected lipgloss.Style
}

// NewStyles creates a Styles instance for theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme:    theme,
		Currency: "₹",

		Navbar: lipgloss.NewStyle().
			Background(lipgloss.Color("#000000")).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),

		NavLink: lipgloss.NewStyle().
			Background(lipgloss.Color("#000000")).
			Foreground(lipgloss.Color("#d1d5db")).
			Padding(0, 1),

		NavOn: lipgloss.NewStyle().
			Background(lipgloss.Color("#000000")).
			Foreground(lipgloss.Color("#ffffff")).
			Underline(true).
			Padding(0, 1),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Content: lipgloss.NewStyle().
			Padding(1, 2),

		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Modal: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(theme.Primary).
			Padding(1, 3),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Strike: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Strikethrough(true),

		Price: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Label: lipgloss.NewStyle().
			Foreground(theme.Accent),

		FieldError: lipgloss.NewStyle().
			Foreground(Destructive),

		Prompt: lipgloss.NewStyle().
			Foreground(theme.Accent),

		Input: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Button: lipgloss.NewStyle().
			Background(lipgloss.Color("#000000")).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(Info),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Accent),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),

		Badge: lipgloss.NewStyle().
			Background(Destructive).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),

		Selected: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),
	}
}

// DefaultStyles returns styles for the detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// WithCurrency returns a copy using symbol for prices.
func (s Styles) WithCurrency(symbol string) Styles {
	if symbol != "" {
		s.Currency = symbol
	}
	return s
}

// Money formats an amount with two decimals.
func (s Styles) Money(v float64) string {
	return fmt.Sprintf("%s%.2f", s.Currency, v)
}

// RenderDivider returns a horizontal rule.
func (s Styles) RenderDivider(width int) string {
	if width < 1 {
		width = 1
	}
	return s.Divider.Render(strings.Repeat("─", width))
}
