package ui

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	AccentRed      = lipgloss.Color("#ef233c")
	AccentDarkRed  = lipgloss.Color("#d90429")
	BackgroundBlue = lipgloss.Color("#2b2d42")
	Foreground     = lipgloss.Color("#edf2f4")
	Muted          = lipgloss.Color("#8d99ae")

	ColorSuccess = lipgloss.Color("#2ecc71")
	ColorWarning = lipgloss.Color("#f39c12")
	ColorError   = AccentRed
	ColorInfo    = lipgloss.Color("#3498db")
)

// Styles for TUI components
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Foreground).
			Background(AccentRed).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Background(BackgroundBlue).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(AccentRed).
			MarginBottom(1)

	ContentStyle = lipgloss.NewStyle().
			Foreground(Foreground)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	// new names in the preview
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	// duplicate targets, which get a _N suffix on apply
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	InputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(AccentRed).
			Padding(0, 1)
)

// FormatKeybinding formats a keybinding for display in footer
func FormatKeybinding(key, description string) string {
	keyStyle := lipgloss.NewStyle().
		Foreground(AccentRed).
		Bold(true)

	return keyStyle.Render(key) + " " + MutedStyle.Render(description)
}

// FormatHeader renders title across width columns
func FormatHeader(title string, width int) string {
	return HeaderStyle.Width(width).Render(title)
}

// FormatFooter joins keybindings into a footer width columns wide
func FormatFooter(width int, keybindings ...string) string {
	footer := ""
	for i, kb := range keybindings {
		if i > 0 {
			footer += "  "
		}
		footer += kb
	}
	return FooterStyle.Width(width).Render(footer)
}
