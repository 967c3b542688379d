package tui

import "github.com/charmbracelet/lipgloss"

// Styles are the lipgloss styles used by the surface.
type Styles struct {
	Title      lipgloss.Style
	InputField lipgloss.Style
	Badge      lipgloss.Style
	Selected   lipgloss.Style
	URL        lipgloss.Style
	Muted      lipgloss.Style
	Error      lipgloss.Style
	Warning    lipgloss.Style
	Suggestion lipgloss.Style
	Help       lipgloss.Style
}

// DefaultStyles returns the default palette.
func DefaultStyles() *Styles {
	primary := lipgloss.Color("#2E7D32")
	accent := lipgloss.Color("#06B6D4")
	muted := lipgloss.Color("#6C7086")
	border := lipgloss.Color("#45475A")

	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary),
		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
		Badge: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primary).
			Padding(0, 1),
		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent),
		URL: lipgloss.NewStyle().
			Foreground(accent).
			Underline(true),
		Muted: lipgloss.NewStyle().
			Foreground(muted),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8")),
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F9E2AF")),
		Suggestion: lipgloss.NewStyle().
			Foreground(muted).
			PaddingLeft(2),
		Help: lipgloss.NewStyle().
			Foreground(muted),
	}
}
