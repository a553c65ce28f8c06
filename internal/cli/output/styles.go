package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used for text-mode output.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Success lipgloss.Style
}

// DefaultStyles returns the default style set.
func DefaultStyles() *Styles {
	return &Styles{
		Header1: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Bold:    lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
}
