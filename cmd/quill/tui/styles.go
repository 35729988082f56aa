// Package tui renders build progress in the terminal with Bubble Tea.
package tui

import "github.com/charmbracelet/lipgloss"

// Palette colors adapt to light and dark terminals.
var (
	ink   = lipgloss.AdaptiveColor{Light: "#1F4E79", Dark: "#7FB3E6"}
	leaf  = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#81C784"}
	rust  = lipgloss.AdaptiveColor{Light: "#B23A1E", Dark: "#F08A6C"}
	faded = lipgloss.AdaptiveColor{Light: "#6B6B6B", Dark: "#8A8A8A"}
)

// Theme holds the styles shared by the progress view and artifact output.
var Theme = struct {
	Title, Heading, Muted, Good, Bad lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ink),
	Heading: lipgloss.NewStyle().Bold(true).Underline(true),
	Muted:   lipgloss.NewStyle().Foreground(faded),
	Good:    lipgloss.NewStyle().Bold(true).Foreground(leaf),
	Bad:     lipgloss.NewStyle().Bold(true).Foreground(rust),
}

// truncatePath shortens path to width, keeping its tail.
func truncatePath(path string, width int) string {
	if width < 4 || len(path) <= width {
		return path
	}
	return "…" + path[len(path)-width+1:]
}
