package tui

import "github.com/charmbracelet/lipgloss"

var (
	// primaryColor is the main theme color.
	primaryColor = lipgloss.Color("#7C9EF5")
	// successColor indicates settled annotations and confirmed sync state.
	successColor = lipgloss.Color("#4ECDC4")
	// warningColor indicates held annotations and declined commands.
	warningColor = lipgloss.Color("#FFE66D")
	// errorColor indicates generation failures.
	errorColor = lipgloss.Color("#FF6B6B")
	// subtleColor indicates less prominent UI elements.
	subtleColor = lipgloss.Color("#666666")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	streamingStyle = lipgloss.NewStyle().
			Foreground(primaryColor)

	heldStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	toastStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	subtleStyle = lipgloss.NewStyle().
			Foreground(subtleColor)

	annotationStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(subtleColor).
			Padding(0, 1)

	suggestionStyle = lipgloss.NewStyle().
			Foreground(successColor)
)
