package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorRed    = lipgloss.Color("#FF5F5F")
	colorGreen  = lipgloss.Color("#5FFF87")
	colorYellow = lipgloss.Color("#FFD75F")
	colorCyan   = lipgloss.Color("#5FD7FF")
	colorGray   = lipgloss.Color("#808080")
	colorDim    = lipgloss.Color("#4E4E4E")
	colorWhite  = lipgloss.Color("#FFFFFF")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	orbIdleStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 2)

	orbListeningStyle = orbIdleStyle.
				BorderForeground(colorRed).
				Foreground(colorRed).
				Bold(true)

	orbBusyStyle = orbIdleStyle.
			BorderForeground(colorDim).
			Foreground(colorGray)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	transcriptStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Italic(true)

	spokenStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(colorCyan)

	inputStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	toastTitleStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	toastStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)
)
