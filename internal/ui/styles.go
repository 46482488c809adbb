package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/henri123lemoine/odoodash/internal/clients"
	"github.com/henri123lemoine/odoodash/internal/progress"
)

// Colors
var (
	ColorPrimary   = lipgloss.Color("4")   // Blue
	ColorSecondary = lipgloss.Color("8")   // Gray
	ColorSuccess   = lipgloss.Color("2")   // Green
	ColorWarning   = lipgloss.Color("3")   // Yellow
	ColorDanger    = lipgloss.Color("1")   // Red
	ColorMuted     = lipgloss.Color("245") // Light gray
	ColorHighlight = lipgloss.Color("6")   // Cyan
	ColorText      = lipgloss.Color("252") // Light text
	ColorStaging   = lipgloss.Color("5")   // Magenta
)

// Styles
var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSecondary).
			Padding(1, 2)

	// Dialogs drawn over the list
	DialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(1, 2)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorMuted)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true)

	NormalStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	BranchStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	DirtyStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	DangerStyle = lipgloss.NewStyle().
			Foreground(ColorDanger)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	InputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorDanger)

	// Marker for the selected (active) client
	CurrentStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary)

	// Drop zones
	DropZoneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSecondary).
			Foreground(ColorMuted).
			Padding(0, 1)

	DropZoneActiveStyle = lipgloss.NewStyle().
				Border(lipgloss.ThickBorder()).
				BorderForeground(ColorHighlight).
				Foreground(ColorHighlight).
				Bold(true).
				Padding(0, 1)

	// Tabs in the detail panel
	TabStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(0, 1)

	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true).
			Underline(true).
			Padding(0, 1)
)

// Symbols
const (
	SymbolCursor    = "›"
	SymbolCurrent   = "•"
	SymbolDivider   = "─"
	SymbolExpanded  = "▾"
	SymbolCollapsed = "▸"
	SymbolDone      = "✓"
	SymbolFailed    = "✗"
	SymbolWarning   = "!"
	SymbolPending   = "○"
	SymbolRunning   = "◐"
)

// ApplyTheme adjusts the text colors for the terminal background.
// "light" darkens text; anything else keeps the dark palette.
func ApplyTheme(theme string) {
	if theme != "light" {
		return
	}
	ColorText = lipgloss.Color("235")
	ColorMuted = lipgloss.Color("242")
	NormalStyle = NormalStyle.Foreground(ColorText)
	BranchStyle = BranchStyle.Foreground(ColorText)
	MutedStyle = MutedStyle.Foreground(ColorMuted)
	HeaderStyle = HeaderStyle.Foreground(ColorMuted)
	HelpStyle = HelpStyle.Foreground(ColorMuted)
	TabStyle = TabStyle.Foreground(ColorMuted)
	DropZoneStyle = DropZoneStyle.Foreground(ColorMuted)
}

// EnvironmentStyle colors a tier label.
func EnvironmentStyle(env clients.Environment) lipgloss.Style {
	switch env {
	case clients.Production:
		return lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	case clients.Staging:
		return lipgloss.NewStyle().Foreground(ColorStaging).Bold(true)
	case clients.Development:
		return lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	}
	return HeaderStyle
}

// StatusBadge renders the health indicator of a client.
func StatusBadge(s clients.Status) string {
	switch s {
	case clients.StatusHealthy:
		return SuccessStyle.Render("●")
	case clients.StatusWarning:
		return DirtyStyle.Render("●")
	case clients.StatusError, clients.StatusCritical:
		return DangerStyle.Render("●")
	}
	return MutedStyle.Render("○")
}

// StepIcon renders the marker of a progress step.
func StepIcon(s progress.Status) string {
	switch s {
	case progress.StatusCompleted:
		return SuccessStyle.Render(SymbolDone)
	case progress.StatusCompletedWithWarnings:
		return DirtyStyle.Render(SymbolWarning)
	case progress.StatusFailed:
		return DangerStyle.Render(SymbolFailed)
	case progress.StatusInProgress:
		return SelectedStyle.Render(SymbolRunning)
	}
	return MutedStyle.Render(SymbolPending)
}
