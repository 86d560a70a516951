package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// --- Palette ---
var (
	// Purple used for titles, focus and the active tab
	colorPrimary = lipgloss.Color("#974FD7")
	// Cyan used for structured keys and the log pane border
	colorSecondary = lipgloss.Color("#00ADD8")
	// Cream used for headers and highlights
	colorAccent = lipgloss.Color("#F0D8B2")
	// Standard text colors
	colorText     = lipgloss.Color("#FAFAFA")
	colorSubText  = lipgloss.Color("#7D7D7D")
	colorError    = lipgloss.Color("#FF5555")
	colorWarning  = lipgloss.Color("#F1C40F")
	colorInactive = lipgloss.Color("#4D4D4D")
)

var (
	// --- General Layout Styles ---

	// Standard bold header for sections
	sectionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorPrimary).
				MarginBottom(1)

	labelStyle = lipgloss.NewStyle().Foreground(colorSubText)
	hintStyle  = lipgloss.NewStyle().Foreground(colorInactive)

	// --- Form & Input Styles ---

	// Focused input fields
	focusedStyle = lipgloss.NewStyle().Foreground(colorPrimary)
	// Blurred/Inactive input fields
	blurredStyle = lipgloss.NewStyle().Foreground(colorInactive)

	// Buttons
	focusedButton = focusedStyle.Render("[ Connect ]")
	blurredButton = fmt.Sprintf("[ %s ]", blurredStyle.Render("Connect"))

	// Error messages
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError).
			Padding(0, 2)

	formBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(1, 3).
			Width(60).
			Align(lipgloss.Left)

	// --- Editor Styles ---

	tabStyle = lipgloss.NewStyle().
			Foreground(colorSubText).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Background(colorPrimary).
			Foreground(colorText).
			Padding(0, 1)

	dirtyMarkStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)

	editorPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorInactive)

	editorActivePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary)

	editorStatusStyle = lipgloss.NewStyle().
				Foreground(colorSubText).
				Background(lipgloss.Color("235")).
				Padding(0, 2)

	// --- Tree Styles ---

	treeKeyStyle    = lipgloss.NewStyle().Foreground(colorSecondary).Bold(true)
	treeScalarStyle = lipgloss.NewStyle().Foreground(colorAccent)
	treeTagStyle    = lipgloss.NewStyle().Foreground(colorInactive)

	// --- Log Pane Styles ---

	logHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Background(colorSecondary).
			Foreground(colorText).
			Padding(0, 1)

	logPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true, false, false, false).
			BorderForeground(colorSecondary)

	logWarningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	logErrorStyle   = lipgloss.NewStyle().Foreground(colorError)
)
