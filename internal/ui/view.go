package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	appStyle = lipgloss.NewStyle().
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#974FD7"))

	deviceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D7D7D"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0D8B2"))

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ADD8"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5555"))
)

// View renders the UI model
func (m *Model) View() string {
	var content strings.Builder

	content.WriteString(titleStyle.Render("IPCC"))
	creds, class := m.orch.Device()
	if creds.Host != "" {
		content.WriteString(deviceStyle.Render(fmt.Sprintf("  %s  %s  [%s]", creds, class.Label(), m.orch.State())))
	}
	content.WriteString("\n")

	status := m.status
	if m.state == StateFetching {
		status = m.spinner.View() + " " + status
	}
	content.WriteString(statusStyle.Render(status))
	content.WriteString("\n")

	switch m.state {
	case StateFetching:
		if m.editor.Len() > 0 {
			content.WriteString(m.editor.View())
		}
	case StateEditor:
		content.WriteString(m.editor.View())
	default:
		if activeComponent := m.getActiveComponent(); activeComponent != nil {
			content.WriteString(activeComponent.View())
		}
	}

	if m.errorMessage != "" {
		content.WriteString("\n")
		content.WriteString(errorStyle.Render(m.errorMessage))
		m.errorMessage = ""
	}

	content.WriteString("\n")
	content.WriteString(m.logPane.View())
	content.WriteString("\n")

	switch m.state {
	case StateConnect:
		content.WriteString(m.help.ShortHelpView(m.keys.formHelp(m.editor.Len() > 0)))
	case StateEditor:
		content.WriteString(m.help.ShortHelpView(m.keys.editorHelp()))
	}

	return appStyle.Render(content.String())
}
