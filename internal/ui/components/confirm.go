package components

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ConfirmDialog asks a yes/no question before a destructive action.
type ConfirmDialog struct {
	title     string
	message   string
	detail    string
	confirmed bool
	canceled  bool
	width     int
	height    int
}

func NewConfirmDialog(title, message, detail string) *ConfirmDialog {
	return &ConfirmDialog{
		title:   title,
		message: message,
		detail:  detail,
	}
}

func (d *ConfirmDialog) Init() tea.Cmd {
	return nil
}

func (d *ConfirmDialog) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if d.confirmed || d.canceled {
		return d, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.SetSize(msg.Width, msg.Height)
		return d, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "y", "Y":
			d.confirmed = true
		case "n", "N", "esc":
			d.canceled = true
		}
	}

	return d, nil
}

func (d *ConfirmDialog) View() string {
	if d.canceled {
		return ""
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorWarning).
		Render("⚠ " + d.title)

	message := labelStyle.Render(d.message)

	detail := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorPrimary).
		Render(d.detail)

	prompt := hintStyle.Render("Press Y to confirm, N or Esc to cancel")

	content := lipgloss.JoinVertical(lipgloss.Center,
		title,
		"\n",
		message,
		"\n",
		detail,
		"\n\n",
		prompt,
	)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorWarning).
		Padding(1, 3).
		Width(60).
		Align(lipgloss.Center).
		Render(content)

	availableHeight := max(d.height-3, 0)
	return lipgloss.Place(
		d.width,
		availableHeight,
		lipgloss.Center,
		lipgloss.Center,
		box,
	)
}

func (d *ConfirmDialog) SetSize(width, height int) {
	d.width = width
	d.height = height
}

func (d *ConfirmDialog) IsConfirmed() bool {
	return d.confirmed
}

func (d *ConfirmDialog) IsCanceled() bool {
	return d.canceled
}
