package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eugeniofciuvasile/ipcc/internal/logging"
)

const maxLogLines = 500

// LogPane shows the most recent log entries, newest at the bottom.
type LogPane struct {
	lines    []string
	viewport viewport.Model
	width    int
	height   int
}

func NewLogPane() *LogPane {
	return &LogPane{viewport: viewport.New(0, 0)}
}

// Append adds an entry and scrolls to it.
func (p *LogPane) Append(e logging.Entry) {
	p.lines = append(p.lines, styleLogLine(e))
	if len(p.lines) > maxLogLines {
		p.lines = p.lines[len(p.lines)-maxLogLines:]
	}
	p.viewport.SetContent(strings.Join(p.lines, "\n"))
	p.viewport.GotoBottom()
}

// Lines returns the number of buffered lines.
func (p *LogPane) Lines() int { return len(p.lines) }

func (p *LogPane) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return cmd
}

func (p *LogPane) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.viewport.Width = width
	// header line and top border
	p.viewport.Height = max(height-2, 1)
	p.viewport.GotoBottom()
}

func (p *LogPane) View() string {
	header := logHeaderStyle.Render("Log")
	return logPanelStyle.Width(p.width).Render(lipgloss.JoinVertical(lipgloss.Left, header, p.viewport.View()))
}

func styleLogLine(e logging.Entry) string {
	line := e.String()
	lower := strings.ToLower(e.Message)
	switch {
	case strings.Contains(lower, "error") || strings.Contains(lower, "failed"):
		return logErrorStyle.Render(line)
	case strings.Contains(lower, "warning"):
		return logWarningStyle.Render(line)
	}
	return line
}
