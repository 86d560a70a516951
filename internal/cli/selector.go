package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eugeniofciuvasile/ipcc/internal/device"
)

// ErrNoSelection is returned when the picker is closed without a choice.
var ErrNoSelection = errors.New("no file selected")

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#974FD7"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#974FD7")).Bold(true)
	normalStyle   = lipgloss.NewStyle()
	filterStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ADD8"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// SelectorModel picks one managed file, with type-to-filter.
type SelectorModel struct {
	title           string
	files           []device.File
	filteredIndices []int
	cursor          int
	filter          string
	choice          *device.File
	quitting        bool
}

func NewSelector(title string, files []device.File) *SelectorModel {
	m := &SelectorModel{title: title, files: files}
	m.updateFilter()
	return m
}

func (m *SelectorModel) Init() tea.Cmd {
	return nil
}

func (m *SelectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyEnter:
		if m.cursor < len(m.filteredIndices) {
			f := m.files[m.filteredIndices[m.cursor]]
			m.choice = &f
		}
		return m, tea.Quit

	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}

	case tea.KeyDown:
		if m.cursor < len(m.filteredIndices)-1 {
			m.cursor++
		}

	case tea.KeyBackspace, tea.KeyDelete:
		if len(m.filter) > 0 {
			m.filter = m.filter[:len(m.filter)-1]
			m.updateFilter()
		}

	case tea.KeyRunes, tea.KeySpace:
		if keyMsg.Type == tea.KeySpace {
			m.filter += " "
		} else {
			m.filter += string(keyMsg.Runes)
		}
		m.updateFilter()
	}

	return m, nil
}

func (m *SelectorModel) updateFilter() {
	m.cursor = 0
	filterLower := strings.ToLower(m.filter)
	m.filteredIndices = m.filteredIndices[:0]
	for i, f := range m.files {
		if strings.Contains(strings.ToLower(f.Path), filterLower) {
			m.filteredIndices = append(m.filteredIndices, i)
		}
	}
}

func (m *SelectorModel) View() string {
	if m.choice != nil || m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	if m.filter != "" {
		b.WriteString(filterStyle.Render("Filter: " + m.filter))
	} else {
		b.WriteString(helpStyle.Render("Type to filter..."))
	}
	b.WriteString("\n\n")

	if len(m.filteredIndices) == 0 {
		b.WriteString(helpStyle.Render("No matches found"))
		b.WriteString("\n")
	}
	for i, idx := range m.filteredIndices {
		f := m.files[idx]
		line := fmt.Sprintf("%-32s %s", f.Path, f.Format)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString(normalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓: navigate • Enter: select • Esc/Ctrl+C: quit"))

	return b.String()
}

func (m *SelectorModel) Choice() *device.File {
	return m.choice
}

// SelectFile shows the picker on stderr and returns the chosen file.
func SelectFile(title string, files []device.File) (device.File, error) {
	if len(files) == 0 {
		return device.File{}, fmt.Errorf("no managed files to choose from; pass a remote path")
	}
	m := NewSelector(title, files)
	if _, err := tea.NewProgram(m, tea.WithOutput(os.Stderr)).Run(); err != nil {
		return device.File{}, fmt.Errorf("file picker: %w", err)
	}
	if m.Choice() == nil {
		return device.File{}, ErrNoSelection
	}
	return *m.Choice(), nil
}
