package components

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eugeniofciuvasile/ipcc/internal/device"
)

// ClassSelect picks a device class inline with left/right.
type ClassSelect struct {
	options       []device.Class
	selectedIndex int
}

func NewClassSelect(initial device.Class) *ClassSelect {
	s := &ClassSelect{options: device.Classes()}
	for i, c := range s.options {
		if c == initial {
			s.selectedIndex = i
		}
	}
	return s
}

// Update handles a key and reports whether it was consumed.
func (s *ClassSelect) Update(msg tea.KeyMsg) bool {
	if msg.Type == tea.KeySpace {
		s.selectedIndex = (s.selectedIndex + 1) % len(s.options)
		return true
	}
	switch msg.String() {
	case "left", "h":
		s.selectedIndex = (s.selectedIndex + len(s.options) - 1) % len(s.options)
		return true
	case "right", "l":
		s.selectedIndex = (s.selectedIndex + 1) % len(s.options)
		return true
	}
	return false
}

func (s *ClassSelect) View(focused bool) string {
	style := blurredStyle
	prefix := "  "
	if focused {
		style = focusedStyle.Bold(true)
		prefix = "> "
	}
	arrows := lipgloss.NewStyle().Foreground(colorInactive)
	return style.Render(prefix) + arrows.Render("◀ ") + style.Render(s.Selected().Label()) + arrows.Render(" ▶")
}

func (s *ClassSelect) Selected() device.Class {
	return s.options[s.selectedIndex]
}
