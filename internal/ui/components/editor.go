package components

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eugeniofciuvasile/ipcc/internal/codec"
	"github.com/eugeniofciuvasile/ipcc/internal/registry"
)

// ErrNotStructured is returned when a tree is requested for plain text.
var ErrNotStructured = errors.New("not a structured document")

type editorTab struct {
	path   string
	format codec.Format
	area   textarea.Model
	dirty  bool
}

// Editor shows one tab per document. Tabs are created once per path, in the
// order the paths first arrive, and refreshed in place afterwards.
type Editor struct {
	tabs   []*editorTab
	active int
	tree   viewport.Model
	// treeOn is set while the active tab shows its structure.
	treeOn bool
	width  int
	height int
}

func NewEditor() *Editor {
	return &Editor{tree: viewport.New(0, 0)}
}

func newTextArea() textarea.Model {
	ta := textarea.New()
	ta.ShowLineNumbers = true
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.MaxWidth = 0
	ta.Placeholder = "(empty file)"
	return ta
}

// SetDocuments brings the tabs in line with docs: known paths are refreshed,
// new paths get a tab at the end and paths no longer present are closed.
func (e *Editor) SetDocuments(docs []registry.Document) tea.Cmd {
	keep := make(map[string]bool, len(docs))
	for _, doc := range docs {
		keep[doc.Path] = true
	}
	activePath := e.ActivePath()
	e.tabs = slices.DeleteFunc(e.tabs, func(t *editorTab) bool { return !keep[t.path] })

	for _, doc := range docs {
		if t := e.tab(doc.Path); t != nil {
			e.refresh(t, doc)
			continue
		}
		t := &editorTab{path: doc.Path, format: doc.Format, area: newTextArea()}
		t.area.SetValue(doc.Buffer)
		t.dirty = doc.Dirty
		e.tabs = append(e.tabs, t)
	}

	e.active = 0
	for i, t := range e.tabs {
		if t.path == activePath {
			e.active = i
		}
	}
	e.treeOn = false
	e.resize()
	return e.focusActive()
}

// Refresh updates the tab of doc, if any.
func (e *Editor) Refresh(doc registry.Document) {
	if t := e.tab(doc.Path); t != nil {
		e.refresh(t, doc)
	}
}

// refresh keeps the cursor when the text already matches.
func (e *Editor) refresh(t *editorTab, doc registry.Document) {
	if t.area.Value() != doc.Buffer {
		t.area.SetValue(doc.Buffer)
	}
	t.format = doc.Format
	t.dirty = doc.Dirty
}

func (e *Editor) tab(path string) *editorTab {
	for _, t := range e.tabs {
		if t.path == path {
			return t
		}
	}
	return nil
}

func (e *Editor) current() *editorTab {
	if e.active < 0 || e.active >= len(e.tabs) {
		return nil
	}
	return e.tabs[e.active]
}

func (e *Editor) focusActive() tea.Cmd {
	var cmd tea.Cmd
	for i, t := range e.tabs {
		if i == e.active {
			cmd = t.area.Focus()
		} else {
			t.area.Blur()
		}
	}
	return cmd
}

// Len returns the number of open tabs.
func (e *Editor) Len() int { return len(e.tabs) }

// Paths returns the tab paths in tab order.
func (e *Editor) Paths() []string {
	paths := make([]string, len(e.tabs))
	for i, t := range e.tabs {
		paths[i] = t.path
	}
	return paths
}

// ActivePath returns the path of the active tab, or "" when none is open.
func (e *Editor) ActivePath() string {
	if t := e.current(); t != nil {
		return t.path
	}
	return ""
}

// Value returns the text of the active tab.
func (e *Editor) Value() string {
	if t := e.current(); t != nil {
		return t.area.Value()
	}
	return ""
}

// SetValue replaces the text of the active tab.
func (e *Editor) SetValue(text string) {
	if t := e.current(); t != nil {
		t.area.SetValue(text)
	}
}

// Next activates the tab to the right, wrapping around.
func (e *Editor) Next() tea.Cmd { return e.move(1) }

// Prev activates the tab to the left, wrapping around.
func (e *Editor) Prev() tea.Cmd { return e.move(-1) }

func (e *Editor) move(step int) tea.Cmd {
	if len(e.tabs) == 0 {
		return nil
	}
	e.active = (e.active + step + len(e.tabs)) % len(e.tabs)
	e.treeOn = false
	return e.focusActive()
}

// Update forwards msg to the active tab and reports whether its text
// changed.
func (e *Editor) Update(msg tea.Msg) (bool, tea.Cmd) {
	if e.treeOn {
		var cmd tea.Cmd
		e.tree, cmd = e.tree.Update(msg)
		return false, cmd
	}
	t := e.current()
	if t == nil {
		return false, nil
	}
	before := t.area.Value()
	var cmd tea.Cmd
	t.area, cmd = t.area.Update(msg)
	return t.area.Value() != before, cmd
}

// ShowTree switches the active tab to a read-only outline of content.
func (e *Editor) ShowTree(content codec.Content) error {
	s, ok := content.(codec.Structured)
	if !ok {
		return fmt.Errorf("%s: %w", e.ActivePath(), ErrNotStructured)
	}
	e.tree.SetContent(renderTree(s.Doc))
	e.tree.GotoTop()
	e.treeOn = true
	return nil
}

// HideTree returns to the text view.
func (e *Editor) HideTree() { e.treeOn = false }

// InTree reports whether the outline is showing.
func (e *Editor) InTree() bool { return e.treeOn }

func (e *Editor) SetSize(width, height int) {
	e.width = width
	e.height = height
	e.resize()
}

func (e *Editor) resize() {
	// tab bar, status line and the panel border
	w := max(e.width-2, 10)
	h := max(e.height-4, 3)
	for _, t := range e.tabs {
		t.area.SetWidth(w)
		t.area.SetHeight(h)
	}
	e.tree.Width = w
	e.tree.Height = h
}

func (e *Editor) View() string {
	if len(e.tabs) == 0 {
		return hintStyle.Render("No documents fetched yet.")
	}

	tabs := make([]string, len(e.tabs))
	for i, t := range e.tabs {
		name := t.path
		if t.dirty {
			name += dirtyMarkStyle.Render(" ●")
		}
		if i == e.active {
			tabs[i] = activeTabStyle.Render(name)
		} else {
			tabs[i] = tabStyle.Render(name)
		}
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	t := e.current()
	body := t.area.View()
	panel := editorPanelStyle
	if e.treeOn {
		body = e.tree.View()
		panel = editorActivePanelStyle
	}

	state := "saved"
	if t.dirty {
		state = "modified"
	}
	view := "text"
	if e.treeOn {
		view = "tree"
	}
	status := editorStatusStyle.Render(fmt.Sprintf("%s | %s | %s | %s | %d/%d", t.path, t.format, state, view, e.active+1, len(e.tabs)))

	return lipgloss.JoinVertical(lipgloss.Left, bar, panel.Render(body), status)
}

// renderTree draws one line per node with nested keys indented.
func renderTree(m *codec.Mapping) string {
	if m.Len() == 0 {
		return hintStyle.Render("(empty document)")
	}
	var b strings.Builder
	codec.Walk(m, func(depth int, key string, v codec.Value) {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(treeKeyStyle.Render(key))
		switch n := v.(type) {
		case *codec.Mapping:
			b.WriteString(hintStyle.Render(fmt.Sprintf(" {%d}", n.Len())))
		case codec.List:
			b.WriteString(hintStyle.Render(fmt.Sprintf(" [%d]", len(n))))
		case codec.Scalar:
			b.WriteString(": ")
			b.WriteString(treeScalarStyle.Render(n.Text))
			b.WriteString(" ")
			b.WriteString(treeTagStyle.Render(n.Tag))
		}
		b.WriteString("\n")
	})
	return b.String()
}
