package ui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/eugeniofciuvasile/ipcc/internal/codec"
	"github.com/eugeniofciuvasile/ipcc/internal/logging"
	"github.com/eugeniofciuvasile/ipcc/internal/session"
)

// Update handles updates to the UI model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case LogMsg:
		m.logPane.Append(logging.Entry(msg))
		return m, waitForLog(m.logs)

	case FetchDoneMsg:
		return m, m.handleFetchDone(msg)

	case SaveDoneMsg:
		m.handleSaveDone(msg)
		return m, nil

	case SaveAllDoneMsg:
		m.handleSaveAllDone(msg)
		return m, nil

	case spinner.TickMsg:
		if m.state != StateFetching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m, m.logPane.Update(msg)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			if m.state == StateConfirm {
				return m, m.quit()
			}
			return m, m.requestQuit()
		}
		if m.state == StateEditor {
			return m, m.handleEditorKey(msg)
		}
	}

	if activeComponent := m.getActiveComponent(); activeComponent != nil {
		model, cmd := activeComponent.Update(msg)
		return m, m.handleComponentResult(model, cmd)
	}
	return m, nil
}

func (m *Model) handleEditorKey(msg tea.KeyMsg) tea.Cmd {
	path := m.editor.ActivePath()
	docs := m.orch.Registry()

	switch {
	case key.Matches(msg, m.keys.NextTab):
		return m.editor.Next()

	case key.Matches(msg, m.keys.PrevTab):
		return m.editor.Prev()

	case key.Matches(msg, m.keys.Connect):
		m.form.SetError("")
		m.form.SetCancelable(m.editor.Len() > 0)
		m.state = StateConnect
		return m.form.Init()

	case key.Matches(msg, m.keys.Reload):
		return m.requestFetch(m.request)

	case path == "":
		return nil

	case key.Matches(msg, m.keys.Save):
		job, err := m.orch.PrepareSave(path)
		if err != nil {
			m.reportError(err)
			return nil
		}
		m.status = fmt.Sprintf("Saving %s...", path)
		return m.saveCmd(job)

	case key.Matches(msg, m.keys.SaveAll):
		var jobs []session.SaveJob
		for _, p := range docs.Dirty() {
			job, err := m.orch.PrepareSave(p)
			if err != nil {
				continue
			}
			jobs = append(jobs, job)
		}
		if len(jobs) == 0 {
			m.status = "No unsaved changes"
			return nil
		}
		m.status = fmt.Sprintf("Saving %d files...", len(jobs))
		return m.saveAllCmd(jobs)

	case key.Matches(msg, m.keys.Revert):
		doc, err := m.orch.Revert(path)
		if err != nil {
			m.reportError(err)
			return nil
		}
		m.editor.Refresh(doc)
		m.status = fmt.Sprintf("Reverted %s", path)
		return nil

	case key.Matches(msg, m.keys.Reformat):
		doc, err := docs.Get(path)
		if err != nil {
			m.reportError(err)
			return nil
		}
		if doc.Format != codec.FormatStructured {
			m.errorMessage = fmt.Sprintf("%s is plain text", path)
			return nil
		}
		content, err := codec.Decode(m.editor.Value(), doc.Format)
		if err != nil {
			m.reportError(err)
			return nil
		}
		text, err := codec.Render(content)
		if err != nil {
			m.reportError(err)
			return nil
		}
		if text != m.editor.Value() {
			m.editor.SetValue(text)
			m.bufferChanged(path)
		}
		m.status = fmt.Sprintf("Reformatted %s", path)
		return nil

	case key.Matches(msg, m.keys.Tree):
		if m.editor.InTree() {
			m.editor.HideTree()
			return nil
		}
		doc, err := docs.Get(path)
		if err != nil {
			m.reportError(err)
			return nil
		}
		content, err := codec.Decode(m.editor.Value(), doc.Format)
		if err != nil {
			m.reportError(err)
			return nil
		}
		if err := m.editor.ShowTree(content); err != nil {
			m.reportError(err)
		}
		return nil

	case key.Matches(msg, m.keys.Copy):
		if err := m.copy(m.editor.Value()); err != nil {
			m.reportError(fmt.Errorf("copy to clipboard: %w", err))
			return nil
		}
		m.status = fmt.Sprintf("Copied %s to clipboard", path)
		return nil
	}

	changed, cmd := m.editor.Update(msg)
	if changed {
		m.bufferChanged(path)
	}
	return cmd
}

// bufferChanged pushes the editor text of path into the registry.
func (m *Model) bufferChanged(path string) {
	docs := m.orch.Registry()
	if err := docs.SetBuffer(path, m.editor.Value()); err != nil {
		m.reportError(err)
		return
	}
	doc, err := docs.Get(path)
	if err != nil {
		m.reportError(err)
		return
	}
	m.editor.Refresh(doc)
}

func (m *Model) reportError(err error) {
	if errors.Is(err, session.ErrNotDirty) {
		m.status = "No unsaved changes"
		return
	}
	m.errorMessage = describeError(err)
}
