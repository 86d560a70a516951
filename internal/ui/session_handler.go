package ui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/eugeniofciuvasile/ipcc/internal/device"
	"github.com/eugeniofciuvasile/ipcc/internal/logging"
	"github.com/eugeniofciuvasile/ipcc/internal/session"
	"github.com/eugeniofciuvasile/ipcc/internal/transport"
)

// FetchDoneMsg carries the outcome of a fetch back to Update.
type FetchDoneMsg struct {
	Report *session.Report
	Err    error
}

// SaveDoneMsg carries the outcome of one upload.
type SaveDoneMsg struct {
	Job session.SaveJob
	Err error
}

// SaveAllDoneMsg carries the outcomes of a save-all, Errs[i] for Jobs[i].
type SaveAllDoneMsg struct {
	Jobs []session.SaveJob
	Errs []error
}

// LogMsg is one entry drained from the log channel.
type LogMsg logging.Entry

func (m *Model) fetchCmd(req session.Request) tea.Cmd {
	ctx, orch := m.ctx, m.orch
	return func() tea.Msg {
		report, err := orch.Fetch(ctx, req)
		return FetchDoneMsg{Report: report, Err: err}
	}
}

func (m *Model) saveCmd(job session.SaveJob) tea.Cmd {
	ctx, orch := m.ctx, m.orch
	return func() tea.Msg {
		return SaveDoneMsg{Job: job, Err: orch.Upload(ctx, job)}
	}
}

func (m *Model) saveAllCmd(jobs []session.SaveJob) tea.Cmd {
	ctx, orch := m.ctx, m.orch
	return func() tea.Msg {
		return SaveAllDoneMsg{Jobs: jobs, Errs: orch.UploadAll(ctx, jobs)}
	}
}

// waitForLog blocks until the next entry arrives.
func waitForLog(ch *logging.Channel) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		return LogMsg(<-ch.C)
	}
}

// startFetch stores the record, then fetches.
func (m *Model) startFetch(req session.Request) tea.Cmd {
	m.request = req
	m.state = StateFetching
	m.errorMessage = ""
	m.status = fmt.Sprintf("Connecting to %s...", req.Creds)
	return tea.Batch(m.spinner.Tick, m.fetchCmd(req))
}

func (m *Model) handleFetchDone(msg FetchDoneMsg) tea.Cmd {
	if msg.Err != nil {
		if errors.Is(msg.Err, session.ErrBusy) {
			m.status = "A fetch is already running"
			return nil
		}
		m.status = ""
		m.form.SetError(describeError(msg.Err))
		m.form.SetCancelable(m.editor.Len() > 0)
		m.state = StateConnect
		return m.form.Init()
	}

	docs := m.orch.Apply(msg.Report)
	cmd := m.editor.SetDocuments(m.orch.Registry().Documents())
	m.state = StateEditor

	label := msg.Report.Class.Label()
	if msg.Report.Hostname != "" {
		label = fmt.Sprintf("%s, %s", msg.Report.Hostname, label)
	}
	m.status = fmt.Sprintf("Fetched %d of %d files from %s (%s)", len(docs), len(msg.Report.Files), msg.Report.Creds.Address(), label)

	if failed := msg.Report.Failed(); len(failed) > 0 {
		paths := make([]string, len(failed))
		for i, f := range failed {
			paths[i] = f.File.Path
		}
		m.errorMessage = "Could not read " + strings.Join(paths, ", ")
	}
	return cmd
}

func (m *Model) handleSaveDone(msg SaveDoneMsg) {
	doc, err := m.orch.CompleteSave(msg.Job, msg.Err)
	m.editor.Refresh(doc)
	if err != nil {
		m.errorMessage = describeError(err)
		return
	}
	m.status = fmt.Sprintf("Saved %s", msg.Job.Path)
}

func (m *Model) handleSaveAllDone(msg SaveAllDoneMsg) {
	var failed []string
	for i, job := range msg.Jobs {
		doc, err := m.orch.CompleteSave(job, msg.Errs[i])
		m.editor.Refresh(doc)
		if err != nil {
			failed = append(failed, job.Path)
		}
	}
	saved := len(msg.Jobs) - len(failed)
	m.status = fmt.Sprintf("Saved %d of %d files", saved, len(msg.Jobs))
	if len(failed) > 0 {
		m.errorMessage = "Failed to save " + strings.Join(failed, ", ")
	}
}

// describeError turns core errors into a line for the UI.
func describeError(err error) string {
	var (
		connErr     *transport.ConnectionError
		mismatchErr *device.MismatchError
	)
	switch {
	case errors.As(err, &mismatchErr):
		return fmt.Sprintf("Device mismatch: %v", mismatchErr)
	case errors.As(err, &connErr):
		return fmt.Sprintf("Connection failed: %v", connErr.Err)
	case errors.Is(err, session.ErrNoManagedFiles):
		return fmt.Sprintf("Nothing to fetch: %v", err)
	case errors.Is(err, context.Canceled):
		return "Canceled"
	}
	log.Printf("[UI] %v", err)
	return err.Error()
}
