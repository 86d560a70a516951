package ui

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/eugeniofciuvasile/ipcc/internal/config"
	"github.com/eugeniofciuvasile/ipcc/internal/logging"
	"github.com/eugeniofciuvasile/ipcc/internal/session"
	"github.com/eugeniofciuvasile/ipcc/internal/ui/components"
)

type AppState int

const (
	StateConnect AppState = iota
	StateFetching
	StateEditor
	StateConfirm
)

// Rows taken by the fixed parts of the screen.
const (
	headerLines = 3
	footerLines = 3
	logLines    = 8
)

// pendingAction is what a confirmation dialog guards.
type pendingAction int

const (
	actionNone pendingAction = iota
	actionFetch
	actionQuit
)

// Options wires the model to the core.
type Options struct {
	Store        *config.Store
	Orchestrator *session.Orchestrator
	// Logs feeds the log pane. Nil leaves the pane empty.
	Logs *logging.Channel
	// Copy writes to the system clipboard. Defaults to atotto/clipboard.
	Copy func(string) error
	// Verify preselects the hostname check.
	Verify bool
	// Port is the SSH port for submitted addresses; 0 means 22.
	Port int
	// Record prefills the form when there is no Store, as in demo mode.
	Record *config.AppConfig
}

type Model struct {
	ctx          context.Context
	state        AppState
	returnState  AppState
	store        *config.Store
	orch         *session.Orchestrator
	logs         *logging.Channel
	copy         func(string) error
	form         *components.ConnectForm
	editor       *components.Editor
	logPane      *components.LogPane
	confirm      *components.ConfirmDialog
	pending      pendingAction
	pendingReq   session.Request
	request      session.Request
	port         int
	spinner      spinner.Model
	help         help.Model
	keys         keyMap
	width        int
	height       int
	status       string
	errorMessage string
}

func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}
	cfg := opts.Record
	if opts.Store != nil {
		cfg = opts.Store.Config
	}
	form := components.NewConnectForm(cfg)
	form.SetVerify(opts.Verify)
	return &Model{
		ctx:     ctx,
		state:   StateConnect,
		store:   opts.Store,
		orch:    opts.Orchestrator,
		logs:    opts.Logs,
		copy:    opts.Copy,
		port:    opts.Port,
		form:    form,
		editor:  components.NewEditor(),
		logPane: components.NewLogPane(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		help:    help.New(),
		keys:    defaultKeyMap(),
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.form.Init(), waitForLog(m.logs))
}

func (m *Model) getActiveComponent() tea.Model {
	switch m.state {
	case StateConnect:
		return m.form
	case StateConfirm:
		return m.confirm
	default:
		return nil
	}
}

func (m *Model) handleComponentResult(model tea.Model, cmd tea.Cmd) tea.Cmd {
	switch m.state {
	case StateConnect:
		m.form = model.(*components.ConnectForm)
		if m.form.IsCanceled() {
			m.form.Reset()
			m.state = StateEditor
			return nil
		}
		if m.form.IsSubmitted() {
			m.form.Reset()
			return m.submitForm()
		}

	case StateConfirm:
		m.confirm = model.(*components.ConfirmDialog)
		if m.confirm.IsCanceled() {
			m.confirm = nil
			m.pending = actionNone
			m.state = m.returnState
			return nil
		}
		if m.confirm.IsConfirmed() {
			m.confirm = nil
			action := m.pending
			m.pending = actionNone
			switch action {
			case actionFetch:
				return m.startFetch(m.pendingReq)
			case actionQuit:
				return m.quit()
			}
			m.state = m.returnState
			return nil
		}
	}
	return cmd
}

// submitForm persists the record and fetches, asking first when unsaved
// edits would be lost.
func (m *Model) submitForm() tea.Cmd {
	cfg := m.form.Config()
	m.saveStore(cfg)
	req := session.Request{
		Creds:  cfg.Credentials(m.port),
		Class:  cfg.DeviceType,
		Verify: m.form.Verify(),
	}
	return m.requestFetch(req)
}

func (m *Model) requestFetch(req session.Request) tea.Cmd {
	if dirty := m.orch.Registry().Dirty(); len(dirty) > 0 {
		m.askConfirm(actionFetch, "Discard changes",
			"Fetching replaces the unsaved changes in",
			fmt.Sprintf("%d file(s)", len(dirty)))
		m.pendingReq = req
		return nil
	}
	return m.startFetch(req)
}

func (m *Model) requestQuit() tea.Cmd {
	if dirty := m.orch.Registry().Dirty(); len(dirty) > 0 && m.state != StateConfirm {
		m.askConfirm(actionQuit, "Quit", "Unsaved changes will be lost in", fmt.Sprintf("%d file(s)", len(dirty)))
		return nil
	}
	return m.quit()
}

func (m *Model) askConfirm(action pendingAction, title, message, detail string) {
	m.returnState = m.state
	if m.returnState == StateFetching {
		m.returnState = StateEditor
	}
	m.confirm = components.NewConfirmDialog(title, message, detail)
	m.confirm.SetSize(m.width, m.contentHeight())
	m.pending = action
	m.state = StateConfirm
}

func (m *Model) quit() tea.Cmd {
	m.saveStore(m.form.Config())
	return tea.Quit
}

// saveStore keeps the last entered record on disk.
func (m *Model) saveStore(cfg config.AppConfig) {
	if m.store == nil {
		return
	}
	if m.store.Config == nil {
		m.store.Config = config.NewAppConfig()
	}
	*m.store.Config = cfg
	if err := m.store.Save(); err != nil {
		m.errorMessage = fmt.Sprintf("Failed to save settings: %s", err)
	}
}

// contentHeight is what is left for the active component.
func (m *Model) contentHeight() int {
	return max(m.height-headerLines-footerLines-logLines, 5)
}

func (m *Model) layout() {
	width := max(m.width-4, 20)
	m.form.SetSize(width, m.contentHeight())
	m.editor.SetSize(width, m.contentHeight())
	m.logPane.SetSize(width, logLines)
	m.help.Width = width
	if m.confirm != nil {
		m.confirm.SetSize(width, m.contentHeight())
	}
}
