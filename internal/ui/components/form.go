package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eugeniofciuvasile/ipcc/internal/config"
	"github.com/eugeniofciuvasile/ipcc/internal/device"
)

// Focus indices of the connect form.
const (
	fieldIP = iota
	fieldUsername
	fieldPassword
	fieldClass
	fieldVerify
	fieldSubmit
	fieldCount
)

// ConnectForm collects the device login, its type and whether to verify
// the type against the hostname.
type ConnectForm struct {
	inputs       []textinput.Model
	classSelect  *ClassSelect
	verify       bool
	focusIndex   int
	submitted    bool
	canceled     bool
	cancelable   bool
	width        int
	height       int
	errorMessage string
}

// NewConnectForm creates a form prefilled from the stored record.
func NewConnectForm(cfg *config.AppConfig) *ConnectForm {
	if cfg == nil {
		cfg = config.NewAppConfig()
	}

	inputs := make([]textinput.Model, 3)

	initInput := func(i int, placeholder string, width int) {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = placeholder
		inputs[i].Width = width
		inputs[i].Prompt = "> "
		inputs[i].PromptStyle = blurredStyle
		inputs[i].TextStyle = blurredStyle
	}

	initInput(fieldIP, "192.168.1.10", 40)
	initInput(fieldUsername, "root", 30)
	initInput(fieldPassword, "Password", 40)
	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldPassword].EchoCharacter = '•'

	inputs[fieldIP].SetValue(cfg.IPAddress)
	inputs[fieldUsername].SetValue(cfg.Username)
	inputs[fieldPassword].SetValue(cfg.Password)

	f := &ConnectForm{
		inputs:      inputs,
		classSelect: NewClassSelect(cfg.DeviceType),
	}
	f.focus(fieldIP)
	return f
}

// Init initializes the form
func (f *ConnectForm) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles updates to the form
func (f *ConnectForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		f.SetSize(msg.Width, msg.Height)
		return f, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if f.cancelable {
				f.canceled = true
			}
			return f, nil

		case "tab", "shift+tab", "up", "down":
			step := 1
			if msg.String() == "shift+tab" || msg.String() == "up" {
				step = -1
			}
			next := (f.focusIndex + step + fieldCount) % fieldCount
			return f, f.focus(next)

		case "enter":
			if f.focusIndex != fieldSubmit {
				return f, f.focus((f.focusIndex + 1) % fieldCount)
			}
			if err := f.validateForm(); err != "" {
				f.errorMessage = err
				return f, nil
			}
			f.errorMessage = ""
			f.submitted = true
			return f, nil
		}

		switch f.focusIndex {
		case fieldClass:
			f.classSelect.Update(msg)
			return f, nil
		case fieldVerify:
			if msg.Type == tea.KeySpace || msg.String() == "left" || msg.String() == "right" {
				f.verify = !f.verify
			}
			return f, nil
		case fieldSubmit:
			return f, nil
		}
	}

	if f.focusIndex < len(f.inputs) {
		var cmd tea.Cmd
		f.inputs[f.focusIndex], cmd = f.inputs[f.focusIndex].Update(msg)
		return f, cmd
	}
	return f, nil
}

// focus moves focus to index and restyles the inputs.
func (f *ConnectForm) focus(index int) tea.Cmd {
	f.focusIndex = index
	var cmd tea.Cmd
	for i := range f.inputs {
		if i == index {
			cmd = f.inputs[i].Focus()
			f.inputs[i].PromptStyle = focusedStyle
			f.inputs[i].TextStyle = focusedStyle
		} else {
			f.inputs[i].Blur()
			f.inputs[i].PromptStyle = blurredStyle
			f.inputs[i].TextStyle = blurredStyle
		}
	}
	return cmd
}

// View renders the form
func (f *ConnectForm) View() string {
	var b strings.Builder

	b.WriteString(sectionTitleStyle.Render("Connect to device"))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("IP address") + "\n")
	b.WriteString(f.inputs[fieldIP].View() + "\n\n")

	b.WriteString(labelStyle.Render("Username") + "\n")
	b.WriteString(f.inputs[fieldUsername].View() + "\n\n")

	b.WriteString(labelStyle.Render("Password") + "\n")
	b.WriteString(f.inputs[fieldPassword].View() + "\n\n")

	b.WriteString(labelStyle.Render("Device type") + " " + hintStyle.Render("(←/→ to change)") + "\n")
	b.WriteString(f.classSelect.View(f.focusIndex == fieldClass) + "\n\n")

	check := "[ ]"
	if f.verify {
		check = "[x]"
	}
	verifyStyle := blurredStyle
	if f.focusIndex == fieldVerify {
		verifyStyle = focusedStyle
	}
	b.WriteString(verifyStyle.Render(fmt.Sprintf("%s Check hostname matches device type", check)))
	b.WriteString("\n\n")

	button := blurredButton
	if f.focusIndex == fieldSubmit {
		button = focusedButton
	}
	b.WriteString(button)

	if f.errorMessage != "" {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(f.errorMessage))
	}

	availableHeight := max(f.height-3, 0)
	return lipgloss.Place(
		f.width,
		availableHeight,
		lipgloss.Center,
		lipgloss.Center,
		formBoxStyle.Render(b.String()),
	)
}

func (f *ConnectForm) SetSize(width, height int) {
	f.width = width
	f.height = height
}

// SetCancelable lets esc close the form, used once documents are open.
func (f *ConnectForm) SetCancelable(cancelable bool) {
	f.cancelable = cancelable
}

// SetError shows msg under the button.
func (f *ConnectForm) SetError(msg string) {
	f.errorMessage = msg
}

// Reset clears the submitted and canceled flags so the form can be reused
// with the values it holds.
func (f *ConnectForm) Reset() {
	f.submitted = false
	f.canceled = false
}

// IsCanceled returns whether the form was canceled
func (f *ConnectForm) IsCanceled() bool {
	return f.canceled
}

// IsSubmitted returns whether the form was submitted
func (f *ConnectForm) IsSubmitted() bool {
	return f.submitted
}

// Config returns the record entered in the form.
func (f *ConnectForm) Config() config.AppConfig {
	return config.AppConfig{
		IPAddress:  strings.TrimSpace(f.inputs[fieldIP].Value()),
		Username:   strings.TrimSpace(f.inputs[fieldUsername].Value()),
		Password:   f.inputs[fieldPassword].Value(),
		DeviceType: f.classSelect.Selected(),
	}
}

// Class returns the selected device type.
func (f *ConnectForm) Class() device.Class {
	return f.classSelect.Selected()
}

// SetVerify sets the hostname check.
func (f *ConnectForm) SetVerify(verify bool) {
	f.verify = verify
}

// Verify reports whether the hostname check is enabled.
func (f *ConnectForm) Verify() bool {
	return f.verify
}

// validateForm returns the first problem with the inputs, or "".
func (f *ConnectForm) validateForm() string {
	cfg := f.Config()
	if err := cfg.Credentials(0).Validate(); err != nil {
		return strings.ToUpper(err.Error()[:1]) + err.Error()[1:]
	}
	return ""
}
