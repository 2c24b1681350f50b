package prefs

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/swapdesk/internal/model"
	"github.com/nhle/swapdesk/internal/theme"
)

// SaveMsg is dispatched when the form is submitted. Update holds only the
// fields the user changed.
type SaveMsg struct {
	Update model.PreferencesUpdate
}

// CancelMsg is dispatched when the user leaves the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	email bool
	push  bool
}

// Model is the notification preferences form.
type Model struct {
	form    *huh.Form
	fb      *formBindings
	current model.Preferences
	width   int
	height  int
}

// New creates a preferences form model.
func New(width, height int) Model {
	return Model{fb: &formBindings{}, width: width, height: height}
}

// Start builds the form from the saved preferences p.
func (m *Model) Start(p model.Preferences) tea.Cmd {
	m.current = p
	m.fb.email = p.EmailNotifications
	m.fb.push = p.PushNotifications
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		next := model.Preferences{EmailNotifications: m.fb.email, PushNotifications: m.fb.push}
		u := m.current.Diff(next)
		m.form = nil
		if u.Empty() {
			return m, func() tea.Msg { return CancelMsg{} }
		}
		return m, func() tea.Msg { return SaveMsg{Update: u} }

	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Saving preferences...")
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Notification Settings") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Email notifications").
				Description("Receive order, swap and payment updates by email.").
				Affirmative("On").
				Negative("Off").
				Value(&m.fb.email),
			huh.NewConfirm().
				Title("Push notifications").
				Description("Receive alerts on your devices.").
				Affirmative("On").
				Negative("Off").
				Value(&m.fb.push),
		),
	).WithWidth(max(m.width-4, 30)).WithShowHelp(true)
}
