package fundingview

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/swapdesk/internal/funding"
	"github.com/nhle/swapdesk/internal/keys"
	"github.com/nhle/swapdesk/internal/theme"
)

// OutcomeMsg carries the finished verification.
type OutcomeMsg struct {
	Outcome funding.Outcome
}

// CloseMsg asks the parent to leave the verification screen.
type CloseMsg struct{}

// Model shows a payment verification in progress and its outcome.
type Model struct {
	spinner spinner.Model
	keys    *keys.KeyMap
	outcome *funding.Outcome
	label   string
	width   int
	height  int
}

// New creates the verification view.
func New(k *keys.KeyMap, width, height int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)
	return Model{spinner: s, keys: k, width: width, height: height}
}

// Start runs flow and shows the spinner until it finishes.
func (m *Model) Start(flow *funding.Flow, label string) tea.Cmd {
	m.outcome = nil
	m.label = label
	run := func() tea.Msg {
		return OutcomeMsg{Outcome: flow.Run(context.Background())}
	}
	return tea.Batch(m.spinner.Tick, run)
}

// Done reports whether the outcome is known.
func (m Model) Done() bool {
	return m.outcome != nil
}

// Update handles messages for the verification view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case OutcomeMsg:
		out := msg.Outcome
		m.outcome = &out
		return m, nil

	case spinner.TickMsg:
		if m.outcome != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.outcome != nil && (key.Matches(msg, m.keys.Back) || msg.String() == "enter") {
			return m, func() tea.Msg { return CloseMsg{} }
		}
	}
	return m, nil
}

// View renders the spinner or the outcome.
func (m Model) View() string {
	box := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center)

	if m.outcome == nil {
		return box.Render(fmt.Sprintf("%s Verifying %s...", m.spinner.View(), m.label))
	}

	out := m.outcome
	var lines []string
	if out.Succeeded() {
		lines = append(lines, theme.SuccessStyle.Render("✓ "+out.Message))
		if out.Transaction != nil {
			lines = append(lines, fmt.Sprintf("Amount: %.2f", out.Transaction.Amount))
			lines = append(lines, "Reference: "+out.Transaction.Reference)
		}
		if out.Balance != nil {
			lines = append(lines, fmt.Sprintf("New balance: %.2f", *out.Balance))
		}
		if out.Order != nil {
			lines = append(lines, fmt.Sprintf("Order %s: %s", out.Order.ID, out.Order.PaymentStatus))
		}
	} else {
		lines = append(lines, theme.ErrorStyle.Render("✗ "+out.Message))
		lines = append(lines, "", theme.HelpStyle.Render("Start a new payment with: swapdesk wallet fund"))
	}
	lines = append(lines, "", theme.HelpStyle.Render("enter/esc to continue"))

	return box.Render(theme.DetailPanelStyle.Render(strings.Join(lines, "\n")))
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
