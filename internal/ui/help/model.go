package help

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/swapdesk/internal/keys"
	"github.com/nhle/swapdesk/internal/model"
	"github.com/nhle/swapdesk/internal/theme"
	"github.com/nhle/swapdesk/internal/ui/command"
)

// legend is the order categories appear in the badge legend.
var legend = []struct {
	category model.Category
	name     string
}{
	{model.CategoryOrder, "orders"},
	{model.CategoryPayment, "payments & wallet"},
	{model.CategorySwap, "swaps"},
	{model.CategoryBid, "bids"},
	{model.CategoryGeneric, "other"},
}

// Account is the session summary shown under the shortcuts.
type Account struct {
	UserID    string
	ExpiresAt time.Time
	LastSync  time.Time
}

// Model is the help overlay view.
type Model struct {
	keys    *keys.KeyMap
	help    help.Model
	account Account
	width   int
	height  int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetAccount updates the session summary.
func (m *Model) SetAccount(a Account) {
	m.account = a
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	sectionStyle := lipgloss.NewStyle().Bold(true).MarginTop(1)

	m.help.Width = m.width - 4
	m.help.ShowAll = true

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
		sectionStyle.Render("Badges"),
		renderLegend(),
		sectionStyle.Render("Commands (:)"),
		renderCommands(),
		sectionStyle.Render("Account"),
		m.renderAccount(),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

func renderLegend() string {
	parts := make([]string, 0, len(legend))
	for _, l := range legend {
		badge := theme.CategoryStyle(l.category).Render(theme.CategoryLabel(l.category))
		parts = append(parts, badge+" "+l.name)
	}
	return strings.Join(parts, "   ")
}

func renderCommands() string {
	nameStyle := lipgloss.NewStyle().Width(10)
	lines := make([]string, 0, len(command.Commands))
	for _, c := range command.Commands {
		lines = append(lines, nameStyle.Render(c.Name)+theme.HelpStyle.Render(c.Description))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderAccount() string {
	a := m.account
	var lines []string
	if a.UserID != "" {
		lines = append(lines, "Signed in as "+a.UserID)
	} else {
		lines = append(lines, "Signed in")
	}
	if !a.ExpiresAt.IsZero() {
		lines = append(lines, "Session valid until "+a.ExpiresAt.Local().Format("Jan 2 15:04"))
	}
	if !a.LastSync.IsZero() {
		lines = append(lines, fmt.Sprintf("Last checked %s", a.LastSync.Local().Format("15:04:05")))
	}
	return theme.DimmedStyle.Render(strings.Join(lines, "\n"))
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
