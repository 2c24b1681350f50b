package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/swapdesk/internal/theme"
)

// CommandMsg is emitted when the user executes a command.
type CommandMsg string

// Command is a palette entry.
type Command struct {
	Name        string
	Description string
}

// Commands lists the palette's commands in suggestion order.
var Commands = []Command{
	{"refresh", "reload the current page"},
	{"read-all", "mark every notification read"},
	{"unread", "show unread notifications only"},
	{"all", "show all notifications"},
	{"next", "go to the next page"},
	{"prefs", "notification settings"},
	{"verify", "verify the open payment"},
	{"logout", "sign out"},
	{"quit", "exit"},
}

// aliases map alternate spellings to command names.
var aliases = map[string]string{
	"sync":     "refresh",
	"read all": "read-all",
	"settings": "prefs",
	"q":        "quit",
	"exit":     "quit",
}

// Names returns the command names in suggestion order.
func Names() []string {
	names := make([]string, len(Commands))
	for i, c := range Commands {
		names[i] = c.Name
	}
	return names
}

// Resolve maps input to a command name. It accepts exact names, aliases
// and any prefix that matches exactly one command.
func Resolve(input string) (string, bool) {
	in := strings.ToLower(strings.TrimSpace(input))
	if in == "" {
		return "", false
	}
	if name, ok := aliases[in]; ok {
		return name, true
	}
	match := ""
	for _, c := range Commands {
		if c.Name == in {
			return c.Name, true
		}
		if strings.HasPrefix(c.Name, in) {
			if match != "" {
				return "", false
			}
			match = c.Name
		}
	}
	return match, match != ""
}

func describe(name string) string {
	for _, c := range Commands {
		if c.Name == name {
			return c.Description
		}
	}
	return ""
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(Names())
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			cmd := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if cmd != "" {
				return m, func() tea.Msg {
					return CommandMsg(cmd)
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	hint := strings.Join(Names(), " · ")
	if name, ok := Resolve(m.input.Value()); ok {
		hint = name + ": " + describe(name)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Command Palette"),
		m.input.View(),
		"",
		theme.HelpStyle.Render(hint),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
