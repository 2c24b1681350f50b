package notiflist

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/swapdesk/internal/inbox"
	"github.com/nhle/swapdesk/internal/keys"
	"github.com/nhle/swapdesk/internal/theme"
)

// LoadedMsg is sent when a page load finished, successfully or not.
type LoadedMsg struct{}

// SelectedMsg is sent when the user opens a notification.
type SelectedMsg struct {
	ID string
}

// ActionResultMsg reports the outcome of a mutation started from the list.
type ActionResultMsg struct {
	Action string
	ID     string
	OK     bool
}

// Model is the notification inbox view.
type Model struct {
	list     list.Model
	store    *inbox.Store
	keys     *keys.KeyMap
	pageSize int
	state    inbox.State
	width    int
	height   int
}

// New creates the inbox view for st.
func New(st *inbox.Store, k *keys.KeyMap, pageSize, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	if pageSize <= 0 {
		pageSize = inbox.DefaultPageSize
	}

	return Model{
		list:     l,
		store:    st,
		keys:     k,
		pageSize: pageSize,
		width:    width,
		height:   height,
	}
}

// Init loads the first page together with the preferences.
func (m Model) Init() tea.Cmd {
	st, size := m.store, m.pageSize
	return func() tea.Msg {
		st.Mount(context.Background(), size)
		return LoadedMsg{}
	}
}

// Update handles messages for the inbox view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg, ActionResultMsg:
		return m, m.Sync()

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	q := m.state.Query

	switch {
	case key.Matches(msg, m.keys.Select):
		if it, ok := m.selected(); ok {
			id := it.Notification.ID
			return m, func() tea.Msg { return SelectedMsg{ID: id} }
		}
		return m, nil

	case key.Matches(msg, m.keys.MarkRead):
		if it, ok := m.selected(); ok && !it.Notification.IsRead {
			return m, m.MarkRead(it.Notification.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.MarkAllRead):
		return m, m.MarkAllRead()

	case key.Matches(msg, m.keys.Delete):
		if it, ok := m.selected(); ok {
			return m, m.Delete(it.Notification.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.UnreadOnly):
		return m, m.Load(1, !q.UnreadOnly)

	case key.Matches(msg, m.keys.NextPage):
		if m.state.Pagination.HasNext() {
			return m, m.Load(q.Page+1, q.UnreadOnly)
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevPage):
		if q.Page > 1 {
			return m, m.Load(q.Page-1, q.UnreadOnly)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Sync copies the store's current state into the list.
func (m *Model) Sync() tea.Cmd {
	m.state = m.store.Snapshot()

	items := make([]list.Item, len(m.state.Notifications))
	for i, n := range m.state.Notifications {
		items[i] = Item{Notification: n, Pending: m.store.Pending(n.ID)}
	}

	m.list.Title = m.title()
	cmd := m.list.SetItems(items)
	if idx := m.list.Index(); idx >= len(items) && len(items) > 0 {
		m.list.Select(len(items) - 1)
	}
	return cmd
}

func (m Model) title() string {
	title := "Notifications"
	if m.state.Query.UnreadOnly {
		title += " (unread)"
	}
	if p := m.state.Pagination; p.Pages > 1 {
		title += fmt.Sprintf(" %d/%d", p.Page, p.Pages)
	}
	return title
}

func (m Model) selected() (Item, bool) {
	it, ok := m.list.SelectedItem().(Item)
	return it, ok
}

// Load returns a command that fetches a page.
func (m Model) Load(page int, unreadOnly bool) tea.Cmd {
	st, size := m.store, m.pageSize
	return func() tea.Msg {
		st.Load(context.Background(), page, size, unreadOnly)
		return LoadedMsg{}
	}
}

// Reload returns a command that repeats the last load.
func (m Model) Reload() tea.Cmd {
	st := m.store
	return func() tea.Msg {
		st.Reload(context.Background())
		return LoadedMsg{}
	}
}

// MarkRead returns a command that marks id read.
func (m Model) MarkRead(id string) tea.Cmd {
	st := m.store
	return func() tea.Msg {
		return ActionResultMsg{Action: "mark read", ID: id, OK: st.MarkAsRead(context.Background(), id)}
	}
}

// MarkAllRead returns a command that marks every notification read.
func (m Model) MarkAllRead() tea.Cmd {
	st := m.store
	return func() tea.Msg {
		return ActionResultMsg{Action: "mark all read", OK: st.MarkAllAsRead(context.Background())}
	}
}

// Delete returns a command that deletes id.
func (m Model) Delete(id string) tea.Cmd {
	st := m.store
	return func() tea.Msg {
		return ActionResultMsg{Action: "delete", ID: id, OK: st.Delete(context.Background(), id)}
	}
}

// State returns the state last copied from the store.
func (m Model) State() inbox.State {
	return m.state
}

// View renders the inbox view.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.state.Loading:
		return style.Render("Loading notifications...")
	case m.state.Err != "":
		return style.Render(theme.ErrorStyle.Render(m.state.Err) + "\n\nPress r to retry.")
	case m.state.Query.UnreadOnly:
		return style.Render("No unread notifications.\nPress u to show all.")
	default:
		return style.Render("You're all caught up.")
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
