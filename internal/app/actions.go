package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/swapdesk/internal/funding"
	"github.com/nhle/swapdesk/internal/model"
	"github.com/nhle/swapdesk/internal/theme"
	"github.com/nhle/swapdesk/internal/ui"
	"github.com/nhle/swapdesk/internal/ui/command"
	helpview "github.com/nhle/swapdesk/internal/ui/help"
)

// flashDuration is how long a status bar message stays visible.
const flashDuration = 3 * time.Second

type storeChangedMsg struct{}

type sessionEndedMsg struct {
	expired bool
}

type loggedOutMsg struct {
	err error
}

type flashExpiredMsg struct {
	id int
}

type prefsReadyMsg struct {
	prefs model.Preferences
	ok    bool
}

type prefsSavedMsg struct {
	ok bool
}

// waitForChange returns a command that fires on the next inbox change. It
// returns nil once the session has ended.
func (m Model) waitForChange() tea.Cmd {
	changes := m.deps.Inbox.Changes()
	done := m.deps.Session.Done()
	return func() tea.Msg {
		select {
		case <-changes:
			return storeChangedMsg{}
		case <-done:
			return nil
		}
	}
}

// waitForSessionEnd returns a command that fires when the session ends.
func (m Model) waitForSessionEnd() tea.Cmd {
	sess := m.deps.Session
	return func() tea.Msg {
		<-sess.Done()
		return sessionEndedMsg{expired: sess.Expired()}
	}
}

// setFlash shows text in the status bar and schedules its removal.
func (m *Model) setFlash(text string, isErr bool) tea.Cmd {
	m.flashID++
	id := m.flashID
	m.flash = ui.Flash{Text: text, Error: isErr}
	return tea.Tick(flashDuration, func(time.Time) tea.Msg {
		return flashExpiredMsg{id: id}
	})
}

// account summarizes the session for the help screen.
func (m Model) account() helpview.Account {
	a := helpview.Account{
		UserID:    m.deps.Session.UserID(),
		ExpiresAt: m.deps.Session.ExpiresAt(),
	}
	if m.deps.Poller != nil {
		a.LastSync = m.deps.Poller.Status().LastSync
	}
	return a
}

// waitForSync waits for the poller's next result, if there is a poller.
func (m Model) waitForSync() tea.Cmd {
	if m.deps.Poller == nil {
		return nil
	}
	return m.deps.Poller.WaitForNextResult()
}

func (m *Model) stopPolling() {
	if m.deps.Poller != nil {
		m.deps.Poller.Stop()
	}
}

// refresh reloads the current page and asks the poller for a fresh count.
func (m Model) refresh() tea.Cmd {
	if m.deps.Poller != nil {
		m.deps.Poller.Refresh()
	}
	return m.list.Reload()
}

// startVerification switches to the verification screen and runs a flow
// for reference.
func (m *Model) startVerification(orderID, reference string) tea.Cmd {
	opts := []funding.Option{funding.WithLogger(m.logger)}
	if m.deps.Funding != nil {
		opts = append(opts, funding.WithRecorder(m.deps.Funding))
	}

	var flow *funding.Flow
	label := "payment"
	if orderID != "" {
		flow = funding.NewOrderFlow(m.deps.Verifier, m.deps.Session, orderID, reference, opts...)
		label = "order payment"
	} else {
		flow = funding.NewDepositFlow(m.deps.Verifier, m.deps.Session, reference, opts...)
		label = "wallet deposit"
	}
	return m.fundingView.Start(flow, label)
}

// openPreferences switches to the settings form once preferences are
// loaded.
func (m *Model) openPreferences() tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewPrefs
	st := m.deps.Inbox
	return func() tea.Msg {
		ok := st.LoadPreferences(context.Background(), false)
		return prefsReadyMsg{prefs: st.Snapshot().Preferences, ok: ok}
	}
}

func (m Model) savePreferences(u model.PreferencesUpdate) tea.Cmd {
	st := m.deps.Inbox
	return func() tea.Msg {
		return prefsSavedMsg{ok: st.UpdatePreferences(context.Background(), u)}
	}
}

func (m Model) logout() tea.Cmd {
	mgr, sess := m.deps.Manager, m.deps.Session
	return func() tea.Msg {
		if mgr == nil {
			sess.End()
			return loggedOutMsg{}
		}
		return loggedOutMsg{err: mgr.Logout(context.Background(), sess)}
	}
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(input string) tea.Cmd {
	name, ok := command.Resolve(input)
	if !ok {
		return m.setFlash("Unknown command: "+input, true)
	}

	q := m.list.State().Query
	switch name {
	case "refresh":
		return m.refresh()
	case "read-all":
		return m.list.MarkAllRead()
	case "unread":
		return m.list.Load(1, true)
	case "all":
		return m.list.Load(1, false)
	case "prefs":
		return m.openPreferences()
	case "verify":
		if m.detail.CanVerify() {
			return m.detail.VerifyCmd()
		}
		return m.setFlash("Open a payment notification to verify it", true)
	case "next":
		if !m.list.State().Pagination.HasNext() {
			return m.setFlash("Already on the last page", true)
		}
		return m.list.Load(q.Page+1, q.UnreadOnly)
	case "logout":
		return m.logout()
	default:
		m.stopPolling()
		return tea.Quit
	}
}

func renderExpired(l ui.Layout) string {
	return lipgloss.NewStyle().
		Width(l.ContentWidth()).
		Height(l.ContentHeight()).
		Align(lipgloss.Center, lipgloss.Center).
		Render(theme.ErrorStyle.Render(funding.MsgSessionExpired) +
			"\n\n" + theme.HelpStyle.Render("Run: swapdesk login"))
}
