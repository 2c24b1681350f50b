package app

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/swapdesk/internal/funding"
	"github.com/nhle/swapdesk/internal/inbox"
	"github.com/nhle/swapdesk/internal/keys"
	"github.com/nhle/swapdesk/internal/session"
	"github.com/nhle/swapdesk/internal/store"
	appsync "github.com/nhle/swapdesk/internal/sync"
	"github.com/nhle/swapdesk/internal/ui"
	"github.com/nhle/swapdesk/internal/ui/command"
	"github.com/nhle/swapdesk/internal/ui/detail"
	"github.com/nhle/swapdesk/internal/ui/fundingview"
	helpview "github.com/nhle/swapdesk/internal/ui/help"
	"github.com/nhle/swapdesk/internal/ui/notiflist"
	"github.com/nhle/swapdesk/internal/ui/prefs"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewPrefs
	ViewFunding
	ViewHelp
	ViewCommand
	ViewExpired
)

// Deps are the session-scoped services the UI drives.
type Deps struct {
	Session  *session.Session
	Manager  *session.Manager
	Inbox    *inbox.Store
	Poller   *appsync.Poller
	Verifier funding.Verifier
	Funding  store.FundingLog
	PageSize int
	Logger   *zap.Logger

	// Reference (and OrderID for order payments) start a verification on
	// launch, as when the user comes back from the payment gateway.
	Reference string
	OrderID   string
}

// Model is the root Bubble Tea model that manages view routing and
// layout.
type Model struct {
	deps         Deps
	logger       *zap.Logger
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	list         notiflist.Model
	detail       detail.Model
	prefsView    prefs.Model
	fundingView  fundingview.Model
	helpView     helpview.Model
	commandView  command.Model
	flash        ui.Flash
	flashID      int
	syncStatus   string
	ready        bool
}

// New creates the root application model.
func New(deps Deps) Model {
	k := keys.DefaultKeyMap()
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return Model{
		deps:        deps,
		logger:      logger.Named("ui"),
		currentView: ViewList,
		keys:        k,
		list:        notiflist.New(deps.Inbox, k, deps.PageSize, 80, 24),
		detail:      detail.New(k, 80, 24),
		prefsView:   prefs.New(80, 24),
		fundingView: fundingview.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		syncStatus:  "starting",
	}
}

// Init loads the inbox, starts polling and, when a gateway reference was
// passed on the command line, starts verifying it.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.list.Init(),
		m.waitForChange(),
		m.waitForSessionEnd(),
	}
	if m.deps.Poller != nil {
		cmds = append(cmds, m.deps.Poller.Start())
	}
	if m.deps.Reference != "" {
		cmds = append(cmds, func() tea.Msg {
			return detail.VerifyRequestMsg{OrderID: m.deps.OrderID, Reference: m.deps.Reference}
		})
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.list.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.prefsView.SetSize(w, h)
		m.fundingView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case notiflist.LoadedMsg:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd

	case notiflist.ActionResultMsg:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		if msg.Action == "delete" && msg.OK && m.currentView == ViewDetail && m.detail.CurrentID() == msg.ID {
			m.detail.Clear()
			m.currentView = ViewList
		}
		if msg.Action == "mark all read" && msg.OK {
			return m, tea.Batch(cmd, m.setFlash("All notifications marked as read", false))
		}
		return m, cmd

	case storeChangedMsg:
		cmd := m.list.Sync()
		if id := m.detail.CurrentID(); id != "" {
			if n, ok := m.deps.Inbox.Get(id); ok {
				m.detail.SetNotification(n)
			}
		}
		return m, tea.Batch(cmd, m.waitForChange())

	case appsync.SyncResultMsg:
		if msg.Error != "" {
			m.syncStatus = "offline"
		} else {
			m.syncStatus = "synced"
		}
		return m, m.waitForSync()

	case appsync.NewNotificationsMsg:
		text := "1 new notification"
		if msg.Count != 1 {
			text = fmt.Sprintf("%d new notifications", msg.Count)
		}
		return m, tea.Batch(m.setFlash(text, false), m.waitForSync())

	case notiflist.SelectedMsg:
		n, ok := m.deps.Inbox.Get(msg.ID)
		if !ok {
			return m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.SetNotification(n)
		if !n.IsRead {
			return m, m.list.MarkRead(n.ID)
		}
		return m, nil

	case detail.BackMsg:
		m.detail.Clear()
		m.currentView = ViewList
		return m, nil

	case detail.DeleteRequestMsg:
		return m, m.list.Delete(msg.ID)

	case detail.VerifyRequestMsg:
		m.previousView = m.currentView
		m.currentView = ViewFunding
		return m, m.startVerification(msg.OrderID, msg.Reference)

	case fundingview.OutcomeMsg:
		var cmd tea.Cmd
		m.fundingView, cmd = m.fundingView.Update(msg)
		if msg.Outcome.Succeeded() && m.deps.Poller != nil {
			m.deps.Poller.Refresh()
		}
		return m, cmd

	case fundingview.CloseMsg:
		m.currentView = ViewList
		if m.detail.CurrentID() != "" {
			m.currentView = ViewDetail
		}
		return m, nil

	case prefsReadyMsg:
		if !msg.ok {
			m.currentView = ViewList
			return m, m.setFlash("Could not load notification settings", true)
		}
		return m, m.prefsView.Start(msg.prefs)

	case prefs.SaveMsg:
		return m, m.savePreferences(msg.Update)

	case prefs.CancelMsg:
		m.currentView = ViewList
		return m, nil

	case prefsSavedMsg:
		m.currentView = ViewList
		if msg.ok {
			return m, m.setFlash("Preferences saved", false)
		}
		return m, m.setFlash("Could not save preferences", true)

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case sessionEndedMsg:
		if msg.expired {
			m.stopPolling()
			m.currentView = ViewExpired
			return m, nil
		}
		m.stopPolling()
		return m, tea.Quit

	case loggedOutMsg:
		if msg.err != nil {
			m.logger.Error("logout failed", zap.Error(msg.err))
		}
		m.stopPolling()
		return m, tea.Quit

	case flashExpiredMsg:
		if msg.id == m.flashID {
			m.flash = ui.Flash{}
		}
		return m, nil

	case tea.KeyMsg:
		if m.currentView == ViewExpired {
			return m, tea.Quit
		}

		// Forms own every key except ctrl+c.
		if m.currentView == ViewPrefs && msg.String() != "ctrl+c" {
			break
		}

		switch msg.String() {
		case "ctrl+c":
			m.stopPolling()
			return m, tea.Quit

		case "q":
			if m.currentView == ViewList {
				m.stopPolling()
				return m, tea.Quit
			}

		case "esc":
			if m.currentView == ViewHelp || m.currentView == ViewCommand {
				m.currentView = m.previousView
				return m, nil
			}

		case "?":
			if m.currentView == ViewCommand {
				break
			}
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			m.helpView.SetAccount(m.account())
			return m, nil

		case ":":
			if m.currentView == ViewCommand {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewCommand
			return m, m.commandView.Focus()

		case "r":
			if m.currentView == ViewList {
				return m, m.refresh()
			}

		case "s":
			if m.currentView == ViewList {
				return m, m.openPreferences()
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.list, cmd = m.list.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewPrefs:
		m.prefsView, cmd = m.prefsView.Update(msg)
	case ViewFunding:
		m.fundingView, cmd = m.fundingView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	unread := m.list.State().UnreadCount
	header := m.layout.RenderHeader("swapdesk", unread, m.syncStatus)
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.flash)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.list.View()
	case ViewDetail:
		return m.detail.View()
	case ViewPrefs:
		return m.prefsView.View()
	case ViewFunding:
		return m.fundingView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewExpired:
		return renderExpired(m.layout)
	default:
		return ""
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return ": close command | enter execute | esc back"
	case ViewDetail:
		if m.detail.CanVerify() {
			return "esc back | v verify payment | d delete | j/k scroll"
		}
		return "esc back | d delete | j/k scroll"
	case ViewPrefs:
		return "space toggle | enter next | esc cancel"
	case ViewFunding:
		return "enter/esc continue"
	case ViewExpired:
		return "press any key to exit"
	default:
		return "q quit | ? help | m read | M read all | d delete | u unread | s settings | : command"
	}
}
