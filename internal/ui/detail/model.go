package detail

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/swapdesk/internal/crossref"
	"github.com/nhle/swapdesk/internal/keys"
	"github.com/nhle/swapdesk/internal/model"
	"github.com/nhle/swapdesk/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// VerifyRequestMsg asks the parent to verify the payment a notification
// refers to.
type VerifyRequestMsg struct {
	OrderID   string
	Reference string
}

// DeleteRequestMsg asks the parent to delete the shown notification.
type DeleteRequestMsg struct {
	ID string
}

// Model is the notification detail view component.
type Model struct {
	notification *model.Notification
	links        crossref.Links
	viewport     viewport.Model
	keys         *keys.KeyMap
	width        int
	height       int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// SetNotification shows n.
func (m *Model) SetNotification(n model.Notification) {
	m.notification = &n
	m.links = crossref.Extract(n)
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Clear removes the shown notification.
func (m *Model) Clear() {
	m.notification = nil
	m.links = crossref.Links{}
}

// CurrentID returns the id of the shown notification, or "".
func (m Model) CurrentID() string {
	if m.notification == nil {
		return ""
	}
	return m.notification.ID
}

// CanVerify reports whether the shown notification carries a payment
// reference.
func (m Model) CanVerify() bool {
	return m.notification != nil && m.links.Verifiable()
}

// VerifyCmd returns a command requesting verification of the shown
// notification's payment, or nil when there is nothing to verify.
func (m Model) VerifyCmd() tea.Cmd {
	if !m.CanVerify() {
		return nil
	}
	req := VerifyRequestMsg{OrderID: m.links.OrderID, Reference: m.links.Reference}
	return func() tea.Msg { return req }
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.Verify):
			if m.CanVerify() {
				req := VerifyRequestMsg{OrderID: m.links.OrderID, Reference: m.links.Reference}
				return m, func() tea.Msg { return req }
			}
			return m, nil

		case key.Matches(msg, m.keys.Delete):
			if id := m.CurrentID(); id != "" {
				return m, func() tea.Msg { return DeleteRequestMsg{ID: id} }
			}
			return m, nil
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.notification == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No notification selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	n := m.notification
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	labelStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(12)

	badge := theme.TypeStyle(n.Type).Render(theme.CategoryLabel(n.Type.Category()))
	b.WriteString(badge + " " + titleStyle.Render(n.Title) + "\n\n")

	body := lipgloss.NewStyle().Width(max(m.width-6, 20)).Render(n.Message)
	b.WriteString(body + "\n\n")

	row := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(labelStyle.Render(label) + value + "\n")
	}

	status := "unread"
	if n.IsRead {
		status = "read"
	}
	row("Status", status)
	row("Type", string(n.Type))
	if !n.CreatedAt.IsZero() {
		row("Received", n.CreatedAt.Local().Format("Mon Jan 2 2006 15:04"))
	}
	row("Order", m.links.OrderID)
	row("Reference", m.links.Reference)
	row("Swap", m.links.SwapID)
	row("Device", m.links.ProductID)
	if m.links.Amount > 0 {
		row("Amount", fmt.Sprintf("%.2f", m.links.Amount))
	}

	if extra := extraData(n.Data); len(extra) > 0 {
		b.WriteString("\n" + lipgloss.NewStyle().Bold(true).Render("Details") + "\n")
		for _, kv := range extra {
			row(kv[0], kv[1])
		}
	}

	if m.links.Verifiable() {
		b.WriteString("\n" + theme.HelpStyle.Render("Press v to verify this payment."))
	}

	return theme.DetailPanelStyle.Width(max(m.width-4, 20)).Render(b.String())
}

// extraData returns the scalar payload entries not already shown, sorted
// by key.
func extraData(data map[string]any) [][2]string {
	shown := map[string]bool{
		"orderId": true, "order_id": true, "order": true,
		"reference": true, "paymentReference": true, "ref": true,
		"swapId": true, "swap_id": true,
		"productId": true, "product_id": true, "deviceId": true,
		"amount": true,
	}

	var out [][2]string
	for k, v := range data {
		if shown[k] {
			continue
		}
		switch v := v.(type) {
		case string, bool:
			out = append(out, [2]string{k, fmt.Sprint(v)})
		case float64:
			out = append(out, [2]string{k, fmt.Sprintf("%g", v)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.notification != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
