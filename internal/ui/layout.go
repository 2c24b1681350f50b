package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/swapdesk/internal/theme"
)

// Layout manages the multi-panel terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// Flash is a transient status bar message.
type Flash struct {
	Text  string
	Error bool
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// RenderHeader renders the top bar: title and unread badge on the left,
// sync status on the right.
func (l Layout) RenderHeader(title string, unread int, syncStatus string) string {
	left := theme.HeaderStyle.Render(title)
	if unread > 0 {
		left += theme.HeaderStyle.Foreground(theme.ColorYellow).Render(fmt.Sprintf("● %d unread", unread))
	}

	status := theme.HeaderStyle
	if syncStatus == "offline" {
		status = status.Foreground(theme.ColorRed)
	}
	return l.padRow(theme.HeaderStyle, left, status.Render(syncStatus))
}

// RenderStatusBar renders the bottom bar. A flash message replaces the
// key hints until it expires.
func (l Layout) RenderStatusBar(hints string, flash Flash) string {
	text := hints
	switch {
	case flash.Text == "":
	case flash.Error:
		text = theme.ErrorStyle.Render(flash.Text)
	default:
		text = theme.SuccessStyle.Render(flash.Text)
	}
	return l.padRow(theme.StatusBarStyle, theme.StatusBarStyle.Render(text), "")
}

// padRow fills the space between left and right with style's background
// so the row spans the full width.
func (l Layout) padRow(style lipgloss.Style, left, right string) string {
	gap := max(l.Width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
