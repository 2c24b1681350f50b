package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestContentHeightExcludesBars(t *testing.T) {
	l := NewLayout(100, 40)
	assert.Equal(t, 100, l.ContentWidth())
	assert.Equal(t, 38, l.ContentHeight())
}

func TestRenderHeader(t *testing.T) {
	l := NewLayout(60, 20)

	h := l.RenderHeader("swapdesk", 3, "synced")
	assert.Contains(t, h, "swapdesk")
	assert.Contains(t, h, "3 unread")
	assert.Contains(t, h, "synced")
	assert.Equal(t, 60, lipgloss.Width(h))

	assert.NotContains(t, l.RenderHeader("swapdesk", 0, "synced"), "unread")
}

func TestRenderStatusBarPrefersFlash(t *testing.T) {
	l := NewLayout(60, 20)

	assert.Contains(t, l.RenderStatusBar("q quit", Flash{}), "q quit")

	bar := l.RenderStatusBar("q quit", Flash{Text: "Preferences saved"})
	assert.Contains(t, bar, "Preferences saved")
	assert.NotContains(t, bar, "q quit")
	assert.Equal(t, 60, lipgloss.Width(bar))
}

func TestRenderHeaderNarrowTerminal(t *testing.T) {
	l := NewLayout(5, 10)
	assert.NotPanics(t, func() { l.RenderHeader("swapdesk", 12, "offline") })
}
