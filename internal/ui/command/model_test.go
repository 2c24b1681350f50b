package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"refresh", "refresh", true},
		{"  Refresh ", "refresh", true},
		{"sync", "refresh", true},
		{"read all", "read-all", true},
		{"settings", "prefs", true},
		{"q", "quit", true},
		{"ve", "verify", true},
		{"log", "logout", true},
		{"all", "all", true},
		{"r", "", false}, // refresh and read-all
		{"", "", false},
		{"dance", "", false},
	}
	for _, tc := range cases {
		got, ok := Resolve(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestEnterEmitsTrimmedCommand(t *testing.T) {
	m := New(80, 24)
	for _, r := range " unread " {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, CommandMsg("unread"), cmd())
	assert.Empty(t, m.input.Value())
}

func TestEnterOnEmptyInputDoesNothing(t *testing.T) {
	m := New(80, 24)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestViewDescribesResolvedCommand(t *testing.T) {
	m := New(80, 24)
	m.input.SetValue("pref")
	assert.Contains(t, m.View(), "notification settings")
}
