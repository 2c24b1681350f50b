package config

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/swapdesk/internal/keys"
	"github.com/nhle/swapdesk/internal/model"
	"github.com/nhle/swapdesk/tests/testutil"
)

func testConfig() model.AppConfig {
	return model.AppConfig{
		API:     model.APIConfig{BaseURL: "http://localhost:5000", TimeoutSec: 30},
		Poll:    model.PollConfig{IntervalSec: 60, PageSize: 20},
		Display: model.DisplayConfig{Theme: "dark"},
	}
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, validateURL("https://api.example.com"))
	assert.NoError(t, validateURL(" http://localhost:5000 "))
	assert.Error(t, validateURL(""))
	assert.Error(t, validateURL("api.example.com"))
	assert.Error(t, validateURL("ftp://api.example.com"))
}

func TestValidatePositive(t *testing.T) {
	v := validatePositive("Timeout")
	assert.NoError(t, v("15"))
	assert.Error(t, v("0"))
	assert.Error(t, v("-3"))
	assert.EqualError(t, v("soon"), "Timeout must be a positive number")
}

func TestFillAndApplyRoundTripFormValues(t *testing.T) {
	m := New(testConfig(), nil, nil, keys.DefaultKeyMap(), 80, 24)
	assert.Equal(t, "http://localhost:5000", m.fb.baseURL)
	assert.Equal(t, "30", m.fb.timeout)
	assert.Equal(t, "dark", m.fb.theme)

	m.fb.baseURL = " https://api.example.com/ "
	m.fb.interval = "15"
	m.fb.pageSize = "50"
	m.fb.theme = "light"

	cfg := m.apply(testConfig())
	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, 30, cfg.API.TimeoutSec)
	assert.Equal(t, 15, cfg.Poll.IntervalSec)
	assert.Equal(t, 50, cfg.Poll.PageSize)
	assert.Equal(t, "light", cfg.Display.Theme)
}

func TestFillDefaultsEmptyTheme(t *testing.T) {
	cfg := testConfig()
	cfg.Display.Theme = ""
	m := New(cfg, nil, nil, keys.DefaultKeyMap(), 80, 24)
	assert.Equal(t, "default", m.fb.theme)
}

func TestCheckConnection_AnyResponseCounts(t *testing.T) {
	fake := testutil.NewFakeAPI(t)

	err := CheckConnection(context.Background(), fake.URL(), 2*time.Second)
	assert.NoError(t, err)
	assert.Equal(t, 1, fake.Calls("GET /api/auth/me"))
}

func TestCheckConnection_Unreachable(t *testing.T) {
	err := CheckConnection(context.Background(), "http://127.0.0.1:1", 200*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot reach http://127.0.0.1:1")
}

func TestCheckConnection_RejectsInvalidURL(t *testing.T) {
	assert.Error(t, CheckConnection(context.Background(), "not a url", time.Second))
}

func TestSuccessfulCheckThenEnterSaves(t *testing.T) {
	var saved *model.AppConfig
	save := func(cfg *model.AppConfig) error {
		saved = cfg
		return nil
	}
	m := New(testConfig(), nil, save, keys.DefaultKeyMap(), 80, 24)

	next, _ := m.Update(ValidateResultMsg{BaseURL: "http://localhost:5000"})
	m = next.(Model)
	assert.Equal(t, ModeValidateResult, m.mode)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)

	next, _ = m.Update(cmd())
	m = next.(Model)
	require.NotNil(t, saved)
	assert.Equal(t, "http://localhost:5000", saved.API.BaseURL)
	assert.True(t, m.Saved())
}

func TestFailedCheckCanSaveAnyway(t *testing.T) {
	calls := 0
	save := func(*model.AppConfig) error {
		calls++
		return nil
	}
	m := New(testConfig(), nil, save, keys.DefaultKeyMap(), 80, 24)

	next, _ := m.Update(ValidateResultMsg{Err: errors.New("cannot reach server")})
	m = next.(Model)
	assert.Contains(t, m.View(), "cannot reach server")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	m = next.(Model)
	require.NotNil(t, cmd)

	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, 1, calls)
	assert.True(t, m.Saved())
}

func TestFailedCheckEnterReturnsToForm(t *testing.T) {
	m := New(testConfig(), nil, nil, keys.DefaultKeyMap(), 80, 24)

	next, _ := m.Update(ValidateResultMsg{Err: errors.New("cannot reach server")})
	next, _ = next.(Model).Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	assert.Equal(t, ModeForm, m.mode)
	assert.False(t, m.Saved())
}

func TestSaveErrorIsShown(t *testing.T) {
	save := func(*model.AppConfig) error { return errors.New("disk full") }
	m := New(testConfig(), nil, save, keys.DefaultKeyMap(), 80, 24)

	next, _ := m.Update(configSavedMsg{err: save(nil)})
	m = next.(Model)

	assert.False(t, m.Saved())
	assert.Contains(t, m.View(), "disk full")
}
