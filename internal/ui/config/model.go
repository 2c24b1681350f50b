package config

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/swapdesk/internal/api"
	"github.com/nhle/swapdesk/internal/keys"
	"github.com/nhle/swapdesk/internal/model"
	"github.com/nhle/swapdesk/internal/theme"
)

// ConfigMode represents the current state of the configuration view.
type ConfigMode int

const (
	ModeForm           ConfigMode = iota // Editing settings
	ModeValidating                       // Testing connection
	ModeValidateResult                   // Show validation result
)

// ConfigDoneMsg signals the config view should close.
type ConfigDoneMsg struct {
	Saved bool
}

// ValidateResultMsg carries the result of a connection check.
type ValidateResultMsg struct {
	BaseURL string
	Err     error
}

// configSavedMsg is sent after the config file is written.
type configSavedMsg struct {
	err error
}

// CheckFunc reports whether a backend answers at baseURL.
type CheckFunc func(ctx context.Context, baseURL string, timeout time.Duration) error

// SaveFunc persists cfg.
type SaveFunc func(cfg *model.AppConfig) error

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	baseURL  string
	timeout  string
	interval string
	pageSize string
	theme    string
}

// Model is the Bubble Tea model for the connection settings screen.
type Model struct {
	mode  ConfigMode
	cfg   model.AppConfig
	fb    *formBindings
	form  *huh.Form
	check CheckFunc
	save  SaveFunc

	validError error
	statusMsg  string
	saved      bool
	spinner    spinner.Model

	keys          *keys.KeyMap
	width, height int
}

// New creates a settings view for cfg. check defaults to CheckConnection.
func New(cfg model.AppConfig, check CheckFunc, save SaveFunc, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	if check == nil {
		check = CheckConnection
	}

	m := Model{
		mode:    ModeForm,
		cfg:     cfg,
		fb:      &formBindings{},
		check:   check,
		save:    save,
		keys:    k,
		spinner: sp,
		width:   width,
		height:  height,
	}
	m.fill(cfg)
	m.form = m.buildForm()
	return m
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Config returns the settings as last edited.
func (m Model) Config() model.AppConfig {
	return m.cfg
}

// Saved reports whether the settings were written.
func (m Model) Saved() bool {
	return m.saved
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ValidateResultMsg:
		m.validError = msg.Err
		m.mode = ModeValidateResult
		return m, nil

	case configSavedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error saving settings: %v", msg.err)
			m.mode = ModeValidateResult
			return m, nil
		}
		m.saved = true
		return m, tea.Sequence(
			func() tea.Msg { return ConfigDoneMsg{Saved: true} },
			tea.Quit,
		)

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case ModeValidating:
			// Only allow escape during validation
			if key.Matches(msg, m.keys.Back) {
				return m.restartForm()
			}
			return m, nil
		case ModeValidateResult:
			return m.handleValidateResultKeys(msg)
		}
	}

	return m.updateForm(msg)
}

// handleValidateResultKeys processes key events on the validation result
// screen.
func (m Model) handleValidateResultKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "s":
		return m, m.saveConfig()
	case "r":
		return m.validate()
	case "enter", "esc", "e":
		if m.validError == nil && m.statusMsg == "" {
			return m, m.saveConfig()
		}
		return m.restartForm()
	}
	return m, nil
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.mode != ModeForm || m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.cfg = m.apply(m.cfg)
		return m.validate()
	case huh.StateAborted:
		return m, tea.Sequence(
			func() tea.Msg { return ConfigDoneMsg{} },
			tea.Quit,
		)
	}
	return m, cmd
}

func (m Model) restartForm() (Model, tea.Cmd) {
	m.mode = ModeForm
	m.validError = nil
	m.statusMsg = ""
	m.fill(m.cfg)
	m.form = m.buildForm()
	return m, m.form.Init()
}

func (m Model) validate() (Model, tea.Cmd) {
	m.mode = ModeValidating
	m.validError = nil
	m.statusMsg = ""

	check := m.check
	baseURL := m.cfg.API.BaseURL
	timeout := time.Duration(m.cfg.API.TimeoutSec) * time.Second
	return m, tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			return ValidateResultMsg{BaseURL: baseURL, Err: check(context.Background(), baseURL, timeout)}
		},
	)
}

func (m Model) saveConfig() tea.Cmd {
	save := m.save
	cfg := m.cfg
	return func() tea.Msg {
		if save == nil {
			return configSavedMsg{}
		}
		return configSavedMsg{err: save(&cfg)}
	}
}

// fill copies cfg into the form bindings.
func (m Model) fill(cfg model.AppConfig) {
	m.fb.baseURL = cfg.API.BaseURL
	m.fb.timeout = strconv.Itoa(cfg.API.TimeoutSec)
	m.fb.interval = strconv.Itoa(cfg.Poll.IntervalSec)
	m.fb.pageSize = strconv.Itoa(cfg.Poll.PageSize)
	m.fb.theme = cfg.Display.Theme
	if m.fb.theme == "" {
		m.fb.theme = "default"
	}
}

// apply returns cfg with the validated form values merged in.
func (m Model) apply(cfg model.AppConfig) model.AppConfig {
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(m.fb.baseURL), "/")
	cfg.API.TimeoutSec, _ = strconv.Atoi(strings.TrimSpace(m.fb.timeout))
	cfg.Poll.IntervalSec, _ = strconv.Atoi(strings.TrimSpace(m.fb.interval))
	cfg.Poll.PageSize, _ = strconv.Atoi(strings.TrimSpace(m.fb.pageSize))
	cfg.Display.Theme = m.fb.theme
	return cfg
}

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Backend URL").
				Description("Marketplace API root (e.g., https://api.swapmarket.example)").
				Placeholder("https://api.swapmarket.example").
				Value(&m.fb.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Request timeout (seconds)").
				Value(&m.fb.timeout).
				Validate(validatePositive("Timeout")),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Check for new notifications every (seconds)").
				Value(&m.fb.interval).
				Validate(validatePositive("Interval")),
			huh.NewInput().
				Title("Notifications per page").
				Value(&m.fb.pageSize).
				Validate(validatePositive("Page size")),
			huh.NewSelect[string]().
				Title("Theme").
				Options(
					huh.NewOption("Follow terminal", "default"),
					huh.NewOption("Dark", "dark"),
					huh.NewOption("Light", "light"),
				).
				Value(&m.fb.theme),
		),
	).WithWidth(m.formWidth())
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}

// View renders the settings screen.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	var body string
	switch m.mode {
	case ModeForm:
		body = m.form.View()
	case ModeValidating:
		body = fmt.Sprintf("%s Connecting to %s...", m.spinner.View(), m.cfg.API.BaseURL)
	case ModeValidateResult:
		body = m.renderResult()
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(titleStyle.Render("Connection Settings") + "\n" + body)
}

func (m Model) renderResult() string {
	var lines []string
	if m.validError != nil {
		lines = append(lines,
			theme.ErrorStyle.Render("✗ "+m.validError.Error()),
			"",
			theme.HelpStyle.Render("r retry | s save anyway | e edit"),
		)
	} else {
		lines = append(lines,
			theme.SuccessStyle.Render("✓ Connected to "+m.cfg.API.BaseURL),
			"",
			theme.HelpStyle.Render("enter save | e edit"),
		)
	}
	if m.statusMsg != "" {
		lines = append(lines, "", theme.ErrorStyle.Render(m.statusMsg))
	}
	return strings.Join(lines, "\n")
}

// CheckConnection reports whether the marketplace backend answers at
// baseURL. Any HTTP response counts, including 401 for the
// unauthenticated check.
func CheckConnection(ctx context.Context, baseURL string, timeout time.Duration) error {
	if err := validateURL(baseURL); err != nil {
		return err
	}
	c := api.NewClient(baseURL, api.WithTimeout(timeout))
	res := c.CurrentUser(ctx, "")
	if res.Status == 0 {
		return fmt.Errorf("cannot reach %s: %s", baseURL, res.Error)
	}
	return nil
}

// --- Validators ---

func validatePositive(fieldName string) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive number", fieldName)
		}
		return nil
	}
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., https://example.com)")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https")
	}
	return nil
}
