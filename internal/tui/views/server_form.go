package views

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mcpdial/mcpdial/internal/config"
	"github.com/mcpdial/mcpdial/internal/tui/theme"
)

// ServerFormResult is sent when the user completes or cancels the form.
type ServerFormResult struct {
	OriginalName string // set in edit mode, for rename detection
	Server       config.ServerConfig
	Submitted    bool
	IsEdit       bool
}

// ServerFormModel is a form for adding/editing servers.
type ServerFormModel struct {
	theme   theme.Theme
	visible bool
	isEdit  bool
	width   int
	height  int

	form *huh.Form

	// Original config in edit mode, to preserve fields the form does
	// not cover (Enabled).
	originalServer *config.ServerConfig
	originalName   string

	// Form field values. huh binds pointers to these, which is why the
	// model methods use pointer receivers.
	name         string
	commandOrURL string // http(s):// means SSE, anything else is a stdio command
	args         string
	cwd          string
	env          string
	headers      string
	timeout      string

	// Initial values for dirty checking
	initialName         string
	initialCommandOrURL string
	initialArgs         string
	initialCwd          string
	initialEnv          string
	initialHeaders      string
	initialTimeout      string

	showConfirmDiscard bool
}

// NewServerForm creates a new server form.
func NewServerForm(th theme.Theme) ServerFormModel {
	return ServerFormModel{theme: th}
}

// ShowAdd displays the form for adding a new server.
// Returns a tea.Cmd to initialize the form.
func (m *ServerFormModel) ShowAdd() tea.Cmd {
	m.visible = true
	m.isEdit = false
	m.showConfirmDiscard = false
	m.originalServer = nil
	m.originalName = ""
	m.name = ""
	m.commandOrURL = ""
	m.args = ""
	m.cwd = ""
	m.env = ""
	m.headers = ""
	m.timeout = ""
	m.snapshotInitial()
	m.buildForm()
	return m.form.Init()
}

// ShowEdit displays the form for editing an existing server.
// Returns a tea.Cmd to initialize the form.
func (m *ServerFormModel) ShowEdit(srv config.ServerConfig) tea.Cmd {
	m.visible = true
	m.isEdit = true
	m.showConfirmDiscard = false
	m.originalServer = &srv
	m.originalName = srv.Name
	m.name = srv.Name

	if srv.Kind == config.ServerKindSSE {
		m.commandOrURL = srv.URL
		m.args = ""
		m.headers = formatKeyValues(srv.Headers)
	} else {
		m.commandOrURL = srv.Command
		m.args = formatArgs(srv.Args)
		m.headers = ""
	}
	m.cwd = srv.Cwd
	m.env = formatKeyValues(srv.Env)
	if srv.TimeoutSeconds > 0 {
		m.timeout = strconv.Itoa(srv.TimeoutSeconds)
	} else {
		m.timeout = ""
	}

	m.snapshotInitial()
	m.buildForm()
	return m.form.Init()
}

func (m *ServerFormModel) snapshotInitial() {
	m.initialName = m.name
	m.initialCommandOrURL = m.commandOrURL
	m.initialArgs = m.args
	m.initialCwd = m.cwd
	m.initialEnv = m.env
	m.initialHeaders = m.headers
	m.initialTimeout = m.timeout
}

func (m *ServerFormModel) buildForm() {
	// Custom keymap to add arrow key navigation
	keymap := huh.NewDefaultKeyMap()
	keymap.Input.Prev.SetKeys("up", "shift+tab")
	keymap.Input.Next.SetKeys("down", "tab")
	keymap.Text.Prev.SetKeys("up", "shift+tab")
	keymap.Text.Next.SetKeys("down", "tab")
	keymap.Confirm.Prev.SetKeys("up", "shift+tab")
	keymap.Confirm.Next.SetKeys("down", "tab")

	// Custom theme with orange titles
	formTheme := huh.ThemeBase16()
	orange := lipgloss.AdaptiveColor{Light: "#EA580C", Dark: "#FB923C"}
	formTheme.Focused.Title = formTheme.Focused.Title.Foreground(orange)
	formTheme.Blurred.Title = formTheme.Blurred.Title.Foreground(orange)

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Description("Registry name (defaults from the command or URL)").
				Value(&m.name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					return config.ValidateName(strings.TrimSpace(s))
				}),

			huh.NewInput().
				Title("Command or URL").
				Description("Command to run, or http(s):// URL for an SSE server").
				Value(&m.commandOrURL).
				Validate(huh.ValidateNotEmpty()),

			huh.NewInput().
				Title("Arguments").
				Description("Space-separated args (commands only)").
				Value(&m.args),

			huh.NewInput().
				Title("Working Directory").
				Description("Directory to run the command in").
				Value(&m.cwd),

			huh.NewText().
				Title("Environment Variables").
				Description("One per line: KEY=value (commands only)").
				Value(&m.env).
				CharLimit(1000).
				Lines(2),

			huh.NewText().
				Title("Headers").
				Description("One per line: Name=value (SSE only)").
				Value(&m.headers).
				CharLimit(1000).
				Lines(2),

			huh.NewInput().
				Title("Call Timeout").
				Description(fmt.Sprintf("Seconds per call (blank for %d)", config.DefaultTimeoutSeconds)).
				Value(&m.timeout).
				Validate(func(s string) error {
					s = strings.TrimSpace(s)
					if s == "" {
						return nil
					}
					n, err := strconv.Atoi(s)
					if err != nil || n < 0 {
						return fmt.Errorf("must be a whole number of seconds")
					}
					return nil
				}),
		),
	).WithTheme(formTheme).
		WithWidth(60).
		WithShowHelp(true).
		WithShowErrors(true).
		WithKeyMap(keymap)
}

// isDirty returns true if any form values have changed from their initial values.
func (m *ServerFormModel) isDirty() bool {
	return m.name != m.initialName ||
		m.commandOrURL != m.initialCommandOrURL ||
		m.args != m.initialArgs ||
		m.cwd != m.initialCwd ||
		m.env != m.initialEnv ||
		m.headers != m.initialHeaders ||
		m.timeout != m.initialTimeout
}

// Hide hides the form.
func (m *ServerFormModel) Hide() {
	m.visible = false
	m.form = nil
}

// IsVisible returns whether the form is visible.
func (m ServerFormModel) IsVisible() bool {
	return m.visible
}

// SetSize sets the available size for the form.
func (m *ServerFormModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Update handles messages for the form.
// Uses a pointer receiver because huh forms store pointers to our field values.
func (m *ServerFormModel) Update(msg tea.Msg) tea.Cmd {
	if !m.visible || m.form == nil {
		return nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if m.showConfirmDiscard {
			switch keyMsg.String() {
			case "y", "Y", "enter":
				// Save and close
				m.visible = false
				m.showConfirmDiscard = false
				return m.resultCmd(true)
			case "n", "N":
				// Discard and close
				m.visible = false
				m.showConfirmDiscard = false
				return func() tea.Msg {
					return ServerFormResult{Submitted: false}
				}
			case "esc", "c", "C":
				// Back to editing
				m.showConfirmDiscard = false
				return nil
			}
			return nil
		}

		if keyMsg.String() == "esc" {
			if m.isDirty() {
				m.showConfirmDiscard = true
				return nil
			}
			m.visible = false
			return func() tea.Msg {
				return ServerFormResult{Submitted: false}
			}
		}
	}

	if m.showConfirmDiscard {
		return nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.visible = false
		return m.resultCmd(true)
	}

	if m.form.State == huh.StateAborted {
		m.visible = false
		return func() tea.Msg {
			return ServerFormResult{Submitted: false}
		}
	}

	return cmd
}

func (m *ServerFormModel) resultCmd(submitted bool) tea.Cmd {
	srv := m.buildServerConfig()
	originalName := m.originalName
	isEdit := m.isEdit
	return func() tea.Msg {
		return ServerFormResult{
			OriginalName: originalName,
			Server:       srv,
			Submitted:    submitted,
			IsEdit:       isEdit,
		}
	}
}

// isHTTPURL returns true if the string looks like an HTTP(S) URL.
func isHTTPURL(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func (m ServerFormModel) buildServerConfig() config.ServerConfig {
	var srv config.ServerConfig

	// In edit mode start from the original to preserve fields the form
	// does not cover.
	if m.isEdit && m.originalServer != nil {
		srv = *m.originalServer
	}

	commandOrURL := strings.TrimSpace(m.commandOrURL)

	if isHTTPURL(commandOrURL) {
		srv.Kind = config.ServerKindSSE
		srv.URL = commandOrURL
		srv.Command = ""
		srv.Args = nil
		srv.Env = nil
		srv.Headers = parseKeyValues(m.headers)
	} else {
		srv.Kind = config.ServerKindStdio
		srv.Command = commandOrURL
		srv.Args = parseArgs(m.args)
		srv.URL = ""
		srv.Headers = nil
		srv.Env = parseKeyValues(m.env)
	}

	srv.Name = m.deriveName()
	srv.Cwd = strings.TrimSpace(m.cwd)

	if t := strings.TrimSpace(m.timeout); t != "" {
		if n, err := strconv.Atoi(t); err == nil && n > 0 {
			srv.TimeoutSeconds = n
		} else {
			srv.TimeoutSeconds = 0
		}
	} else {
		srv.TimeoutSeconds = 0
	}

	return srv
}

// deriveName returns the entered name, falling back to something
// derived from the command or URL.
func (m ServerFormModel) deriveName() string {
	name := strings.TrimSpace(m.name)
	if name != "" {
		return name
	}

	commandOrURL := strings.TrimSpace(m.commandOrURL)
	if isHTTPURL(commandOrURL) {
		// "https://mcp.sentry.dev/sse" -> "sentry"
		s := strings.TrimPrefix(commandOrURL, "https://")
		s = strings.TrimPrefix(s, "http://")
		if idx := strings.Index(s, "/"); idx > 0 {
			s = s[:idx]
		}
		parts := strings.Split(s, ".")
		if len(parts) >= 2 {
			if parts[0] == "mcp" && len(parts) >= 3 {
				return parts[1]
			}
			return parts[0]
		}
		return s
	}

	// "/usr/local/bin/fs-server" -> "fs-server"
	return filepath.Base(commandOrURL)
}

// View renders the form.
func (m ServerFormModel) View() string {
	if !m.visible || m.form == nil {
		return ""
	}
	return m.form.View()
}

// RenderOverlay renders the form as a centered overlay.
func (m ServerFormModel) RenderOverlay(base string, width, height int) string {
	if !m.visible {
		return base
	}

	dialogWidth := 70
	if width > 0 && width < 80 {
		dialogWidth = width - 10
	}

	var content string
	if m.showConfirmDiscard {
		confirmStyle := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(m.theme.Warn.GetForeground()).
			Padding(1, 2).
			Width(50)

		confirmContent := m.theme.Warn.Bold(true).Render("Unsaved Changes") + "\n\n" +
			"You have unsaved changes. What would you like to do?\n\n" +
			m.theme.Primary.Render("[Y]") + " Save changes\n" +
			m.theme.Danger.Render("[N]") + " Discard changes\n" +
			m.theme.Muted.Render("[C/Esc]") + " Cancel (continue editing)"

		content = confirmStyle.Render(confirmContent)
	} else {
		content = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(m.theme.Primary.GetForeground()).
			Padding(1, 2).
			Width(dialogWidth).
			Render(m.View())
	}

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		content,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#1F2937"}),
	)
}

// formatArgs converts args to a space-separated string, quoting args with spaces.
func formatArgs(args []string) string {
	if len(args) == 0 {
		return ""
	}

	var parts []string
	for _, arg := range args {
		escaped := strings.ReplaceAll(arg, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		if strings.Contains(arg, " ") || strings.Contains(arg, "'") || strings.Contains(arg, "\"") {
			parts = append(parts, "\""+escaped+"\"")
		} else {
			parts = append(parts, escaped)
		}
	}
	return strings.Join(parts, " ")
}

// parseArgs splits space-separated arguments, respecting quoted strings and escapes.
func parseArgs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)
	escaped := false

	for _, r := range s {
		if escaped {
			current.WriteRune(r)
			escaped = false
			continue
		}

		switch {
		case r == '\\':
			escaped = true
		case (r == '"' || r == '\'') && !inQuote:
			inQuote = true
			quoteChar = r
		case r == quoteChar && inQuote:
			inQuote = false
			quoteChar = 0
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}

	return args
}

// parseKeyValues parses KEY=value lines into a map. Lines without an
// equals sign are skipped.
func parseKeyValues(s string) map[string]string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	kv := make(map[string]string)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "=") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key != "" {
			kv[key] = value
		}
	}

	if len(kv) == 0 {
		return nil
	}
	return kv
}

// formatKeyValues converts a map to sorted KEY=value lines.
func formatKeyValues(kv map[string]string) string {
	if len(kv) == 0 {
		return ""
	}

	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+kv[k])
	}
	return strings.Join(lines, "\n")
}
