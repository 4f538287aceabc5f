// Package tui implements the interactive session browser: pick a
// server, connect, walk its tools, and call them, all against the same
// session plumbing the CLI uses.
package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/mcpdial/mcpdial/internal/config"
	"github.com/mcpdial/mcpdial/internal/dial"
	"github.com/mcpdial/mcpdial/internal/events"
	"github.com/mcpdial/mcpdial/internal/mcp"
	"github.com/mcpdial/mcpdial/internal/render"
	"github.com/mcpdial/mcpdial/internal/tui/theme"
	"github.com/mcpdial/mcpdial/internal/tui/views"
)

// Screen identifies which main pane is on display.
type Screen int

const (
	ScreenServers Screen = iota
	ScreenTools
	ScreenResult
)

// Messages produced by background session work.

type sessionOpenedMsg struct {
	server string
}

type sessionFailedMsg struct {
	server string
	err    error
}

type toolsListedMsg struct {
	server string
	items  []views.ToolItem
	total  int
}

type toolsFailedMsg struct {
	server string
	err    error
}

type callFinishedMsg struct {
	server string
	tool   string

	// output is the rendered result, or the rendered mismatch detail
	// when invalid is set.
	output  string
	invalid bool

	// err is a transport or server error; output is empty then.
	err error
}

// Model is the root Bubble Tea model.
type Model struct {
	// Dependencies
	cfg        *config.Config
	configPath string
	dialer     *dial.Dialer
	capcache   *config.CapCache // nil when the cache location is unavailable
	bus        *events.Bus
	log        zerolog.Logger

	// UI state
	theme  theme.Theme
	keys   KeyBindings
	width  int
	height int
	screen Screen

	// Components
	serverList  views.ServerListModel
	toolList    views.ToolListModel
	resultView  views.ResultViewModel
	serverForm  *views.ServerFormModel // pointer to preserve huh's value bindings
	argsForm    *views.ArgsFormModel
	logPanel    views.LogPanelModel
	helpOverlay views.HelpOverlayModel
	confirmDlg  views.ConfirmModel
	toast       views.ToastModel

	// Session bookkeeping, keyed by server name
	sessionStates map[string]string
	sessionErrs   map[string]string
	toolItems     map[string][]views.ToolItem
	toolTokens    map[string]int

	// activeServer is the server whose tools or result are on screen.
	activeServer string
	// activeTool is the tool whose result is on screen.
	activeTool string

	// connecting and calling name in-flight work for the status bar.
	connecting string
	calling    string

	// initialServer, when set, is dialed as soon as the program starts.
	initialServer string

	pendingDelete string

	// Event channel for Bubble Tea integration
	eventCh <-chan events.Event
}

// newServerFormPtr creates a pointer to a ServerFormModel.
// huh forms store pointers to field values, so the form must persist
// across Bubble Tea's value-based updates.
func newServerFormPtr(th theme.Theme) *views.ServerFormModel {
	form := views.NewServerForm(th)
	return &form
}

func newArgsFormPtr(th theme.Theme) *views.ArgsFormModel {
	form := views.NewArgsForm(th)
	return &form
}

// NewModel creates the root model. The configPath selects an alternate
// config file; empty means the default location. The caller owns the
// dialer and closes its sessions after the program exits.
func NewModel(cfg *config.Config, configPath string, dialer *dial.Dialer, bus *events.Bus, logger zerolog.Logger) Model {
	th := theme.New()
	keys := NewKeyBindings()

	// A broken cache location disables caching, nothing else.
	capcache, err := config.NewCapCache(configPath)
	if err != nil {
		logger.Warn().Err(err).Msg("capability cache unavailable")
		capcache = nil
	}

	m := Model{
		cfg:           cfg,
		configPath:    configPath,
		dialer:        dialer,
		capcache:      capcache,
		bus:           bus,
		log:           logger,
		theme:         th,
		keys:          keys,
		screen:        ScreenServers,
		serverList:    views.NewServerList(th),
		toolList:      views.NewToolList(th),
		resultView:    views.NewResultView(th),
		serverForm:    newServerFormPtr(th),
		argsForm:      newArgsFormPtr(th),
		logPanel:      views.NewLogPanel(th),
		helpOverlay:   views.NewHelpOverlay(th),
		confirmDlg:    views.NewConfirm(th),
		toast:         views.NewToast(th),
		sessionStates: make(map[string]string),
		sessionErrs:   make(map[string]string),
		toolItems:     make(map[string][]views.ToolItem),
		toolTokens:    make(map[string]int),
		eventCh:       bus.Channel(),
	}

	m.refreshServerList()

	return m
}

func (m *Model) applyFocus() {
	// Reset everything to unfocused, then mark the active pane focused so it
	// picks up the orange accent border.
	m.serverList.SetFocused(false)
	m.toolList.SetFocused(false)
	m.resultView.SetFocused(false)

	switch m.screen {
	case ScreenServers:
		m.serverList.SetFocused(true)
	case ScreenTools:
		m.toolList.SetFocused(true)
	case ScreenResult:
		m.resultView.SetFocused(true)
	}
}

// SetInitialServer marks a server to dial on startup, skipping the
// server list. Unknown and disabled servers are ignored.
func (m *Model) SetInitialServer(name string) {
	m.initialServer = name
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForEvent()}
	if m.initialServer != "" {
		if srv := m.cfg.GetServer(m.initialServer); srv != nil && srv.IsEnabled() {
			cmds = append(cmds, m.connectCmd(*srv))
		}
	}
	return tea.Batch(cmds...)
}

// waitForEvent returns a command that waits for the next bus event.
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.eventCh
	}
}

// connectCmd dials the server in the background.
func (m Model) connectCmd(srv config.ServerConfig) tea.Cmd {
	dialer := m.dialer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), srv.Timeout())
		defer cancel()
		_, err := dialer.Open(ctx, &srv)
		if err != nil {
			return sessionFailedMsg{server: srv.Name, err: err}
		}
		return sessionOpenedMsg{server: srv.Name}
	}
}

// listToolsCmd fetches the tool listing for a connected server and
// prices each tool. The listing also refreshes the capability cache.
func (m Model) listToolsCmd(server string) tea.Cmd {
	dialer := m.dialer
	capcache := m.capcache
	return func() tea.Msg {
		sess := dialer.Get(server)
		if sess == nil || sess.State() != mcp.StateReady {
			return toolsFailedMsg{server: server, err: fmt.Errorf("no open session for %q", server)}
		}

		tools, err := sess.ListTools(context.Background())
		if err != nil {
			return toolsFailedMsg{server: server, err: err}
		}

		items := make([]views.ToolItem, len(tools))
		caps := make([]config.CapabilityInput, len(tools))
		total := 0
		for i, t := range tools {
			n := config.CountCapabilityTokens(t.Name, t.Description, t.InputSchema)
			items[i] = views.ToolItem{Tool: t, Tokens: n}
			total += n
			caps[i] = config.CapabilityInput{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: t.InputSchema,
			}
		}
		if capcache != nil {
			// A broken cache never fails a live listing.
			_ = capcache.Update(server, "tools", caps)
		}

		return toolsListedMsg{server: server, items: items, total: total}
	}
}

// callToolCmd invokes one tool and renders its result for the viewport.
func (m Model) callToolCmd(server, tool string, args json.RawMessage) tea.Cmd {
	dialer := m.dialer
	return func() tea.Msg {
		sess := dialer.Get(server)
		if sess == nil || sess.State() != mcp.StateReady {
			return callFinishedMsg{server: server, tool: tool, err: fmt.Errorf("no open session for %q", server)}
		}

		result, err := sess.CallTool(context.Background(), tool, args)
		if err != nil {
			return callFinishedMsg{server: server, tool: tool, err: err}
		}

		var buf bytes.Buffer
		r := render.New(&buf, true)

		value, err := mcp.Decode(result)
		if err != nil {
			var inv *mcp.InvalidResultError
			if errors.As(err, &inv) {
				_ = r.Invalid(inv)
				return callFinishedMsg{server: server, tool: tool, output: buf.String(), invalid: true}
			}
			return callFinishedMsg{server: server, tool: tool, err: err}
		}

		_ = r.Value(value)
		return callFinishedMsg{server: server, tool: tool, output: buf.String()}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// Modal forms get every message while visible.
	if m.serverForm.IsVisible() {
		return m.updateWithServerForm(msg)
	}
	if m.argsForm.IsVisible() {
		return m.updateWithArgsForm(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.helpOverlay.SetSize(msg.Width, msg.Height)
		m.serverForm.SetSize(msg.Width, msg.Height)
		m.argsForm.SetSize(msg.Width, msg.Height)
		m.confirmDlg.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		// Always handle Ctrl+C
		if key.Matches(msg, m.keys.CtrlC) {
			m.dialer.CloseAll()
			return m, tea.Quit
		}

		// Dismiss toast on any key press
		if m.toast.IsVisible() {
			m.toast.Hide()
		}

		// Confirm dialog swallows keys while visible
		if m.confirmDlg.IsVisible() {
			var cmd tea.Cmd
			m.confirmDlg, cmd = m.confirmDlg.Update(msg)
			return m, cmd
		}

		// Help overlay
		if m.helpOverlay.IsVisible() {
			if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Escape) {
				m.helpOverlay.SetVisible(false)
				return m, nil
			}
			var cmd tea.Cmd
			m.helpOverlay, cmd = m.helpOverlay.Update(msg)
			return m, cmd
		}

		if handled, newModel, cmd := m.handleKey(msg); handled {
			return newModel, cmd
		}

	case views.ServerFormResult:
		return m.handleServerFormResult(msg)

	case views.ArgsFormResult:
		return m.handleArgsFormResult(msg)

	case views.ConfirmResult:
		return m.handleConfirmResult(msg)

	case sessionOpenedMsg:
		m.connecting = ""
		delete(m.sessionErrs, msg.server)
		m.refreshServerList()
		// Straight into the tool listing for the server just dialed.
		m.activeServer = msg.server
		m.screen = ScreenTools
		m.toolList.SetServer(msg.server, 0)
		m.toolList.SetItems(nil)
		return m, m.listToolsCmd(msg.server)

	case sessionFailedMsg:
		m.connecting = ""
		m.sessionStates[msg.server] = "error"
		m.sessionErrs[msg.server] = firstLine(msg.err.Error())
		m.refreshServerList()
		m.log.Warn().Str("server", msg.server).Err(msg.err).Msg("dial failed")
		return m, m.toast.ShowError(fmt.Sprintf("Connect to %q failed", msg.server))

	case toolsListedMsg:
		m.toolItems[msg.server] = msg.items
		m.toolTokens[msg.server] = msg.total
		m.refreshServerList()
		if m.activeServer == msg.server {
			m.toolList.SetServer(msg.server, msg.total)
			m.toolList.SetItems(msg.items)
		}

	case toolsFailedMsg:
		m.log.Warn().Str("server", msg.server).Err(msg.err).Msg("tool listing failed")
		if m.screen == ScreenTools && m.activeServer == msg.server {
			m.screen = ScreenServers
		}
		return m, m.toast.ShowError(fmt.Sprintf("Listing tools on %q failed: %s", msg.server, firstLine(msg.err.Error())))

	case callFinishedMsg:
		m.calling = ""
		if msg.err != nil {
			m.log.Warn().Str("server", msg.server).Str("tool", msg.tool).Err(msg.err).Msg("tool call failed")
			return m, m.toast.ShowError(fmt.Sprintf("Call %q failed: %s", msg.tool, firstLine(msg.err.Error())))
		}
		m.activeTool = msg.tool
		m.resultView.SetResult(msg.server+" ▸ "+msg.tool, msg.output)
		m.screen = ScreenResult
		if msg.invalid {
			return m, m.toast.ShowError(fmt.Sprintf("Tool %q did not return a usable result", msg.tool))
		}

	case events.Event:
		cmd := m.handleEvent(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		cmds = append(cmds, m.waitForEvent())

	default:
		var cmd tea.Cmd
		m.toast, cmd = m.toast.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	// Update the active child component (including for unhandled keys)
	switch m.screen {
	case ScreenServers:
		var cmd tea.Cmd
		m.serverList, cmd = m.serverList.Update(msg)
		cmds = append(cmds, cmd)
	case ScreenTools:
		var cmd tea.Cmd
		m.toolList, cmd = m.toolList.Update(msg)
		cmds = append(cmds, cmd)
	case ScreenResult:
		var cmd tea.Cmd
		m.resultView, cmd = m.resultView.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.logPanel.IsVisible() {
		var cmd tea.Cmd
		m.logPanel, cmd = m.logPanel.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleEvent(e events.Event) tea.Cmd {
	switch evt := e.(type) {
	case events.StateEvent:
		m.sessionStates[evt.Server()] = evt.State
		if evt.State == "ready" {
			delete(m.sessionErrs, evt.Server())
		}
		m.refreshServerList()

		// A session dying under the tool browser sends the user back.
		if evt.State == "closed" && evt.Server() == m.activeServer && m.screen == ScreenTools {
			m.screen = ScreenServers
			return m.toast.ShowError(fmt.Sprintf("Session to %q closed", evt.Server()))
		}

	case events.NotificationEvent:
		m.logPanel.AppendLog(evt.Server(), "notification "+evt.Method)
		// Servers announce tool changes; refresh the listing we show.
		if evt.Method == "notifications/tools/list_changed" && evt.Server() == m.activeServer {
			return m.listToolsCmd(evt.Server())
		}

	case events.StderrEvent:
		m.logPanel.AppendLog(evt.Server(), evt.Line)
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (handled bool, model tea.Model, cmd tea.Cmd) {
	// Global keys
	switch {
	case key.Matches(msg, m.keys.Help):
		m.helpOverlay.Toggle()
		return true, m, nil

	case key.Matches(msg, m.keys.Quit):
		if n := m.dialer.OpenCount(); n > 0 {
			m.confirmDlg.Show("Quit", fmt.Sprintf("%d session(s) open. Close all and quit?", n), "quit")
			return true, m, nil
		}
		return true, m, tea.Quit

	case key.Matches(msg, m.keys.Escape):
		switch {
		case m.logPanel.IsFocused():
			m.logPanel.SetFocused(false)
			return true, m, nil
		case m.screen == ScreenResult:
			m.screen = ScreenTools
			return true, m, nil
		case m.screen == ScreenTools:
			// Back to the list; the session stays open for reuse.
			m.screen = ScreenServers
			return true, m, nil
		}
		return false, m, nil

	case key.Matches(msg, m.keys.ToggleLogs):
		if m.logPanel.IsVisible() {
			m.logPanel.SetVisible(false)
			m.logPanel.SetFocused(false)
		} else {
			m.logPanel.SetVisible(true)
		}
		m.updateLayout()
		return true, m, nil

	case key.Matches(msg, m.keys.FollowLogs):
		if m.logPanel.IsVisible() {
			m.logPanel.ToggleFollow()
		}
		return true, m, nil
	}

	switch m.screen {
	case ScreenServers:
		return m.handleServerListKey(msg)
	case ScreenTools:
		return m.handleToolListKey(msg)
	}

	return false, m, nil
}

func (m *Model) handleServerListKey(msg tea.KeyMsg) (handled bool, model tea.Model, cmd tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Enter):
		item := m.serverList.SelectedItem()
		if item == nil {
			return true, m, nil
		}
		if !item.Config.IsEnabled() {
			return true, m, m.toast.ShowInfo(fmt.Sprintf("Server %q is disabled", item.Config.Name))
		}
		if m.connecting != "" {
			return true, m, nil
		}

		// A live session skips the dial and goes straight to tools.
		if sess := m.dialer.Get(item.Config.Name); sess != nil && sess.State() == mcp.StateReady {
			m.activeServer = item.Config.Name
			m.screen = ScreenTools
			if items, ok := m.toolItems[item.Config.Name]; ok {
				m.toolList.SetServer(item.Config.Name, m.toolTokens[item.Config.Name])
				m.toolList.SetItems(items)
				return true, m, nil
			}
			m.toolList.SetServer(item.Config.Name, 0)
			m.toolList.SetItems(nil)
			return true, m, m.listToolsCmd(item.Config.Name)
		}

		m.connecting = item.Config.Name
		delete(m.sessionErrs, item.Config.Name)
		return true, m, m.connectCmd(item.Config)

	case key.Matches(msg, m.keys.Disconnect):
		if item := m.serverList.SelectedItem(); item != nil {
			m.disconnect(item.Config.Name)
		}
		return true, m, nil

	case key.Matches(msg, m.keys.ToggleEnabled):
		if item := m.serverList.SelectedItem(); item != nil {
			return true, m, m.toggleServerEnabled(item.Config.Name)
		}
		return true, m, nil

	case key.Matches(msg, m.keys.Add):
		cmd := m.serverForm.ShowAdd()
		return true, m, cmd

	case key.Matches(msg, m.keys.Edit):
		if item := m.serverList.SelectedItem(); item != nil {
			cmd := m.serverForm.ShowEdit(item.Config)
			return true, m, cmd
		}
		return true, m, nil

	case key.Matches(msg, m.keys.Delete):
		if item := m.serverList.SelectedItem(); item != nil {
			m.pendingDelete = item.Config.Name
			m.confirmDlg.Show("Delete Server",
				fmt.Sprintf("Delete server \"%s\"?\nThis cannot be undone.", item.Config.Name),
				"delete-server")
		}
		return true, m, nil
	}

	return false, m, nil // Let list handle navigation keys
}

func (m *Model) handleToolListKey(msg tea.KeyMsg) (handled bool, model tea.Model, cmd tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Enter):
		item := m.toolList.SelectedItem()
		if item == nil || m.calling != "" {
			return true, m, nil
		}
		cmd := m.argsForm.Show(item.Tool.Name, item.Tool.Description, item.Tool.InputSchema)
		return true, m, cmd

	case key.Matches(msg, m.keys.Refresh):
		if m.activeServer != "" {
			return true, m, m.listToolsCmd(m.activeServer)
		}
		return true, m, nil

	case key.Matches(msg, m.keys.Disconnect):
		if m.activeServer != "" {
			m.disconnect(m.activeServer)
			m.screen = ScreenServers
		}
		return true, m, nil
	}

	return false, m, nil
}

func (m Model) handleServerFormResult(result views.ServerFormResult) (tea.Model, tea.Cmd) {
	if !result.Submitted {
		return m, nil
	}

	name := result.Server.Name

	var err error
	if result.IsEdit {
		if result.OriginalName != name {
			// Renames re-key the registry entry and orphan any session
			// and cached listings under the old name.
			if err = m.cfg.DeleteServer(result.OriginalName); err == nil {
				err = m.cfg.AddServer(result.Server)
			}
			if err == nil {
				_ = m.dialer.Close(result.OriginalName)
				delete(m.sessionStates, result.OriginalName)
				delete(m.sessionErrs, result.OriginalName)
				delete(m.toolItems, result.OriginalName)
				delete(m.toolTokens, result.OriginalName)
				if m.capcache != nil {
					_ = m.capcache.Delete(result.OriginalName)
				}
			}
		} else {
			err = m.cfg.UpdateServer(result.Server)
		}
	} else {
		err = m.cfg.AddServer(result.Server)
	}
	if err != nil {
		m.log.Warn().Err(err).Msg("server form rejected")
		return m, m.toast.ShowError(firstLine(err.Error()))
	}

	if err := m.saveConfig(); err != nil {
		m.log.Error().Err(err).Msg("config save failed")
		return m, m.toast.ShowError(fmt.Sprintf("Failed to save config: %v", err))
	}

	m.refreshServerList()

	if result.IsEdit {
		return m, m.toast.ShowSuccess(fmt.Sprintf("Server \"%s\" updated", name))
	}
	return m, m.toast.ShowSuccess(fmt.Sprintf("Server \"%s\" added", name))
}

func (m Model) handleArgsFormResult(result views.ArgsFormResult) (tea.Model, tea.Cmd) {
	if !result.Submitted || m.activeServer == "" {
		return m, nil
	}
	m.calling = result.Tool
	return m, m.callToolCmd(m.activeServer, result.Tool, result.Args)
}

func (m Model) handleConfirmResult(result views.ConfirmResult) (tea.Model, tea.Cmd) {
	switch result.Tag {
	case "quit":
		if result.Confirmed {
			m.dialer.CloseAll()
			return m, tea.Quit
		}
		return m, nil

	case "delete-server":
		name := m.pendingDelete
		m.pendingDelete = ""
		if !result.Confirmed || name == "" {
			return m, nil
		}

		m.disconnect(name)

		if err := m.cfg.DeleteServer(name); err != nil {
			m.log.Warn().Err(err).Msg("delete failed")
			return m, m.toast.ShowError(fmt.Sprintf("Failed to delete server: %v", err))
		}
		if err := m.saveConfig(); err != nil {
			m.log.Error().Err(err).Msg("config save failed")
			return m, m.toast.ShowError(fmt.Sprintf("Failed to save config: %v", err))
		}

		delete(m.sessionStates, name)
		delete(m.sessionErrs, name)
		delete(m.toolItems, name)
		delete(m.toolTokens, name)
		// Cached listings for the server are stale now.
		if m.capcache != nil {
			_ = m.capcache.Delete(name)
		}
		if m.activeServer == name {
			m.activeServer = ""
			m.screen = ScreenServers
		}

		m.refreshServerList()
		return m, m.toast.ShowSuccess(fmt.Sprintf("Server \"%s\" deleted", name))
	}

	m.pendingDelete = ""
	return m, nil
}

// disconnect closes the session for name, if any.
func (m *Model) disconnect(name string) {
	if sess := m.dialer.Get(name); sess == nil {
		return
	}
	_ = m.dialer.Close(name)
	delete(m.toolItems, name)
	delete(m.toolTokens, name)
	m.refreshServerList()
}

// toggleServerEnabled flips the enabled flag and persists it.
// Disabling a connected server also closes its session.
func (m *Model) toggleServerEnabled(name string) tea.Cmd {
	srv := m.cfg.GetServer(name)
	if srv == nil {
		return nil
	}

	enabling := !srv.IsEnabled()
	if !enabling {
		m.disconnect(name)
	}
	srv.SetEnabled(enabling)
	m.cfg.Servers[name] = *srv

	if err := m.saveConfig(); err != nil {
		m.log.Error().Err(err).Msg("config save failed")
		return m.toast.ShowError(fmt.Sprintf("Failed to save config: %v", err))
	}

	m.refreshServerList()
	return nil
}

func (m *Model) saveConfig() error {
	if m.configPath != "" {
		return config.SaveTo(m.cfg, m.configPath)
	}
	return config.Save(m.cfg)
}

func (m *Model) refreshServerList() {
	servers := m.cfg.ServerList()
	items := make([]views.ServerItem, len(servers))
	for i, srv := range servers {
		state := m.sessionStates[srv.Name]
		if m.connecting == srv.Name {
			state = "handshaking"
		}
		items[i] = views.ServerItem{
			Config:     srv,
			State:      state,
			Err:        m.sessionErrs[srv.Name],
			ToolCount:  len(m.toolItems[srv.Name]),
			ToolTokens: m.toolTokens[srv.Name],
		}
	}
	m.serverList.SetItems(items)
}

func (m *Model) updateLayout() {
	headerHeight := 1
	statusHeight := 1
	logHeight := 0
	if m.logPanel.IsVisible() {
		logHeight = 10 // includes border
	}

	contentHeight := m.height - headerHeight - statusHeight - logHeight
	if contentHeight < 5 {
		contentHeight = 5
	}

	// Available width: total width minus App padding
	contentWidth := m.width - 4

	m.serverList.SetSize(contentWidth, contentHeight)
	m.toolList.SetSize(contentWidth, contentHeight)
	m.resultView.SetSize(contentWidth, contentHeight)

	if m.logPanel.IsVisible() {
		m.logPanel.SetSize(contentWidth, logHeight)
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	m.applyFocus()

	var sections []string

	sections = append(sections, m.renderHeader())

	switch m.screen {
	case ScreenServers:
		sections = append(sections, m.serverList.View())
	case ScreenTools:
		sections = append(sections, m.toolList.View())
	case ScreenResult:
		sections = append(sections, m.resultView.View())
	}

	if m.logPanel.IsVisible() {
		sections = append(sections, m.logPanel.View())
	}

	sections = append(sections, m.renderStatusBar())

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	// Overlays, innermost first
	if m.serverForm.IsVisible() {
		content = m.serverForm.RenderOverlay(content, m.width, m.height)
	}
	if m.argsForm.IsVisible() {
		content = m.argsForm.RenderOverlay(content, m.width, m.height)
	}
	if m.confirmDlg.IsVisible() {
		content = m.confirmDlg.RenderOverlay(content, m.width, m.height)
	}
	if m.helpOverlay.IsVisible() {
		content = m.helpOverlay.RenderOverlay(content, m.width, m.height)
	}

	return m.theme.App.Render(content)
}

// renderHeader shows the app name on the left and the navigation trail
// on the right.
func (m Model) renderHeader() string {
	title := m.theme.Title.Render("mcpdial")

	var trail string
	switch m.screen {
	case ScreenServers:
		trail = m.theme.Primary.Render("Servers")
	case ScreenTools:
		trail = m.theme.Muted.Render("Servers ▸ ") + m.theme.Primary.Render(m.activeServer)
	case ScreenResult:
		trail = m.theme.Muted.Render("Servers ▸ "+m.activeServer+" ▸ ") + m.theme.Primary.Render(m.activeTool)
	}

	padding := m.width - lipgloss.Width(title) - lipgloss.Width(trail) - 4
	if padding < 1 {
		padding = 1
	}

	return title + strings.Repeat(" ", padding) + trail
}

func (m Model) renderStatusBar() string {
	left := fmt.Sprintf("%d/%d connected", m.dialer.OpenCount(), len(m.cfg.Servers))
	switch {
	case m.connecting != "":
		left = "dialing " + m.connecting + "..."
	case m.calling != "":
		left = "calling " + m.calling + "..."
	}

	var keys string
	switch m.screen {
	case ScreenServers:
		enableHint := "E:enable"
		if item := m.serverList.SelectedItem(); item != nil && item.Config.IsEnabled() {
			enableHint = "E:disable"
		}
		keys = "enter:connect  x:disconnect  " + enableHint + "  a:add  e:edit  d:delete  l:logs  ?:help"
	case ScreenTools:
		keys = "enter:call  r:refresh  x:disconnect  esc:back  l:logs  ?:help"
	case ScreenResult:
		keys = "j/k:scroll  esc:back  l:logs  ?:help"
	default:
		keys = "?:help"
	}

	// A toast takes the left slot but never hides the key hints.
	if m.toast.IsVisible() {
		available := m.width - lipgloss.Width(keys) - 4
		if available < 10 {
			available = 10
		}
		if toast := m.toast.ViewWithMaxWidth(available); toast != "" {
			left = toast
		}
	}

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(keys) - 4
	if padding < 1 {
		padding = 1
	}

	return m.theme.StatusBar.Render(left + strings.Repeat(" ", padding) + keys)
}

// ============================================================================
// Modal form update handlers
// ============================================================================

func (m Model) updateWithServerForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.CtrlC) {
			m.dialer.CloseAll()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.helpOverlay.SetSize(msg.Width, msg.Height)
		m.serverForm.SetSize(msg.Width, msg.Height)
		m.argsForm.SetSize(msg.Width, msg.Height)
		m.confirmDlg.SetSize(msg.Width, msg.Height)
	case views.ServerFormResult:
		return m.handleServerFormResult(msg)
	}

	if cmd := m.serverForm.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	// Bus events keep flowing while the form is up.
	if evt, ok := msg.(events.Event); ok {
		if cmd := m.handleEvent(evt); cmd != nil {
			cmds = append(cmds, cmd)
		}
		cmds = append(cmds, m.waitForEvent())
	}

	var toastCmd tea.Cmd
	m.toast, toastCmd = m.toast.Update(msg)
	if toastCmd != nil {
		cmds = append(cmds, toastCmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) updateWithArgsForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.CtrlC) {
			m.dialer.CloseAll()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.helpOverlay.SetSize(msg.Width, msg.Height)
		m.serverForm.SetSize(msg.Width, msg.Height)
		m.argsForm.SetSize(msg.Width, msg.Height)
		m.confirmDlg.SetSize(msg.Width, msg.Height)
	case views.ArgsFormResult:
		return m.handleArgsFormResult(msg)
	}

	if cmd := m.argsForm.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	if evt, ok := msg.(events.Event); ok {
		if cmd := m.handleEvent(evt); cmd != nil {
			cmds = append(cmds, cmd)
		}
		cmds = append(cmds, m.waitForEvent())
	}

	var toastCmd tea.Cmd
	m.toast, toastCmd = m.toast.Update(msg)
	if toastCmd != nil {
		cmds = append(cmds, toastCmd)
	}

	return m, tea.Batch(cmds...)
}

// firstLine trims an error message to its first line for toasts; dial
// failures carry multi-line stderr tails that belong in the log panel,
// not a one-line notification.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
