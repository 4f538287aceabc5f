package views

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mcpdial/mcpdial/internal/tui/theme"
)

// ToastLevel represents the severity of a toast notification.
type ToastLevel int

const (
	ToastInfo ToastLevel = iota
	ToastSuccess
	ToastWarn
	ToastError
)

// toastClearMsg is sent when a toast's display time is up.
type toastClearMsg struct {
	id int
}

// ToastModel displays transient notifications in the status bar.
type ToastModel struct {
	theme   theme.Theme
	message string
	level   ToastLevel
	visible bool
	id      int // identifies which toast a clear message targets
}

// NewToast creates a new toast model.
func NewToast(th theme.Theme) ToastModel {
	return ToastModel{theme: th}
}

// Show displays a toast and returns the command that clears it later.
// Warnings and errors linger longer than informational toasts.
func (m *ToastModel) Show(message string, level ToastLevel) tea.Cmd {
	m.id++
	m.message = message
	m.level = level
	m.visible = true

	duration := 3 * time.Second
	if level == ToastWarn || level == ToastError {
		duration = 5 * time.Second
	}

	currentID := m.id
	return tea.Tick(duration, func(time.Time) tea.Msg {
		return toastClearMsg{id: currentID}
	})
}

// ShowInfo shows an info toast.
func (m *ToastModel) ShowInfo(message string) tea.Cmd {
	return m.Show(message, ToastInfo)
}

// ShowSuccess shows a success toast.
func (m *ToastModel) ShowSuccess(message string) tea.Cmd {
	return m.Show(message, ToastSuccess)
}

// ShowError shows an error toast.
func (m *ToastModel) ShowError(message string) tea.Cmd {
	return m.Show(message, ToastError)
}

// Hide hides the toast immediately.
func (m *ToastModel) Hide() {
	m.visible = false
}

// IsVisible returns whether the toast is visible.
func (m ToastModel) IsVisible() bool {
	return m.visible
}

// Update handles clear timers and early dismissal.
func (m ToastModel) Update(msg tea.Msg) (ToastModel, tea.Cmd) {
	switch msg := msg.(type) {
	case toastClearMsg:
		// A stale timer from a replaced toast must not clear the new one.
		if msg.id == m.id {
			m.visible = false
		}
	case tea.KeyMsg:
		if m.visible {
			m.visible = false
		}
	}
	return m, nil
}

func (m ToastModel) styleAndIcon() (lipgloss.Style, string) {
	switch m.level {
	case ToastSuccess:
		return m.theme.ToastInfo, "✓ "
	case ToastWarn:
		return m.theme.ToastWarn, "⚠ "
	case ToastError:
		return m.theme.ToastErr, "✖ "
	default:
		return m.theme.ToastInfo, "ℹ "
	}
}

// View renders the toast.
func (m ToastModel) View() string {
	if !m.visible || m.message == "" {
		return ""
	}
	style, icon := m.styleAndIcon()
	return style.Render(icon + m.message)
}

// ViewWithMaxWidth renders the toast, truncating the message so the
// rendered string fits within maxWidth.
func (m ToastModel) ViewWithMaxWidth(maxWidth int) string {
	if !m.visible || m.message == "" {
		return ""
	}
	style, icon := m.styleAndIcon()

	if maxWidth <= 0 {
		return style.Render(icon + m.message)
	}

	rendered := style.Render(icon + m.message)
	if lipgloss.Width(rendered) <= maxWidth {
		return rendered
	}

	// The toast styles pad one column on each side.
	availableMsg := maxWidth - 2 - lipgloss.Width(icon)
	if availableMsg < 0 {
		availableMsg = 0
	}

	msg := m.message
	if lipgloss.Width(msg) > availableMsg {
		if availableMsg <= 3 {
			msg = msg[:min(len(msg), availableMsg)]
		} else {
			msg = msg[:min(len(msg), availableMsg-3)] + "..."
		}
	}

	return style.Render(icon + msg)
}
