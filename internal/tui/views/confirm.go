package views

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mcpdial/mcpdial/internal/tui/theme"
)

// ConfirmResult is sent when the user answers the confirmation dialog.
type ConfirmResult struct {
	Confirmed bool
	Tag       string // identifies which action was confirmed
}

// ConfirmModel is a reusable yes/no dialog.
type ConfirmModel struct {
	theme   theme.Theme
	visible bool
	title   string
	message string
	tag     string
	width   int
}

// NewConfirm creates a new confirmation dialog.
func NewConfirm(th theme.Theme) ConfirmModel {
	return ConfirmModel{theme: th}
}

// Show displays the dialog with the given title and message. The tag
// comes back in the ConfirmResult so the caller knows what was answered.
func (m *ConfirmModel) Show(title, message, tag string) {
	m.visible = true
	m.title = title
	m.message = message
	m.tag = tag
}

// Hide hides the dialog without answering.
func (m *ConfirmModel) Hide() {
	m.visible = false
}

// IsVisible returns whether the dialog is visible.
func (m ConfirmModel) IsVisible() bool {
	return m.visible
}

// SetSize records the window size for centering.
func (m *ConfirmModel) SetSize(width, _ int) {
	m.width = width
}

// Update handles key events while the dialog is visible.
func (m ConfirmModel) Update(msg tea.Msg) (ConfirmModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "y", "Y":
			m.visible = false
			tag := m.tag
			return m, func() tea.Msg {
				return ConfirmResult{Confirmed: true, Tag: tag}
			}
		case "n", "N", "esc":
			m.visible = false
			tag := m.tag
			return m, func() tea.Msg {
				return ConfirmResult{Confirmed: false, Tag: tag}
			}
		}
	}

	return m, nil
}

// View renders the dialog box.
func (m ConfirmModel) View() string {
	if !m.visible {
		return ""
	}

	dialogWidth := 50
	if m.width > 0 && m.width < 60 {
		dialogWidth = m.width - 10
	}

	title := m.title
	if title == "" {
		title = "Confirm"
	}

	content := m.theme.Danger.Bold(true).Render(title) + "\n\n" +
		m.message + "\n\n" +
		m.theme.Muted.Render("[y]es  [n]o")

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Danger.GetForeground()).
		Padding(1, 2).
		Width(dialogWidth).
		Render(content)
}

// RenderOverlay centers the dialog on top of the base content.
func (m ConfirmModel) RenderOverlay(base string, width, height int) string {
	if !m.visible {
		return base
	}

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		m.View(),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#1F2937"}),
	)
}
