package views

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mcpdial/mcpdial/internal/tui/theme"
)

// ResultViewModel displays one tool call result in a scrollable pane.
type ResultViewModel struct {
	theme    theme.Theme
	viewport viewport.Model
	title    string
	width    int
	height   int
	focused  bool
}

// NewResultView creates a new result view.
func NewResultView(theme theme.Theme) ResultViewModel {
	return ResultViewModel{
		theme:    theme,
		viewport: viewport.New(0, 0),
	}
}

// SetResult replaces the displayed content. The title names where the
// content came from, e.g. "demo ▸ read_file".
func (m *ResultViewModel) SetResult(title, content string) {
	m.title = title
	m.viewport.SetContent(content)
	m.viewport.GotoTop()
}

// SetSize sets the dimensions.
func (m *ResultViewModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	// RenderPane consumes 2 columns of border and 2 of padding, plus a
	// header and footer line.
	m.viewport.Width = width - 4
	m.viewport.Height = height - 2
	if m.viewport.Width < 10 {
		m.viewport.Width = 10
	}
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
}

// SetFocused sets whether the pane is focused.
func (m *ResultViewModel) SetFocused(focused bool) {
	m.focused = focused
}

// ScrollPercent returns how far down the viewport is scrolled.
func (m ResultViewModel) ScrollPercent() float64 {
	return m.viewport.ScrollPercent()
}

// Update implements tea.Model.
func (m ResultViewModel) Update(msg tea.Msg) (ResultViewModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m ResultViewModel) View() string {
	title := m.title
	if title == "" {
		title = "Result"
	}
	return m.theme.RenderPane(title, m.viewport.View(), m.width, m.focused)
}
