package views

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mcpdial/mcpdial/internal/mcp"
	"github.com/mcpdial/mcpdial/internal/tui/theme"
)

// ToolItem represents a tool in the list.
type ToolItem struct {
	Tool mcp.Tool

	// Tokens is the approximate prompt cost of advertising this tool.
	Tokens int
}

func (i ToolItem) Title() string       { return i.Tool.Name }
func (i ToolItem) Description() string { return i.Tool.Description }
func (i ToolItem) FilterValue() string { return i.Tool.Name }

// ToolListModel lists the tools of a connected server.
type ToolListModel struct {
	list    list.Model
	theme   theme.Theme
	width   int
	height  int
	focused bool
}

// NewToolList creates a new tool list view.
func NewToolList(theme theme.Theme) ToolListModel {
	delegate := newToolDelegate(theme)
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Tools"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.Styles.Title = theme.Title

	return ToolListModel{
		list:  l,
		theme: theme,
	}
}

// SetServer retitles the list for the server the tools came from. The
// token total covers every listed tool.
func (m *ToolListModel) SetServer(server string, totalTokens int) {
	title := "Tools · " + server
	if totalTokens > 0 {
		title += fmt.Sprintf("  (%d tok)", totalTokens)
	}
	m.list.Title = title
}

// SetItems updates the tool list items.
func (m *ToolListModel) SetItems(items []ToolItem) {
	listItems := make([]list.Item, len(items))
	for i, item := range items {
		listItems[i] = item
	}
	m.list.SetItems(listItems)
	m.list.ResetSelected()
}

// SetSize sets the dimensions of the list.
func (m *ToolListModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	listWidth := width - 4
	listHeight := height - 2
	if listWidth < 10 {
		listWidth = 10
	}
	if listHeight < 3 {
		listHeight = 3
	}
	m.list.SetSize(listWidth, listHeight)
}

// SetFocused sets whether the list is focused.
func (m *ToolListModel) SetFocused(focused bool) {
	m.focused = focused
}

// SelectedItem returns the currently selected tool.
func (m *ToolListModel) SelectedItem() *ToolItem {
	item := m.list.SelectedItem()
	if item == nil {
		return nil
	}
	ti := item.(ToolItem)
	return &ti
}

// Update implements tea.Model.
func (m ToolListModel) Update(msg tea.Msg) (ToolListModel, tea.Cmd) {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m ToolListModel) View() string {
	style := m.theme.Pane
	if m.focused {
		style = m.theme.PaneFocused
	}
	return style.Width(m.width - 2).Render(m.list.View())
}

// toolDelegate renders tool items with their token cost.
type toolDelegate struct {
	theme theme.Theme
}

func newToolDelegate(theme theme.Theme) toolDelegate {
	return toolDelegate{theme: theme}
}

func (d toolDelegate) Height() int                             { return 2 }
func (d toolDelegate) Spacing() int                            { return 1 }
func (d toolDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d toolDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(ToolItem)
	if !ok {
		return
	}

	selected := index == m.Index()

	var line1 string
	if selected {
		line1 = d.theme.Primary.Render(">") + " " + d.theme.ItemSelected.Render(ti.Tool.Name)
	} else {
		line1 = "  " + d.theme.Item.Render(ti.Tool.Name)
	}
	if ti.Tokens > 0 {
		line1 += "  " + d.theme.Faint.Render(fmt.Sprintf("~%d tok", ti.Tokens))
	}

	desc := ti.Tool.Description
	if desc == "" {
		desc = "(no description)"
	}
	maxDescLen := 60
	if len(desc) > maxDescLen {
		desc = desc[:maxDescLen-3] + "..."
	}
	line2 := "   " + d.theme.Muted.Render(desc)

	fmt.Fprint(w, line1+"\n"+line2)
}
