package views

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mcpdial/mcpdial/internal/tui/theme"
)

// ArgsFormResult is sent when the user submits or cancels tool arguments.
type ArgsFormResult struct {
	Tool      string
	Args      json.RawMessage // nil when the arguments were left empty
	Submitted bool
}

// ArgsFormModel prompts for the JSON arguments of a tool call.
type ArgsFormModel struct {
	theme   theme.Theme
	visible bool
	width   int
	height  int

	form *huh.Form

	tool     string
	desc     string
	argsJSON string
}

// NewArgsForm creates a new argument form.
func NewArgsForm(th theme.Theme) ArgsFormModel {
	return ArgsFormModel{theme: th}
}

// Show displays the form for a tool, prefilled with a skeleton built
// from the tool's input schema. Returns a tea.Cmd to initialize it.
func (m *ArgsFormModel) Show(tool, description string, schema json.RawMessage) tea.Cmd {
	m.visible = true
	m.tool = tool
	m.desc = description
	m.argsJSON = schemaSkeleton(schema)
	m.buildForm()
	return m.form.Init()
}

func (m *ArgsFormModel) buildForm() {
	formTheme := huh.ThemeBase16()
	orange := lipgloss.AdaptiveColor{Light: "#EA580C", Dark: "#FB923C"}
	formTheme.Focused.Title = formTheme.Focused.Title.Foreground(orange)
	formTheme.Blurred.Title = formTheme.Blurred.Title.Foreground(orange)

	desc := m.desc
	if desc == "" {
		desc = "JSON object passed as tool arguments"
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Arguments for " + m.tool).
				Description(desc).
				Value(&m.argsJSON).
				Lines(8).
				Validate(func(s string) error {
					s = strings.TrimSpace(s)
					if s == "" {
						return nil
					}
					var obj map[string]any
					if err := json.Unmarshal([]byte(s), &obj); err != nil {
						return fmt.Errorf("not a JSON object: %v", err)
					}
					return nil
				}),
		),
	).WithTheme(formTheme).
		WithWidth(64).
		WithShowHelp(true).
		WithShowErrors(true)
}

// Hide hides the form.
func (m *ArgsFormModel) Hide() {
	m.visible = false
	m.form = nil
}

// IsVisible returns whether the form is visible.
func (m ArgsFormModel) IsVisible() bool {
	return m.visible
}

// SetSize sets the available size for the form.
func (m *ArgsFormModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Update handles messages for the form.
// Uses a pointer receiver because huh binds pointers to the field values.
func (m *ArgsFormModel) Update(msg tea.Msg) tea.Cmd {
	if !m.visible || m.form == nil {
		return nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
		m.visible = false
		tool := m.tool
		return func() tea.Msg {
			return ArgsFormResult{Tool: tool, Submitted: false}
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.visible = false
		tool := m.tool
		args := parseToolArgs(m.argsJSON)
		return func() tea.Msg {
			return ArgsFormResult{Tool: tool, Args: args, Submitted: true}
		}
	}

	if m.form.State == huh.StateAborted {
		m.visible = false
		tool := m.tool
		return func() tea.Msg {
			return ArgsFormResult{Tool: tool, Submitted: false}
		}
	}

	return cmd
}

// parseToolArgs normalizes the entered text: empty or "{}" means no
// arguments at all.
func parseToolArgs(s string) json.RawMessage {
	s = strings.TrimSpace(s)
	if s == "" || s == "{}" {
		return nil
	}
	return json.RawMessage(s)
}

// schemaSkeleton renders a starter JSON object from a tool input
// schema, one zero value per property. Tools without properties get an
// empty object.
func schemaSkeleton(schema json.RawMessage) string {
	if len(schema) == 0 {
		return "{}"
	}

	var parsed struct {
		Properties map[string]struct {
			Type string `json:"type"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(schema, &parsed); err != nil || len(parsed.Properties) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(parsed.Properties))
	for k := range parsed.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("{\n")
	for i, k := range keys {
		var zero string
		switch parsed.Properties[k].Type {
		case "number", "integer":
			zero = "0"
		case "boolean":
			zero = "false"
		case "array":
			zero = "[]"
		case "object":
			zero = "{}"
		default:
			zero = `""`
		}
		fmt.Fprintf(&b, "  %q: %s", k, zero)
		if i < len(keys)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

// View renders the form.
func (m ArgsFormModel) View() string {
	if !m.visible || m.form == nil {
		return ""
	}
	return m.form.View()
}

// RenderOverlay renders the form as a centered overlay.
func (m ArgsFormModel) RenderOverlay(base string, width, height int) string {
	if !m.visible {
		return base
	}

	dialogWidth := 72
	if width > 0 && width < 82 {
		dialogWidth = width - 10
	}

	content := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Primary.GetForeground()).
		Padding(1, 2).
		Width(dialogWidth).
		Render(m.View())

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
