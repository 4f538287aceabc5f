package views

import (
	"encoding/json"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mcpdial/mcpdial/internal/tui/theme"
)

func TestArgsForm_ShowPrefillsSkeleton(t *testing.T) {
	th := theme.New()
	form := NewArgsForm(th)

	schema := json.RawMessage(`{
		"type": "object",
		"properties": {
			"message": {"type": "string"},
			"count": {"type": "integer"}
		}
	}`)
	form.Show("echo", "Echo a message", schema)

	if !form.IsVisible() {
		t.Error("form should be visible after Show")
	}
	if form.tool != "echo" {
		t.Errorf("expected tool 'echo', got %q", form.tool)
	}
	want := "{\n  \"count\": 0,\n  \"message\": \"\"\n}"
	if form.argsJSON != want {
		t.Errorf("expected skeleton %q, got %q", want, form.argsJSON)
	}
}

func TestArgsForm_ShowWithoutSchema(t *testing.T) {
	th := theme.New()
	form := NewArgsForm(th)

	form.Show("ping", "", nil)

	if form.argsJSON != "{}" {
		t.Errorf("expected empty object for a schemaless tool, got %q", form.argsJSON)
	}
}

func TestArgsForm_EscapeCancels(t *testing.T) {
	th := theme.New()
	form := NewArgsForm(th)
	form.Show("echo", "", nil)

	cmd := form.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if form.IsVisible() {
		t.Error("form should close on Escape")
	}
	if cmd == nil {
		t.Fatal("expected a result command")
	}
	result, ok := cmd().(ArgsFormResult)
	if !ok {
		t.Fatal("expected an ArgsFormResult")
	}
	if result.Submitted {
		t.Error("expected a cancelled result")
	}
	if result.Tool != "echo" {
		t.Errorf("expected tool 'echo' in the result, got %q", result.Tool)
	}
}

func TestArgsForm_Hide(t *testing.T) {
	th := theme.New()
	form := NewArgsForm(th)
	form.Show("echo", "", nil)

	form.Hide()
	if form.IsVisible() {
		t.Error("form should not be visible after Hide")
	}
}

func TestSchemaSkeleton(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		want   string
	}{
		{"empty", "", "{}"},
		{"invalid json", "not json", "{}"},
		{"no properties", `{"type": "object"}`, "{}"},
		{
			"sorted zero values",
			`{"properties": {
				"text": {"type": "string"},
				"num": {"type": "number"},
				"flag": {"type": "boolean"},
				"items": {"type": "array"},
				"nested": {"type": "object"}
			}}`,
			"{\n  \"flag\": false,\n  \"items\": [],\n  \"nested\": {},\n  \"num\": 0,\n  \"text\": \"\"\n}",
		},
		{
			"untyped property defaults to string",
			`{"properties": {"anything": {}}}`,
			"{\n  \"anything\": \"\"\n}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := schemaSkeleton(json.RawMessage(tt.schema))
			if got != tt.want {
				t.Errorf("schemaSkeleton = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseToolArgs(t *testing.T) {
	if got := parseToolArgs(""); got != nil {
		t.Errorf("expected nil for empty input, got %q", got)
	}
	if got := parseToolArgs("{}"); got != nil {
		t.Errorf("expected nil for an empty object, got %q", got)
	}
	if got := parseToolArgs("  {}  "); got != nil {
		t.Errorf("expected nil for a padded empty object, got %q", got)
	}

	got := parseToolArgs(` {"path": "/tmp"} `)
	if string(got) != `{"path": "/tmp"}` {
		t.Errorf("expected trimmed raw JSON, got %q", got)
	}
}
