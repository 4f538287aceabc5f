package views

import (
	"strings"
	"testing"

	"github.com/mcpdial/mcpdial/internal/mcp"
	"github.com/mcpdial/mcpdial/internal/tui/theme"
)

func TestToolList_SetServerTitle(t *testing.T) {
	th := theme.New()
	lst := NewToolList(th)

	lst.SetServer("demo", 27)
	if lst.list.Title != "Tools · demo  (27 tok)" {
		t.Errorf("unexpected title %q", lst.list.Title)
	}

	// A zero total leaves the token count off.
	lst.SetServer("demo", 0)
	if lst.list.Title != "Tools · demo" {
		t.Errorf("unexpected title %q", lst.list.Title)
	}
}

func TestToolList_SetItemsResetsSelection(t *testing.T) {
	th := theme.New()
	lst := NewToolList(th)

	lst.SetItems([]ToolItem{
		{Tool: mcp.Tool{Name: "read_file", Description: "Read a file"}, Tokens: 12},
		{Tool: mcp.Tool{Name: "write_file", Description: "Write a file"}, Tokens: 15},
	})

	selected := lst.SelectedItem()
	if selected == nil {
		t.Fatal("expected a selection after SetItems")
	}
	if selected.Tool.Name != "read_file" {
		t.Errorf("expected 'read_file' selected, got %q", selected.Tool.Name)
	}

	// Replacing the items snaps the cursor back to the top.
	lst.SetItems([]ToolItem{
		{Tool: mcp.Tool{Name: "only_tool"}},
	})
	if got := lst.SelectedItem(); got == nil || got.Tool.Name != "only_tool" {
		t.Error("expected the selection to reset to the new first item")
	}
}

func TestToolList_ViewShowsTokenCost(t *testing.T) {
	th := theme.New()
	lst := NewToolList(th)
	lst.SetSize(80, 20)
	lst.SetServer("demo", 27)
	lst.SetItems([]ToolItem{
		{Tool: mcp.Tool{Name: "read_file", Description: "Read a file from disk"}, Tokens: 12},
	})

	view := lst.View()
	if !strings.Contains(view, "read_file") {
		t.Error("expected the tool name in the view")
	}
	if !strings.Contains(view, "~12 tok") {
		t.Error("expected the per-tool token cost in the view")
	}
	if !strings.Contains(view, "27 tok") {
		t.Error("expected the token total in the title")
	}
}
