package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mcpdial/mcpdial/internal/mcp"
	"github.com/mcpdial/mcpdial/internal/testutil"
)

func TestRenderer_ValueText_Verbatim(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	if err := r.Value(mcp.Value{Kind: mcp.ValueText, Text: "hello world"}); err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if buf.String() != "hello world\n" {
		t.Errorf("expected text plus newline, got %q", buf.String())
	}

	buf.Reset()
	if err := r.Value(mcp.Value{Kind: mcp.ValueText, Text: "line one\nline two\n"}); err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	// Already newline-terminated, nothing appended
	if buf.String() != "line one\nline two\n" {
		t.Errorf("expected verbatim text, got %q", buf.String())
	}
}

func TestRenderer_ValueText_ANSIPassthrough(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	text := "\x1b[1;31merror:\x1b[0m something \x1b[4mimportant\x1b[0m"
	if err := r.Value(mcp.Value{Kind: mcp.ValueText, Text: text}); err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	if !strings.Contains(buf.String(), text) {
		t.Errorf("expected ANSI sequences to pass through unmodified, got %q", buf.String())
	}
}

func TestRenderer_ValueJSON_Pretty(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	v := mcp.Value{Kind: mcp.ValueJSON, JSON: map[string]any{"ok": true}}
	if err := r.Value(v); err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	want := "{\n  \"ok\": true\n}\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestRenderer_Invalid(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	inv := &mcp.InvalidResultError{
		Reason: "server flagged an error",
		Result: &mcp.ToolResult{
			Content: []mcp.ContentBlock{mcp.TextContent("boom")},
			IsError: true,
		},
	}
	if err := r.Invalid(inv); err != nil {
		t.Fatalf("Invalid failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "invalid or error result: server flagged an error") {
		t.Errorf("expected banner in output, got %q", out)
	}
	if !strings.Contains(out, `"isError": true`) {
		t.Errorf("expected raw result dump in output, got %q", out)
	}
	if !strings.Contains(out, "boom") {
		t.Errorf("expected result content in output, got %q", out)
	}
}

func TestRenderer_Invalid_NoResult(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	if err := r.Invalid(&mcp.InvalidResultError{Reason: "no result"}); err != nil {
		t.Fatalf("Invalid failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "invalid or error result: no result") {
		t.Errorf("expected banner in output, got %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("expected banner only, got %q", out)
	}
}

func TestRenderer_Tools(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	tools := []mcp.Tool{
		{Name: "about_info", Description: "Report server details"},
		{Name: "add", Description: "Add two numbers"},
	}
	if err := r.Tools(tools, nil); err != nil {
		t.Fatalf("Tools failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "NAME") {
		t.Errorf("expected NAME header, got %q", lines[0])
	}
	if strings.Contains(lines[0], "TOKENS") {
		t.Errorf("expected no TOKENS column without counts, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "about_info") || !strings.Contains(lines[1], "Report server details") {
		t.Errorf("unexpected first row: %q", lines[1])
	}

	// Names pad to a common column width
	if strings.Index(lines[1], "Report") != strings.Index(lines[2], "Add") {
		t.Errorf("expected aligned description column:\n%q\n%q", lines[1], lines[2])
	}
}

func TestRenderer_Tools_WithCounts(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	tools := []mcp.Tool{{Name: "add", Description: "Add two numbers"}}
	counts := map[string]int{"add": 57}
	if err := r.Tools(tools, counts); err != nil {
		t.Fatalf("Tools failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "TOKENS") {
		t.Errorf("expected TOKENS header, got %q", out)
	}
	if !strings.Contains(out, "57") {
		t.Errorf("expected token count in output, got %q", out)
	}
}

func TestRenderer_Tools_Empty(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	if err := r.Tools(nil, nil); err != nil {
		t.Fatalf("Tools failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No tools") {
		t.Errorf("expected empty message, got %q", buf.String())
	}
}

func TestRenderer_Tools_StyledAlignment(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, true)

	tools := []mcp.Tool{
		{Name: "a", Description: "first"},
		{Name: "longer_name", Description: "second"},
	}
	if err := r.Tools(tools, nil); err != nil {
		t.Fatalf("Tools failed: %v", err)
	}

	// Styling must not break column alignment
	plain := testutil.StripANSI(buf.String())
	lines := strings.Split(strings.TrimRight(plain, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if strings.Index(lines[1], "first") != strings.Index(lines[2], "second") {
		t.Errorf("expected aligned columns after styling:\n%q\n%q", lines[1], lines[2])
	}
}

func TestRenderer_Resources(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	resources := []mcp.Resource{
		{URI: "demo://readme", Name: "readme", MimeType: "text/plain"},
		{URI: "demo://logo", Description: "The project logo", MimeType: "image/png"},
	}
	if err := r.Resources(resources); err != nil {
		t.Fatalf("Resources failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "URI") || !strings.Contains(out, "MIMETYPE") {
		t.Errorf("expected header columns, got %q", out)
	}
	if !strings.Contains(out, "demo://readme") {
		t.Errorf("expected resource URI, got %q", out)
	}
	// Description falls back to the resource name
	if !strings.Contains(out, "readme") {
		t.Errorf("expected name fallback in description column, got %q", out)
	}
	if !strings.Contains(out, "The project logo") {
		t.Errorf("expected description, got %q", out)
	}
}

func TestRenderer_Resources_Empty(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	if err := r.Resources(nil); err != nil {
		t.Fatalf("Resources failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No resources") {
		t.Errorf("expected empty message, got %q", buf.String())
	}
}

func TestRenderer_Prompts(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	prompts := []mcp.Prompt{
		{
			Name:        "summarize",
			Description: "Summarize a document",
			Arguments: []mcp.PromptArgument{
				{Name: "text", Required: true},
				{Name: "style"},
			},
		},
	}
	if err := r.Prompts(prompts); err != nil {
		t.Fatalf("Prompts failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "summarize") {
		t.Errorf("expected prompt name, got %q", out)
	}
	// Required arguments carry a '*' marker
	if !strings.Contains(out, "text*,style") {
		t.Errorf("expected argument list with required marker, got %q", out)
	}
}

func TestRenderer_ResourceContents(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	rc := &mcp.ResourceContents{
		Contents: []mcp.ResourceContent{
			{URI: "demo://readme", MimeType: "text/plain", Text: "This is the demo readme."},
			{URI: "demo://logo", MimeType: "image/png", Blob: "aGVsbG8="},
		},
	}
	if err := r.ResourceContents(rc); err != nil {
		t.Fatalf("ResourceContents failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "This is the demo readme.") {
		t.Errorf("expected text content, got %q", out)
	}
	if !strings.Contains(out, "(binary image/png, 8 bytes base64)") {
		t.Errorf("expected binary summary, got %q", out)
	}
	if strings.Contains(out, "aGVsbG8=") {
		t.Errorf("expected blob not to be dumped, got %q", out)
	}
}

func TestRenderer_PromptResult(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	pr := &mcp.PromptResult{
		Description: "A friendly greeting",
		Messages: []mcp.PromptMessage{
			{Role: "user", Content: mcp.TextContent("Say hello to the user.")},
		},
	}
	if err := r.PromptResult(pr); err != nil {
		t.Fatalf("PromptResult failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "A friendly greeting") {
		t.Errorf("expected description, got %q", out)
	}
	if !strings.Contains(out, "[user]") {
		t.Errorf("expected role label, got %q", out)
	}
	if !strings.Contains(out, "Say hello to the user.") {
		t.Errorf("expected message text, got %q", out)
	}
}

func TestRenderer_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, false)

	if err := r.JSON(map[string]int{"count": 2}); err != nil {
		t.Fatalf("JSON failed: %v", err)
	}

	var decoded map[string]int
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["count"] != 2 {
		t.Errorf("expected count 2, got %d", decoded["count"])
	}
}
