// Package render writes decoded MCP results and capability listings to a
// terminal. Text results pass through byte for byte so server-emitted
// ANSI styling survives; structured results are pretty-printed.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mcpdial/mcpdial/internal/mcp"
)

var (
	styleName   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#EA580C", Dark: "#FB923C"})
	styleMuted  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A9B1D6"})
	styleDanger = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B00020", Dark: "#F7768E"})
	styleRole   = lipgloss.NewStyle().Bold(true)
)

// Renderer writes human-readable output. With Styled false every write is
// plain text, for pipes and --plain mode.
type Renderer struct {
	Out    io.Writer
	Styled bool
}

// New creates a renderer writing to out.
func New(out io.Writer, styled bool) *Renderer {
	return &Renderer{Out: out, Styled: styled}
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if r.Styled {
		return s.Render(text)
	}
	return text
}

// Value writes a decoded tool result. JSON values are pretty-printed;
// text values are written verbatim, with a trailing newline added only
// when the text does not end in one.
func (r *Renderer) Value(v mcp.Value) error {
	switch v.Kind {
	case mcp.ValueJSON:
		data, err := json.MarshalIndent(v.JSON, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		_, err = fmt.Fprintln(r.Out, string(data))
		return err
	default:
		if _, err := io.WriteString(r.Out, v.Text); err != nil {
			return err
		}
		if !strings.HasSuffix(v.Text, "\n") {
			if _, err := io.WriteString(r.Out, "\n"); err != nil {
				return err
			}
		}
		return nil
	}
}

// Invalid writes a banner for a result that could not be decoded, followed
// by the raw result payload when one is attached.
func (r *Renderer) Invalid(inv *mcp.InvalidResultError) error {
	banner := "invalid or error result: " + inv.Reason
	if _, err := fmt.Fprintln(r.Out, r.style(styleDanger, banner)); err != nil {
		return err
	}
	if inv.Result == nil {
		return nil
	}
	data, err := json.MarshalIndent(inv.Result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal raw result: %w", err)
	}
	_, err = fmt.Fprintln(r.Out, string(data))
	return err
}

// JSON writes any value as indented JSON, for --json output.
func (r *Renderer) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.Out, string(data))
	return err
}

// Tools writes a tool listing. When counts is non-nil a token estimate
// column is included, keyed by tool name.
func (r *Renderer) Tools(tools []mcp.Tool, counts map[string]int) error {
	if len(tools) == 0 {
		_, err := fmt.Fprintln(r.Out, "No tools")
		return err
	}

	nameWidth := len("NAME")
	for _, t := range tools {
		if len(t.Name) > nameWidth {
			nameWidth = len(t.Name)
		}
	}

	header := fmt.Sprintf("%-*s", nameWidth, "NAME")
	if counts != nil {
		header += fmt.Sprintf("  %8s", "TOKENS")
	}
	header += "  DESCRIPTION"
	if _, err := fmt.Fprintln(r.Out, r.style(styleMuted, header)); err != nil {
		return err
	}

	for _, t := range tools {
		line := r.style(styleName, fmt.Sprintf("%-*s", nameWidth, t.Name))
		if counts != nil {
			line += fmt.Sprintf("  %8d", counts[t.Name])
		}
		if t.Description != "" {
			line += "  " + t.Description
		}
		if _, err := fmt.Fprintln(r.Out, line); err != nil {
			return err
		}
	}
	return nil
}

// Resources writes a resource listing.
func (r *Renderer) Resources(resources []mcp.Resource) error {
	if len(resources) == 0 {
		_, err := fmt.Fprintln(r.Out, "No resources")
		return err
	}

	uriWidth := len("URI")
	mimeWidth := len("MIMETYPE")
	for _, res := range resources {
		if len(res.URI) > uriWidth {
			uriWidth = len(res.URI)
		}
		if len(res.MimeType) > mimeWidth {
			mimeWidth = len(res.MimeType)
		}
	}

	header := fmt.Sprintf("%-*s  %-*s  DESCRIPTION", uriWidth, "URI", mimeWidth, "MIMETYPE")
	if _, err := fmt.Fprintln(r.Out, r.style(styleMuted, header)); err != nil {
		return err
	}

	for _, res := range resources {
		desc := res.Description
		if desc == "" {
			desc = res.Name
		}
		line := r.style(styleName, fmt.Sprintf("%-*s", uriWidth, res.URI))
		line += fmt.Sprintf("  %-*s", mimeWidth, res.MimeType)
		if desc != "" {
			line += "  " + desc
		}
		if _, err := fmt.Fprintln(r.Out, line); err != nil {
			return err
		}
	}
	return nil
}

// Prompts writes a prompt listing. Required arguments are marked with '*'.
func (r *Renderer) Prompts(prompts []mcp.Prompt) error {
	if len(prompts) == 0 {
		_, err := fmt.Fprintln(r.Out, "No prompts")
		return err
	}

	nameWidth := len("NAME")
	argWidth := len("ARGUMENTS")
	argsFor := func(p mcp.Prompt) string {
		parts := make([]string, len(p.Arguments))
		for i, a := range p.Arguments {
			parts[i] = a.Name
			if a.Required {
				parts[i] += "*"
			}
		}
		return strings.Join(parts, ",")
	}
	for _, p := range prompts {
		if len(p.Name) > nameWidth {
			nameWidth = len(p.Name)
		}
		if n := len(argsFor(p)); n > argWidth {
			argWidth = n
		}
	}

	header := fmt.Sprintf("%-*s  %-*s  DESCRIPTION", nameWidth, "NAME", argWidth, "ARGUMENTS")
	if _, err := fmt.Fprintln(r.Out, r.style(styleMuted, header)); err != nil {
		return err
	}

	for _, p := range prompts {
		line := r.style(styleName, fmt.Sprintf("%-*s", nameWidth, p.Name))
		line += fmt.Sprintf("  %-*s", argWidth, argsFor(p))
		if p.Description != "" {
			line += "  " + p.Description
		}
		if _, err := fmt.Fprintln(r.Out, line); err != nil {
			return err
		}
	}
	return nil
}

// ResourceContents writes the contents of a read resource. Text contents
// pass through verbatim; binary contents are summarized, not dumped.
func (r *Renderer) ResourceContents(rc *mcp.ResourceContents) error {
	for _, c := range rc.Contents {
		if c.Text != "" {
			if _, err := io.WriteString(r.Out, c.Text); err != nil {
				return err
			}
			if !strings.HasSuffix(c.Text, "\n") {
				if _, err := io.WriteString(r.Out, "\n"); err != nil {
					return err
				}
			}
			continue
		}
		if c.Blob != "" {
			mime := c.MimeType
			if mime == "" {
				mime = "unknown"
			}
			summary := fmt.Sprintf("(binary %s, %d bytes base64)", mime, len(c.Blob))
			if _, err := fmt.Fprintln(r.Out, r.style(styleMuted, summary)); err != nil {
				return err
			}
		}
	}
	return nil
}

// PromptResult writes the rendered messages of a prompt, one role label
// per message.
func (r *Renderer) PromptResult(pr *mcp.PromptResult) error {
	if pr.Description != "" {
		if _, err := fmt.Fprintln(r.Out, r.style(styleMuted, pr.Description)); err != nil {
			return err
		}
	}
	for _, msg := range pr.Messages {
		label := "[" + msg.Role + "]"
		if _, err := fmt.Fprintln(r.Out, r.style(styleRole, label)); err != nil {
			return err
		}
		if text, ok := msg.Content.Text(); ok {
			if _, err := io.WriteString(r.Out, text); err != nil {
				return err
			}
			if !strings.HasSuffix(text, "\n") {
				if _, err := io.WriteString(r.Out, "\n"); err != nil {
					return err
				}
			}
			continue
		}
		// Non-text content is shown raw
		data, err := json.MarshalIndent(json.RawMessage(msg.Content), "", "  ")
		if err != nil {
			return fmt.Errorf("marshal prompt content: %w", err)
		}
		if _, err := fmt.Fprintln(r.Out, string(data)); err != nil {
			return err
		}
	}
	return nil
}
