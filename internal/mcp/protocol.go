package mcp

import (
	"encoding/json"
)

// SupportedProtocolVersions lists the MCP protocol versions we support,
// in order of preference (newest first). The handshake tries each version
// until one is accepted by the server.
var SupportedProtocolVersions = []string{
	"2025-06-18", // current
	"2025-03-26",
	"2024-11-05", // legacy fallback
}

// rpcRequest is a JSON-RPC 2.0 request. A zero ID with omitempty produces
// a notification.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// rpcInbound is any message arriving from the server. A nil ID with a
// method is a notification; a non-nil ID with a method is a server-issued
// request; a non-nil ID without a method is a response to one of ours.
type rpcInbound struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// initializeParams is the params for the initialize request.
type initializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      clientInfo     `json:"clientInfo"`
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// initializeResult is the result of the initialize request.
type initializeResult struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Capabilities    json.RawMessage `json:"capabilities,omitempty"`
	ServerInfo      serverInfo      `json:"serverInfo"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Tool describes one callable tool exposed by the server.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// Resource describes one readable resource exposed by the server.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Prompt describes one templated prompt exposed by the server.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptArgument describes one argument a prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Kind selects which capability listing to request.
type Kind string

const (
	KindTools     Kind = "tools"
	KindResources Kind = "resources"
	KindPrompts   Kind = "prompts"
)

// Capability is the uniform descriptor view over tools, resources and
// prompts: a name, a human description, and an input schema where the
// kind has one. Listings are passed through as the server sent them;
// duplicate names are not filtered.
type Capability struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// toolCallParams is the params for tools/call. Arguments pass through
// verbatim; no validation against the tool's input schema is performed.
type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolResult represents the result of a tool call: an ordered content
// sequence plus the server's error flag.
type ToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ContentBlock represents one content block in a tool result.
// Uses json.RawMessage to preserve all fields from upstream servers,
// including non-text content types (images, resources, etc.).
type ContentBlock json.RawMessage

// MarshalJSON implements json.Marshaler.
func (c ContentBlock) MarshalJSON() ([]byte, error) {
	return json.RawMessage(c), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *ContentBlock) UnmarshalJSON(data []byte) error {
	*c = ContentBlock(data)
	return nil
}

// textBlock is the wire shape of a text content block.
type textBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Type returns the block's "type" field, or "" if absent or unparseable.
func (c ContentBlock) Type() string {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(json.RawMessage(c), &probe); err != nil {
		return ""
	}
	return probe.Type
}

// Text returns the block's text payload. ok is false when the block is
// not a text block.
func (c ContentBlock) Text() (text string, ok bool) {
	var probe textBlock
	if err := json.Unmarshal(json.RawMessage(c), &probe); err != nil {
		return "", false
	}
	if probe.Type != "text" {
		return "", false
	}
	return probe.Text, true
}

// TextContent builds a text content block. Used by tests and callers that
// construct results by hand.
func TextContent(text string) ContentBlock {
	data, _ := json.Marshal(textBlock{Type: "text", Text: text})
	return ContentBlock(data)
}

// listToolsResult is the result of tools/list.
type listToolsResult struct {
	Tools []Tool `json:"tools"`
}

// listResourcesResult is the result of resources/list.
type listResourcesResult struct {
	Resources []Resource `json:"resources"`
}

// listPromptsResult is the result of prompts/list.
type listPromptsResult struct {
	Prompts []Prompt `json:"prompts"`
}

// readResourceParams is the params for resources/read.
type readResourceParams struct {
	URI string `json:"uri"`
}

// ResourceContents is the result of resources/read: the ordered contents
// of one resource.
type ResourceContents struct {
	Contents []ResourceContent `json:"contents"`
}

// ResourceContent is one unit of a read resource, textual or binary.
type ResourceContent struct {
	URI      string `json:"uri,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// getPromptParams is the params for prompts/get.
type getPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// PromptResult is the result of prompts/get: rendered prompt messages.
type PromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// PromptMessage is one rendered message of a prompt.
type PromptMessage struct {
	Role    string       `json:"role"`
	Content ContentBlock `json:"content"`
}
