package mcp

import (
	"encoding/json"
)

// ValueKind tags a decoded value.
type ValueKind int

const (
	// ValueJSON is a result whose text parsed as a JSON document.
	ValueJSON ValueKind = iota
	// ValueText is a result carried through as literal text, byte for
	// byte. Terminal escape sequences embedded by the server survive
	// unmodified.
	ValueText
)

func (k ValueKind) String() string {
	switch k {
	case ValueJSON:
		return "json"
	case ValueText:
		return "text"
	default:
		return "unknown"
	}
}

// Value is the decoded form of a tool result, ready for rendering: either
// a structured JSON value or the original text.
type Value struct {
	Kind ValueKind
	JSON any
	Text string
}

// Decode converts a tool result into a rendering-ready value.
//
// A result flagged as an error, with empty content, or whose first block
// is not textual fails with *InvalidResultError carrying the raw result;
// callers surface it rather than proceeding silently. Otherwise the first
// block's text is parsed as JSON when possible and passed through
// verbatim when not. Blocks beyond the first are not decoded but remain
// accessible on the result itself.
func Decode(result *ToolResult) (Value, error) {
	if result == nil {
		return Value{}, &InvalidResultError{Reason: "no result"}
	}
	if result.IsError {
		return Value{}, &InvalidResultError{Reason: "server flagged an error", Result: result}
	}
	if len(result.Content) == 0 {
		return Value{}, &InvalidResultError{Reason: "empty content", Result: result}
	}

	text, ok := result.Content[0].Text()
	if !ok {
		reason := "first content block is not text"
		if t := result.Content[0].Type(); t != "" {
			reason = "first content block has type " + t
		}
		return Value{}, &InvalidResultError{Reason: reason, Result: result}
	}

	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		return Value{Kind: ValueJSON, JSON: parsed}, nil
	}
	return Value{Kind: ValueText, Text: text}, nil
}
