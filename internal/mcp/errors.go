package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Standard JSON-RPC error codes.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Failure conditions shared across the session lifecycle. RPC-level errors
// from the server are reported as *RPCError instead.
var (
	// ErrConnectionLost indicates the transport failed mid-session. Every
	// call pending at that moment fails with this condition and the
	// session moves to Closed.
	ErrConnectionLost = errors.New("connection lost")

	// ErrCallTimeout indicates a single call's timeout elapsed before its
	// response arrived. The call is abandoned client-side only; other
	// in-flight calls are unaffected and the session stays usable.
	ErrCallTimeout = errors.New("call timed out")

	// ErrSessionClosed is raised to every pending call when the session
	// is closed, and to any call attempted afterwards.
	ErrSessionClosed = errors.New("session closed")

	// ErrNotReady is returned by operations invoked before the handshake
	// completed or after the session left the Ready state.
	ErrNotReady = errors.New("session not ready")
)

// SpawnError indicates the child process for a command transport could not
// be started.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// FramingError indicates the peer produced a malformed or oversized frame.
// Framing errors are fatal to the transport; no partial-message recovery is
// attempted.
type FramingError struct {
	Reason string
	Frame  []byte
}

func (e *FramingError) Error() string {
	if len(e.Frame) == 0 {
		return "framing error: " + e.Reason
	}
	frame := e.Frame
	if len(frame) > 120 {
		frame = frame[:120]
	}
	return fmt.Sprintf("framing error: %s: %q", e.Reason, frame)
}

// HandshakeError indicates the initialize exchange failed. It is fatal to
// the session; the transport is released and the session never becomes
// Ready.
type HandshakeError struct {
	Reason string
	Err    error
}

func (e *HandshakeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("handshake failed: %s: %v", e.Reason, e.Err)
	}
	return "handshake failed: " + e.Reason
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// RPCError is a JSON-RPC 2.0 error object returned by the server for one
// request. It fails only that call; the session stays live.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// InvalidResultError indicates a tool result could not be decoded: the
// server flagged an error, the content was empty, or the first block was
// not textual. The raw result is attached so callers can print a
// diagnostic instead of silently proceeding.
type InvalidResultError struct {
	Reason string
	Result *ToolResult
}

func (e *InvalidResultError) Error() string {
	return "invalid result: " + e.Reason
}
