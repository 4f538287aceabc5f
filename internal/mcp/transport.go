// Package mcp implements the MCP client session core: transports over
// spawned subprocesses and HTTP event streams, the initialize handshake,
// request/response correlation, and result decoding.
package mcp

import (
	"context"
)

// Transport is a bidirectional message stream to an MCP server.
// Implementations own the underlying OS resource (child process or network
// connection) and must release it deterministically on Close, on every
// exit path.
type Transport interface {
	// Send writes one JSON-RPC message. Sends are serialized by the
	// implementation so concurrent callers never interleave frames.
	Send(ctx context.Context, msg []byte) error
	// Receive blocks until the next complete JSON-RPC message is
	// available. It returns io.EOF when the stream ends.
	Receive(ctx context.Context) ([]byte, error)
	// Close releases the transport. Safe to call more than once.
	Close() error
}
