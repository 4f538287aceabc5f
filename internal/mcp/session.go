package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mcpdial/mcpdial/internal/events"
)

// DefaultCallTimeout is the default per-call timeout.
const DefaultCallTimeout = 30 * time.Second

// State is the session lifecycle state.
type State int32

const (
	StateUnopened State = iota
	StateHandshaking
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configure a session.
type Options struct {
	// ClientName and ClientVersion identify this client in the
	// initialize request. Defaults: "mcpdial" / "dev".
	ClientName    string
	ClientVersion string

	// CallTimeout bounds each call, including the handshake. Zero means
	// DefaultCallTimeout.
	CallTimeout time.Duration

	// ProtocolVersions overrides the version ladder tried during the
	// handshake. Nil means SupportedProtocolVersions.
	ProtocolVersions []string

	// Server is the display name used in events and logs.
	Server string

	// Logger receives session diagnostics. The zero value is silent.
	Logger zerolog.Logger

	// Bus, when set, receives state and notification events.
	Bus *events.Bus
}

// callOutcome is what a pending slot resolves to: a result, a server
// error, or the reason the session ended.
type callOutcome struct {
	result json.RawMessage
	err    error
}

// Session owns one Transport and implements the MCP client protocol on
// top of it: the initialize handshake, request/response correlation with
// unique monotonically increasing ids, typed capability operations, and
// teardown that fails every pending call.
//
// Multiple calls may be outstanding concurrently; a single background
// reader resolves them in whatever order the server responds.
type Session struct {
	transport Transport
	id        string
	server    string
	log       zerolog.Logger
	bus       *events.Bus

	clientName    string
	clientVersion string
	callTimeout   time.Duration

	nextID atomic.Int64
	state  atomic.Int32

	mu      sync.Mutex
	pending map[int64]chan callOutcome
	closed  bool
	reason  error

	done         chan struct{}
	shutdownOnce sync.Once

	recvCtx    context.Context
	recvCancel context.CancelFunc

	serverName      string
	serverVersion   string
	protocolVersion string
}

// Open performs the handshake over the given transport and returns a
// Ready session. On any handshake failure the transport is closed and no
// session is returned; reopening means building a new transport.
//
// The session takes ownership of the transport: nothing else may read or
// write it afterwards.
func Open(ctx context.Context, transport Transport, opts Options) (*Session, error) {
	if transport == nil {
		return nil, errors.New("nil transport")
	}

	name := opts.ClientName
	if name == "" {
		name = "mcpdial"
	}
	version := opts.ClientVersion
	if version == "" {
		version = "dev"
	}
	timeout := opts.CallTimeout
	if timeout == 0 {
		timeout = DefaultCallTimeout
	}
	versions := opts.ProtocolVersions
	if len(versions) == 0 {
		versions = SupportedProtocolVersions
	}
	server := opts.Server
	if server == "" {
		server = "server"
	}

	id := uuid.NewString()
	recvCtx, recvCancel := context.WithCancel(context.Background())
	s := &Session{
		transport:     transport,
		id:            id,
		server:        server,
		log:           opts.Logger.With().Str("session", id).Str("server", server).Logger(),
		bus:           opts.Bus,
		clientName:    name,
		clientVersion: version,
		callTimeout:   timeout,
		pending:       make(map[int64]chan callOutcome),
		done:          make(chan struct{}),
		recvCtx:       recvCtx,
		recvCancel:    recvCancel,
	}

	s.setState(StateHandshaking)
	if err := s.handshake(ctx, versions); err != nil {
		s.shutdown(err)
		return nil, err
	}
	s.setState(StateReady)
	s.log.Debug().
		Str("serverName", s.serverName).
		Str("protocolVersion", s.protocolVersion).
		Msg("session ready")

	go s.readLoop()
	return s, nil
}

// ID returns the session instance id, used to correlate logs and events.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// ServerName returns the server's self-reported name.
func (s *Session) ServerName() string { return s.serverName }

// ServerVersion returns the server's self-reported version.
func (s *Session) ServerVersion() string { return s.serverVersion }

// ProtocolVersion returns the negotiated protocol version.
func (s *Session) ProtocolVersion() string { return s.protocolVersion }

// Close fails every pending call with ErrSessionClosed and releases the
// transport. Safe to call more than once.
func (s *Session) Close() error {
	s.shutdown(ErrSessionClosed)
	return nil
}

// ListTools retrieves the server's tool listing, in server order.
func (s *Session) ListTools(ctx context.Context) ([]Tool, error) {
	var result listToolsResult
	if err := s.callInto(ctx, "tools/list", nil, &result); err != nil {
		return nil, fmt.Errorf("tools/list: %w", err)
	}
	return result.Tools, nil
}

// ListResources retrieves the server's resource listing.
func (s *Session) ListResources(ctx context.Context) ([]Resource, error) {
	var result listResourcesResult
	if err := s.callInto(ctx, "resources/list", nil, &result); err != nil {
		return nil, fmt.Errorf("resources/list: %w", err)
	}
	return result.Resources, nil
}

// ListPrompts retrieves the server's prompt listing.
func (s *Session) ListPrompts(ctx context.Context) ([]Prompt, error) {
	var result listPromptsResult
	if err := s.callInto(ctx, "prompts/list", nil, &result); err != nil {
		return nil, fmt.Errorf("prompts/list: %w", err)
	}
	return result.Prompts, nil
}

// ListCapabilities returns the uniform descriptor view for one capability
// kind. Listings pass through as the server sent them; duplicates are not
// filtered.
func (s *Session) ListCapabilities(ctx context.Context, kind Kind) ([]Capability, error) {
	switch kind {
	case KindTools:
		tools, err := s.ListTools(ctx)
		if err != nil {
			return nil, err
		}
		caps := make([]Capability, len(tools))
		for i, t := range tools {
			caps[i] = Capability{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema}
		}
		return caps, nil
	case KindResources:
		resources, err := s.ListResources(ctx)
		if err != nil {
			return nil, err
		}
		caps := make([]Capability, len(resources))
		for i, r := range resources {
			desc := r.Description
			if desc == "" {
				desc = r.Name
			}
			caps[i] = Capability{Name: r.URI, Description: desc}
		}
		return caps, nil
	case KindPrompts:
		prompts, err := s.ListPrompts(ctx)
		if err != nil {
			return nil, err
		}
		caps := make([]Capability, len(prompts))
		for i, p := range prompts {
			caps[i] = Capability{Name: p.Name, Description: p.Description}
		}
		return caps, nil
	default:
		return nil, fmt.Errorf("unknown capability kind %q", kind)
	}
}

// CallTool invokes a named tool. Arguments pass through verbatim; the
// client does not validate them against the tool's input schema.
func (s *Session) CallTool(ctx context.Context, name string, arguments json.RawMessage) (*ToolResult, error) {
	params := toolCallParams{Name: name, Arguments: arguments}
	var result ToolResult
	if err := s.callInto(ctx, "tools/call", params, &result); err != nil {
		return nil, fmt.Errorf("tools/call %s: %w", name, err)
	}
	return &result, nil
}

// ReadResource reads one resource by URI.
func (s *Session) ReadResource(ctx context.Context, uri string) (*ResourceContents, error) {
	params := readResourceParams{URI: uri}
	var result ResourceContents
	if err := s.callInto(ctx, "resources/read", params, &result); err != nil {
		return nil, fmt.Errorf("resources/read %s: %w", uri, err)
	}
	return &result, nil
}

// GetPrompt fetches one rendered prompt by name.
func (s *Session) GetPrompt(ctx context.Context, name string, arguments map[string]string) (*PromptResult, error) {
	params := getPromptParams{Name: name, Arguments: arguments}
	var result PromptResult
	if err := s.callInto(ctx, "prompts/get", params, &result); err != nil {
		return nil, fmt.Errorf("prompts/get %s: %w", name, err)
	}
	return &result, nil
}

// handshake sends initialize, trying each protocol version in order until
// one is accepted, then confirms with notifications/initialized. It runs
// before the background reader starts, reading the transport directly.
func (s *Session) handshake(ctx context.Context, versions []string) error {
	hsCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	var lastErr error
	for _, version := range versions {
		params := initializeParams{
			ProtocolVersion: version,
			Capabilities:    map[string]any{},
			ClientInfo: clientInfo{
				Name:    s.clientName,
				Version: s.clientVersion,
			},
		}

		var result initializeResult
		err := s.exchange(hsCtx, "initialize", params, &result)
		if err != nil {
			if isProtocolVersionError(err) {
				lastErr = err
				continue // Try next version
			}
			return &HandshakeError{Reason: "initialize", Err: err}
		}

		s.serverName = result.ServerInfo.Name
		s.serverVersion = result.ServerInfo.Version
		s.protocolVersion = result.ProtocolVersion
		if s.protocolVersion == "" {
			s.protocolVersion = version
		}

		if err := s.notify(hsCtx, "notifications/initialized", nil); err != nil {
			return &HandshakeError{Reason: "initialized notification", Err: err}
		}
		return nil
	}

	if lastErr != nil {
		return &HandshakeError{Reason: "all protocol versions rejected", Err: lastErr}
	}
	return &HandshakeError{Reason: "no protocol versions to try"}
}

// isProtocolVersionError checks if an error indicates a protocol version
// rejection.
func isProtocolVersionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "protocol") && strings.Contains(errStr, "version") ||
		strings.Contains(errStr, "protocolVersion") ||
		strings.Contains(errStr, "unsupported version")
}

// exchange performs one synchronous request/response on the transport,
// skipping notifications and unrelated messages. Only used during the
// handshake, while the session holds the transport exclusively.
func (s *Session) exchange(ctx context.Context, method string, params, result any) error {
	id := s.nextID.Add(1)
	data, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	if err := s.transport.Send(ctx, data); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	for {
		respData, err := s.transport.Receive(ctx)
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}

		var msg rpcInbound
		if err := json.Unmarshal(respData, &msg); err != nil {
			return &FramingError{Reason: "malformed message", Frame: respData}
		}

		if msg.Method != "" || msg.ID == nil {
			// Notification or server-issued request; not our response.
			continue
		}
		if *msg.ID != id {
			s.log.Debug().Int64("id", *msg.ID).Msg("skipping response for different request")
			continue
		}

		if msg.Error != nil {
			return msg.Error
		}
		if result != nil && msg.Result != nil {
			if err := json.Unmarshal(msg.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}
		return nil
	}
}

// notify sends a JSON-RPC notification (no id, no response expected).
func (s *Session) notify(ctx context.Context, method string, params any) error {
	data, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return s.transport.Send(ctx, data)
}

// callInto performs one correlated call and decodes the result into out.
func (s *Session) callInto(ctx context.Context, method string, params, out any) error {
	raw, err := s.call(ctx, method, params)
	if err != nil {
		return err
	}
	if out != nil && raw != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

// call allocates the next request id, registers a pending slot, sends the
// request, and suspends the caller until the matching response arrives,
// the per-call timeout fires, the caller's context ends, or the session
// shuts down. A timed-out request is abandoned client-side only; its late
// response is discarded by the reader.
func (s *Session) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	switch s.State() {
	case StateReady:
	case StateClosed:
		return nil, ErrSessionClosed
	default:
		return nil, ErrNotReady
	}

	id := s.nextID.Add(1)
	ch := make(chan callOutcome, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, s.closeReason()
	}
	s.pending[id] = ch
	s.mu.Unlock()

	data, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		s.removePending(id)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if err := s.transport.Send(ctx, data); err != nil {
		s.removePending(id)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// A failed write means the transport is gone for every caller.
		s.shutdown(fmt.Errorf("send: %v: %w", err, ErrConnectionLost))
		return nil, s.closeReason()
	}

	timer := time.NewTimer(s.callTimeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		return out.result, out.err
	case <-timer.C:
		s.removePending(id)
		s.log.Debug().Int64("id", id).Str("method", method).Dur("timeout", s.callTimeout).Msg("call timed out")
		return nil, fmt.Errorf("no response within %s: %w", s.callTimeout, ErrCallTimeout)
	case <-ctx.Done():
		s.removePending(id)
		return nil, ctx.Err()
	case <-s.done:
		return nil, s.closeReason()
	}
}

// readLoop runs for the whole Ready lifetime: it pulls inbound messages,
// resolves pending slots by id, and surfaces everything else as events.
// Any transport error ends the session and fails all pending calls.
func (s *Session) readLoop() {
	for {
		data, err := s.transport.Receive(s.recvCtx)
		if err != nil {
			select {
			case <-s.done:
				// Shutdown interrupted the read; not a transport fault.
			default:
				s.log.Debug().Err(err).Msg("reader stopped")
				var framing *FramingError
				if errors.As(err, &framing) {
					s.shutdown(framing)
				} else {
					s.shutdown(fmt.Errorf("receive: %v: %w", err, ErrConnectionLost))
				}
			}
			return
		}

		var msg rpcInbound
		if err := json.Unmarshal(data, &msg); err != nil {
			s.shutdown(&FramingError{Reason: "malformed message", Frame: data})
			return
		}

		switch {
		case msg.Method != "":
			// Unsolicited server message: a notification, or a
			// server-issued request this client does not answer.
			s.log.Debug().Str("method", msg.Method).Msg("unsolicited server message")
			s.publish(events.NewNotificationEvent(s.server, msg.Method, msg.Params))
		case msg.ID != nil:
			s.resolve(*msg.ID, msg)
		default:
			s.log.Debug().Msg("discarding message with neither id nor method")
		}
	}
}

// resolve delivers a response to its pending slot. A response whose id has
// no slot (late, duplicate, or never ours) is a protocol violation:
// logged, discarded, session continues.
func (s *Session) resolve(id int64, msg rpcInbound) {
	s.mu.Lock()
	ch, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if !ok {
		s.log.Debug().Int64("id", id).Msg("response with no pending request discarded")
		return
	}
	if msg.Error != nil {
		ch <- callOutcome{err: msg.Error}
		return
	}
	ch <- callOutcome{result: msg.Result}
}

// removePending abandons one slot, if it still exists.
func (s *Session) removePending(id int64) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// shutdown moves the session to Closed exactly once: every pending call
// fails with the given reason and the transport is released.
func (s *Session) shutdown(reason error) {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.reason = reason
		slots := s.pending
		s.pending = make(map[int64]chan callOutcome)
		s.mu.Unlock()

		for _, ch := range slots {
			ch <- callOutcome{err: reason}
		}

		s.setState(StateClosed)
		close(s.done)
		s.recvCancel()
		if err := s.transport.Close(); err != nil {
			s.log.Debug().Err(err).Msg("transport close")
		}
		s.log.Debug().Err(reason).Int("failedCalls", len(slots)).Msg("session closed")
	})
}

func (s *Session) closeReason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reason != nil {
		return s.reason
	}
	return ErrSessionClosed
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	s.publish(events.NewStateEvent(s.server, st.String()))
}

func (s *Session) publish(e events.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}
