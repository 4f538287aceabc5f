package mcp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// MaxSSEEventSize is the maximum size of a single SSE event (1MB).
	MaxSSEEventSize = 1024 * 1024

	// DefaultConnectTimeout bounds the initial connection and the wait
	// for the server's endpoint event.
	DefaultConnectTimeout = 30 * time.Second

	// ssePath is the well-known sub-path of the event-stream leg,
	// appended to the configured base URL.
	ssePath = "/sse"

	// msgQueueSize bounds inbound messages buffered ahead of Receive.
	msgQueueSize = 100
)

// StreamConfig describes the endpoint for a stream transport.
type StreamConfig struct {
	// BaseURL is the server's base URL (e.g. "http://127.0.0.1:8001").
	// The event stream is opened at BaseURL + "/sse".
	BaseURL string

	// Headers are static headers included in every request, for servers
	// that expect auth or routing headers.
	Headers map[string]string

	// Client is the HTTP client to use. If nil, http.DefaultClient is
	// cloned. Client timeouts are stripped; the event stream is
	// long-lived and bounded by header/dial timeouts instead.
	Client *http.Client

	// ConnectTimeout bounds the wait for the endpoint event. Zero means
	// DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// Logger receives transport diagnostics. The zero value is silent.
	Logger zerolog.Logger
}

// StreamTransport is the stream variant of Transport: a persistent
// server-to-client SSE stream carries responses and events, while
// client-to-server messages are POSTed to the session endpoint the server
// announces in its first event.
type StreamTransport struct {
	config      StreamConfig
	sseClient   *http.Client // no timeout - long-lived stream
	rpcClient   *http.Client
	endpointURL string
	log         zerolog.Logger

	sseCancel context.CancelFunc
	sseBody   io.ReadCloser

	msgQueue   chan []byte
	endpointCh chan string

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	writeMu sync.Mutex

	mu      sync.Mutex
	closed  bool
	readErr error
}

// DialStream opens the event stream at cfg.BaseURL + "/sse", waits for the
// server's endpoint event naming the outbound message channel, and returns
// a connected transport. The stream stays open until Close.
func DialStream(ctx context.Context, cfg StreamConfig) (*StreamTransport, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", base.Scheme)
	}

	t := &StreamTransport{
		config:     cfg,
		sseClient:  cloneHTTPClient(cfg.Client),
		rpcClient:  cloneHTTPClient(cfg.Client),
		log:        cfg.Logger,
		msgQueue:   make(chan []byte, msgQueueSize),
		endpointCh: make(chan string, 1),
		done:       make(chan struct{}),
	}

	sseURL := base.String() + ssePath
	sseCtx, cancel := context.WithCancel(context.Background())
	t.sseCancel = cancel

	req, err := http.NewRequestWithContext(sseCtx, http.MethodGet, sseURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.sseClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("connect event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("event stream returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	t.sseBody = resp.Body

	t.wg.Add(1)
	go t.readLoop(resp.Body)

	connectTimeout := cfg.ConnectTimeout
	if connectTimeout == 0 {
		connectTimeout = DefaultConnectTimeout
	}
	timer := time.NewTimer(connectTimeout)
	defer timer.Stop()

	select {
	case raw := <-t.endpointCh:
		rel, err := url.Parse(raw)
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("parse endpoint %q: %w", raw, err)
		}
		t.endpointURL = base.ResolveReference(rel).String()
		t.log.Debug().Str("endpoint", t.endpointURL).Msg("stream connected")
		return t, nil
	case <-t.done:
		err := t.takeReadErr()
		t.Close()
		if err == nil {
			err = errors.New("stream ended before endpoint event")
		}
		return nil, err
	case <-timer.C:
		t.Close()
		return nil, errors.New("timed out waiting for endpoint event")
	case <-ctx.Done():
		t.Close()
		return nil, ctx.Err()
	}
}

// Send POSTs one message to the session endpoint. The response to the
// message arrives on the event stream, not in the POST body.
func (t *StreamTransport) Send(ctx context.Context, msg []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return errors.New("transport closed")
	}
	if t.endpointURL == "" {
		return errors.New("no session endpoint")
	}

	t.log.Trace().Str("dir", "send").Str("msg", string(msg)).Msg("stream frame")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpointURL, bytes.NewReader(msg))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.rpcClient.Do(req)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Receive returns the next message from the event stream.
func (t *StreamTransport) Receive(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, errors.New("transport closed")
	}

	// Drain buffered messages before reporting a dead stream.
	select {
	case msg := <-t.msgQueue:
		return msg, nil
	default:
	}

	select {
	case msg := <-t.msgQueue:
		return msg, nil
	case <-t.done:
		t.mu.Lock()
		err := t.readErr
		closed := t.closed
		t.mu.Unlock()
		if closed {
			return nil, errors.New("transport closed")
		}
		if err != nil {
			return nil, err
		}
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts the stream down and releases the connection. Safe to call
// more than once.
func (t *StreamTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.closeOnce.Do(func() { close(t.done) })
	t.sseCancel()
	if t.sseBody != nil {
		_ = t.sseBody.Close()
	}
	t.wg.Wait()
	return nil
}

// Endpoint returns the session endpoint announced by the server.
func (t *StreamTransport) Endpoint() string {
	return t.endpointURL
}

// readLoop pulls SSE events off the stream for the transport's lifetime:
// the endpoint event resolves the outbound channel, message events queue
// for Receive. Any scanner error ends the stream.
func (t *StreamTransport) readLoop(body io.Reader) {
	defer t.wg.Done()
	scanner := newSSEScanner(body, MaxSSEEventSize)
	for {
		event, err := scanner.Next()
		if err != nil {
			t.fail(err)
			return
		}
		switch event.Event {
		case "endpoint":
			select {
			case t.endpointCh <- string(event.Data):
			default:
			}
		case "", "message":
			if len(event.Data) == 0 {
				continue
			}
			t.log.Trace().Str("dir", "recv").Str("msg", string(event.Data)).Msg("stream frame")
			select {
			case t.msgQueue <- event.Data:
			case <-t.done:
				return
			}
		default:
			t.log.Debug().Str("event", event.Event).Msg("ignoring stream event")
		}
	}
}

// fail records why the stream ended and wakes Receive. An oversized event
// is a framing error; everything else is a lost connection.
func (t *StreamTransport) fail(err error) {
	var framing *FramingError
	if !errors.As(err, &framing) {
		err = fmt.Errorf("event stream: %w", ErrConnectionLost)
	}

	t.mu.Lock()
	if t.readErr == nil {
		t.readErr = err
	}
	t.mu.Unlock()
	t.closeOnce.Do(func() { close(t.done) })
}

// sseEvent represents a single SSE event.
type sseEvent struct {
	ID    string
	Event string
	Data  []byte
}

// sseScanner parses SSE events from a reader.
type sseScanner struct {
	reader   *bufio.Reader
	maxSize  int
	currSize int
}

func newSSEScanner(r io.Reader, maxSize int) *sseScanner {
	return &sseScanner{
		reader:  bufio.NewReader(r),
		maxSize: maxSize,
	}
}

// Next reads the next SSE event.
func (s *sseScanner) Next() (*sseEvent, error) {
	event := &sseEvent{}
	var dataLines [][]byte
	s.currSize = 0

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(dataLines) > 0 {
				// Incomplete event at EOF
				event.Data = bytes.Join(dataLines, []byte("\n"))
				return event, nil
			}
			return nil, err
		}

		// Track size to prevent unbounded buffering
		s.currSize += len(line)
		if s.currSize > s.maxSize {
			return nil, &FramingError{Reason: fmt.Sprintf("SSE event exceeds maximum size of %d bytes", s.maxSize)}
		}

		// Trim CRLF or LF
		line = bytes.TrimSuffix(line, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))

		// Empty line = dispatch event
		if len(line) == 0 {
			if len(dataLines) > 0 || event.ID != "" || event.Event != "" {
				event.Data = bytes.Join(dataLines, []byte("\n"))
				return event, nil
			}
			continue // Skip empty events
		}

		// Comment line (starts with :)
		if line[0] == ':' {
			continue
		}

		// Parse field
		var field, value []byte
		colonIdx := bytes.IndexByte(line, ':')
		if colonIdx == -1 {
			field = line
			value = nil
		} else {
			field = line[:colonIdx]
			value = line[colonIdx+1:]
			// Remove leading space from value if present
			if len(value) > 0 && value[0] == ' ' {
				value = value[1:]
			}
		}

		switch string(field) {
		case "id":
			event.ID = string(value)
		case "event":
			event.Event = string(value)
		case "data":
			dataLines = append(dataLines, value)
		case "retry":
			// Ignore retry field for now
		}
	}
}

func (t *StreamTransport) takeReadErr() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readErr
}

func cloneHTTPClient(base *http.Client) *http.Client {
	c := &http.Client{}
	if base == nil {
		base = http.DefaultClient
	}
	*c = *base
	c.Timeout = 0

	if c.Transport == nil {
		c.Transport = defaultHTTPTransport()
		return c
	}
	if t, ok := c.Transport.(*http.Transport); ok {
		tt := t.Clone()
		if tt.ResponseHeaderTimeout == 0 {
			tt.ResponseHeaderTimeout = DefaultConnectTimeout
		}
		if tt.TLSHandshakeTimeout == 0 {
			tt.TLSHandshakeTimeout = DefaultConnectTimeout
		}
		if tt.DialContext == nil {
			tt.DialContext = (&net.Dialer{
				Timeout:   DefaultConnectTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext
		}
		c.Transport = tt
	}
	return c
}

func defaultHTTPTransport() *http.Transport {
	// Start from Go's defaults and add a header timeout so requests that
	// never respond don't hang indefinitely, without imposing a hard
	// deadline for long-lived response bodies like the event stream.
	if dt, ok := http.DefaultTransport.(*http.Transport); ok {
		t := dt.Clone()
		t.ResponseHeaderTimeout = DefaultConnectTimeout
		if t.TLSHandshakeTimeout == 0 {
			t.TLSHandshakeTimeout = DefaultConnectTimeout
		}
		return t
	}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   DefaultConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   DefaultConnectTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: DefaultConnectTimeout,
	}
}
