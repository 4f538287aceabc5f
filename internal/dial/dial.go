// Package dial turns server configs into live MCP sessions. It picks the
// transport a config entry calls for, runs the handshake, and for
// long-running callers keeps a registry of the sessions they hold open.
package dial

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mcpdial/mcpdial/internal/config"
	"github.com/mcpdial/mcpdial/internal/events"
	"github.com/mcpdial/mcpdial/internal/mcp"
)

// Options carries the client identity and plumbing shared by every
// session a caller opens.
type Options struct {
	// ClientName and ClientVersion identify this client during the
	// handshake.
	ClientName    string
	ClientVersion string

	// CallTimeout overrides the server's configured timeout when > 0.
	CallTimeout time.Duration

	// Logger receives transport and session diagnostics.
	Logger zerolog.Logger

	// Bus, when set, receives state, notification, and stderr events.
	Bus *events.Bus
}

// Open starts the transport srv calls for and completes the MCP
// handshake. The caller owns the returned session and must Close it.
func Open(ctx context.Context, srv *config.ServerConfig, opts Options) (*mcp.Session, error) {
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = srv.Timeout()
	}
	sessOpts := mcp.Options{
		ClientName:    opts.ClientName,
		ClientVersion: opts.ClientVersion,
		CallTimeout:   timeout,
		Server:        srv.Name,
		Logger:        opts.Logger,
		Bus:           opts.Bus,
	}

	switch srv.Kind {
	case config.ServerKindStdio:
		t, err := mcp.StartCommand(mcp.CommandConfig{
			Command: srv.Command,
			Args:    srv.Args,
			Dir:     srv.Cwd,
			Env:     srv.Env,
			OnStderrLine: func(line string) {
				if opts.Bus != nil {
					opts.Bus.Publish(events.NewStderrEvent(srv.Name, line))
				}
			},
			Logger: opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		sess, err := mcp.Open(ctx, t, sessOpts)
		if err != nil {
			// The handshake error alone rarely explains a crashed
			// server; its last stderr lines usually do.
			if tail := t.StderrTail(); len(tail) > 0 {
				return nil, fmt.Errorf("%w\nserver stderr:\n  %s", err, strings.Join(tail, "\n  "))
			}
			return nil, err
		}
		return sess, nil

	case config.ServerKindSSE:
		t, err := mcp.DialStream(ctx, mcp.StreamConfig{
			BaseURL: srv.URL,
			Headers: srv.Headers,
			Logger:  opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		return mcp.Open(ctx, t, sessOpts)

	default:
		return nil, fmt.Errorf("server %q: unsupported kind %q", srv.Name, srv.Kind)
	}
}

// Dialer keeps the sessions a long-running caller holds open, keyed by
// server name. The TUI keeps one Dialer for its whole run, so moving
// between servers reuses live sessions instead of redialing.
type Dialer struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]*mcp.Session
}

// NewDialer returns an empty registry that opens sessions with opts.
func NewDialer(opts Options) *Dialer {
	return &Dialer{
		opts:     opts,
		sessions: make(map[string]*mcp.Session),
	}
}

// Open returns the live session for srv, dialing a fresh one when the
// server has never been opened or its previous session has closed.
func (d *Dialer) Open(ctx context.Context, srv *config.ServerConfig) (*mcp.Session, error) {
	d.mu.Lock()
	if sess, ok := d.sessions[srv.Name]; ok && sess.State() == mcp.StateReady {
		d.mu.Unlock()
		return sess, nil
	}
	d.mu.Unlock()

	sess, err := Open(ctx, srv, d.opts)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	old := d.sessions[srv.Name]
	d.sessions[srv.Name] = sess
	d.mu.Unlock()
	if old != nil && old != sess {
		_ = old.Close()
	}
	return sess, nil
}

// Get returns the recorded session for name, or nil. The session may
// have closed since it was recorded; callers check State themselves.
func (d *Dialer) Get(name string) *mcp.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessions[name]
}

// Close closes and forgets the session for name. Closing a server that
// was never opened is a no-op.
func (d *Dialer) Close(name string) error {
	d.mu.Lock()
	sess, ok := d.sessions[name]
	delete(d.sessions, name)
	d.mu.Unlock()
	if !ok {
		return nil
	}
	return sess.Close()
}

// CloseAll closes every recorded session and waits for them all.
func (d *Dialer) CloseAll() {
	d.mu.Lock()
	sessions := make([]*mcp.Session, 0, len(d.sessions))
	for _, sess := range d.sessions {
		sessions = append(sessions, sess)
	}
	d.sessions = make(map[string]*mcp.Session)
	d.mu.Unlock()

	var wg sync.WaitGroup
	for _, sess := range sessions {
		wg.Add(1)
		go func(s *mcp.Session) {
			defer wg.Done()
			_ = s.Close()
		}(sess)
	}
	wg.Wait()
}

// OpenServers returns the names of servers with a ready session, sorted.
func (d *Dialer) OpenServers() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.sessions))
	for name, sess := range d.sessions {
		if sess.State() == mcp.StateReady {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// OpenCount returns the number of ready sessions.
func (d *Dialer) OpenCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, sess := range d.sessions {
		if sess.State() == mcp.StateReady {
			n++
		}
	}
	return n
}
