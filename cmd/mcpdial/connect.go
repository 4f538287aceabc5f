package main

import (
	"context"
	"fmt"
	"time"

	"github.com/mcpdial/mcpdial/internal/config"
	"github.com/mcpdial/mcpdial/internal/dial"
	"github.com/mcpdial/mcpdial/internal/events"
	"github.com/mcpdial/mcpdial/internal/mcp"
)

// findServer looks up a configured server by name.
func findServer(cfg *config.Config, name string) (*config.ServerConfig, error) {
	srv := cfg.GetServer(name)
	if srv == nil {
		return nil, fmt.Errorf("server %q not found (try 'mcpdial servers')", name)
	}
	return srv, nil
}

// openSession dials the server with this process's client identity. The
// caller owns the returned session and must Close it. A zero timeout
// uses the server's configured call timeout.
func openSession(ctx context.Context, srv *config.ServerConfig, bus *events.Bus, timeout time.Duration) (*mcp.Session, error) {
	return dial.Open(ctx, srv, dial.Options{
		ClientName:    "mcpdial",
		ClientVersion: version,
		CallTimeout:   timeout,
		Logger:        cmdLogger,
		Bus:           bus,
	})
}

// connectTo is the common preamble for commands that take a server name:
// load config, resolve the server, open a session.
func connectTo(ctx context.Context, name string, timeout time.Duration) (*mcp.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	srv, err := findServer(cfg, name)
	if err != nil {
		return nil, err
	}
	if !srv.IsEnabled() {
		return nil, fmt.Errorf("server %q is disabled", name)
	}
	return openSession(ctx, srv, nil, timeout)
}
