// Package config provides the server registry and its persistence for mcpdial.
package config

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"time"
)

// SchemaVersion is the current config schema version.
const SchemaVersion = 1

// ServerKind represents the transport type for an MCP server.
type ServerKind string

const (
	ServerKindStdio ServerKind = "stdio"
	ServerKindSSE   ServerKind = "sse"
)

// DefaultTimeoutSeconds is the per-call timeout applied when a server
// entry does not set one.
const DefaultTimeoutSeconds = 30

// ServerConfig represents an MCP server entry in the registry.
// Field names are compatible with the common mcpServers format for easy
// copy/paste.
type ServerConfig struct {
	Name    string            `json:"name"`
	Kind    ServerKind        `json:"kind"`
	Enabled *bool             `json:"enabled,omitempty"` // nil treated as true (enabled by default)
	Command string            `json:"command,omitempty"` // stdio only
	Args    []string          `json:"args,omitempty"`    // stdio only
	Cwd     string            `json:"cwd,omitempty"`
	Env     map[string]string `json:"env,omitempty"`

	// SSE-specific fields
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`

	// TimeoutSeconds overrides the per-call timeout for this server.
	// Zero means DefaultTimeoutSeconds.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty"`
}

// Config is the root configuration structure. Servers are keyed by name.
type Config struct {
	SchemaVersion int                     `json:"schemaVersion"`
	Servers       map[string]ServerConfig `json:"servers"`
	LastModified  time.Time               `json:"lastModified"`
}

// NewConfig creates a new empty configuration with default values.
func NewConfig() *Config {
	return &Config{
		SchemaVersion: SchemaVersion,
		Servers:       make(map[string]ServerConfig),
		LastModified:  time.Now(),
	}
}

var nameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateName checks that a server name is usable as a registry key and
// a CLI argument: it must start with an alphanumeric character and contain
// only alphanumerics, dots, underscores, and hyphens.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("server name must not be empty")
	}
	if !nameRe.MatchString(name) {
		return fmt.Errorf("invalid server name %q: must start with a letter or digit and contain only letters, digits, '.', '_', '-'", name)
	}
	return nil
}

// Validate checks that the entry is complete for its kind.
func (s ServerConfig) Validate() error {
	if err := ValidateName(s.Name); err != nil {
		return err
	}
	if s.TimeoutSeconds < 0 {
		return fmt.Errorf("server %q: timeoutSeconds must not be negative", s.Name)
	}
	switch s.Kind {
	case ServerKindStdio:
		if s.Command == "" {
			return fmt.Errorf("server %q: stdio servers require a command", s.Name)
		}
	case ServerKindSSE:
		if s.URL == "" {
			return fmt.Errorf("server %q: sse servers require a url", s.Name)
		}
		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("server %q: invalid url: %w", s.Name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("server %q: url scheme must be http or https, got %q", s.Name, u.Scheme)
		}
	default:
		return fmt.Errorf("server %q: unknown kind %q (expected %q or %q)", s.Name, s.Kind, ServerKindStdio, ServerKindSSE)
	}
	return nil
}

// IsEnabled returns whether the server is enabled (nil defaults to true).
func (s ServerConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// SetEnabled sets the enabled state.
func (s *ServerConfig) SetEnabled(enabled bool) {
	s.Enabled = &enabled
}

// Timeout returns the per-call timeout for this server, falling back to
// the default when unset.
func (s ServerConfig) Timeout() time.Duration {
	if s.TimeoutSeconds > 0 {
		return time.Duration(s.TimeoutSeconds) * time.Second
	}
	return DefaultTimeoutSeconds * time.Second
}

// ServerList returns the servers as a slice, sorted by name for display.
func (c *Config) ServerList() []ServerConfig {
	servers := make([]ServerConfig, 0, len(c.Servers))
	for _, s := range c.Servers {
		servers = append(servers, s)
	}
	sort.Slice(servers, func(i, j int) bool {
		return servers[i].Name < servers[j].Name
	})
	return servers
}

// GetServer returns a server by name, or nil if not found.
func (c *Config) GetServer(name string) *ServerConfig {
	if s, ok := c.Servers[name]; ok {
		return &s
	}
	return nil
}
