package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tiktoken-go/tokenizer"
)

const CapCacheVersion = 1

// CapCache stores capability listings and token counts for servers.
// It is persisted alongside the active config file so listings can be
// shown without connecting.
type CapCache struct {
	path  string
	cache capCacheFile
	mu    sync.RWMutex
}

type capCacheFile struct {
	Version int `json:"version"`
	// Servers maps server name to listings keyed by capability kind
	// ("tools", "resources", "prompts").
	Servers map[string]map[string]CachedListing `json:"servers"`
}

// CachedListing stores one capability listing for a server.
type CachedListing struct {
	Capabilities []CachedCapability `json:"capabilities"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// CachedCapability stores a capability descriptor with its precomputed
// token count.
type CachedCapability struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
	TokenCount  int             `json:"tokenCount"`
}

// CapCachePath returns the cache file path co-located with the active config.
func CapCachePath(configPath string) (string, error) {
	if configPath != "" {
		expanded := configPath
		if strings.HasPrefix(expanded, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("get home dir: %w", err)
			}
			expanded = filepath.Join(home, expanded[2:])
		}
		return filepath.Join(filepath.Dir(expanded), "capcache.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, configDir, "capcache.json"), nil
}

// NewCapCache creates or loads a capability cache for the given config path.
func NewCapCache(configPath string) (*CapCache, error) {
	path, err := CapCachePath(configPath)
	if err != nil {
		return nil, err
	}
	cc := &CapCache{
		path: path,
		cache: capCacheFile{
			Version: CapCacheVersion,
			Servers: make(map[string]map[string]CachedListing),
		},
	}
	cc.load()
	return cc, nil
}

// CapabilityInput is the input for updating a cached listing (avoids
// importing the mcp package in config).
type CapabilityInput struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Update caches one capability listing for a server, computing token counts.
func (cc *CapCache) Update(server, kind string, caps []CapabilityInput) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	cached := make([]CachedCapability, len(caps))
	for i, c := range caps {
		cached[i] = CachedCapability{
			Name:        c.Name,
			Description: c.Description,
			InputSchema: c.InputSchema,
			TokenCount:  CountCapabilityTokens(c.Name, c.Description, c.InputSchema),
		}
	}
	if cc.cache.Servers[server] == nil {
		cc.cache.Servers[server] = make(map[string]CachedListing)
	}
	cc.cache.Servers[server][kind] = CachedListing{
		Capabilities: cached,
		UpdatedAt:    time.Now(),
	}
	return cc.save()
}

// Get retrieves a cached listing for a server.
func (cc *CapCache) Get(server, kind string) (CachedListing, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	listing, ok := cc.cache.Servers[server][kind]
	return listing, ok
}

// Delete removes all cached listings for a server.
func (cc *CapCache) Delete(server string) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if _, ok := cc.cache.Servers[server]; !ok {
		return nil
	}
	delete(cc.cache.Servers, server)
	return cc.save()
}

func (cc *CapCache) load() {
	data, err := os.ReadFile(cc.path)
	if err != nil {
		return
	}

	var file capCacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return
	}

	// Version mismatch discards the stale cache
	if file.Version != CapCacheVersion {
		return
	}

	if file.Servers == nil {
		file.Servers = make(map[string]map[string]CachedListing)
	}
	cc.cache = file
}

func (cc *CapCache) save() error {
	dir := filepath.Dir(cc.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	data, err := json.MarshalIndent(cc.cache, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal capability cache: %w", err)
	}

	tmpFile := cc.path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return fmt.Errorf("write temp cache: %w", err)
	}

	if err := os.Rename(tmpFile, cc.path); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("rename cache: %w", err)
	}

	return nil
}

// CountCapabilityTokens estimates the prompt cost of advertising one
// capability to a model: its name, description, and input schema.
func CountCapabilityTokens(name, description string, inputSchema json.RawMessage) int {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return estimateFallback(name, description, inputSchema)
	}

	total := 0
	total += countOrZero(codec, name)
	if description != "" {
		total += countOrZero(codec, description)
	}
	if len(inputSchema) > 0 {
		total += countOrZero(codec, string(inputSchema))
	}
	return total
}

func countOrZero(codec tokenizer.Codec, text string) int {
	tokens, _, err := codec.Encode(text)
	if err != nil {
		return len(text) / 4
	}
	return len(tokens)
}

func estimateFallback(name, desc string, schema json.RawMessage) int {
	total := len(name) + len(desc)
	if len(schema) > 0 {
		total += len(schema)
	}
	return total / 4
}
