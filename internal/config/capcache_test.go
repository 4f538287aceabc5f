package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func newTestCapCache(t *testing.T) *CapCache {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	cc, err := NewCapCache(configPath)
	if err != nil {
		t.Fatalf("NewCapCache: %v", err)
	}
	return cc
}

func sampleTools() []CapabilityInput {
	return []CapabilityInput{
		{
			Name:        "read_file",
			Description: "Read a file from disk",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}}}`),
		},
		{
			Name:        "write_file",
			Description: "Write content to a file",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"},"content":{"type":"string"}}}`),
		},
	}
}

func TestCapCache_UpdateAndGet(t *testing.T) {
	cc := newTestCapCache(t)

	if err := cc.Update("myserver", "tools", sampleTools()); err != nil {
		t.Fatalf("Update: %v", err)
	}

	listing, ok := cc.Get("myserver", "tools")
	if !ok {
		t.Fatal("expected to find cached tools")
	}
	if len(listing.Capabilities) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(listing.Capabilities))
	}
	if listing.Capabilities[0].Name != "read_file" {
		t.Errorf("expected first tool name 'read_file', got %q", listing.Capabilities[0].Name)
	}
	if listing.Capabilities[0].TokenCount <= 0 {
		t.Errorf("expected positive token count, got %d", listing.Capabilities[0].TokenCount)
	}
	if listing.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
}

func TestCapCache_KindsAreIndependent(t *testing.T) {
	cc := newTestCapCache(t)

	_ = cc.Update("myserver", "tools", sampleTools())
	_ = cc.Update("myserver", "prompts", []CapabilityInput{
		{Name: "greeting", Description: "Greets the user"},
	})

	tools, ok := cc.Get("myserver", "tools")
	if !ok || len(tools.Capabilities) != 2 {
		t.Fatalf("expected 2 cached tools, got %v (ok=%v)", len(tools.Capabilities), ok)
	}
	prompts, ok := cc.Get("myserver", "prompts")
	if !ok || len(prompts.Capabilities) != 1 {
		t.Fatalf("expected 1 cached prompt, got %v (ok=%v)", len(prompts.Capabilities), ok)
	}

	// Refreshing one kind leaves the other untouched
	_ = cc.Update("myserver", "tools", sampleTools()[:1])
	prompts, _ = cc.Get("myserver", "prompts")
	if len(prompts.Capabilities) != 1 {
		t.Errorf("expected prompts to survive a tools refresh, got %d", len(prompts.Capabilities))
	}
}

func TestCapCache_Delete(t *testing.T) {
	cc := newTestCapCache(t)
	_ = cc.Update("myserver", "tools", sampleTools())
	_ = cc.Update("myserver", "prompts", []CapabilityInput{{Name: "greeting"}})

	if err := cc.Delete("myserver"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, ok := cc.Get("myserver", "tools"); ok {
		t.Error("expected tools to be deleted from cache")
	}
	if _, ok := cc.Get("myserver", "prompts"); ok {
		t.Error("expected prompts to be deleted from cache")
	}
}

func TestCapCache_Delete_Nonexistent(t *testing.T) {
	cc := newTestCapCache(t)
	if err := cc.Delete("nosuchserver"); err != nil {
		t.Fatalf("Delete nonexistent: %v", err)
	}
}

func TestCapCache_GetNonexistent(t *testing.T) {
	cc := newTestCapCache(t)
	if _, ok := cc.Get("nosuchserver", "tools"); ok {
		t.Error("expected false for nonexistent server")
	}
}

func TestCountCapabilityTokens(t *testing.T) {
	tokens := CountCapabilityTokens(
		"read_file",
		"Read a file from disk",
		json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}}}`),
	)
	if tokens <= 0 {
		t.Errorf("expected positive token count, got %d", tokens)
	}
}

func TestCountCapabilityTokens_EmptyDescription(t *testing.T) {
	tokens := CountCapabilityTokens("tool", "", nil)
	if tokens <= 0 {
		t.Errorf("expected positive token count, got %d", tokens)
	}
}

func TestCountCapabilityTokens_LargeSchema(t *testing.T) {
	// Build a moderately large schema
	var schema strings.Builder
	schema.WriteString(`{"type":"object","properties":{`)
	for i := range 50 {
		if i > 0 {
			schema.WriteString(",")
		}
		schema.WriteString(`"field` + string(rune('a'+i%26)) + `":{"type":"string","description":"A field"}`)
	}
	schema.WriteString(`}}`)

	tokens := CountCapabilityTokens("tool", "A tool with a large schema", json.RawMessage(schema.String()))
	if tokens < 50 {
		t.Errorf("expected at least 50 tokens for large schema, got %d", tokens)
	}
}

func TestEstimateFallback(t *testing.T) {
	result := estimateFallback("tool", "a description", json.RawMessage(`{"key":"value"}`))
	// ~4 chars per token heuristic
	expected := (len("tool") + len("a description") + len(`{"key":"value"}`)) / 4
	if result != expected {
		t.Errorf("expected %d, got %d", expected, result)
	}
}

func TestCapCache_Persistence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")

	// Write cache
	cc1, err := NewCapCache(configPath)
	if err != nil {
		t.Fatalf("NewCapCache: %v", err)
	}
	_ = cc1.Update("srv", "tools", sampleTools())

	// Load into new instance
	cc2, err := NewCapCache(configPath)
	if err != nil {
		t.Fatalf("NewCapCache: %v", err)
	}
	listing, ok := cc2.Get("srv", "tools")
	if !ok {
		t.Fatal("expected tools to persist across instances")
	}
	if len(listing.Capabilities) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(listing.Capabilities))
	}
}

func TestCapCache_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")

	cc, _ := NewCapCache(configPath)
	_ = cc.Update("srv", "tools", sampleTools())

	cachePath, _ := CapCachePath(configPath)
	info, err := os.Stat(cachePath)
	if err != nil {
		t.Fatalf("stat cache file: %v", err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}
}

func TestCapCache_VersionMismatch(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	cachePath, _ := CapCachePath(configPath)

	// Write a cache with wrong version
	data := `{"version":999,"servers":{"srv":{"tools":{"capabilities":[{"name":"tool","tokenCount":42}]}}}}`
	_ = os.WriteFile(cachePath, []byte(data), 0600)

	cc, err := NewCapCache(configPath)
	if err != nil {
		t.Fatalf("NewCapCache: %v", err)
	}

	// Should start fresh (version mismatch discards)
	if _, ok := cc.Get("srv", "tools"); ok {
		t.Error("expected version mismatch to discard cache")
	}
}

func TestCapCache_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	cachePath, _ := CapCachePath(configPath)

	// Write corrupt JSON
	_ = os.WriteFile(cachePath, []byte("{corrupt"), 0600)

	cc, err := NewCapCache(configPath)
	if err != nil {
		t.Fatalf("NewCapCache: %v", err)
	}

	// Should start fresh
	if _, ok := cc.Get("srv", "tools"); ok {
		t.Error("expected corrupt file to result in fresh cache")
	}
}

func TestCapCachePath_Default(t *testing.T) {
	path, err := CapCachePath("")
	if err != nil {
		t.Fatalf("CapCachePath: %v", err)
	}
	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".config", "mcpdial", "capcache.json")
	if path != expected {
		t.Errorf("expected %q, got %q", expected, path)
	}
}

func TestCapCachePath_CustomConfig(t *testing.T) {
	path, err := CapCachePath("/custom/path/config.json")
	if err != nil {
		t.Fatalf("CapCachePath: %v", err)
	}
	if path != "/custom/path/capcache.json" {
		t.Errorf("expected /custom/path/capcache.json, got %q", path)
	}
}

func TestCapCachePath_TildeExpansion(t *testing.T) {
	path, err := CapCachePath("~/foo/config.json")
	if err != nil {
		t.Fatalf("CapCachePath: %v", err)
	}
	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, "foo", "capcache.json")
	if path != expected {
		t.Errorf("expected %q, got %q", expected, path)
	}
}

func TestCapCache_ConcurrentUpdates(t *testing.T) {
	cc := newTestCapCache(t)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			caps := []CapabilityInput{
				{Name: "tool", Description: "desc"},
			}
			_ = cc.Update("server", "tools", caps)
		}(i)
	}
	wg.Wait()

	listing, ok := cc.Get("server", "tools")
	if !ok {
		t.Fatal("expected tools to be cached after concurrent updates")
	}
	if len(listing.Capabilities) != 1 {
		t.Errorf("expected 1 tool, got %d", len(listing.Capabilities))
	}
}
