package mcptest

import (
	"encoding/json"
	"time"
)

// Common test configurations for fake MCP servers.

// DefaultConfig returns a minimal working fake server configuration.
func DefaultConfig() FakeServerConfig {
	return FakeServerConfig{
		Tools: []Tool{
			{Name: "read_file", Description: "Read a file from disk"},
			{Name: "write_file", Description: "Write content to a file"},
		},
	}
}

// DemoConfig returns a fake server exposing the full capability surface:
// tools with canned results, a readable resource, and a prompt.
func DemoConfig() FakeServerConfig {
	return FakeServerConfig{
		Tools: []Tool{
			{Name: "about_info", Description: "Describe this server"},
			{Name: "health_check", Description: "Report server health as JSON"},
		},
		ToolResults: map[string]ToolCallResult{
			"about_info":   {Content: []ContentBlock{{Type: "text", Text: "demo server"}}},
			"health_check": {Content: []ContentBlock{{Type: "text", Text: `{"ok":true}`}}},
		},
		Resources: []Resource{
			{URI: "demo://readme", Name: "readme", Description: "Project readme", MimeType: "text/plain"},
		},
		ResourceText: map[string]string{
			"demo://readme": "This is the demo readme.",
		},
		Prompts: []Prompt{
			{Name: "greeting", Description: "A short greeting prompt"},
		},
		PromptText: map[string]string{
			"greeting": "Say hello to the user.",
		},
	}
}

// EmptyToolsConfig returns a config with no tools.
func EmptyToolsConfig() FakeServerConfig {
	return FakeServerConfig{
		Tools: []Tool{},
	}
}

// SlowInitConfig returns a config that delays the initialize response.
func SlowInitConfig(delay time.Duration) FakeServerConfig {
	return FakeServerConfig{
		Tools: []Tool{{Name: "test_tool"}},
		Delays: map[string]time.Duration{
			"initialize": delay,
		},
	}
}

// SlowCallConfig returns a config that delays tools/call responses.
func SlowCallConfig(delay time.Duration) FakeServerConfig {
	cfg := DemoConfig()
	cfg.Delays = map[string]time.Duration{
		"tools/call": delay,
	}
	return cfg
}

// CrashOnInitConfig returns a config that crashes on initialize.
func CrashOnInitConfig(exitCode int) FakeServerConfig {
	return FakeServerConfig{
		CrashOnMethod: "initialize",
		CrashExitCode: exitCode,
	}
}

// CrashOnNthRequestConfig returns a config that crashes on the Nth request.
func CrashOnNthRequestConfig(n, exitCode int) FakeServerConfig {
	return FakeServerConfig{
		Tools:             []Tool{{Name: "test_tool"}},
		CrashOnNthRequest: n,
		CrashExitCode:     exitCode,
	}
}

// ErrorOnInitConfig returns a config that returns an error on initialize.
func ErrorOnInitConfig(code int, message string) FakeServerConfig {
	return FakeServerConfig{
		Errors: map[string]JSONRPCError{
			"initialize": {Code: code, Message: message},
		},
	}
}

// RejectVersionsConfig returns a config that refuses the given protocol
// versions during initialize, forcing the client down its version ladder.
func RejectVersionsConfig(versions ...string) FakeServerConfig {
	return FakeServerConfig{
		Tools:                  []Tool{{Name: "test_tool"}},
		RejectProtocolVersions: versions,
	}
}

// NotificationBeforeResponseConfig returns a config that sends a notification before each response.
// Tests that clients properly skip notifications when waiting for responses.
func NotificationBeforeResponseConfig() FakeServerConfig {
	return FakeServerConfig{
		Tools:                          []Tool{{Name: "test_tool"}},
		SendNotificationBeforeResponse: true,
	}
}

// MismatchedIDConfig returns a config that sends a response with wrong ID before the correct one.
// Tests that clients properly match response IDs.
func MismatchedIDConfig() FakeServerConfig {
	return FakeServerConfig{
		Tools:                 []Tool{{Name: "test_tool"}},
		SendMismatchedIDFirst: true,
	}
}

// MalformedResponseConfig returns a config that sends invalid JSON.
func MalformedResponseConfig() FakeServerConfig {
	return FakeServerConfig{
		Malformed: true,
	}
}

// EchoToolsConfig returns a config that echoes tool calls back as text.
// Useful for testing tool call routing.
func EchoToolsConfig() FakeServerConfig {
	return FakeServerConfig{
		Tools: []Tool{
			{Name: "echo", Description: "Echo the input back"},
			{Name: "greet", Description: "Return a greeting"},
		},
		EchoToolCalls: true,
	}
}

// ConcurrentEchoConfig returns an async-responding echo server whose per-call
// delay comes from a "sleepMs" argument, so overlapping calls complete out of
// submission order. In-process use only: the handler does not survive the
// re-exec config serialization.
func ConcurrentEchoConfig() FakeServerConfig {
	return FakeServerConfig{
		Tools:        []Tool{{Name: "echo", Description: "Echo the input back"}},
		RespondAsync: true,
		ToolHandler: func(name string, args json.RawMessage) ([]ContentBlock, bool, error) {
			var p struct {
				SleepMs int    `json:"sleepMs"`
				Value   string `json:"value"`
			}
			json.Unmarshal(args, &p)
			time.Sleep(time.Duration(p.SleepMs) * time.Millisecond)
			return []ContentBlock{{Type: "text", Text: p.Value}}, false, nil
		},
	}
}
