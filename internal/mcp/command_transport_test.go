package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/mcpdial/mcpdial/internal/mcptest"
)

// TestHelperProcess is not a real test; it is the fake MCP server entry
// point for subprocess tests in this package.
func TestHelperProcess(t *testing.T) {
	mcptest.RunHelperProcess(t)
}

// startHelperTransport spawns the fake server as a real subprocess using
// the re-exec pattern and returns a transport connected to it.
func startHelperTransport(t *testing.T, cfg mcptest.FakeServerConfig) *CommandTransport {
	t.Helper()

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal fake server config: %v", err)
	}

	transport, err := StartCommand(CommandConfig{
		Command: os.Args[0],
		Args:    []string{"-test.run=TestHelperProcess", "--"},
		Env: map[string]string{
			"GO_WANT_HELPER_PROCESS": "1",
			"FAKE_MCP_CFG":           string(cfgJSON),
		},
	})
	if err != nil {
		t.Fatalf("StartCommand failed: %v", err)
	}
	t.Cleanup(func() { transport.Close() })
	return transport
}

func TestStartCommand_MissingExecutable(t *testing.T) {
	_, err := StartCommand(CommandConfig{Command: "/nonexistent/mcp-server-binary"})
	if err == nil {
		t.Fatal("expected spawn error, got nil")
	}
	var spawn *SpawnError
	if !errors.As(err, &spawn) {
		t.Fatalf("expected SpawnError, got %T: %v", err, err)
	}
	if spawn.Path != "/nonexistent/mcp-server-binary" {
		t.Errorf("unexpected path in error: %q", spawn.Path)
	}
}

func TestStartCommand_EmptyCommand(t *testing.T) {
	_, err := StartCommand(CommandConfig{})
	var spawn *SpawnError
	if !errors.As(err, &spawn) {
		t.Fatalf("expected SpawnError, got %T: %v", err, err)
	}
}

func TestCommandTransport_SessionRoundTrip(t *testing.T) {
	transport := startHelperTransport(t, mcptest.EchoToolsConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sess, err := Open(ctx, transport, Options{Server: "helper"})
	if err != nil {
		t.Fatalf("Open over subprocess failed: %v", err)
	}
	defer sess.Close()

	tools, err := sess.ListTools(ctx)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}

	args := json.RawMessage(`{"message":"hi"}`)
	result, err := sess.CallTool(ctx, "echo", args)
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	text, ok := result.Content[0].Text()
	if !ok {
		t.Fatal("expected text content")
	}
	if text != `echo({"message":"hi"})` {
		t.Errorf("unexpected echo text: %q", text)
	}

	sess.Close()

	// Closing the session terminates the child.
	select {
	case <-transport.Done():
	case <-time.After(5 * time.Second):
		t.Error("child did not exit after close")
	}
}

func TestCommandTransport_ChildCrashMidSession(t *testing.T) {
	cfg := mcptest.FakeServerConfig{
		Tools:         []mcptest.Tool{{Name: "boom"}},
		CrashOnMethod: "tools/list",
		CrashExitCode: 7,
	}
	transport := startHelperTransport(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sess, err := Open(ctx, transport, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sess.Close()

	_, err = sess.ListTools(ctx)
	if !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("expected ErrConnectionLost, got %v", err)
	}
	if sess.State() != StateClosed {
		t.Errorf("expected state closed, got %v", sess.State())
	}

	select {
	case <-transport.Done():
	case <-time.After(5 * time.Second):
		t.Error("child exit not observed")
	}
}

func TestCommandTransport_StderrDiagnosticsOnly(t *testing.T) {
	lines := make(chan string, 10)
	transport, err := StartCommand(CommandConfig{
		Command:      "sh",
		Args:         []string{"-c", `echo "warn: starting up" >&2; cat > /dev/null`},
		OnStderrLine: func(line string) { lines <- line },
	})
	if err != nil {
		t.Fatalf("StartCommand failed: %v", err)
	}
	defer transport.Close()

	select {
	case line := <-lines:
		if line != "warn: starting up" {
			t.Errorf("unexpected stderr line: %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stderr line")
	}

	tail := transport.StderrTail()
	if len(tail) != 1 || tail[0] != "warn: starting up" {
		t.Errorf("unexpected stderr tail: %v", tail)
	}
}

func TestCommandTransport_ReceiveContextCancel(t *testing.T) {
	transport, err := StartCommand(CommandConfig{
		Command: "sh",
		Args:    []string{"-c", "sleep 5"},
	})
	if err != nil {
		t.Fatalf("StartCommand failed: %v", err)
	}
	defer transport.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = transport.Receive(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}
}

func TestCommandTransport_EOFOnChildExit(t *testing.T) {
	transport, err := StartCommand(CommandConfig{
		Command: "sh",
		Args:    []string{"-c", "exit 0"},
	})
	if err != nil {
		t.Fatalf("StartCommand failed: %v", err)
	}
	defer transport.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = transport.Receive(ctx)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after child exit, got %v", err)
	}
}

func TestCommandTransport_SendAfterClose(t *testing.T) {
	transport := startHelperTransport(t, mcptest.DefaultConfig())
	if err := transport.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	ctx := context.Background()
	if err := transport.Send(ctx, []byte(`{}`)); err == nil {
		t.Error("expected error sending after close")
	}
	if _, err := transport.Receive(ctx); err == nil {
		t.Error("expected error receiving after close")
	}

	// Close is idempotent.
	if err := transport.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
