package mcptest

import (
	"bufio"
	"encoding/json"
	"testing"
	"time"
)

// TestHelperProcess is the entry point for the fake server subprocess.
// StartFakeServer re-execs the test binary with -test.run=TestHelperProcess
// and GO_WANT_HELPER_PROCESS=1; outside that mode this test is a no-op.
func TestHelperProcess(t *testing.T) {
	RunHelperProcess(t)
}

func TestStartFakeServer_RoundTrip(t *testing.T) {
	stdin, stdout, _ := StartFakeServer(t, DefaultConfig())

	req := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"mcptest","version":"0"}}}` + "\n"
	if _, err := stdin.Write([]byte(req)); err != nil {
		t.Fatalf("write initialize: %v", err)
	}

	lineCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		r := bufio.NewReader(stdout)
		line, err := r.ReadString('\n')
		if err != nil {
			errCh <- err
			return
		}
		lineCh <- line
	}()

	var line string
	select {
	case line = <-lineCh:
	case err := <-errCh:
		t.Fatalf("read initialize response: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for initialize response")
	}

	var resp struct {
		ID     int             `json:"id"`
		Result json.RawMessage `json:"result"`
		Error  json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		t.Fatalf("unmarshal response %q: %v", line, err)
	}
	if resp.ID != 1 {
		t.Errorf("response id = %d, want 1", resp.ID)
	}
	if resp.Error != nil {
		t.Errorf("initialize returned error: %s", resp.Error)
	}
	if resp.Result == nil {
		t.Error("initialize returned no result")
	}

	var init struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	if err := json.Unmarshal(resp.Result, &init); err != nil {
		t.Fatalf("unmarshal initialize result: %v", err)
	}
	if init.ProtocolVersion == "" {
		t.Error("initialize result missing protocolVersion")
	}
}
