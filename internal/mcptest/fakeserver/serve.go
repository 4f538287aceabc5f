package fakeserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Serve runs the fake MCP server, reading requests from in and writing responses to out.
// It handles the initialize handshake plus the tools, resources, and prompts methods,
// with configurable delays, errors, crashes, and stream noise.
func Serve(ctx context.Context, in io.Reader, out io.Writer, cfg Config) error {
	s := &server{out: out, cfg: cfg}
	reader := bufio.NewReader(in)
	requestCount := 0
	methodAttempts := make(map[string]int) // track attempts per method for FailOnAttempt

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		default:
		}

		// Read JSON-RPC request (NDJSON framing - read until newline)
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			s.wg.Wait()
			return nil
		}
		if err != nil {
			s.wg.Wait()
			return err
		}

		var req rpcRequest
		if err := json.Unmarshal(bytes.TrimSpace(line), &req); err != nil {
			return err
		}

		requestCount++
		methodAttempts[req.Method]++
		attempt := methodAttempts[req.Method]

		// Check crash conditions
		if cfg.CrashOnNthRequest > 0 && requestCount >= cfg.CrashOnNthRequest {
			os.Exit(cfg.CrashExitCode)
		}
		if cfg.CrashOnMethod != "" && req.Method == cfg.CrashOnMethod {
			os.Exit(cfg.CrashExitCode)
		}

		if cfg.RespondAsync && req.ID != nil {
			s.wg.Add(1)
			go func(req rpcRequest, attempt int) {
				defer s.wg.Done()
				s.handle(req, attempt)
			}(req, attempt)
			continue
		}
		s.handle(req, attempt)
	}
}

// server holds the write side of the fake. The mutex keeps each response,
// including injected noise, contiguous when RespondAsync is set.
type server struct {
	out io.Writer
	cfg Config
	mu  sync.Mutex
	wg  sync.WaitGroup
}

func (s *server) handle(req rpcRequest, attempt int) {
	cfg := s.cfg

	// Apply delay if configured
	if delay, ok := cfg.Delays[req.Method]; ok {
		time.Sleep(delay)
	}

	// Notifications get no response
	if req.ID == nil {
		return
	}

	// Check for Malformed response mode
	if cfg.Malformed {
		s.mu.Lock()
		s.out.Write([]byte("this is not valid json\n"))
		s.mu.Unlock()
		return
	}

	// Check for FailOnAttempt (for retry testing)
	if failAttempt, ok := cfg.FailOnAttempt[req.Method]; ok && attempt == failAttempt {
		s.writeError(req.ID, JSONRPCError{
			Code: -32603, Message: "Simulated failure on attempt",
		})
		return
	}

	// Check for forced error
	if rpcErr, ok := cfg.Errors[req.Method]; ok {
		s.writeError(req.ID, rpcErr)
		return
	}

	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "tools/list":
		tools := cfg.Tools
		if tools == nil {
			tools = []Tool{}
		}
		s.writeResult(req.ID, ToolsListResult{Tools: tools})
	case "tools/call":
		s.handleToolCall(req)
	case "resources/list":
		resources := cfg.Resources
		if resources == nil {
			resources = []Resource{}
		}
		s.writeResult(req.ID, ResourcesListResult{Resources: resources})
	case "resources/read":
		s.handleReadResource(req)
	case "prompts/list":
		prompts := cfg.Prompts
		if prompts == nil {
			prompts = []Prompt{}
		}
		s.writeResult(req.ID, PromptsListResult{Prompts: prompts})
	case "prompts/get":
		s.handleGetPrompt(req)
	default:
		s.writeError(req.ID, JSONRPCError{
			Code: -32601, Message: "Method not found",
		})
	}
}

func (s *server) handleInitialize(req rpcRequest) {
	var params struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	json.Unmarshal(req.Params, &params)

	version := params.ProtocolVersion
	if version == "" {
		version = "2024-11-05"
	}
	for _, rejected := range s.cfg.RejectProtocolVersions {
		if version == rejected {
			s.writeError(req.ID, JSONRPCError{
				Code:    -32602,
				Message: "Unsupported protocol version",
				Data:    map[string]any{"requested": version},
			})
			return
		}
	}

	caps := Capabilities{Tools: &ToolsCapability{}}
	if len(s.cfg.Resources) > 0 || len(s.cfg.ResourceText) > 0 {
		caps.Resources = &ResourcesCapability{}
	}
	if len(s.cfg.Prompts) > 0 || len(s.cfg.PromptText) > 0 {
		caps.Prompts = &PromptsCapability{}
	}
	s.writeResult(req.ID, InitializeResult{
		ProtocolVersion: version,
		ServerInfo:      ServerInfo{Name: "fake-server", Version: "1.0.0"},
		Capabilities:    caps,
	})
}

func (s *server) handleToolCall(req rpcRequest) {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(req.ID, JSONRPCError{Code: -32602, Message: "Invalid params"})
		return
	}

	if s.cfg.ToolHandler != nil {
		content, isError, err := s.cfg.ToolHandler(params.Name, params.Arguments)
		if err != nil {
			s.writeError(req.ID, JSONRPCError{Code: -32603, Message: err.Error()})
			return
		}
		s.writeResult(req.ID, ToolCallResult{Content: content, IsError: isError})
		return
	}

	if result, ok := s.cfg.ToolResults[params.Name]; ok {
		s.writeResult(req.ID, result)
		return
	}

	if s.cfg.EchoToolCalls {
		text := fmt.Sprintf("%s(%s)", params.Name, string(params.Arguments))
		s.writeResult(req.ID, ToolCallResult{
			Content: []ContentBlock{{Type: "text", Text: text}},
		})
		return
	}

	s.writeError(req.ID, JSONRPCError{Code: -32602, Message: "Unknown tool: " + params.Name})
}

func (s *server) handleReadResource(req rpcRequest) {
	var params ReadResourceParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(req.ID, JSONRPCError{Code: -32602, Message: "Invalid params"})
		return
	}

	text, ok := s.cfg.ResourceText[params.URI]
	if !ok {
		s.writeError(req.ID, JSONRPCError{Code: -32002, Message: "Resource not found: " + params.URI})
		return
	}

	mimeType := "text/plain"
	for _, r := range s.cfg.Resources {
		if r.URI == params.URI && r.MimeType != "" {
			mimeType = r.MimeType
		}
	}
	s.writeResult(req.ID, ReadResourceResult{
		Contents: []ResourceContent{{URI: params.URI, MimeType: mimeType, Text: text}},
	})
}

func (s *server) handleGetPrompt(req rpcRequest) {
	var params GetPromptParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(req.ID, JSONRPCError{Code: -32602, Message: "Invalid params"})
		return
	}

	text, ok := s.cfg.PromptText[params.Name]
	if !ok {
		s.writeError(req.ID, JSONRPCError{Code: -32602, Message: "Unknown prompt: " + params.Name})
		return
	}

	description := ""
	for _, p := range s.cfg.Prompts {
		if p.Name == params.Name {
			description = p.Description
		}
	}
	s.writeResult(req.ID, GetPromptResult{
		Description: description,
		Messages: []PromptMessage{
			{Role: "user", Content: ContentBlock{Type: "text", Text: text}},
		},
	})
}

// writeResult writes a JSON-RPC response with NDJSON framing.
func (s *server) writeResult(id json.RawMessage, result any) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return err
	}
	resp := rpcResponse{JSONRPC: "2.0", ID: id, Result: resultJSON}
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeNoise()
	s.out.Write(data)
	s.out.Write([]byte("\n"))
	return nil
}

// writeError writes a JSON-RPC error response with NDJSON framing.
func (s *server) writeError(id json.RawMessage, rpcErr JSONRPCError) error {
	resp := rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcErr}
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeNoise()
	s.out.Write(data)
	s.out.Write([]byte("\n"))
	return nil
}

// writeNoise injects stream-realism messages ahead of a response.
// Callers must hold s.mu.
func (s *server) writeNoise() {
	if s.cfg.SendNotificationBeforeResponse {
		notification := rpcNotification{JSONRPC: "2.0", Method: "test/noise"}
		data, _ := json.Marshal(notification)
		s.out.Write(data)
		s.out.Write([]byte("\n"))
	}
	if s.cfg.SendMismatchedIDFirst {
		// A response nothing is waiting for; clients should discard it
		fake := rpcResponse{JSONRPC: "2.0", ID: json.RawMessage(`99999`), Result: json.RawMessage(`{}`)}
		data, _ := json.Marshal(fake)
		s.out.Write(data)
		s.out.Write([]byte("\n"))
	}
}
