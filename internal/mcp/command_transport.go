package mcp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

const (
	// GracefulShutdownTimeout is how long Close waits for the child to
	// exit after stdin is closed and SIGTERM is sent, before SIGKILL.
	GracefulShutdownTimeout = 5 * time.Second

	// stderrTailLimit bounds the retained tail of the child's stderr.
	stderrTailLimit = 200
)

// CommandConfig describes the child process for a command transport.
type CommandConfig struct {
	// Command is the executable path or name (resolved via PATH).
	Command string
	// Args is the ordered argument list, possibly empty.
	Args []string
	// Dir is the working directory for the child. Empty means inherit.
	Dir string
	// Env holds additional environment variables, merged over the
	// current environment.
	Env map[string]string
	// OnStderrLine, when set, receives each line of the child's stderr.
	// Stderr is never parsed as protocol data; it is diagnostic only.
	OnStderrLine func(line string)
	// Logger receives transport diagnostics. The zero value is silent.
	Logger zerolog.Logger
}

// CommandTransport is the process variant of Transport: it spawns a child
// process and speaks newline-delimited JSON over its stdin/stdout. The
// transport owns the child; Close terminates it and releases the pipes on
// every exit path.
type CommandTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	reader *bufio.Reader
	log    zerolog.Logger

	writeMu sync.Mutex

	tail   []string
	tailMu sync.Mutex

	done    chan struct{} // closed when the child has been reaped
	exitErr error         // valid after done is closed

	mu     sync.Mutex
	closed bool
}

// StartCommand spawns the configured child process and returns a connected
// transport. A missing or unstartable executable fails with *SpawnError.
func StartCommand(cfg CommandConfig) (*CommandTransport, error) {
	if cfg.Command == "" {
		return nil, &SpawnError{Path: cfg.Command, Err: errors.New("empty command")}
	}

	cmd := exec.Command(cfg.Command, cfg.Args...)
	if cfg.Dir != "" {
		cmd.Dir = cfg.Dir
	}
	cmd.Env = buildEnv(cfg.Env)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Path: cfg.Command, Err: err}
	}

	t := &CommandTransport{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		reader: bufio.NewReader(stdout),
		log:    cfg.Logger,
		done:   make(chan struct{}),
	}

	go t.drainStderr(stderr, cfg.OnStderrLine)
	go t.watch()

	t.log.Debug().Str("command", cfg.Command).Strs("args", cfg.Args).Int("pid", cmd.Process.Pid).Msg("child started")
	return t, nil
}

// Send writes one message using NDJSON framing.
func (t *CommandTransport) Send(ctx context.Context, msg []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return errors.New("transport closed")
	}

	t.log.Trace().Str("dir", "send").Str("msg", string(msg)).Msg("stdio frame")

	if _, err := t.stdin.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if _, err := t.stdin.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

// readResult holds the result of an async read operation.
type readResult struct {
	line []byte
	err  error
}

// Receive reads the next NDJSON message. It returns io.EOF when the
// child's stdout ends, and respects context cancellation by closing the
// pipe to unblock the pending read.
func (t *CommandTransport) Receive(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, errors.New("transport closed")
	}

	for {
		resultCh := make(chan readResult, 1)
		go func() {
			line, err := t.reader.ReadBytes('\n')
			resultCh <- readResult{line: line, err: err}
		}()

		select {
		case result := <-resultCh:
			msg := bytes.TrimSpace(result.line)
			if result.err != nil {
				if len(msg) > 0 {
					return nil, &FramingError{Reason: "truncated frame at end of stream", Frame: msg}
				}
				if errors.Is(result.err, io.EOF) || errors.Is(result.err, os.ErrClosed) {
					return nil, io.EOF
				}
				return nil, fmt.Errorf("read line: %w", result.err)
			}
			if len(msg) == 0 {
				continue
			}
			t.log.Trace().Str("dir", "recv").Str("msg", string(msg)).Msg("stdio frame")
			return msg, nil

		case <-ctx.Done():
			// Close stdout to unblock the read goroutine.
			_ = t.stdout.Close()
			return nil, ctx.Err()
		}
	}
}

// Close terminates the child and releases the pipes: stdin is closed to
// signal end of input, the child gets SIGTERM and a grace period, then
// SIGKILL. Safe to call more than once.
func (t *CommandTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	_ = t.stdin.Close()

	if t.cmd.Process != nil {
		_ = t.cmd.Process.Signal(syscall.SIGTERM)

		select {
		case <-t.done:
		case <-time.After(GracefulShutdownTimeout):
			t.log.Warn().Int("pid", t.cmd.Process.Pid).Msg("child did not exit in time, killing")
			_ = t.cmd.Process.Signal(syscall.SIGKILL)
			<-t.done
		}
	}

	_ = t.stdout.Close()
	return nil
}

// Done is closed once the child process has exited and been reaped.
func (t *CommandTransport) Done() <-chan struct{} {
	return t.done
}

// StderrTail returns the retained tail of the child's stderr, oldest
// first. Useful for diagnostics when the handshake fails.
func (t *CommandTransport) StderrTail() []string {
	t.tailMu.Lock()
	defer t.tailMu.Unlock()
	tail := make([]string, len(t.tail))
	copy(tail, t.tail)
	return tail
}

// drainStderr consumes the child's stderr so the child never blocks on a
// full pipe, keeping a bounded tail for diagnostics.
func (t *CommandTransport) drainStderr(stderr io.ReadCloser, sink func(string)) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 256*1024)
	for scanner.Scan() {
		line := scanner.Text()

		t.tailMu.Lock()
		t.tail = append(t.tail, line)
		if len(t.tail) > stderrTailLimit {
			t.tail = t.tail[len(t.tail)-stderrTailLimit:]
		}
		t.tailMu.Unlock()

		t.log.Debug().Str("stream", "stderr").Msg(line)
		if sink != nil {
			sink(line)
		}
	}
}

// watch reaps the child and records its exit state.
func (t *CommandTransport) watch() {
	err := t.cmd.Wait()
	t.exitErr = err
	close(t.done)

	exitCode := 0
	signal := ""
	if t.cmd.ProcessState != nil {
		exitCode = t.cmd.ProcessState.ExitCode()
		if ws, ok := t.cmd.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			signal = ws.Signal().String()
		}
	}
	t.log.Debug().Int("code", exitCode).Str("signal", signal).Msg("child exited")
}

// buildEnv creates the environment for a subprocess with PATH augmentation.
func buildEnv(customEnv map[string]string) []string {
	env := os.Environ()

	// Augment PATH with common binary locations
	pathDirs := []string{
		"/opt/homebrew/bin",
		"/usr/local/bin",
		"/usr/bin",
		"/bin",
	}

	for i, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			currentPath := strings.TrimPrefix(e, "PATH=")
			env[i] = "PATH=" + strings.Join(pathDirs, ":") + ":" + currentPath
			break
		}
	}

	for k, v := range customEnv {
		found := false
		prefix := k + "="
		for i, e := range env {
			if strings.HasPrefix(e, prefix) {
				env[i] = k + "=" + v
				found = true
				break
			}
		}
		if !found {
			env = append(env, k+"="+v)
		}
	}

	return env
}
