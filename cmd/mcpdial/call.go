package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mcpdial/mcpdial/internal/mcp"
	"github.com/spf13/cobra"
)

var (
	callArgFlags []string
	callArgsJSON string
	callTimeout  int
	callJSON     bool
)

var callCmd = &cobra.Command{
	Use:   "call <server> <tool>",
	Short: "Call a tool on a server",
	Long: `Call a tool on a server and print the decoded result.

Arguments are given as repeated --arg key=value flags, as a single --args
JSON object, or both (--arg wins on conflicts). Values that parse as JSON
are passed through typed; anything else is sent as a string.

Examples:
  mcpdial call calc add --arg a=2 --arg b=3
  mcpdial call files read_file --args '{"path": "/etc/hosts"}'
  mcpdial call search query --arg q="hello world" --arg limit=5`,
	Args: cobra.ExactArgs(2),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringArrayVarP(&callArgFlags, "arg", "a", nil, "Tool argument (key=value), can be repeated")
	callCmd.Flags().StringVar(&callArgsJSON, "args", "", "Tool arguments as a JSON object")
	callCmd.Flags().IntVar(&callTimeout, "timeout", 0, "Call timeout in seconds (overrides the server's)")
	callCmd.Flags().BoolVar(&callJSON, "json", false, "Output the raw result as JSON")

	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	server, tool := args[0], args[1]

	toolArgs, err := buildToolArguments(callArgsJSON, callArgFlags)
	if err != nil {
		return err
	}

	sess, err := connectTo(cmd.Context(), server, time.Duration(callTimeout)*time.Second)
	if err != nil {
		return err
	}
	defer sess.Close()

	result, err := sess.CallTool(cmd.Context(), tool, toolArgs)
	if err != nil {
		return err
	}

	if callJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	r := newRenderer(os.Stdout)
	value, err := mcp.Decode(result)
	if err != nil {
		var inv *mcp.InvalidResultError
		if errors.As(err, &inv) {
			// Show the raw result on stdout, then fail so scripts see it
			r.Invalid(inv)
			return fmt.Errorf("tool %q did not return a usable result", tool)
		}
		return err
	}
	r.Value(value)
	return nil
}

// buildToolArguments merges --args JSON with --arg key=value pairs into one
// arguments object. Returns nil when neither is given so the call carries
// no arguments field at all.
func buildToolArguments(argsJSON string, argFlags []string) (json.RawMessage, error) {
	if argsJSON == "" && len(argFlags) == 0 {
		return nil, nil
	}

	merged := make(map[string]any)
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &merged); err != nil {
			return nil, fmt.Errorf("invalid --args: not a JSON object: %w", err)
		}
	}

	for _, kv := range argFlags {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --arg format %q: expected key=value", kv)
		}
		key := parts[0]
		if key == "" {
			return nil, fmt.Errorf("invalid --arg format %q: key cannot be empty", kv)
		}
		merged[key] = parseArgValue(parts[1])
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode arguments: %w", err)
	}
	return data, nil
}

// parseArgValue interprets an --arg value: JSON literals (numbers, bools,
// null, arrays, objects, quoted strings) pass through typed, everything
// else is a plain string.
func parseArgValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
