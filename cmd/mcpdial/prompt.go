package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	promptArgFlags []string
	promptJSON     bool
)

var promptCmd = &cobra.Command{
	Use:   "prompt <server> <name>",
	Short: "Render a prompt from a server",
	Long: `Fetch a prompt by name with the given arguments and print its rendered
messages.

Example:
  mcpdial prompt writer blog-post --arg topic=databases --arg tone=casual`,
	Args: cobra.ExactArgs(2),
	RunE: runPrompt,
}

func init() {
	promptCmd.Flags().StringArrayVarP(&promptArgFlags, "arg", "a", nil, "Prompt argument (key=value), can be repeated")
	promptCmd.Flags().BoolVar(&promptJSON, "json", false, "Output the raw result as JSON")

	rootCmd.AddCommand(promptCmd)
}

func runPrompt(cmd *cobra.Command, args []string) error {
	server, name := args[0], args[1]

	promptArgs, err := parsePromptArgs(promptArgFlags)
	if err != nil {
		return err
	}

	sess, err := connectTo(cmd.Context(), server, 0)
	if err != nil {
		return err
	}
	defer sess.Close()

	result, err := sess.GetPrompt(cmd.Context(), name, promptArgs)
	if err != nil {
		return err
	}

	if promptJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	newRenderer(os.Stdout).PromptResult(result)
	return nil
}

// parsePromptArgs parses key=value pairs from --arg flags. Prompt arguments
// are always strings on the wire.
func parsePromptArgs(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}

	parsed := make(map[string]string)
	for _, kv := range flags {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --arg format %q: expected key=value", kv)
		}
		key := parts[0]
		if key == "" {
			return nil, fmt.Errorf("invalid --arg format %q: key cannot be empty", kv)
		}
		parsed[key] = parts[1]
	}
	return parsed, nil
}
