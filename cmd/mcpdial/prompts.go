package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mcpdial/mcpdial/internal/config"
	"github.com/mcpdial/mcpdial/internal/mcp"
	"github.com/spf13/cobra"
)

var promptsJSON bool

var promptsCmd = &cobra.Command{
	Use:   "prompts <server>",
	Short: "List a server's prompts",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrompts,
}

func init() {
	promptsCmd.Flags().BoolVar(&promptsJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(promptsCmd)
}

func runPrompts(cmd *cobra.Command, args []string) error {
	server := args[0]

	sess, err := connectTo(cmd.Context(), server, 0)
	if err != nil {
		return err
	}
	defer sess.Close()

	prompts, err := sess.ListPrompts(cmd.Context())
	if err != nil {
		return err
	}
	updateCapCache(server, "prompts", promptInputs(prompts))

	if promptsJSON {
		data, err := json.MarshalIndent(prompts, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal prompts: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	newRenderer(os.Stdout).Prompts(prompts)
	return nil
}

func promptInputs(prompts []mcp.Prompt) []config.CapabilityInput {
	inputs := make([]config.CapabilityInput, len(prompts))
	for i, p := range prompts {
		inputs[i] = config.CapabilityInput{Name: p.Name, Description: p.Description}
	}
	return inputs
}
