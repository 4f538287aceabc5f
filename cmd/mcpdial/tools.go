package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mcpdial/mcpdial/internal/config"
	"github.com/mcpdial/mcpdial/internal/mcp"
	"github.com/spf13/cobra"
)

var (
	toolsJSON   bool
	toolsCached bool
)

var toolsCmd = &cobra.Command{
	Use:   "tools <server>",
	Short: "List a server's tools with token counts",
	Long: `List the tools a server exposes, with an estimated token count for each
(name, description, and input schema as seen by a model).

With --cached the listing comes from the local capability cache without
connecting; run without --cached (or use 'mcpdial probe') to refresh it.`,
	Args: cobra.ExactArgs(1),
	RunE: runTools,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "Output as JSON")
	toolsCmd.Flags().BoolVar(&toolsCached, "cached", false, "Use the cached listing without connecting")

	rootCmd.AddCommand(toolsCmd)
}

// toolView is the JSON output shape for one tool.
type toolView struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
	TokenCount  int             `json:"tokenCount"`
}

func runTools(cmd *cobra.Command, args []string) error {
	server := args[0]

	var tools []mcp.Tool
	counts := make(map[string]int)

	if toolsCached {
		cache, err := openCapCache()
		if err != nil {
			return err
		}
		listing, ok := cache.Get(server, "tools")
		if !ok {
			return fmt.Errorf("no cached tools for %q (run 'mcpdial tools %s' once to populate it)", server, server)
		}
		for _, c := range listing.Capabilities {
			tools = append(tools, mcp.Tool{
				Name:        c.Name,
				Description: c.Description,
				InputSchema: c.InputSchema,
			})
			counts[c.Name] = c.TokenCount
		}
	} else {
		sess, err := connectTo(cmd.Context(), server, 0)
		if err != nil {
			return err
		}
		defer sess.Close()

		tools, err = sess.ListTools(cmd.Context())
		if err != nil {
			return err
		}
		for _, t := range tools {
			counts[t.Name] = config.CountCapabilityTokens(t.Name, t.Description, t.InputSchema)
		}
		updateCapCache(server, "tools", toolInputs(tools))
	}

	if toolsJSON {
		views := make([]toolView, 0, len(tools))
		for _, t := range tools {
			views = append(views, toolView{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: t.InputSchema,
				TokenCount:  counts[t.Name],
			})
		}
		data, err := json.MarshalIndent(views, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal tools: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	newRenderer(os.Stdout).Tools(tools, counts)
	return nil
}

func toolInputs(tools []mcp.Tool) []config.CapabilityInput {
	inputs := make([]config.CapabilityInput, len(tools))
	for i, t := range tools {
		inputs[i] = config.CapabilityInput{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		}
	}
	return inputs
}

// updateCapCache refreshes one cached listing, ignoring cache errors: a
// broken cache never fails a live command.
func updateCapCache(server, kind string, caps []config.CapabilityInput) {
	cache, err := openCapCache()
	if err != nil {
		return
	}
	_ = cache.Update(server, kind, caps)
}
