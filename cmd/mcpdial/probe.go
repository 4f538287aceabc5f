package main

import (
	"encoding/json"
	"fmt"

	"github.com/mcpdial/mcpdial/internal/config"
	"github.com/mcpdial/mcpdial/internal/mcp"
	"github.com/spf13/cobra"
)

var probeJSON bool

var probeCmd = &cobra.Command{
	Use:   "probe <server>",
	Short: "Connect to a server and report what it offers",
	Long: `Connect to a server, perform the handshake, and report its identity and
capability counts. Successful listings refresh the local capability cache,
so 'mcpdial tools <server> --cached' works afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().BoolVar(&probeJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(probeCmd)
}

// probeView is the JSON output shape of a probe. Nil counts mean the
// server does not support that listing.
type probeView struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	ProtocolVersion string `json:"protocolVersion"`
	SessionID       string `json:"sessionId"`
	Tools           *int   `json:"tools"`
	ToolTokens      int    `json:"toolTokens,omitempty"`
	Resources       *int   `json:"resources"`
	Prompts         *int   `json:"prompts"`
}

func runProbe(cmd *cobra.Command, args []string) error {
	server := args[0]

	sess, err := connectTo(cmd.Context(), server, 0)
	if err != nil {
		return err
	}
	defer sess.Close()

	view := probeView{
		Name:            sess.ServerName(),
		Version:         sess.ServerVersion(),
		ProtocolVersion: sess.ProtocolVersion(),
		SessionID:       sess.ID(),
	}

	for _, kind := range []mcp.Kind{mcp.KindTools, mcp.KindResources, mcp.KindPrompts} {
		caps, err := sess.ListCapabilities(cmd.Context(), kind)
		if err != nil {
			// Servers advertise only some listings; a failed kind is
			// reported as unsupported, not a probe failure
			continue
		}
		n := len(caps)
		switch kind {
		case mcp.KindTools:
			view.Tools = &n
			for _, c := range caps {
				view.ToolTokens += config.CountCapabilityTokens(c.Name, c.Description, c.InputSchema)
			}
		case mcp.KindResources:
			view.Resources = &n
		case mcp.KindPrompts:
			view.Prompts = &n
		}
		updateCapCache(server, string(kind), capInputs(caps))
	}

	if probeJSON {
		data, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal probe result: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Server:    %s %s\n", view.Name, view.Version)
	fmt.Printf("Protocol:  %s\n", view.ProtocolVersion)
	fmt.Printf("Session:   %s\n", view.SessionID)
	fmt.Printf("Tools:     %s\n", probeCount(view.Tools, view.ToolTokens))
	fmt.Printf("Resources: %s\n", probeCount(view.Resources, 0))
	fmt.Printf("Prompts:   %s\n", probeCount(view.Prompts, 0))
	return nil
}

func probeCount(n *int, tokens int) string {
	if n == nil {
		return "not supported"
	}
	if tokens > 0 {
		return fmt.Sprintf("%d (%d tokens)", *n, tokens)
	}
	return fmt.Sprintf("%d", *n)
}

func capInputs(caps []mcp.Capability) []config.CapabilityInput {
	inputs := make([]config.CapabilityInput, len(caps))
	for i, c := range caps {
		inputs[i] = config.CapabilityInput{
			Name:        c.Name,
			Description: c.Description,
			InputSchema: c.InputSchema,
		}
	}
	return inputs
}
