package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mcpdial/mcpdial/internal/config"
	"github.com/mcpdial/mcpdial/internal/mcp"
	"github.com/spf13/cobra"
)

var resourcesJSON bool

var resourcesCmd = &cobra.Command{
	Use:   "resources <server>",
	Short: "List a server's resources",
	Args:  cobra.ExactArgs(1),
	RunE:  runResources,
}

func init() {
	resourcesCmd.Flags().BoolVar(&resourcesJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(resourcesCmd)
}

func runResources(cmd *cobra.Command, args []string) error {
	server := args[0]

	sess, err := connectTo(cmd.Context(), server, 0)
	if err != nil {
		return err
	}
	defer sess.Close()

	resources, err := sess.ListResources(cmd.Context())
	if err != nil {
		return err
	}
	updateCapCache(server, "resources", resourceInputs(resources))

	if resourcesJSON {
		data, err := json.MarshalIndent(resources, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal resources: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	newRenderer(os.Stdout).Resources(resources)
	return nil
}

// resourceInputs maps resources into the uniform capability shape: the URI
// is the name, with the human name standing in for a missing description.
func resourceInputs(resources []mcp.Resource) []config.CapabilityInput {
	inputs := make([]config.CapabilityInput, len(resources))
	for i, r := range resources {
		desc := r.Description
		if desc == "" {
			desc = r.Name
		}
		inputs[i] = config.CapabilityInput{Name: r.URI, Description: desc}
	}
	return inputs
}
