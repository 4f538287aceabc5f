package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcpdial/mcpdial/internal/config"
	"github.com/spf13/cobra"
)

var serversJSON bool

var serversCmd = &cobra.Command{
	Use:     "servers",
	Aliases: []string{"list", "ls"},
	Short:   "List configured MCP servers",
	RunE:    runServers,
}

func init() {
	serversCmd.Flags().BoolVar(&serversJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(serversCmd)
}

// serverView is the JSON output shape for a configured server.
type serverView struct {
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	Target         string `json:"target"`
	Enabled        bool   `json:"enabled"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
}

func runServers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	servers := cfg.ServerList()

	if serversJSON {
		views := make([]serverView, 0, len(servers))
		for _, s := range servers {
			views = append(views, serverView{
				Name:           s.Name,
				Kind:           string(s.Kind),
				Target:         serverTarget(s),
				Enabled:        s.IsEnabled(),
				TimeoutSeconds: s.TimeoutSeconds,
			})
		}
		data, err := json.MarshalIndent(views, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal servers: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(servers) == 0 {
		fmt.Println("No servers configured. Add one with 'mcpdial add'.")
		return nil
	}

	nameWidth := len("NAME")
	kindWidth := len("KIND")
	for _, s := range servers {
		if len(s.Name) > nameWidth {
			nameWidth = len(s.Name)
		}
		if len(s.Kind) > kindWidth {
			kindWidth = len(string(s.Kind))
		}
	}

	fmt.Printf("%-*s  %-*s  %s\n", nameWidth, "NAME", kindWidth, "KIND", "TARGET")
	for _, s := range servers {
		target := serverTarget(s)
		if len(target) > 60 {
			target = target[:57] + "..."
		}
		if !s.IsEnabled() {
			target += " (disabled)"
		}
		fmt.Printf("%-*s  %-*s  %s\n", nameWidth, s.Name, kindWidth, s.Kind, target)
	}
	return nil
}

// serverTarget describes what the client connects to: the command line for
// stdio servers, the URL for SSE servers.
func serverTarget(s config.ServerConfig) string {
	if s.Kind == config.ServerKindSSE {
		return s.URL
	}
	if len(s.Args) == 0 {
		return s.Command
	}
	return s.Command + " " + strings.Join(s.Args, " ")
}
