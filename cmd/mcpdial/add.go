package main

import (
	"fmt"
	"strings"

	"github.com/mcpdial/mcpdial/internal/config"
	"github.com/spf13/cobra"
)

var (
	addEnvFlags    []string
	addHeaderFlags []string
	addCwd         string
	addURL         string
	addTimeout     int
	addDisabled    bool
)

var addCmd = &cobra.Command{
	Use:   "add <name> [<url> | -- <command> [args...]]",
	Short: "Add a new MCP server",
	Long: `Add a new MCP server to the configuration.

For stdio servers, the command and arguments follow the -- separator.
For SSE servers, provide the URL as a positional argument (or use --url).

Examples:
  # Stdio server
  mcpdial add context7 -- npx -y @upstash/context7-mcp
  mcpdial add my-server --env FOO=bar --env BAZ=qux -- ./server --flag
  mcpdial add filesystem --cwd /home/user -- npx -y @anthropics/mcp-fs

  # SSE server
  mcpdial add remote https://mcp.example.com
  mcpdial add remote https://mcp.example.com --header "Authorization=Bearer abc123"`,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringArrayVarP(&addEnvFlags, "env", "e", nil, "Environment variable (KEY=VALUE), can be repeated")
	addCmd.Flags().StringArrayVar(&addHeaderFlags, "header", nil, "HTTP header for SSE servers (KEY=VALUE), can be repeated")
	addCmd.Flags().StringVar(&addCwd, "cwd", "", "Working directory for the server")
	addCmd.Flags().StringVar(&addURL, "url", "", "Server URL for SSE transport")
	addCmd.Flags().IntVar(&addTimeout, "timeout", 0, "Per-call timeout in seconds (default 30)")
	addCmd.Flags().BoolVar(&addDisabled, "disabled", false, "Add the server in a disabled state")

	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	if addURL != "" {
		return runAddSSE(cmd, args)
	}

	// Second positional arg being a URL means SSE without the -- separator
	dashIdx := cmd.ArgsLenAtDash()
	if dashIdx == -1 && len(args) >= 2 && isURL(args[1]) {
		addURL = args[1]
		return runAddSSE(cmd, args[:1])
	}

	return runAddStdio(cmd, args)
}

// isURL checks if a string looks like an HTTP(S) URL.
func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func runAddStdio(cmd *cobra.Command, args []string) error {
	dashIdx := cmd.ArgsLenAtDash()
	if dashIdx == -1 {
		return fmt.Errorf("missing -- separator\n\nUsage: mcpdial add <name> -- <command> [args...]")
	}
	if dashIdx < 1 {
		return fmt.Errorf("missing server name\n\nUsage: mcpdial add <name> -- <command> [args...]")
	}
	name := args[0]

	cmdArgs := args[dashIdx:]
	if len(cmdArgs) < 1 {
		return fmt.Errorf("missing command after --\n\nUsage: mcpdial add <name> -- <command> [args...]")
	}

	env, err := parseEnvFlags(addEnvFlags)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	srv := config.ServerConfig{
		Name:           name,
		Kind:           config.ServerKindStdio,
		Command:        cmdArgs[0],
		Args:           cmdArgs[1:],
		Cwd:            addCwd,
		Env:            env,
		TimeoutSeconds: addTimeout,
	}
	if addDisabled {
		srv.SetEnabled(false)
	}

	if err := cfg.AddServer(srv); err != nil {
		return err
	}
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Added server %q\n", name)
	return nil
}

func runAddSSE(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("missing server name\n\nUsage: mcpdial add <name> <url>")
	}
	name := args[0]

	headers, err := parseHeaderFlags(addHeaderFlags)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	srv := config.ServerConfig{
		Name:           name,
		Kind:           config.ServerKindSSE,
		URL:            addURL,
		Headers:        headers,
		TimeoutSeconds: addTimeout,
	}
	if addDisabled {
		srv.SetEnabled(false)
	}

	if err := cfg.AddServer(srv); err != nil {
		return err
	}
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Added SSE server %q (%s)\n", name, addURL)
	return nil
}

// parseEnvFlags parses KEY=VALUE pairs from --env flags.
func parseEnvFlags(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}

	env := make(map[string]string)
	for _, kv := range flags {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --env format %q: expected KEY=VALUE", kv)
		}
		key := parts[0]
		if key == "" {
			return nil, fmt.Errorf("invalid --env format %q: key cannot be empty", kv)
		}
		env[key] = parts[1]
	}
	return env, nil
}

// parseHeaderFlags parses KEY=VALUE pairs from --header flags.
func parseHeaderFlags(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}

	headers := make(map[string]string)
	for _, kv := range flags {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --header format %q: expected KEY=VALUE", kv)
		}
		key := parts[0]
		if key == "" {
			return nil, fmt.Errorf("invalid --header format %q: key cannot be empty", kv)
		}
		headers[key] = parts[1]
	}
	return headers, nil
}
