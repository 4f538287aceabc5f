package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mcpdial/mcpdial/internal/config"
	"github.com/mcpdial/mcpdial/internal/observability"
	"github.com/mcpdial/mcpdial/internal/render"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version information, set via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

var (
	rootConfigPath string
	rootPlain      bool
	rootDebug      bool

	// cmdLogger is silent unless --debug routes it to a file.
	cmdLogger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mcpdial",
	Short: "Dial, inspect, and call MCP servers from the terminal",
	Long: `mcpdial is a terminal client for MCP (Model Context Protocol) servers.

It keeps a registry of stdio and SSE servers, lists their tools, resources,
and prompts, and invokes them directly from the command line or through an
interactive TUI.

Run without arguments to launch the TUI.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.PersistentFlags().StringVarP(&rootConfigPath, "config", "c", "", "Path to config file (default ~/.config/mcpdial/config.json)")
	rootCmd.PersistentFlags().BoolVar(&rootPlain, "plain", false, "Disable styled output")
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Write debug logs to /tmp/mcpdial-debug.log")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cmdLogger = newCmdLogger()
	}
}

// newCmdLogger returns a file-backed logger when --debug is set and a
// silent one otherwise. The log file stays open for the process lifetime.
func newCmdLogger() zerolog.Logger {
	if !rootDebug {
		return zerolog.Nop()
	}
	f, err := os.OpenFile("/tmp/mcpdial-debug.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop()
	}
	return observability.NewLogger("mcpdial", f).Level(observability.LevelFromEnv())
}

// loadConfig reads the config from --config when given, otherwise from the
// default location.
func loadConfig() (*config.Config, error) {
	if rootConfigPath != "" {
		return config.LoadFrom(rootConfigPath)
	}
	return config.Load()
}

// saveConfig writes the config back to wherever loadConfig read it from.
func saveConfig(cfg *config.Config) error {
	if rootConfigPath != "" {
		return config.SaveTo(cfg, rootConfigPath)
	}
	return config.Save(cfg)
}

// openCapCache returns the capability cache co-located with the active config.
func openCapCache() (*config.CapCache, error) {
	return config.NewCapCache(rootConfigPath)
}

func newRenderer(out io.Writer) *render.Renderer {
	return render.New(out, !rootPlain)
}
