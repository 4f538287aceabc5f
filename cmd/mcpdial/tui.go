package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mcpdial/mcpdial/internal/dial"
	"github.com/mcpdial/mcpdial/internal/events"
	"github.com/mcpdial/mcpdial/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [server]",
	Short: "Run the interactive terminal UI",
	Long: `Run mcpdial in interactive TUI mode. With a server name, that
server is dialed immediately and the tool listing opens first.

Use this for:
  - Browsing configured servers and connecting to them
  - Exploring a server's tools with token counts
  - Calling tools and viewing results without leaving the terminal
  - Watching server notifications and stderr as they arrive`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cmdLogger.Info().Int("servers", len(cfg.Servers)).Msg("starting TUI")

	bus := events.NewBus()
	defer bus.Close()

	// Mirror bus traffic into the debug log
	bus.Subscribe(func(e events.Event) {
		switch evt := e.(type) {
		case events.StateEvent:
			cmdLogger.Debug().Str("server", evt.Server()).Str("state", evt.State).Msg("event: state")
		case events.NotificationEvent:
			cmdLogger.Debug().Str("server", evt.Server()).Str("method", evt.Method).Msg("event: notification")
		case events.StderrEvent:
			cmdLogger.Debug().Str("server", evt.Server()).Str("line", evt.Line).Msg("event: stderr")
		}
	})

	dialer := dial.NewDialer(dial.Options{
		ClientName:    "mcpdial",
		ClientVersion: version,
		Logger:        cmdLogger,
		Bus:           bus,
	})

	model := tui.NewModel(cfg, rootConfigPath, dialer, bus, cmdLogger)

	if len(args) == 1 {
		name := args[0]
		srv := cfg.GetServer(name)
		if srv == nil {
			return fmt.Errorf("server %q not found (try 'mcpdial servers')", name)
		}
		if !srv.IsEnabled() {
			return fmt.Errorf("server %q is disabled", name)
		}
		model.SetInitialServer(name)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	p := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		<-sigCh
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	// Sessions left open by a signal-driven quit still need closing.
	dialer.CloseAll()

	cmdLogger.Info().Msg("TUI exiting")
	return nil
}
