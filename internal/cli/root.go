// Package cli provides the command-line interface for sortdesk.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sortdesk/sortdesk/internal/channel"
	"github.com/sortdesk/sortdesk/internal/config"
	"github.com/sortdesk/sortdesk/internal/history"
	"github.com/sortdesk/sortdesk/internal/tui"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	verbose bool
)

// rootCmd launches the interactive client.
var rootCmd = &cobra.Command{
	Use:   "sortdesk",
	Short: "Review file proposals from the organizer daemon",
	Long: `Sortdesk is the terminal client for the file-organizer daemon. It shows
the daemon's category proposals for new files, relays your move and skip
decisions, and drives the folder embedding and grouping jobs.

The daemon must already be running; sortdesk only observes and decides.`,
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClient()
	},
}

func runClient() error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("sortdesk is interactive and needs a terminal; use 'sortdesk history' for scripted access")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if verbose {
		level = slog.LevelDebug
	}
	// No console logging: the TUI owns the terminal.
	logger, cleanup := config.SetupLogger(cfg.LogFile, level, false)
	defer cleanup()
	logger = logger.With("session", uuid.New().String())

	// A missing log store degrades the history view, nothing else.
	var querier tui.Querier
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		logger.Warn("history log unavailable", "path", cfg.HistoryDB, "error", err)
	} else {
		querier = store
		defer store.Close()
	}

	conn, err := channel.Dial(context.Background(), cfg.DaemonURL, logger)
	if err != nil {
		return fmt.Errorf("connect to daemon at %s (is it running?): %w", cfg.DaemonURL, err)
	}
	defer conn.Close()

	p := tea.NewProgram(tui.New(conn, querier, logger))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run client: %w", err)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(historyCmd)
}
