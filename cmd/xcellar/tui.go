package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/xcellar/xcellar/internal/bootstrap"
	"github.com/xcellar/xcellar/internal/config"
	"github.com/xcellar/xcellar/internal/migrations"
	"github.com/xcellar/xcellar/internal/repository/sqlite"
	"github.com/xcellar/xcellar/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"tui"},
	Short:   "Launch the interactive operations dashboard",
	Long:    "Launch an interactive terminal UI showing platform stats and recent orders in real-time.",
	RunE:    runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := bootstrap.OpenSQLite(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := migrations.Up(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	store := sqlite.NewStore(db)

	model := tui.NewModel(store)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}

	return nil
}
