package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oakridge-association/sitesearch/internal/log"
	"github.com/oakridge-association/sitesearch/internal/ui"
	"github.com/oakridge-association/sitesearch/internal/ui/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal search",
	Long: `Launch the interactive search. Results update as you type.

Controls:
  Enter    - Search now
  ↑/↓      - Move selection
  Ctrl+F   - Show/hide filters
  Ctrl+T   - Cycle document type
  Ctrl+Y   - Cycle year
  Ctrl+O   - Cycle quarter
  Ctrl+G   - Cycle tag
  Ctrl+R   - Clear filters
  Esc      - Hide suggestions / quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("tui requires an interactive terminal; use the query command instead")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, l := newEngine(cfg)
	defer l.Close()

	// Log lines would corrupt the alternate screen.
	if !debug {
		log.SetOutput(io.Discard)
	}

	surface := tui.New()
	controller := ui.NewController(engine, surface, ui.Options{
		Debounce:        cfg.Debounce.Duration,
		SuggestionLimit: cfg.SuggestionLimit,
		Limit:           cfg.DefaultLimit,
	})
	if err := surface.Run(cmd.Context(), controller); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
