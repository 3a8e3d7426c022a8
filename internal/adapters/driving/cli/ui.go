package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/adapters/driving/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive dashboard",
	Long: `Shows recent passes and the progress of a running pass.

Controls:
  s  - Sync (push then pull)
  p  - Push only
  l  - Pull only
  r  - Retry pending files
  f5 - Refresh history
  q  - Quit`,
	Args: cobra.NoArgs,
	RunE: runUI,
}

func init() {
	rootCmd.AddCommand(uiCmd)
}

func runUI(cmd *cobra.Command, _ []string) error {
	orch, err := requireSync()
	if err != nil {
		return err
	}

	app, err := tui.NewApp(&tui.Ports{Sync: orch, History: historyStore})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
