// Package cli provides the zrbridge command-line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driven"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driving"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/logger"
)

// skipSetup marks commands that run without wired services.
const skipSetup = "skip-setup"

// Services are the collaborators a command may need.
type Services struct {
	Settings  driving.SettingsService
	Sync      driving.SyncOrchestrator
	History   driven.HistoryStore
	Scheduler driving.Scheduler

	// PendingDir is watched by the daemon for files to retry.
	PendingDir string

	// Err explains why Sync is nil, typically incomplete configuration.
	Err error

	// Close releases resources after the command finishes.
	Close func() error
}

// Bootstrap builds Services from the configuration file at configPath.
type Bootstrap func(configPath string) (*Services, error)

var (
	version = "dev"

	configPath string
	verbose    bool

	bootstrap Bootstrap
	closeFn   func() error

	settingsService  driving.SettingsService
	syncOrchestrator driving.SyncOrchestrator
	historyStore     driven.HistoryStore
	scheduler        driving.Scheduler
	pendingDir       string
	setupErr         error
)

var rootCmd = &cobra.Command{
	Use:   "zrbridge",
	Short: "Sync Zotero attachments with a reMarkable tablet",
	Long: `zrbridge moves PDFs tagged to_sync from a Zotero library to a reMarkable
tablet, and brings annotated copies back once they are moved to the Read
folder. Item tags record where each item is in that cycle.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.zrbridge/config.toml)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap installs the function that wires services before a command runs.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	defer func() {
		if closeFn != nil {
			if err := closeFn(); err != nil {
				logger.Warn("closing services: %v", err)
			}
			closeFn = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if cmd.Annotations[skipSetup] != "" || bootstrap == nil {
		return nil
	}
	svc, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	setServices(svc)
	return nil
}

func setServices(svc *Services) {
	settingsService = svc.Settings
	syncOrchestrator = svc.Sync
	historyStore = svc.History
	scheduler = svc.Scheduler
	pendingDir = svc.PendingDir
	setupErr = svc.Err
	closeFn = svc.Close
}

// requireSync returns the orchestrator or the reason it is missing.
func requireSync() (driving.SyncOrchestrator, error) {
	if syncOrchestrator != nil {
		return syncOrchestrator, nil
	}
	if setupErr != nil {
		return nil, setupErr
	}
	return nil, errors.New("sync service not configured")
}
