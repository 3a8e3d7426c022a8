// Command zrbridge syncs PDFs between a Zotero library and a reMarkable tablet.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/adapters/driven/backend"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/adapters/driven/config/file"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/adapters/driven/remarkable"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/adapters/driven/remarks"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/adapters/driven/storage/sqlite"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/adapters/driven/webdav"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/adapters/driven/zotero"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/adapters/driving/cli"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driven"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/services"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/logger"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/transfer"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(wire)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// wire builds the services for one command. Incomplete configuration is
// not an error here: config and history commands still work, and the
// sync commands report the validation failure.
func wire(configPath string) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(configPath)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, home)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	logger.SetFile(settings.Log.File, settings.Log.MaxSizeMB, settings.Log.MaxBackups)

	// The database lives next to the config file.
	store, err := sqlite.NewStore(filepath.Dir(configStore.Path()))
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	svc := &cli.Services{
		Settings:   settingsService,
		History:    store.HistoryStore(),
		PendingDir: settings.Paths.Pending,
		Close: func() error {
			return errors.Join(store.Close(), logger.Close())
		},
	}

	if err := settingsService.Validate(settings); err != nil {
		svc.Err = fmt.Errorf("configuration incomplete, run 'zrbridge config init': %w", err)
		return svc, nil
	}

	orch, err := newOrchestrator(settings, store.HistoryStore())
	if err != nil {
		svc.Err = err
		return svc, nil
	}
	svc.Sync = orch
	svc.Scheduler = services.NewScheduler(
		settingsService.GetSchedulerConfig(), store.SchedulerStore(), orch, store.HistoryStore())
	return svc, nil
}

// newOrchestrator connects the orchestrator to the configured collaborators.
func newOrchestrator(settings *domain.Settings, history driven.HistoryStore) (*services.SyncOrchestrator, error) {
	library, err := zotero.NewClient(context.Background(), zotero.ConfigFromSettings(settings.Library))
	if err != nil {
		return nil, fmt.Errorf("library client: %w", err)
	}

	attachments, err := newBackend(settings, library)
	if err != nil {
		return nil, err
	}

	return services.NewSyncOrchestrator(
		library,
		remarkable.NewClient(settings.Tablet.RmapiPath),
		remarks.New(settings.Renderer.Command, settings.Renderer.Args),
		attachments,
		history,
		services.SyncConfigFromSettings(settings),
	), nil
}

func newBackend(settings *domain.Settings, library driven.LibraryClient) (driven.AttachmentBackend, error) {
	switch settings.Storage.Backend {
	case domain.StorageWebDAV:
		files, err := webdav.NewFileStore(
			settings.Storage.WebDAVURL, settings.Storage.WebDAVUser, settings.Storage.WebDAVPassword)
		if err != nil {
			return nil, fmt.Errorf("webdav store: %w", err)
		}
		client := transfer.New(files,
			transfer.WithMaxAttempts(settings.Transfer.MaxAttempts),
			transfer.WithBackoff(settings.Transfer.Backoff),
		)
		return backend.NewEmulated(library, client, settings.Storage.VerifyHash), nil
	default:
		return backend.NewNative(library), nil
	}
}
