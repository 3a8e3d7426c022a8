package services

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driven"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyLibraryBaseURL     = "library.base_url"
	keyLibraryType        = "library.type"
	keyLibraryID          = "library.id"
	keyLibraryAPIKey      = "library.api_key"
	keyTabletRmapi        = "tablet.rmapi"
	keyTabletRoot         = "tablet.root"
	keyTabletUnread       = "tablet.unread_folder"
	keyTabletRead         = "tablet.read_folder"
	keyStorageBackend     = "storage.backend"
	keyWebDAVURL          = "storage.webdav_url"
	keyWebDAVUser         = "storage.webdav_user"
	keyWebDAVPassword     = "storage.webdav_password"
	keyVerifyHash         = "storage.verify_hash"
	keyMaxAttempts        = "transfer.max_attempts"
	keyBackoffSeconds     = "transfer.backoff_seconds"
	keyRendererCommand    = "renderer.command"
	keyRendererArgs       = "renderer.args"
	keySyncWorkers        = "sync.workers"
	keySyncInterval       = "sync.interval_minutes"
	keyScratchDir         = "paths.scratch"
	keyPendingDir         = "paths.pending"
	keyLogFile            = "log.file"
	keyLogMaxSizeMB       = "log.max_size_mb"
	keyLogMaxBackups      = "log.max_backups"
	keySchedulerEnabled   = "scheduler.enabled"
	keySchedulerSyncPass  = "scheduler.sync_pass.enabled"
	keySchedulerPassEvery = "scheduler.sync_pass.interval"
)

// SettingsService maps the flat configuration store onto domain.Settings.
type SettingsService struct {
	configStore driven.ConfigStore
	homeDir     string
}

// NewSettingsService creates a new settings service. homeDir anchors the
// default log and pending locations.
func NewSettingsService(configStore driven.ConfigStore, homeDir string) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		homeDir:     homeDir,
	}
}

// Get retrieves current application settings, with defaults for
// anything not configured.
func (s *SettingsService) Get() (*domain.Settings, error) {
	d := s.GetDefaults()

	settings := &domain.Settings{
		Library: domain.LibrarySettings{
			BaseURL: strings.TrimRight(s.getString(keyLibraryBaseURL, d.Library.BaseURL), "/"),
			Type:    s.getString(keyLibraryType, d.Library.Type),
			ID:      s.configStore.GetString(keyLibraryID),
			APIKey:  s.configStore.GetString(keyLibraryAPIKey),
		},
		Tablet: domain.TabletSettings{
			RmapiPath:    s.getString(keyTabletRmapi, d.Tablet.RmapiPath),
			Root:         strings.TrimRight(s.getString(keyTabletRoot, d.Tablet.Root), "/"),
			UnreadFolder: strings.Trim(s.getString(keyTabletUnread, d.Tablet.UnreadFolder), "/"),
			ReadFolder:   strings.Trim(s.getString(keyTabletRead, d.Tablet.ReadFolder), "/"),
		},
		Storage: domain.StorageSettings{
			Backend:        s.getBackend(d.Storage.Backend),
			WebDAVURL:      s.configStore.GetString(keyWebDAVURL),
			WebDAVUser:     s.configStore.GetString(keyWebDAVUser),
			WebDAVPassword: s.configStore.GetString(keyWebDAVPassword),
			VerifyHash:     s.getBool(keyVerifyHash, d.Storage.VerifyHash),
		},
		Transfer: domain.TransferSettings{
			MaxAttempts: s.getInt(keyMaxAttempts, d.Transfer.MaxAttempts),
			Backoff:     s.getSeconds(keyBackoffSeconds, d.Transfer.Backoff),
		},
		Renderer: domain.RendererSettings{
			Command: s.getString(keyRendererCommand, d.Renderer.Command),
			Args:    d.Renderer.Args,
		},
		Sync: domain.SyncSettings{
			Workers:  s.getInt(keySyncWorkers, d.Sync.Workers),
			Interval: s.getMinutes(keySyncInterval, d.Sync.Interval),
		},
		Paths: domain.PathSettings{
			Scratch: s.getString(keyScratchDir, d.Paths.Scratch),
			Pending: s.getString(keyPendingDir, d.Paths.Pending),
		},
		Log: domain.LogSettings{
			File:       s.getString(keyLogFile, d.Log.File),
			MaxSizeMB:  s.getInt(keyLogMaxSizeMB, d.Log.MaxSizeMB),
			MaxBackups: s.getInt(keyLogMaxBackups, d.Log.MaxBackups),
		},
	}

	if _, exists := s.configStore.Get(keyRendererArgs); exists {
		settings.Renderer.Args = s.configStore.GetStringSlice(keyRendererArgs)
	}

	return settings, nil
}

// Save persists application settings. Empty secrets are not written so
// that saving defaults never erases a stored key.
func (s *SettingsService) Save(settings *domain.Settings) error {
	values := []struct {
		key string
		val any
	}{
		{keyLibraryBaseURL, settings.Library.BaseURL},
		{keyLibraryType, settings.Library.Type},
		{keyLibraryID, settings.Library.ID},
		{keyTabletRmapi, settings.Tablet.RmapiPath},
		{keyTabletRoot, settings.Tablet.Root},
		{keyTabletUnread, settings.Tablet.UnreadFolder},
		{keyTabletRead, settings.Tablet.ReadFolder},
		{keyStorageBackend, settings.Storage.Backend.String()},
		{keyWebDAVURL, settings.Storage.WebDAVURL},
		{keyWebDAVUser, settings.Storage.WebDAVUser},
		{keyVerifyHash, settings.Storage.VerifyHash},
		{keyMaxAttempts, settings.Transfer.MaxAttempts},
		{keyBackoffSeconds, int(settings.Transfer.Backoff / time.Second)},
		{keyRendererCommand, settings.Renderer.Command},
		{keyRendererArgs, settings.Renderer.Args},
		{keySyncWorkers, settings.Sync.Workers},
		{keySyncInterval, int(settings.Sync.Interval / time.Minute)},
		{keyScratchDir, settings.Paths.Scratch},
		{keyPendingDir, settings.Paths.Pending},
		{keyLogFile, settings.Log.File},
		{keyLogMaxSizeMB, settings.Log.MaxSizeMB},
		{keyLogMaxBackups, settings.Log.MaxBackups},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	secrets := map[string]string{
		keyLibraryAPIKey:  settings.Library.APIKey,
		keyWebDAVPassword: settings.Storage.WebDAVPassword,
	}
	for key, val := range secrets {
		if val == "" {
			continue
		}
		if err := s.configStore.Set(key, val); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}

	return nil
}

// Validate checks that settings are complete enough to run a pass.
// All problems are reported together.
func (s *SettingsService) Validate(settings *domain.Settings) error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidInput}, args...)...))
	}

	if !settings.Library.IsConfigured() {
		invalid("%s and %s are required", keyLibraryID, keyLibraryAPIKey)
	}
	if t := settings.Library.Type; t != "user" && t != "group" {
		invalid("%s must be user or group, got %q", keyLibraryType, t)
	}
	if _, err := url.ParseRequestURI(settings.Library.BaseURL); err != nil {
		invalid("%s: %v", keyLibraryBaseURL, err)
	}

	if !settings.Storage.Backend.IsValid() {
		invalid("%s must be native or webdav, got %q", keyStorageBackend, settings.Storage.Backend)
	}
	if settings.Storage.Backend == domain.StorageWebDAV {
		if settings.Storage.WebDAVURL == "" {
			invalid("%s is required for the webdav backend", keyWebDAVURL)
		} else if _, err := url.ParseRequestURI(settings.Storage.WebDAVURL); err != nil {
			invalid("%s: %v", keyWebDAVURL, err)
		}
	}

	if settings.Tablet.UnreadFolder == "" || settings.Tablet.ReadFolder == "" {
		invalid("tablet folders must not be empty")
	}
	if settings.Tablet.UnreadFolder == settings.Tablet.ReadFolder {
		invalid("%s and %s must differ", keyTabletUnread, keyTabletRead)
	}
	if settings.Transfer.MaxAttempts < 1 {
		invalid("%s must be at least 1", keyMaxAttempts)
	}
	if settings.Transfer.Backoff < 0 {
		invalid("%s must not be negative", keyBackoffSeconds)
	}
	if settings.Sync.Workers < 1 {
		invalid("%s must be at least 1", keySyncWorkers)
	}
	if settings.Renderer.Command == "" {
		invalid("%s is required", keyRendererCommand)
	}

	return errors.Join(errs...)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings(s.homeDir)
}

// GetSchedulerConfig returns the daemon's scheduler configuration.
// The pass interval comes from sync.interval_minutes unless the
// scheduler section overrides it with a duration string like "45m".
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	settings, _ := s.Get()
	cfg := domain.DefaultSchedulerConfig(settings.Sync.Interval)

	if _, exists := s.configStore.Get(keySchedulerEnabled); exists {
		cfg.Enabled = s.configStore.GetBool(keySchedulerEnabled)
	}

	task := cfg.TaskConfigs[domain.TaskIDSyncPass]
	if _, exists := s.configStore.Get(keySchedulerSyncPass); exists {
		task.Enabled = s.configStore.GetBool(keySchedulerSyncPass)
	}
	if raw := s.configStore.GetString(keySchedulerPassEvery); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			task.Interval = d
		}
	}
	cfg.TaskConfigs[domain.TaskIDSyncPass] = task

	return cfg
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return time.Duration(s.configStore.GetInt(key)) * time.Second
}

func (s *SettingsService) getMinutes(key string, defaultVal time.Duration) time.Duration {
	n := s.configStore.GetInt(key)
	if n <= 0 {
		return defaultVal
	}
	return time.Duration(n) * time.Minute
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	val := s.configStore.GetString(keyStorageBackend)
	if val == "" {
		return defaultVal
	}
	return domain.StorageBackend(strings.ToLower(val))
}
