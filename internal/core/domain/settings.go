package domain

import (
	"os"
	"path/filepath"
	"time"
)

const unknownDescription = "Unknown"

// StorageBackend selects where attachment bytes live.
type StorageBackend string

// Available storage backends.
const (
	// StorageNative uses the library's managed file storage.
	StorageNative StorageBackend = "native"

	// StorageWebDAV emulates the library's WebDAV storage protocol.
	StorageWebDAV StorageBackend = "webdav"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	return b == StorageNative || b == StorageWebDAV
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b StorageBackend) Description() string {
	switch b {
	case StorageNative:
		return "Native (library file storage)"
	case StorageWebDAV:
		return "WebDAV (emulated storage protocol)"
	default:
		return unknownDescription
	}
}

// LibrarySettings configures the bibliographic library client.
type LibrarySettings struct {
	BaseURL string

	// Type is "user" or "group".
	Type string

	// ID is the numeric user or group ID.
	ID string

	APIKey string
}

// IsConfigured returns true if the library can be reached.
func (s LibrarySettings) IsConfigured() bool {
	return s.ID != "" && s.APIKey != ""
}

// TabletSettings configures the tablet client and folder layout.
type TabletSettings struct {
	// RmapiPath is the rmapi executable.
	RmapiPath string

	// Root is the tablet folder holding the bridge's folders.
	Root string

	UnreadFolder string
	ReadFolder   string
}

// UnreadPath returns the remote folder new documents are pushed to.
func (s TabletSettings) UnreadPath() string {
	return s.Root + "/" + s.UnreadFolder
}

// ReadPath returns the remote folder finished documents are pulled from.
// It carries a trailing slash so entity names can be appended.
func (s TabletSettings) ReadPath() string {
	return s.Root + "/" + s.ReadFolder + "/"
}

// StorageSettings configures the attachment backend.
type StorageSettings struct {
	Backend        StorageBackend
	WebDAVURL      string
	WebDAVUser     string
	WebDAVPassword string

	// VerifyHash makes fetches check the properties document hash.
	VerifyHash bool
}

// TransferSettings bounds remote store retries.
type TransferSettings struct {
	MaxAttempts int
	Backoff     time.Duration
}

// RendererSettings configures the external annotation renderer.
type RendererSettings struct {
	Command string
	Args    []string
}

// SyncSettings configures pass execution.
type SyncSettings struct {
	// Workers bounds concurrent items in a push.
	Workers int

	// Interval is the daemon's pass interval.
	Interval time.Duration
}

// PathSettings locates local working areas.
type PathSettings struct {
	// Scratch holds per-operation working directories.
	Scratch string

	// Pending holds rendered files kept for manual inspection or retry.
	Pending string
}

// LogSettings configures the log file.
type LogSettings struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Settings is the complete application configuration.
type Settings struct {
	Library  LibrarySettings
	Tablet   TabletSettings
	Storage  StorageSettings
	Transfer TransferSettings
	Renderer RendererSettings
	Sync     SyncSettings
	Paths    PathSettings
	Log      LogSettings
}

// DefaultSettings returns sensible defaults rooted at homeDir.
func DefaultSettings(homeDir string) Settings {
	appDir := filepath.Join(homeDir, ".zrbridge")
	return Settings{
		Library: LibrarySettings{
			BaseURL: "https://api.zotero.org",
			Type:    "user",
		},
		Tablet: TabletSettings{
			RmapiPath:    "rmapi",
			Root:         "/Zotero",
			UnreadFolder: "Unread",
			ReadFolder:   "Read",
		},
		Storage: StorageSettings{
			Backend:    StorageNative,
			VerifyHash: true,
		},
		Transfer: TransferSettings{
			MaxAttempts: 3,
			Backoff:     5 * time.Second,
		},
		Renderer: RendererSettings{
			Command: "python3",
			Args:    []string{"-m", "remarks"},
		},
		Sync: SyncSettings{
			Workers:  1,
			Interval: time.Hour,
		},
		Paths: PathSettings{
			Scratch: filepath.Join(os.TempDir(), "zrbridge"),
			Pending: filepath.Join(appDir, "pending"),
		},
		Log: LogSettings{
			File:       filepath.Join(appDir, "sync.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}
