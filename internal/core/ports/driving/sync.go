package driving

import (
	"context"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
)

// SyncOrchestrator drives the library/tablet state machine.
type SyncOrchestrator interface {
	// RunPass runs one sync pass in the given mode.
	// Item-level failures are recorded in the report; the returned error
	// is reserved for failures that stop the whole pass.
	RunPass(ctx context.Context, mode domain.Mode) (*domain.PassReport, error)

	// UploadBack stores one rendered PDF against its owning attachment.
	UploadBack(ctx context.Context, pdfPath string) error

	// RetryPending re-runs upload-back for every PDF in the pending directory.
	RetryPending(ctx context.Context) (*domain.PassReport, error)

	// SyncStatus returns the PDF filenames of items tagged read.
	SyncStatus(ctx context.Context) ([]string, error)

	// Status returns the progress of the running pass.
	Status(ctx context.Context) (*PassStatus, error)
}

// PassStatus represents the current state of a sync pass.
type PassStatus struct {
	// PassID identifies the running pass.
	PassID string

	// Mode is the running pass's direction.
	Mode domain.Mode

	// Running indicates if a pass is currently in progress.
	Running bool

	// Processed is the count of items and documents examined.
	Processed int

	// ErrorCount is the number of failures recorded so far.
	ErrorCount int
}
