package driven

import (
	"context"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
)

// AttachmentBackend stores and fetches attachment bytes.
// The orchestrator is agnostic of whether the library's managed storage
// or the emulated WebDAV protocol sits behind it.
type AttachmentBackend interface {
	// Name identifies the backend in logs.
	Name() string

	// Fetch downloads att's file into destDir and returns the local path.
	Fetch(ctx context.Context, att domain.Attachment, destDir string) (string, error)

	// Store uploads local files as new attachments of parentID.
	// The first path is the primary file; the rest are companions.
	Store(ctx context.Context, paths []string, parentID string) ([]domain.AttachmentRef, error)

	// Validate checks the backend's remote side is reachable.
	Validate(ctx context.Context) error
}
