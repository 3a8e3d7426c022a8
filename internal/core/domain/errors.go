package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity or remote path does not exist.
	// It is permanent: callers must not retry it.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates the library rejected a write because the
	// record changed since it was read.
	ErrConflict = errors.New("version conflict")

	// Transfer Errors.

	// ErrTransient indicates a failure that may succeed on retry.
	ErrTransient = errors.New("transient network failure")

	// ErrUnreachable indicates a collaborator cannot be reached at all.
	// A pass stops early instead of retrying every item against it.
	ErrUnreachable = errors.New("collaborator unreachable")

	// ErrUnauthorized indicates a remote rejected the configured credentials.
	ErrUnauthorized = errors.New("access denied")

	// Storage Protocol Errors.

	// ErrMalformedContainer indicates a container that is not a
	// single-entry archive. Retrying will not fix it.
	ErrMalformedContainer = errors.New("malformed container")

	// ErrMalformedProperties indicates an unparseable properties document.
	ErrMalformedProperties = errors.New("malformed properties document")

	// ErrHashMismatch indicates downloaded bytes do not match their recorded hash.
	ErrHashMismatch = errors.New("hash mismatch")

	// ErrAttachmentRecord indicates the library refused to create an attachment record.
	ErrAttachmentRecord = errors.New("attachment record creation failed")

	// ErrContainerUpload indicates the container upload failed; no
	// properties document was written.
	ErrContainerUpload = errors.New("container upload failed")

	// ErrPropertiesUpload indicates the properties upload failed after
	// the container was stored.
	ErrPropertiesUpload = errors.New("properties upload failed")

	// Sync Errors.

	// ErrNoMatch indicates no synced item owns a rendered file.
	ErrNoMatch = errors.New("no matching attachment")

	// ErrAlreadyAnnotated indicates the attachment was already uploaded
	// back. It reports a no-op, not a failure.
	ErrAlreadyAnnotated = errors.New("attachment already annotated")

	// ErrTabletUpload indicates the tablet rejected an upload.
	ErrTabletUpload = errors.New("tablet upload failed")

	// ErrTabletDownload indicates the tablet document could not be downloaded.
	ErrTabletDownload = errors.New("tablet download failed")

	// ErrRender indicates the renderer failed or produced no PDF.
	ErrRender = errors.New("render failed")

	// ErrPassInProgress indicates a pass is already running.
	ErrPassInProgress = errors.New("sync pass in progress")
)

// PartialSyncError reports an item where some PDF attachments reached the
// tablet and others did not. The item still advances.
type PartialSyncError struct {
	ItemID string
	Failed []string
}

// Error implements the error interface.
func (e *PartialSyncError) Error() string {
	return fmt.Sprintf("partial sync of %s: failed %s", e.ItemID, strings.Join(e.Failed, ", "))
}

// IsPermanent reports whether retrying err cannot help.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnreachable) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrMalformedContainer) ||
		errors.Is(err, ErrMalformedProperties) ||
		errors.Is(err, ErrHashMismatch) ||
		errors.Is(err, ErrInvalidInput)
}
