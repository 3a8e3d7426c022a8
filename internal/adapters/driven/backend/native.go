package backend

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driven"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/logger"
)

// Ensure Native implements the interface.
var _ driven.AttachmentBackend = (*Native)(nil)

// Native stores attachments in the library's managed file storage.
type Native struct {
	library driven.LibraryClient
}

// NewNative creates a backend over the library's file storage.
func NewNative(library driven.LibraryClient) *Native {
	return &Native{library: library}
}

// Name identifies the backend.
func (b *Native) Name() string {
	return domain.StorageNative.String()
}

// Fetch downloads an attachment through the library.
func (b *Native) Fetch(ctx context.Context, att domain.Attachment, destDir string) (string, error) {
	path, err := b.library.FetchAttachment(ctx, att, destDir)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", att.Filename, err)
	}
	return path, nil
}

// Store attaches the files to parentID in one request.
func (b *Native) Store(ctx context.Context, paths []string, parentID string) ([]domain.AttachmentRef, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files to store", domain.ErrInvalidInput)
	}

	res, err := b.library.AttachFiles(ctx, paths, parentID)
	if err != nil {
		return nil, fmt.Errorf("attach %s: %w", filepath.Base(paths[0]), err)
	}
	if !res.OK() {
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrAttachmentRecord, filepath.Base(paths[0]), res.Reason)
	}
	logger.Debug("native store of %d file(s) under %s: %s", len(paths), parentID, res.Status)

	refs := make([]domain.AttachmentRef, 0, len(res.Keys))
	for i, key := range res.Keys {
		ref := domain.AttachmentRef{StorageKey: key}
		if i < len(paths) {
			ref.Filename = filepath.Base(paths[i])
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Validate probes the library with a template request.
func (b *Native) Validate(ctx context.Context) error {
	if _, err := b.library.ItemTemplate(ctx, "attachment", "imported_file"); err != nil {
		return fmt.Errorf("library storage: %w", err)
	}
	return nil
}
