package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driven"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/logger"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/protocol"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/transfer"
)

// Ensure Emulated implements the interface.
var _ driven.AttachmentBackend = (*Emulated)(nil)

// Emulated stores attachments in a remote file store using the library's
// WebDAV storage layout. The library holds only the attachment record.
type Emulated struct {
	library    driven.LibraryClient
	files      *transfer.Client
	verifyHash bool
}

// NewEmulated creates an emulated WebDAV backend. When verifyHash is set,
// Fetch checks downloaded bytes against the properties document.
func NewEmulated(library driven.LibraryClient, files *transfer.Client, verifyHash bool) *Emulated {
	return &Emulated{
		library:    library,
		files:      files,
		verifyHash: verifyHash,
	}
}

// Name identifies the backend.
func (b *Emulated) Name() string {
	return domain.StorageWebDAV.String()
}

// Validate checks the remote file store is reachable.
func (b *Emulated) Validate(ctx context.Context) error {
	if err := b.files.Validate(ctx); err != nil {
		return fmt.Errorf("webdav: %w", err)
	}
	return nil
}

// Store uploads each file as a new attachment of parentID.
// The first path is primary and its failure fails the call.
// Companion failures are logged and skipped.
func (b *Emulated) Store(ctx context.Context, paths []string, parentID string) ([]domain.AttachmentRef, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files to store", domain.ErrInvalidInput)
	}

	refs := make([]domain.AttachmentRef, 0, len(paths))
	for i, p := range paths {
		ref, err := b.storeOne(ctx, p, parentID)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			logger.Warn("skipping companion %s: %v", filepath.Base(p), err)
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// storeOne runs the upload protocol for a single file: the record is
// created first, then the container, then the properties document.
// The properties document is never written unless the container landed.
func (b *Emulated) storeOne(ctx context.Context, path, parentID string) (domain.AttachmentRef, error) {
	name := filepath.Base(path)

	hash, ok, err := protocol.Digest(path)
	if err != nil {
		return domain.AttachmentRef{}, err
	}
	if !ok {
		return domain.AttachmentRef{}, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	}
	mtime := protocol.NowEpochSeconds()

	tmpl, err := b.library.ItemTemplate(ctx, "attachment", "imported_file")
	if err != nil {
		return domain.AttachmentRef{}, fmt.Errorf("%w: template: %w", domain.ErrAttachmentRecord, err)
	}
	key, err := b.library.CreateAttachmentRecord(ctx, tmpl.FillFile(name, hash, mtime), parentID)
	if err != nil {
		if errors.Is(err, domain.ErrAttachmentRecord) {
			return domain.AttachmentRef{}, err
		}
		return domain.AttachmentRef{}, fmt.Errorf("%w: %w", domain.ErrAttachmentRecord, err)
	}

	enc, err := protocol.Encode(path, mtime, hash)
	if err != nil {
		return domain.AttachmentRef{}, err
	}

	ref := domain.AttachmentRef{
		StorageKey:  key,
		Filename:    name,
		ContentHash: hash,
		ModifiedAt:  mtime,
	}

	if err := b.files.Put(ctx, ref.ContainerPath(), enc.Container); err != nil {
		return domain.AttachmentRef{}, fmt.Errorf("%w: %s: %w", domain.ErrContainerUpload, ref.ContainerPath(), err)
	}
	if err := b.files.Put(ctx, ref.PropertiesPath(), enc.Properties); err != nil {
		return domain.AttachmentRef{}, fmt.Errorf("%w: %s: %w", domain.ErrPropertiesUpload, ref.PropertiesPath(), err)
	}

	logger.Debug("stored %s as %s (md5 %s)", name, key, hash)
	return ref, nil
}

// Fetch downloads and unpacks att's container into destDir.
func (b *Emulated) Fetch(ctx context.Context, att domain.Attachment, destDir string) (string, error) {
	raw, err := b.files.Get(ctx, domain.ContainerPath(att.ID))
	if err != nil {
		return "", err
	}

	data, name, err := protocol.Decode(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", domain.ContainerPath(att.ID), err)
	}
	if att.Filename != "" && name != att.Filename {
		return "", fmt.Errorf("%w: %s holds %q, want %q",
			domain.ErrMalformedContainer, domain.ContainerPath(att.ID), name, att.Filename)
	}

	if b.verifyHash {
		if err := b.verify(ctx, att.ID, data); err != nil {
			return "", err
		}
	}

	dest := filepath.Join(destDir, name)
	if err := os.WriteFile(dest, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	return dest, nil
}

// verify compares data with the hash in the key's properties document.
// A missing properties document fails verification.
func (b *Emulated) verify(ctx context.Context, key string, data []byte) error {
	raw, err := b.files.Get(ctx, domain.PropertiesPath(key))
	if err != nil {
		return err
	}
	props, err := protocol.ParseProperties(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", domain.PropertiesPath(key), err)
	}
	if got := protocol.DigestBytes(data); got != props.Hash {
		return fmt.Errorf("%w: %s has %s, properties say %s", domain.ErrHashMismatch, key, got, props.Hash)
	}
	return nil
}
