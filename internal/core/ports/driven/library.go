package driven

import (
	"context"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
)

// LibraryClient talks to the bibliographic library.
// The core never creates items; it reads them, retags them and
// creates attachment records under them.
type LibraryClient interface {
	// ItemsByTag returns all top-level items carrying tag.
	ItemsByTag(ctx context.Context, tag string) ([]domain.LibraryItem, error)

	// ChildAttachments returns the attachments of an item.
	ChildAttachments(ctx context.Context, itemID string) ([]domain.Attachment, error)

	// AddTags adds tags to a record. On success rec.Tags and rec.Version
	// reflect the library's new state.
	AddTags(ctx context.Context, rec *domain.Record, tags ...string) error

	// RemoveTags removes tags from a record. Same contract as AddTags.
	RemoveTags(ctx context.Context, rec *domain.Record, tags ...string) error

	// DeleteTag removes a tag from every record in the library.
	DeleteTag(ctx context.Context, tag string) error

	// ItemTemplate returns a blank record template of the given kind,
	// e.g. ("attachment", "imported_file").
	ItemTemplate(ctx context.Context, kind, subkind string) (domain.ItemTemplate, error)

	// CreateAttachmentRecord registers a new attachment record under
	// parentID and returns the storage key the library chose.
	// Returns domain.ErrAttachmentRecord if the library refuses.
	CreateAttachmentRecord(ctx context.Context, tmpl domain.ItemTemplate, parentID string) (string, error)

	// AttachFiles uploads local files as new attachments of parentID
	// using the library's managed storage.
	AttachFiles(ctx context.Context, paths []string, parentID string) (domain.AttachResult, error)

	// FetchAttachment downloads an attachment's file from managed storage
	// into destDir and returns the local path.
	FetchAttachment(ctx context.Context, att domain.Attachment, destDir string) (string, error)
}
