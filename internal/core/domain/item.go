package domain

import (
	"path/filepath"
	"slices"
	"strings"
)

// Tags that encode sync state on library records.
const (
	// TagToSync marks an item whose PDFs should be pushed to the tablet.
	TagToSync = "to_sync"

	// TagSynced marks an item whose PDFs are on the tablet.
	TagSynced = "synced"

	// TagRead marks an item the reader has finished on the tablet.
	TagRead = "read"

	// TagAnnotated marks an attachment whose annotated copy was uploaded back.
	TagAnnotated = "annotated"
)

// ContentTypePDF is the only attachment content type the bridge moves.
const ContentTypePDF = "application/pdf"

// AnnotatedPrefix is prepended to the filename of an uploaded-back PDF.
const AnnotatedPrefix = "(Annotated) "

// ExportSuffix names the optional companion export produced by the renderer
// next to "<stem>.pdf" as "<stem> _obsidian.md".
const ExportSuffix = " _obsidian.md"

// Record is the versioned, taggable part shared by items and attachments.
type Record struct {
	// ID is the library-assigned key.
	ID string

	// Version is the library's optimistic-concurrency version.
	Version int

	// Tags is the record's tag list.
	Tags []string
}

// HasTag reports whether the record carries tag.
func (r *Record) HasTag(tag string) bool {
	return slices.Contains(r.Tags, tag)
}

// LibraryItem is a bibliographic record in the reference manager.
type LibraryItem struct {
	Record

	// Title is the item's display title. May be empty.
	Title string
}

// DisplayName returns the title, falling back to the ID.
func (i *LibraryItem) DisplayName() string {
	if i.Title != "" {
		return i.Title
	}
	return i.ID
}

// State derives the sync state from the item's tags.
func (i *LibraryItem) State() SyncState {
	return StateFromTags(i.Tags)
}

// Attachment is a file record linked to a library item.
type Attachment struct {
	Record

	// ParentID is the owning item's ID.
	ParentID string

	// Filename is the stored file's name.
	Filename string

	// ContentType is the MIME type of the stored file.
	ContentType string
}

// IsPDF reports whether the attachment holds a PDF.
func (a *Attachment) IsPDF() bool {
	return a.ContentType == ContentTypePDF
}

// Stem returns the filename without its extension.
func (a *Attachment) Stem() string {
	return Stem(a.Filename)
}

// Stem returns a filename without directory and extension.
func Stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// AnnotatedName returns the upload-back name for a file.
func AnnotatedName(name string) string {
	return AnnotatedPrefix + filepath.Base(name)
}

// ExportName returns the companion export's name for a PDF.
func ExportName(pdfName string) string {
	return Stem(pdfName) + ExportSuffix
}

// AttachmentRef identifies attachment bytes stored in a remote file store.
type AttachmentRef struct {
	// StorageKey is the key the library chose for the attachment record.
	StorageKey string

	// Filename is the name of the single file in the container.
	Filename string

	// ContentHash is the hex digest of the file bytes at store time.
	ContentHash string

	// ModifiedAt is the store time in seconds since the Unix epoch.
	ModifiedAt int64
}

// ContainerPath returns the remote path of the zip container.
func (r AttachmentRef) ContainerPath() string {
	return ContainerPath(r.StorageKey)
}

// PropertiesPath returns the remote path of the properties document.
func (r AttachmentRef) PropertiesPath() string {
	return PropertiesPath(r.StorageKey)
}

// ContainerPath returns "<key>.zip".
func ContainerPath(storageKey string) string {
	return storageKey + ".zip"
}

// PropertiesPath returns "<key>.prop".
func PropertiesPath(storageKey string) string {
	return storageKey + ".prop"
}

// ItemTemplate is a library record template as returned by the library.
// Keys follow the library's JSON field names.
type ItemTemplate map[string]any

// FillFile pre-fills an imported-file attachment template.
func (t ItemTemplate) FillFile(filename, hash string, mtime int64) ItemTemplate {
	t["title"] = Stem(filename)
	t["filename"] = filepath.Base(filename)
	t["md5"] = hash
	t["mtime"] = mtime
	t["contentType"] = ContentTypeFor(filename)
	return t
}

// ContentTypeFor guesses the content type of a file the bridge uploads.
func ContentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return ContentTypePDF
	case ".md":
		return "text/markdown"
	default:
		return "application/octet-stream"
	}
}

// AttachStatus is the outcome of attaching files natively.
type AttachStatus int

const (
	// AttachFailure means no file was attached.
	AttachFailure AttachStatus = iota

	// AttachSuccess means at least one file was uploaded.
	AttachSuccess

	// AttachUnchanged means the library already held identical bytes.
	AttachUnchanged
)

// String returns the status name.
func (s AttachStatus) String() string {
	switch s {
	case AttachSuccess:
		return "success"
	case AttachUnchanged:
		return "unchanged"
	default:
		return "failure"
	}
}

// AttachResult reports the outcome of LibraryClient.AttachFiles.
type AttachResult struct {
	Status AttachStatus

	// Keys are the IDs of created attachment records.
	Keys []string

	// Reason describes a failure.
	Reason string
}

// OK reports whether the files are present in the library.
func (r AttachResult) OK() bool {
	return r.Status == AttachSuccess || r.Status == AttachUnchanged
}
