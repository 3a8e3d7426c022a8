package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driven"
)

// Ensure Library implements the interface.
var _ driven.LibraryClient = (*Library)(nil)

// Library operations that can be made to fail with FailOn.
const (
	OpItemsByTag             = "items-by-tag"
	OpChildAttachments       = "child-attachments"
	OpAddTags                = "add-tags"
	OpRemoveTags             = "remove-tags"
	OpItemTemplate           = "item-template"
	OpCreateAttachmentRecord = "create-attachment-record"
	OpAttachFiles            = "attach-files"
	OpFetchAttachment        = "fetch-attachment"
)

// Library is an in-memory implementation of driven.LibraryClient.
// Records are versioned like the real library: every tag write bumps
// the version and a stale version is rejected with domain.ErrConflict.
type Library struct {
	mu          sync.Mutex
	items       map[string]*domain.LibraryItem
	attachments map[string]*domain.Attachment
	files       map[string][]byte
	failures    map[string]error
	nextKey     int
	calls       map[string]int
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{
		items:       make(map[string]*domain.LibraryItem),
		attachments: make(map[string]*domain.Attachment),
		files:       make(map[string][]byte),
		failures:    make(map[string]error),
		calls:       make(map[string]int),
	}
}

// AddItem inserts or replaces an item.
func (l *Library) AddItem(item domain.LibraryItem) {
	l.mu.Lock()
	defer l.mu.Unlock()
	item.Tags = slices.Clone(item.Tags)
	l.items[item.ID] = &item
}

// AddAttachment inserts or replaces an attachment with its file content.
func (l *Library) AddAttachment(att domain.Attachment, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	att.Tags = slices.Clone(att.Tags)
	l.attachments[att.ID] = &att
	l.files[att.ID] = slices.Clone(data)
}

// Item returns a copy of an item.
func (l *Library) Item(id string) (domain.LibraryItem, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	item, ok := l.items[id]
	if !ok {
		return domain.LibraryItem{}, false
	}
	out := *item
	out.Tags = slices.Clone(item.Tags)
	return out, true
}

// Attachment returns a copy of an attachment.
func (l *Library) Attachment(id string) (domain.Attachment, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	att, ok := l.attachments[id]
	if !ok {
		return domain.Attachment{}, false
	}
	out := *att
	out.Tags = slices.Clone(att.Tags)
	return out, true
}

// File returns the stored content of an attachment.
func (l *Library) File(id string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, ok := l.files[id]
	return slices.Clone(data), ok
}

// FailOn makes op return err until cleared with a nil err.
func (l *Library) FailOn(op string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.failures, op)
		return
	}
	l.failures[op] = err
}

// Calls returns how often op was invoked.
func (l *Library) Calls(op string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[op]
}

// begin counts a call and returns its injected failure. Callers hold mu.
func (l *Library) begin(op string) error {
	l.calls[op]++
	return l.failures[op]
}

// ItemsByTag returns items carrying tag, ordered by ID.
func (l *Library) ItemsByTag(_ context.Context, tag string) ([]domain.LibraryItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.begin(OpItemsByTag); err != nil {
		return nil, err
	}

	var out []domain.LibraryItem
	for _, item := range l.items {
		if item.HasTag(tag) {
			cp := *item
			cp.Tags = slices.Clone(item.Tags)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ChildAttachments returns an item's attachments, ordered by ID.
func (l *Library) ChildAttachments(_ context.Context, itemID string) ([]domain.Attachment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.begin(OpChildAttachments); err != nil {
		return nil, err
	}

	var out []domain.Attachment
	for _, att := range l.attachments {
		if att.ParentID == itemID {
			cp := *att
			cp.Tags = slices.Clone(att.Tags)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AddTags adds tags to an item or attachment.
func (l *Library) AddTags(_ context.Context, rec *domain.Record, tags ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.begin(OpAddTags); err != nil {
		return err
	}
	return l.retag(rec, domain.TagDelta{Add: tags})
}

// RemoveTags removes tags from an item or attachment.
func (l *Library) RemoveTags(_ context.Context, rec *domain.Record, tags ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.begin(OpRemoveTags); err != nil {
		return err
	}
	return l.retag(rec, domain.TagDelta{Remove: tags})
}

func (l *Library) retag(rec *domain.Record, delta domain.TagDelta) error {
	var stored *domain.Record
	if item, ok := l.items[rec.ID]; ok {
		stored = &item.Record
	} else if att, ok := l.attachments[rec.ID]; ok {
		stored = &att.Record
	} else {
		return fmt.Errorf("record %s: %w", rec.ID, domain.ErrNotFound)
	}

	if rec.Version != stored.Version {
		return fmt.Errorf("record %s at version %d, have %d: %w",
			rec.ID, stored.Version, rec.Version, domain.ErrConflict)
	}

	stored.Tags = delta.Apply(stored.Tags)
	stored.Version++
	rec.Tags = slices.Clone(stored.Tags)
	rec.Version = stored.Version
	return nil
}

// DeleteTag removes tag from every record.
func (l *Library) DeleteTag(_ context.Context, tag string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delta := domain.TagDelta{Remove: []string{tag}}
	for _, item := range l.items {
		if item.HasTag(tag) {
			item.Tags = delta.Apply(item.Tags)
			item.Version++
		}
	}
	for _, att := range l.attachments {
		if att.HasTag(tag) {
			att.Tags = delta.Apply(att.Tags)
			att.Version++
		}
	}
	return nil
}

// ItemTemplate returns a minimal template of the requested kind.
func (l *Library) ItemTemplate(_ context.Context, kind, subkind string) (domain.ItemTemplate, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.begin(OpItemTemplate); err != nil {
		return nil, err
	}
	return domain.ItemTemplate{
		"itemType": kind,
		"linkMode": subkind,
		"tags":     []any{},
	}, nil
}

// CreateAttachmentRecord creates an attachment without content.
func (l *Library) CreateAttachmentRecord(
	_ context.Context,
	tmpl domain.ItemTemplate,
	parentID string,
) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.begin(OpCreateAttachmentRecord); err != nil {
		return "", err
	}
	if _, ok := l.items[parentID]; !ok {
		return "", fmt.Errorf("%w: parent %s: %w", domain.ErrAttachmentRecord, parentID, domain.ErrNotFound)
	}

	filename, _ := tmpl["filename"].(string)
	contentType, _ := tmpl["contentType"].(string)
	key := l.newKey()
	l.attachments[key] = &domain.Attachment{
		Record:      domain.Record{ID: key, Version: 1},
		ParentID:    parentID,
		Filename:    filename,
		ContentType: contentType,
	}
	return key, nil
}

// AttachFiles creates one attachment per local file.
func (l *Library) AttachFiles(_ context.Context, paths []string, parentID string) (domain.AttachResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.begin(OpAttachFiles); err != nil {
		return domain.AttachResult{Status: domain.AttachFailure, Reason: err.Error()}, err
	}
	if _, ok := l.items[parentID]; !ok {
		return domain.AttachResult{Status: domain.AttachFailure, Reason: "unknown parent " + parentID}, nil
	}

	res := domain.AttachResult{Status: domain.AttachSuccess}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return domain.AttachResult{Status: domain.AttachFailure, Reason: err.Error()}, nil
		}
		key := l.newKey()
		name := filepath.Base(p)
		l.attachments[key] = &domain.Attachment{
			Record:      domain.Record{ID: key, Version: 1},
			ParentID:    parentID,
			Filename:    name,
			ContentType: domain.ContentTypeFor(name),
		}
		l.files[key] = data
		res.Keys = append(res.Keys, key)
	}
	return res, nil
}

// FetchAttachment writes an attachment's content into destDir.
func (l *Library) FetchAttachment(_ context.Context, att domain.Attachment, destDir string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.begin(OpFetchAttachment); err != nil {
		return "", err
	}
	data, ok := l.files[att.ID]
	if !ok {
		return "", fmt.Errorf("attachment %s: %w", att.ID, domain.ErrNotFound)
	}
	dest := filepath.Join(destDir, filepath.Base(att.Filename))
	if err := os.WriteFile(dest, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	return dest, nil
}

func (l *Library) newKey() string {
	l.nextKey++
	return fmt.Sprintf("NEW%05d", l.nextKey)
}
