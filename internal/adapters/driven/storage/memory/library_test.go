package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
)

func seededLibrary() *Library {
	lib := NewLibrary()
	lib.AddItem(domain.LibraryItem{
		Record: domain.Record{ID: "ITEM1", Version: 3, Tags: []string{domain.TagToSync}},
		Title:  "Paper",
	})
	lib.AddItem(domain.LibraryItem{
		Record: domain.Record{ID: "ITEM2", Version: 1, Tags: []string{domain.TagSynced}},
	})
	lib.AddAttachment(domain.Attachment{
		Record:      domain.Record{ID: "ATT1", Version: 2},
		ParentID:    "ITEM1",
		Filename:    "Paper.pdf",
		ContentType: domain.ContentTypePDF,
	}, []byte("%PDF"))
	return lib
}

func TestLibrary_ItemsByTag(t *testing.T) {
	lib := seededLibrary()

	items, err := lib.ItemsByTag(context.Background(), domain.TagToSync)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ITEM1", items[0].ID)
	assert.Equal(t, domain.StateToSync, items[0].State())
}

func TestLibrary_AddRemoveTags_BumpsVersion(t *testing.T) {
	lib := seededLibrary()
	ctx := context.Background()
	rec := domain.Record{ID: "ITEM1", Version: 3}

	require.NoError(t, lib.AddTags(ctx, &rec, domain.TagSynced))
	require.NoError(t, lib.RemoveTags(ctx, &rec, domain.TagToSync))

	assert.Equal(t, 5, rec.Version)
	assert.Equal(t, []string{domain.TagSynced}, rec.Tags)
	item, _ := lib.Item("ITEM1")
	assert.Equal(t, []string{domain.TagSynced}, item.Tags)
}

func TestLibrary_AddTags_StaleVersion(t *testing.T) {
	lib := seededLibrary()
	rec := domain.Record{ID: "ITEM1", Version: 1}

	err := lib.AddTags(context.Background(), &rec, domain.TagSynced)

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestLibrary_AddTags_Attachment(t *testing.T) {
	lib := seededLibrary()
	rec := domain.Record{ID: "ATT1", Version: 2}

	require.NoError(t, lib.AddTags(context.Background(), &rec, domain.TagAnnotated))

	att, _ := lib.Attachment("ATT1")
	assert.True(t, att.HasTag(domain.TagAnnotated))
}

func TestLibrary_DeleteTag(t *testing.T) {
	lib := seededLibrary()

	require.NoError(t, lib.DeleteTag(context.Background(), domain.TagToSync))

	items, err := lib.ItemsByTag(context.Background(), domain.TagToSync)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestLibrary_CreateAttachmentRecord(t *testing.T) {
	lib := seededLibrary()
	ctx := context.Background()
	tmpl, err := lib.ItemTemplate(ctx, "attachment", "imported_file")
	require.NoError(t, err)

	key, err := lib.CreateAttachmentRecord(ctx, tmpl.FillFile("(Annotated) Paper.pdf", "h", 1), "ITEM1")
	require.NoError(t, err)

	att, ok := lib.Attachment(key)
	require.True(t, ok)
	assert.Equal(t, "(Annotated) Paper.pdf", att.Filename)
	assert.Equal(t, "ITEM1", att.ParentID)

	_, err = lib.CreateAttachmentRecord(ctx, tmpl, "MISSING")
	assert.ErrorIs(t, err, domain.ErrAttachmentRecord)
}

func TestLibrary_AttachFilesAndFetch(t *testing.T) {
	lib := seededLibrary()
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "Notes.pdf")
	require.NoError(t, os.WriteFile(src, []byte("annotated"), 0o600))

	res, err := lib.AttachFiles(ctx, []string{src}, "ITEM2")
	require.NoError(t, err)
	require.True(t, res.OK())
	require.Len(t, res.Keys, 1)

	att, _ := lib.Attachment(res.Keys[0])
	got, err := lib.FetchAttachment(ctx, att, t.TempDir())
	require.NoError(t, err)
	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, []byte("annotated"), data)
}

func TestLibrary_FailOn(t *testing.T) {
	lib := seededLibrary()
	boom := errors.New("boom")
	lib.FailOn(OpItemsByTag, boom)

	_, err := lib.ItemsByTag(context.Background(), domain.TagSynced)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, lib.Calls(OpItemsByTag))

	lib.FailOn(OpItemsByTag, nil)
	_, err = lib.ItemsByTag(context.Background(), domain.TagSynced)
	assert.NoError(t, err)
}
