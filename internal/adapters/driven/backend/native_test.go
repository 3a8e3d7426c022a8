package backend

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/adapters/driven/storage/memory"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
)

func TestNative_StoreAndFetch(t *testing.T) {
	lib := newLibrary()
	b := NewNative(lib)
	pdf := writeFile(t, "(Annotated) I1.pdf", "pdf")
	md := writeFile(t, "I1 _obsidian.md", "# notes")

	refs, err := b.Store(context.Background(), []string{pdf, md}, "ITEM1")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "(Annotated) I1.pdf", refs[0].Filename)
	assert.Equal(t, "I1 _obsidian.md", refs[1].Filename)

	att, ok := lib.Attachment(refs[1].StorageKey)
	require.True(t, ok)
	assert.Equal(t, "text/markdown", att.ContentType)

	pdfAtt, _ := lib.Attachment(refs[0].StorageKey)
	got, err := b.Fetch(context.Background(), pdfAtt, t.TempDir())
	require.NoError(t, err)
	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf"), data)
}

func TestNative_Store_Refused(t *testing.T) {
	b := NewNative(newLibrary())

	_, err := b.Store(context.Background(), []string{writeFile(t, "a.pdf", "x")}, "UNKNOWN")

	assert.ErrorIs(t, err, domain.ErrAttachmentRecord)
}

func TestNative_Store_TransportError(t *testing.T) {
	lib := newLibrary()
	lib.FailOn(memory.OpAttachFiles, domain.ErrTransient)
	b := NewNative(lib)

	_, err := b.Store(context.Background(), []string{writeFile(t, "a.pdf", "x")}, "ITEM1")

	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestNative_Validate(t *testing.T) {
	lib := newLibrary()
	b := NewNative(lib)
	assert.Equal(t, "native", b.Name())
	require.NoError(t, b.Validate(context.Background()))

	lib.FailOn(memory.OpItemTemplate, errors.New("offline"))
	assert.Error(t, b.Validate(context.Background()))
}
