package webdav

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xwebdav "golang.org/x/net/webdav"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(&xwebdav.Handler{
		FileSystem: xwebdav.NewMemFS(),
		LockSystem: xwebdav.NewMemLS(),
	})
	t.Cleanup(srv.Close)
	return srv
}

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(newTestServer(t).URL, "user", "secret")
	require.NoError(t, err)
	return store
}

func TestNewFileStore_RequiresURL(t *testing.T) {
	_, err := NewFileStore("  ", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFileStore_PutGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "ABCD1234.zip", []byte("container")))

	data, err := store.Get(ctx, "ABCD1234.zip")
	require.NoError(t, err)
	assert.Equal(t, []byte("container"), data)
}

func TestFileStore_PutReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "K.prop", []byte("old")))
	require.NoError(t, store.Put(ctx, "K.prop", []byte("new")))

	data, err := store.Get(ctx, "K.prop")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestFileStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "missing.zip")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrTransient)
}

func TestFileStore_Remove(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "K.zip", []byte("x")))

	require.NoError(t, store.Remove(ctx, "K.zip"))
	_, err := store.Get(ctx, "K.zip")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, store.Remove(ctx, "K.zip"), "removing a missing path is not an error")
}

func TestFileStore_Validate(t *testing.T) {
	store := newTestStore(t)

	assert.NoError(t, store.Validate(context.Background()))
}

func TestFileStore_ValidateUnreachable(t *testing.T) {
	srv := newTestServer(t)
	store, err := NewFileStore(srv.URL, "", "")
	require.NoError(t, err)
	srv.Close()

	err = store.Validate(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnreachable)
}

func TestFileStore_PutUnreachableIsTransient(t *testing.T) {
	srv := newTestServer(t)
	store, err := NewFileStore(srv.URL, "", "")
	require.NoError(t, err)
	srv.Close()

	err = store.Put(context.Background(), "K.zip", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestFileStore_CancelledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Put(ctx, "K.zip", nil), context.Canceled)
	_, err := store.Get(ctx, "K.zip")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Remove(ctx, "K.zip"), context.Canceled)
	assert.ErrorIs(t, store.Validate(ctx), context.Canceled)
}

func TestFileStore_ForbiddenIsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)
	store, err := NewFileStore(srv.URL, "user", "wrong")
	require.NoError(t, err)
	ctx := context.Background()

	err = store.Put(ctx, "K.zip", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.NotErrorIs(t, err, domain.ErrTransient)
	assert.True(t, domain.IsPermanent(err))

	_, err = store.Get(ctx, "K.zip")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
