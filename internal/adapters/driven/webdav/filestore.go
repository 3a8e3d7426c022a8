package webdav

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driven"
)

// Ensure FileStore implements the interface.
var _ driven.FileStore = (*FileStore)(nil)

// DefaultTimeout is the per-request timeout.
const DefaultTimeout = 60 * time.Second

// filePerm is sent with uploads; most servers ignore it.
const filePerm = 0o644

// FileStore stores files on a WebDAV share.
type FileStore struct {
	client *gowebdav.Client
	root   string
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithTransport replaces the HTTP transport, e.g. for custom TLS.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *FileStore) {
		s.client.SetTransport(rt)
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *FileStore) {
		s.client.SetTimeout(d)
	}
}

// NewFileStore creates a store rooted at url. Remote paths are resolved
// relative to it.
func NewFileStore(url, user, password string, opts ...Option) (*FileStore, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("%w: webdav url is required", domain.ErrInvalidInput)
	}
	s := &FileStore{
		client: gowebdav.NewClient(url, user, password),
		root:   url,
	}
	s.client.SetTimeout(DefaultTimeout)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Put writes data at remotePath.
func (s *FileStore) Put(ctx context.Context, remotePath string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.Write(remotePath, data, filePerm); err != nil {
		return wrapError(err, "put "+remotePath)
	}
	return nil
}

// Get reads remotePath.
func (s *FileStore) Get(ctx context.Context, remotePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.client.Read(remotePath)
	if err != nil {
		return nil, wrapError(err, "get "+remotePath)
	}
	return data, nil
}

// Remove deletes remotePath. A missing path is not an error.
func (s *FileStore) Remove(ctx context.Context, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.client.Remove(remotePath)
	if err == nil || isNotFound(err) {
		return nil
	}
	return wrapError(err, "remove "+remotePath)
}

// Validate checks the share answers and accepts the credentials.
func (s *FileStore) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("webdav %s: %w: %w", s.root, domain.ErrUnreachable, err)
	}
	return nil
}

// wrapError classifies a gowebdav error. A missing path maps to
// domain.ErrNotFound and rejected credentials to domain.ErrUnauthorized;
// everything else is worth retrying.
func wrapError(err error, operation string) error {
	switch {
	case isNotFound(err):
		return fmt.Errorf("webdav %s: %w", operation, domain.ErrNotFound)
	case isUnauthorized(err):
		return fmt.Errorf("webdav %s: %w: %w", operation, domain.ErrUnauthorized, err)
	}
	return fmt.Errorf("webdav %s: %w: %w", operation, domain.ErrTransient, err)
}

func isUnauthorized(err error) bool {
	return gowebdav.IsErrCode(err, http.StatusUnauthorized) || gowebdav.IsErrCode(err, http.StatusForbidden)
}

func isNotFound(err error) bool {
	return gowebdav.IsErrNotFound(err) || errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)
}
