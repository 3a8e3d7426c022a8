// Package memory provides in-memory implementations of driven ports.
// They back tests and dry runs; nothing is persisted.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driven"
)

// Ensure FileStore implements the interface.
var _ driven.FileStore = (*FileStore)(nil)

// FileStore is an in-memory implementation of driven.FileStore.
type FileStore struct {
	mu    sync.RWMutex
	files map[string][]byte
	log   []string
}

// NewFileStore creates an empty in-memory file store.
func NewFileStore() *FileStore {
	return &FileStore{
		files: make(map[string][]byte),
	}
}

// Put stores a copy of data at remotePath.
func (s *FileStore) Put(_ context.Context, remotePath string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[remotePath] = slices.Clone(data)
	s.log = append(s.log, "put "+remotePath)
	return nil
}

// Get returns a copy of the content at remotePath.
func (s *FileStore) Get(_ context.Context, remotePath string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, "get "+remotePath)
	data, ok := s.files[remotePath]
	if !ok {
		return nil, fmt.Errorf("%s: %w", remotePath, domain.ErrNotFound)
	}
	return slices.Clone(data), nil
}

// Remove deletes remotePath.
func (s *FileStore) Remove(_ context.Context, remotePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, remotePath)
	s.log = append(s.log, "remove "+remotePath)
	return nil
}

// Validate always succeeds.
func (s *FileStore) Validate(_ context.Context) error {
	return nil
}

// Has reports whether remotePath exists.
func (s *FileStore) Has(remotePath string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[remotePath]
	return ok
}

// Paths returns the stored paths in sorted order.
func (s *FileStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.files))
}

// Operations returns the operations performed so far, e.g. "put K.zip".
func (s *FileStore) Operations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.log)
}
