package driven

import "context"

// FileStore is a generic remote byte store addressed by path.
// Put and Get may fail transiently. A missing path must be reported as
// domain.ErrNotFound so callers can tell it apart from an outage.
// No atomic rename is assumed.
type FileStore interface {
	// Put writes data at remotePath, replacing any existing content.
	Put(ctx context.Context, remotePath string, data []byte) error

	// Get reads the content at remotePath.
	Get(ctx context.Context, remotePath string) ([]byte, error)

	// Remove deletes remotePath. Removing a missing path is not an error.
	Remove(ctx context.Context, remotePath string) error

	// Validate checks the store is reachable.
	Validate(ctx context.Context) error
}
