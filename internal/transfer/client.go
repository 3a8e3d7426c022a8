// Package transfer wraps a remote file store with bounded retries.
//
// Transient failures are retried after a fixed backoff. A missing remote
// path is permanent and is returned at once so the caller can fall back
// without spending the backoff budget.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driven"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/logger"
)

const (
	// DefaultMaxAttempts is the number of tries per transfer.
	DefaultMaxAttempts = 3

	// DefaultBackoff is the pause between tries.
	DefaultBackoff = 5 * time.Second
)

// Client retries puts and gets against a FileStore.
type Client struct {
	store       driven.FileStore
	maxAttempts int
	backoff     time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithMaxAttempts sets the number of tries. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n >= 1 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the pause between tries. Negative values are ignored.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.backoff = d
		}
	}
}

// New creates a retrying client around store.
func New(store driven.FileStore, opts ...Option) *Client {
	c := &Client{
		store:       store,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxAttempts returns the configured number of tries.
func (c *Client) MaxAttempts() int {
	return c.maxAttempts
}

// Validate checks the underlying store is reachable. It is not retried.
func (c *Client) Validate(ctx context.Context) error {
	return c.store.Validate(ctx)
}

// Put uploads data to remotePath, retrying transient failures.
func (c *Client) Put(ctx context.Context, remotePath string, data []byte) error {
	return c.retry(ctx, "put", remotePath, func() error {
		return c.store.Put(ctx, remotePath, data)
	})
}

// Get downloads remotePath, retrying transient failures.
// A missing path returns domain.ErrNotFound after a single attempt.
func (c *Client) Get(ctx context.Context, remotePath string) ([]byte, error) {
	var data []byte
	err := c.retry(ctx, "get", remotePath, func() error {
		var err error
		data, err = c.store.Get(ctx, remotePath)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// UploadWithRetry is Put reporting only success. It never panics or
// returns an error; failures are logged.
func (c *Client) UploadWithRetry(ctx context.Context, remotePath string, data []byte) bool {
	return c.Put(ctx, remotePath, data) == nil
}

// DownloadWithRetry is Get reporting only success.
func (c *Client) DownloadWithRetry(ctx context.Context, remotePath string) ([]byte, bool) {
	data, err := c.Get(ctx, remotePath)
	return data, err == nil
}

// retry runs op up to maxAttempts times.
func (c *Client) retry(ctx context.Context, verb, remotePath string, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if domain.IsPermanent(lastErr) || errors.Is(lastErr, context.Canceled) ||
			errors.Is(lastErr, context.DeadlineExceeded) {
			return fmt.Errorf("%s %s: %w", verb, remotePath, lastErr)
		}

		logger.Debug("%s %s failed (attempt %d/%d): %v", verb, remotePath, attempt, c.maxAttempts, lastErr)
		if attempt == c.maxAttempts {
			break
		}
		if err := sleep(ctx, c.backoff); err != nil {
			return err
		}
	}

	logger.Warn("%s %s failed after %d attempts: %v", verb, remotePath, c.maxAttempts, lastErr)
	if errors.Is(lastErr, domain.ErrTransient) {
		return fmt.Errorf("%s %s: %w", verb, remotePath, lastErr)
	}
	return fmt.Errorf("%s %s: %w: %w", verb, remotePath, domain.ErrTransient, lastErr)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
