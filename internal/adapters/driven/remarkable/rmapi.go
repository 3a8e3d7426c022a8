package remarkable

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driven"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.TabletClient = (*Client)(nil)

const (
	// DefaultBinary is looked up on PATH.
	DefaultBinary = "rmapi"

	// DefaultTimeout bounds a single rmapi invocation.
	DefaultTimeout = 5 * time.Minute
)

// Archive extensions rmapi writes on download, newest format first.
var archiveExts = []string{".rmdoc", ".zip"}

// Runner executes name with args in dir and returns its output streams.
type Runner func(ctx context.Context, dir, name string, args ...string) (stdout, stderr []byte, err error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Client drives rmapi.
type Client struct {
	binary  string
	run     Runner
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(c *Client) {
		c.run = r
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a client for the rmapi binary. An empty binary means
// DefaultBinary.
func NewClient(binary string, opts ...Option) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	c := &Client{
		binary:  binary,
		run:     ExecRunner,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check verifies rmapi can reach the cloud with its stored credentials.
func (c *Client) Check(ctx context.Context) error {
	if _, err := c.exec(ctx, "", "ls"); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUnreachable, err)
	}
	return nil
}

// ListFiles returns the document names in folder. Subfolders are excluded.
func (c *Client) ListFiles(ctx context.Context, folder string) ([]string, error) {
	out, err := c.exec(ctx, "", "ls", folder)
	if err != nil {
		return nil, err
	}
	return ParseListing(out), nil
}

// UploadFile puts localPath into remoteFolder.
func (c *Client) UploadFile(ctx context.Context, localPath, remoteFolder string) error {
	_, err := c.exec(ctx, "", "put", localPath, remoteFolder)
	return err
}

// DownloadFile fetches remotePath into destDir and returns the archive path.
func (c *Client) DownloadFile(ctx context.Context, remotePath, destDir string) (string, error) {
	if _, err := c.exec(ctx, destDir, "get", remotePath); err != nil {
		return "", err
	}

	entity := path.Base(remotePath)
	for _, ext := range archiveExts {
		p := filepath.Join(destDir, entity+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("rmapi get %s: no archive written: %w", remotePath, domain.ErrNotFound)
}

// exec runs rmapi. stdout goes to the debug log and stderr to the warning
// log. A missing remote path maps to domain.ErrNotFound.
func (c *Client) exec(ctx context.Context, dir string, args ...string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	stdout, stderr, err := c.run(ctx, dir, c.binary, args...)
	if s := strings.TrimSpace(string(stdout)); s != "" {
		logger.Debug("rmapi %s: %s", args[0], s)
	}
	msg := strings.TrimSpace(string(stderr))
	if msg != "" {
		logger.Warn("rmapi %s: %s", args[0], msg)
	}

	if err == nil {
		return stdout, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("rmapi %s: %w", strings.Join(args, " "), ctxErr)
	}
	if isMissing(msg) {
		return nil, fmt.Errorf("rmapi %s: %s: %w", strings.Join(args, " "), msg, domain.ErrNotFound)
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return nil, fmt.Errorf("rmapi: %w: %w", domain.ErrUnreachable, err)
	}
	if msg != "" {
		return nil, fmt.Errorf("rmapi %s: %w: %s", strings.Join(args, " "), err, msg)
	}
	return nil, fmt.Errorf("rmapi %s: %w", strings.Join(args, " "), err)
}

func isMissing(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "doesn't exist") ||
		strings.Contains(s, "does not exist") ||
		strings.Contains(s, "not found")
}

// ParseListing extracts document names from `rmapi ls` output. Lines look
// like "[f]\tname" or "[d]\tname"; the header and directories are dropped.
func ParseListing(out []byte) []string {
	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, " Time") || strings.HasPrefix(line, "[d]") {
			continue
		}
		if len(line) <= 4 {
			continue
		}
		names = append(names, line[4:])
	}
	return names
}
