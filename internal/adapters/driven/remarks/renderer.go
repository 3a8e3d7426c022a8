package remarks

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driven"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/logger"
)

// Ensure Renderer implements the interface.
var _ driven.Renderer = (*Renderer)(nil)

const (
	// DefaultCommand runs remarks as a python module.
	DefaultCommand = "python3"

	// DefaultTimeout bounds one render.
	DefaultTimeout = 10 * time.Minute

	// OutputSuffix is appended to the entity name by remarks.
	OutputSuffix = " _remarks.pdf"

	// unzippedSuffix names the extraction directory.
	unzippedSuffix = "-unzipped"

	// maxEntrySize caps a single extracted file.
	maxEntrySize = 1 << 30
)

// DefaultArgs precede the input and output directories.
var DefaultArgs = []string{"-m", "remarks"}

// Runner executes name with args and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Renderer unpacks a tablet archive and runs remarks over it.
type Renderer struct {
	command string
	args    []string
	run     Runner
	timeout time.Duration
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(rd *Renderer) {
		rd.run = r
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(rd *Renderer) {
		rd.timeout = d
	}
}

// New creates a renderer invoking "command args... <in> <out>". An empty
// command selects DefaultCommand and DefaultArgs.
func New(command string, args []string, opts ...Option) *Renderer {
	if command == "" {
		command = DefaultCommand
		args = DefaultArgs
	}
	rd := &Renderer{
		command: command,
		args:    append([]string(nil), args...),
		run:     ExecRunner,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// Render extracts archivePath next to outputDir's PDF and renders it.
// The returned path is "<entity> _remarks.pdf" inside outputDir.
func (r *Renderer) Render(ctx context.Context, entity, archivePath, outputDir string) (string, error) {
	unzipped := filepath.Join(outputDir, entity+unzippedSuffix)
	if err := Extract(archivePath, unzipped); err != nil {
		return "", err
	}
	defer func() {
		if err := os.RemoveAll(unzipped); err != nil {
			logger.Warn("remarks: failed to remove %s: %v", unzipped, err)
		}
	}()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := append(append([]string(nil), r.args...), unzipped, outputDir)
	out, err := r.run(ctx, r.command, args...)
	if s := strings.TrimSpace(string(out)); s != "" {
		logger.Debug("remarks %s: %s", entity, s)
	}
	if err != nil {
		return "", fmt.Errorf("remarks %s: %w", entity, err)
	}

	pdf := filepath.Join(outputDir, entity+OutputSuffix)
	if _, err := os.Stat(pdf); err != nil {
		return "", fmt.Errorf("remarks %s: no output at %s: %w", entity, pdf, domain.ErrNotFound)
	}
	return pdf, nil
}

// Extract unpacks the zip archive at src into dest. Entries that would
// land outside dest are rejected.
func Extract(src, dest string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", src, err)
	}
	defer zr.Close()

	root, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dest, err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", root, err)
	}

	for _, f := range zr.File {
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("%w: archive entry %q escapes destination", domain.ErrInvalidInput, f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", target, err)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	n, err := io.Copy(out, io.LimitReader(rc, maxEntrySize+1))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	if n > maxEntrySize {
		return fmt.Errorf("extract %s: entry exceeds %d bytes", f.Name, maxEntrySize)
	}
	return nil
}
