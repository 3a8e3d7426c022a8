// Package scratch manages per-operation temporary workspaces.
//
// Each workspace is a fresh directory under a shared root. Release removes
// it with everything inside, so callers defer Release straight after New
// and only files explicitly moved out with Keep survive.
package scratch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/logger"
)

// Workspace is a temporary directory owned by one operation.
type Workspace struct {
	dir string
}

// New creates a workspace under root. key names the operation and appears
// in the directory name to ease debugging.
func New(root, key string) (*Workspace, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create scratch root: %w", err)
	}
	dir := filepath.Join(root, sanitise(key)+"-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path joins elem onto the workspace directory.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.dir}, elem...)...)
}

// Sub creates and returns a subdirectory.
func (w *Workspace) Sub(name string) (string, error) {
	p := w.Path(name)
	if err := os.MkdirAll(p, 0o700); err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	return p, nil
}

// Import copies src into the workspace under name and returns the copy's path.
func (w *Workspace) Import(src, name string) (string, error) {
	dst := w.Path(filepath.Base(name))
	if err := copyFile(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// Release removes the workspace. It is safe to call more than once.
func (w *Workspace) Release() {
	if w == nil || w.dir == "" {
		return
	}
	if err := os.RemoveAll(w.dir); err != nil {
		logger.Warn("failed to remove scratch workspace %s: %v", w.dir, err)
	}
}

// Keep moves src into dir under name and returns the new path.
// It falls back to copy and delete when src and dir are on different
// filesystems. An existing file of the same name is replaced.
func Keep(src, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	dst := filepath.Join(dir, name)
	if err := os.Rename(src, dst); err == nil {
		return dst, nil
	}
	if err := copyFile(src, dst); err != nil {
		return "", err
	}
	if err := os.Remove(src); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Debug("keep: could not remove %s: %v", src, err)
	}
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}

// maxKeyLen bounds the key part of a workspace name, in bytes.
const maxKeyLen = 64

// sanitise keeps workspace names to a single path element.
func sanitise(key string) string {
	key = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\':
			return '_'
		}
		return r
	}, key)
	key = strings.Trim(key, ". ")
	if key == "" {
		return "ws"
	}
	if len(key) <= maxKeyLen {
		return key
	}
	cut := 0
	for i := range key {
		if i > maxKeyLen {
			break
		}
		cut = i
	}
	return key[:cut]
}
