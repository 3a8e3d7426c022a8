package protocol

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
)

// Encoded is a container and its properties document, ready for upload.
type Encoded struct {
	Container  []byte
	Properties []byte
	Filename   string
}

// Encode builds the container and properties document for the file at
// filePath. The archive's single entry is named by filePath's base name.
func Encode(filePath string, mtime int64, hash string) (*Encoded, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}
	return EncodeBytes(filepath.Base(filePath), data, mtime, hash)
}

// EncodeBytes is Encode for in-memory content.
func EncodeBytes(filename string, data []byte, mtime int64, hash string) (*Encoded, error) {
	if filename == "" || filename != path.Base(filename) {
		return nil, fmt.Errorf("%w: container entry name %q", domain.ErrInvalidInput, filename)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     filename,
		Method:   zip.Deflate,
		Modified: time.Unix(mtime, 0).UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("write entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close container: %w", err)
	}

	return &Encoded{
		Container:  buf.Bytes(),
		Properties: MarshalProperties(mtime, hash),
		Filename:   filename,
	}, nil
}

// Decode extracts the single file held by a container.
// Archives with zero or several entries, or an entry name that is not a
// plain file name, fail with domain.ErrMalformedContainer.
func Decode(container []byte) (data []byte, filename string, err error) {
	zr, err := zip.NewReader(bytes.NewReader(container), int64(len(container)))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrMalformedContainer, err)
	}
	if n := len(zr.File); n != 1 {
		return nil, "", fmt.Errorf("%w: %d entries, want exactly 1", domain.ErrMalformedContainer, n)
	}

	entry := zr.File[0]
	if entry.FileInfo().IsDir() || entry.Name != path.Base(entry.Name) || entry.Name == ".." {
		return nil, "", fmt.Errorf("%w: entry %q is not a plain file", domain.ErrMalformedContainer, entry.Name)
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, "", fmt.Errorf("%w: open entry: %w", domain.ErrMalformedContainer, err)
	}
	defer rc.Close()

	data, err = io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read entry: %w", domain.ErrMalformedContainer, err)
	}
	return data, entry.Name, nil
}
