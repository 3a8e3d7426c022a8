package protocol

import (
	"crypto/md5" //nolint:gosec // content fingerprint required by the library, not a security primitive
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"
)

// now is replaced in tests.
var now = time.Now

// Digest returns the hex MD5 of the file at path.
// ok is false, with a nil error, when the file does not exist.
//
// MD5 is what the library verifies WebDAV attachments against. It is a
// content fingerprint only; do not rely on it for integrity against an
// adversary.
func Digest(path string) (hash string, ok bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New() //nolint:gosec // see above
	if _, err := io.Copy(h, f); err != nil {
		return "", false, fmt.Errorf("read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), true, nil
}

// DigestBytes returns the hex MD5 of data.
func DigestBytes(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec // see Digest
	return hex.EncodeToString(sum[:])
}

// NowEpochSeconds returns the current time in seconds since the Unix epoch.
func NowEpochSeconds() int64 {
	return now().Unix()
}
