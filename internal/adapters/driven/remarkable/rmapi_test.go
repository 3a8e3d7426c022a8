package remarkable

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
)

type call struct {
	dir  string
	name string
	args []string
}

// fakeRmapi answers rmapi invocations from canned output.
type fakeRmapi struct {
	calls  []call
	stdout map[string]string
	stderr map[string]string
	fail   map[string]error
	// writes maps a "get" target to the file it drops into dir.
	writes map[string]string
}

func newFakeRmapi() *fakeRmapi {
	return &fakeRmapi{
		stdout: map[string]string{},
		stderr: map[string]string{},
		fail:   map[string]error{},
		writes: map[string]string{},
	}
}

func (f *fakeRmapi) run(_ context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, call{dir: dir, name: name, args: args})
	key := strings.Join(args, " ")
	if args[0] == "get" {
		if file, ok := f.writes[args[1]]; ok {
			if err := os.WriteFile(filepath.Join(dir, file), []byte("archive"), 0o644); err != nil {
				return nil, nil, err
			}
		}
	}
	return []byte(f.stdout[key]), []byte(f.stderr[key]), f.fail[key]
}

func newTestClient(f *fakeRmapi) *Client {
	return NewClient("", WithRunner(f.run))
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("")
	assert.Equal(t, DefaultBinary, c.binary)
	assert.Equal(t, DefaultTimeout, c.timeout)

	c = NewClient("/opt/rmapi", WithTimeout(time.Second))
	assert.Equal(t, "/opt/rmapi", c.binary)
	assert.Equal(t, time.Second, c.timeout)
}

func TestParseListing(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{
			name:   "empty",
			output: "",
			want:   nil,
		},
		{
			name:   "files and directories",
			output: "[d]\tRead\n[f]\tpaper one\n[f]\tpaper two\n",
			want:   []string{"paper one", "paper two"},
		},
		{
			name:   "time header dropped",
			output: " Time: 2s\n[f]\tnotes\n",
			want:   []string{"notes"},
		},
		{
			name:   "crlf",
			output: "[f]\ta\r\n[f]\tb\r\n",
			want:   []string{"a", "b"},
		},
		{
			name:   "bare marker ignored",
			output: "[f] \n[f]\tx\n",
			want:   []string{"x"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseListing([]byte(tt.output)))
		})
	}
}

func TestCheck(t *testing.T) {
	f := newFakeRmapi()
	c := newTestClient(f)

	require.NoError(t, c.Check(context.Background()))
	require.Len(t, f.calls, 1)
	assert.Equal(t, DefaultBinary, f.calls[0].name)
	assert.Equal(t, []string{"ls"}, f.calls[0].args)
}

func TestCheck_FailureIsUnreachable(t *testing.T) {
	f := newFakeRmapi()
	f.fail["ls"] = errors.New("exit status 1")
	f.stderr["ls"] = "failed to refresh token"

	err := newTestClient(f).Check(context.Background())

	assert.ErrorIs(t, err, domain.ErrUnreachable)
	assert.Contains(t, err.Error(), "failed to refresh token")
}

func TestListFiles(t *testing.T) {
	f := newFakeRmapi()
	f.stdout["ls /Zotero/Read/"] = "[f]\tDeep Learning\n[d]\tArchive\n"

	names, err := newTestClient(f).ListFiles(context.Background(), "/Zotero/Read/")

	require.NoError(t, err)
	assert.Equal(t, []string{"Deep Learning"}, names)
}

func TestListFiles_MissingFolder(t *testing.T) {
	f := newFakeRmapi()
	f.fail["ls /Zotero/Unread"] = errors.New("exit status 1")
	f.stderr["ls /Zotero/Unread"] = "Error: directory doesn't exist"

	_, err := newTestClient(f).ListFiles(context.Background(), "/Zotero/Unread")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListFiles_OtherFailure(t *testing.T) {
	f := newFakeRmapi()
	f.fail["ls /Zotero/Unread"] = errors.New("exit status 2")

	_, err := newTestClient(f).ListFiles(context.Background(), "/Zotero/Unread")

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestUploadFile(t *testing.T) {
	f := newFakeRmapi()

	require.NoError(t, newTestClient(f).UploadFile(context.Background(), "/tmp/ws/paper.pdf", "/Zotero/Unread"))
	assert.Equal(t, []string{"put", "/tmp/ws/paper.pdf", "/Zotero/Unread"}, f.calls[0].args)
}

func TestUploadFile_Failure(t *testing.T) {
	f := newFakeRmapi()
	f.fail["put a.pdf /Zotero/Unread"] = errors.New("exit status 1")
	f.stderr["put a.pdf /Zotero/Unread"] = "entry already exists"

	err := newTestClient(f).UploadFile(context.Background(), "a.pdf", "/Zotero/Unread")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry already exists")
}

func TestDownloadFile(t *testing.T) {
	f := newFakeRmapi()
	f.writes["/Zotero/Read/paper"] = "paper.rmdoc"
	dir := t.TempDir()

	archive, err := newTestClient(f).DownloadFile(context.Background(), "/Zotero/Read/paper", dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "paper.rmdoc"), archive)
	assert.Equal(t, dir, f.calls[0].dir, "rmapi get runs inside the destination")
}

func TestDownloadFile_LegacyZip(t *testing.T) {
	f := newFakeRmapi()
	f.writes["/Zotero/Read/paper"] = "paper.zip"
	dir := t.TempDir()

	archive, err := newTestClient(f).DownloadFile(context.Background(), "/Zotero/Read/paper", dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "paper.zip"), archive)
}

func TestDownloadFile_NothingWritten(t *testing.T) {
	f := newFakeRmapi()

	_, err := newTestClient(f).DownloadFile(context.Background(), "/Zotero/Read/paper", t.TempDir())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMissingBinaryIsUnreachable(t *testing.T) {
	c := NewClient("zrbridge-no-such-rmapi-binary")

	err := c.UploadFile(context.Background(), "a.pdf", "/Zotero")

	var execErr *exec.Error
	assert.ErrorAs(t, err, &execErr)
	assert.ErrorIs(t, err, domain.ErrUnreachable)
}

func TestCancelledContext(t *testing.T) {
	f := newFakeRmapi()
	f.fail["ls /Zotero"] = errors.New("signal: killed")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(f).ListFiles(ctx, "/Zotero")

	assert.ErrorIs(t, err, context.Canceled)
}
