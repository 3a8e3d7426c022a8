package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
)

// mockScheduler blocks in Start until ctx is cancelled.
type mockScheduler struct {
	started atomic.Bool
	stopped atomic.Bool
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.started.Store(true)
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error {
	m.stopped.Store(true)
	return nil
}

func fastDebounce(t *testing.T) {
	t.Helper()
	old := pendingDebounce
	pendingDebounce = 20 * time.Millisecond
	t.Cleanup(func() { pendingDebounce = old })
}

func TestDaemonCmd_RunsSchedulerUntilCancelled(t *testing.T) {
	sched := &mockScheduler{}
	withServices(t, &Services{
		Sync:       &mockSyncOrchestrator{},
		Scheduler:  sched,
		PendingDir: t.TempDir(),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	out, err := executeWith(t, ctx, strings.NewReader(""), "daemon")

	require.NoError(t, err)
	assert.True(t, sched.started.Load())
	assert.True(t, sched.stopped.Load())
	assert.Contains(t, out, "Daemon running.")
	assert.Contains(t, out, "Daemon stopped.")
}

func TestDaemonCmd_RetriesPendingFiles(t *testing.T) {
	fastDebounce(t)
	mock := &mockSyncOrchestrator{}
	dir := filepath.Join(t.TempDir(), "pending")
	withServices(t, &Services{Sync: mock, PendingDir: dir})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := executeWith(t, ctx, strings.NewReader(""), "daemon")
		done <- err
	}()

	assert.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "paper _remarks.pdf"), []byte("%PDF"), 0o644)
		return mock.retryCount() > 0
	}, 3*time.Second, 100*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestDaemonCmd_NotConfigured(t *testing.T) {
	withServices(t, &Services{})

	_, err := execute(t, "daemon")

	assert.EqualError(t, err, "sync service not configured")
}

func TestWatchPending_IgnoresNonPDF(t *testing.T) {
	fastDebounce(t)
	dir := t.TempDir()
	var calls atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watchPending(ctx, dir, func(context.Context) bool {
			calls.Add(1)
			return true
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	assert.Never(t, func() bool { return calls.Load() > 0 }, 200*time.Millisecond, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "paper.PDF"), []byte("%PDF"), 0o644))
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWatchPending_RearmsWhenDeferred(t *testing.T) {
	fastDebounce(t)
	dir := t.TempDir()
	var calls atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = watchPending(ctx, dir, func(context.Context) bool {
			return calls.Add(1) >= 3
		})
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "paper.pdf"), []byte("%PDF"), 0o644))

	assert.Eventually(t, func() bool { return calls.Load() == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return calls.Load() > 3 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestWatchPending_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, watchPending(ctx, dir, func(context.Context) bool { return true }))
	assert.DirExists(t, dir)
}

func TestRetryPending(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		assert.True(t, retryPending(context.Background(), &mockSyncOrchestrator{}))
	})

	t.Run("pass in progress is deferred", func(t *testing.T) {
		mock := &mockSyncOrchestrator{retryErr: domain.ErrPassInProgress}
		assert.False(t, retryPending(context.Background(), mock))
	})

	t.Run("other failures are not retried", func(t *testing.T) {
		mock := &mockSyncOrchestrator{retryErr: domain.ErrUnreachable}
		assert.True(t, retryPending(context.Background(), mock))
	})
}
