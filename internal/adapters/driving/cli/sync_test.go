package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driving"
)

// mockSyncOrchestrator implements driving.SyncOrchestrator for testing.
type mockSyncOrchestrator struct {
	mu         sync.Mutex
	modes      []domain.Mode
	retries    int
	passErr    error
	retryErr   error
	names      []string
	statusErr  error
	passDelay  time.Duration
	inProgress *driving.PassStatus
}

func (m *mockSyncOrchestrator) RunPass(_ context.Context, mode domain.Mode) (*domain.PassReport, error) {
	m.mu.Lock()
	m.modes = append(m.modes, mode)
	delay, err := m.passDelay, m.passErr
	m.mu.Unlock()

	time.Sleep(delay)
	if errors.Is(err, domain.ErrPassInProgress) {
		return nil, err
	}
	return sampleReport(mode), err
}

func (m *mockSyncOrchestrator) UploadBack(_ context.Context, _ string) error {
	return nil
}

func (m *mockSyncOrchestrator) RetryPending(_ context.Context) (*domain.PassReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
	if errors.Is(m.retryErr, domain.ErrPassInProgress) {
		return nil, m.retryErr
	}
	return &domain.PassReport{ID: "retry-1", Mode: domain.ModePull, Processed: 1, Advanced: 1}, m.retryErr
}

func (m *mockSyncOrchestrator) SyncStatus(_ context.Context) ([]string, error) {
	return m.names, m.statusErr
}

func (m *mockSyncOrchestrator) Status(_ context.Context) (*driving.PassStatus, error) {
	if m.inProgress != nil {
		return m.inProgress, nil
	}
	return &driving.PassStatus{}, nil
}

func (m *mockSyncOrchestrator) passModes() []domain.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Mode(nil), m.modes...)
}

func (m *mockSyncOrchestrator) retryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retries
}

func sampleReport(mode domain.Mode) *domain.PassReport {
	return &domain.PassReport{
		ID:        "pass-1",
		Mode:      mode,
		Processed: 3,
		Advanced:  2,
		Failures: []domain.Failure{
			{ItemID: "ABCD1234", Name: "paper.pdf", Err: domain.ErrTabletUpload},
		},
	}
}

func setupSyncTest(t *testing.T) *mockSyncOrchestrator {
	t.Helper()
	mock := &mockSyncOrchestrator{}
	withServices(t, &Services{Sync: mock})
	return mock
}

func TestSyncCmd_Use(t *testing.T) {
	assert.Equal(t, "sync", syncCmd.Use)
	assert.Equal(t, "both", syncCmd.Flags().Lookup("mode").DefValue)
}

func TestSyncCmd_DefaultModeIsBoth(t *testing.T) {
	mock := setupSyncTest(t)

	out, err := execute(t, "sync")

	require.NoError(t, err)
	assert.Equal(t, []domain.Mode{domain.ModeBoth}, mock.passModes())
	assert.Contains(t, out, "Running both pass...")
	assert.Contains(t, out, "Pass pass-1 (both): 3 processed, 2 advanced, 0 skipped, 1 failed")
	assert.Contains(t, out, "  - ABCD1234/paper.pdf: tablet upload failed")
}

func TestSyncCmd_ModeFlag(t *testing.T) {
	for _, mode := range []domain.Mode{domain.ModePush, domain.ModePull} {
		t.Run(string(mode), func(t *testing.T) {
			mock := setupSyncTest(t)

			_, err := execute(t, "sync", "--mode", string(mode))

			require.NoError(t, err)
			assert.Equal(t, []domain.Mode{mode}, mock.passModes())
		})
	}
}

func TestSyncCmd_InvalidMode(t *testing.T) {
	mock := setupSyncTest(t)

	_, err := execute(t, "sync", "--mode", "sideways")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, mock.passModes())
}

func TestSyncCmd_PassErrorStillPrintsReport(t *testing.T) {
	mock := setupSyncTest(t)
	mock.passErr = fmt.Errorf("pre-flight: %w", domain.ErrUnreachable)

	out, err := execute(t, "sync")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnreachable)
	assert.Contains(t, err.Error(), "pass failed")
	assert.Contains(t, out, "Pass pass-1 (both)")
}

func TestSyncCmd_PassInProgress(t *testing.T) {
	mock := setupSyncTest(t)
	mock.passErr = fmt.Errorf("%w: other", domain.ErrPassInProgress)

	_, err := execute(t, "sync")

	assert.ErrorIs(t, err, domain.ErrPassInProgress)
	assert.Contains(t, err.Error(), "another pass is running")
}

func TestSyncCmd_ShowsProgress(t *testing.T) {
	old := progressInterval
	progressInterval = 5 * time.Millisecond
	defer func() { progressInterval = old }()

	mock := setupSyncTest(t)
	mock.passDelay = 100 * time.Millisecond
	mock.inProgress = &driving.PassStatus{PassID: "pass-1", Running: true, Processed: 2, ErrorCount: 1}

	out, err := execute(t, "sync")

	require.NoError(t, err)
	assert.Contains(t, out, "Processing... 2 done, 1 errors")
}

func TestSyncCmd_NotConfigured(t *testing.T) {
	withServices(t, &Services{})

	_, err := execute(t, "sync")

	assert.EqualError(t, err, "sync service not configured")
}

func TestRetryPendingCmd(t *testing.T) {
	mock := setupSyncTest(t)

	out, err := execute(t, "retry-pending")

	require.NoError(t, err)
	assert.Equal(t, 1, mock.retryCount())
	assert.Contains(t, out, "Retrying pending files...")
	assert.Contains(t, out, "Pass retry-1 (pull): 1 processed, 1 advanced")
}

func TestRetryPendingCmd_Error(t *testing.T) {
	mock := setupSyncTest(t)
	mock.retryErr = domain.ErrUnreachable

	_, err := execute(t, "retry-pending")

	assert.ErrorIs(t, err, domain.ErrUnreachable)
}

func TestStatusCmd(t *testing.T) {
	mock := setupSyncTest(t)
	mock.names = []string{"smith2020.pdf", "jones2021.pdf"}

	out, err := execute(t, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "2 read PDF(s):")
	assert.Contains(t, out, "  smith2020.pdf")
	assert.Contains(t, out, "  jones2021.pdf")
}

func TestStatusCmd_Empty(t *testing.T) {
	setupSyncTest(t)

	out, err := execute(t, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "No read items.")
}

func TestStatusCmd_Error(t *testing.T) {
	mock := setupSyncTest(t)
	mock.statusErr = domain.ErrTransient

	_, err := execute(t, "status")

	assert.ErrorIs(t, err, domain.ErrTransient)
}
