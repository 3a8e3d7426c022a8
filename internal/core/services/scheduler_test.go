package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/adapters/driven/storage/memory"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driving"
)

// --- Mock implementations for scheduler testing ---

// mockSyncOrchestrator implements driving.SyncOrchestrator for testing.
type mockSyncOrchestrator struct {
	mu      sync.Mutex
	passes  []domain.Mode
	passErr error
}

func (m *mockSyncOrchestrator) RunPass(_ context.Context, mode domain.Mode) (*domain.PassReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passes = append(m.passes, mode)
	return &domain.PassReport{Mode: mode}, m.passErr
}

func (m *mockSyncOrchestrator) UploadBack(_ context.Context, _ string) error {
	return nil
}

func (m *mockSyncOrchestrator) RetryPending(_ context.Context) (*domain.PassReport, error) {
	return &domain.PassReport{}, nil
}

func (m *mockSyncOrchestrator) SyncStatus(_ context.Context) ([]string, error) {
	return nil, nil
}

func (m *mockSyncOrchestrator) Status(_ context.Context) (*driving.PassStatus, error) {
	return &driving.PassStatus{}, nil
}

func (m *mockSyncOrchestrator) passCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.passes)
}

// Ensure mocks implement interfaces
var _ driving.SyncOrchestrator = (*mockSyncOrchestrator)(nil)

// ==================== Scheduler Tests ====================

func TestNewScheduler(t *testing.T) {
	config := domain.DefaultSchedulerConfig(time.Hour)

	scheduler := NewScheduler(config, memory.NewSchedulerStore(), &mockSyncOrchestrator{}, nil)

	require.NotNil(t, scheduler)
	assert.Equal(t, config.Enabled, scheduler.config.Enabled)
	assert.Equal(t, time.Minute, scheduler.tick)
}

func TestScheduler_StartStop(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(time.Hour),
		memory.NewSchedulerStore(), &mockSyncOrchestrator{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = scheduler.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, scheduler.Stop())
	wg.Wait()
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(time.Hour),
		memory.NewSchedulerStore(), &mockSyncOrchestrator{}, nil)

	require.NoError(t, scheduler.Stop())
}

func TestScheduler_Disabled(t *testing.T) {
	config := domain.DefaultSchedulerConfig(time.Hour)
	config.Enabled = false
	syncOrch := &mockSyncOrchestrator{}
	scheduler := NewScheduler(config, memory.NewSchedulerStore(), syncOrch, nil)

	require.NoError(t, scheduler.Start(context.Background()))
	assert.Equal(t, 0, syncOrch.passCount())
}

func TestScheduler_PassesOnStart(t *testing.T) {
	store := memory.NewSchedulerStore()
	syncOrch := &mockSyncOrchestrator{}
	history := memory.NewHistoryStore()
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(time.Hour), store, syncOrch, history)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = scheduler.Start(ctx)
	}()

	require.Eventually(t, func() bool {
		task, err := store.GetTask(context.Background(), domain.TaskIDSyncPass)
		return err == nil && task != nil && !task.LastRun.IsZero()
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, scheduler.Stop())
	<-done

	assert.Equal(t, []domain.Mode{domain.ModeBoth}, syncOrch.passes)
	task, err := store.GetTask(context.Background(), domain.TaskIDSyncPass)
	require.NoError(t, err)
	assert.Empty(t, task.LastError)
	assert.False(t, task.LastSuccess.IsZero())
	assert.True(t, task.NextRun.After(task.LastRun))
}

func TestScheduler_InitialiseTasks(t *testing.T) {
	store := memory.NewSchedulerStore()
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(30*time.Minute), store, nil, nil)
	ctx := context.Background()

	require.NoError(t, scheduler.initialiseTasks(ctx))

	task, err := store.GetTask(ctx, domain.TaskIDSyncPass)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "Sync Pass", task.Name)
	assert.Equal(t, 30*time.Minute, task.Interval)
	assert.True(t, task.IsDue(time.Now()), "new tasks run immediately")
}

func TestScheduler_EnsureTask_UpdateInterval(t *testing.T) {
	store := memory.NewSchedulerStore()
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(time.Hour), store, nil, nil)
	ctx := context.Background()

	taskCfg := domain.TaskConfig{Enabled: true, Interval: time.Hour}
	require.NoError(t, scheduler.ensureTask(ctx, "test-task", "Test Task", taskCfg))

	taskCfg.Interval = 2 * time.Hour
	require.NoError(t, scheduler.ensureTask(ctx, "test-task", "Test Task", taskCfg))

	task, err := store.GetTask(ctx, "test-task")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, task.Interval)
	assert.False(t, task.IsDue(time.Now()))
}

func TestScheduler_RunTask_RecordsError(t *testing.T) {
	store := memory.NewSchedulerStore()
	syncOrch := &mockSyncOrchestrator{passErr: errors.New("pre-flight: tablet: unreachable")}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(time.Hour), store, syncOrch, nil)
	ctx := context.Background()

	task := &domain.ScheduledTask{ID: domain.TaskIDSyncPass, Interval: time.Hour, Enabled: true}
	scheduler.runTask(ctx, task)
	scheduler.wg.Wait()

	saved, err := store.GetTask(ctx, domain.TaskIDSyncPass)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Contains(t, saved.LastError, "unreachable")
	assert.True(t, saved.LastSuccess.IsZero())
}

func TestScheduler_RunTask_PassInProgressIsRetried(t *testing.T) {
	store := memory.NewSchedulerStore()
	syncOrch := &mockSyncOrchestrator{passErr: domain.ErrPassInProgress}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(time.Hour), store, syncOrch, nil)
	ctx := context.Background()

	task := &domain.ScheduledTask{ID: domain.TaskIDSyncPass, Interval: time.Hour, Enabled: true}
	scheduler.runTask(ctx, task)
	scheduler.wg.Wait()

	saved, err := store.GetTask(ctx, domain.TaskIDSyncPass)
	require.NoError(t, err)
	assert.Nil(t, saved, "task state is untouched so it stays due")
}

func TestScheduler_RunTask_PrunesHistory(t *testing.T) {
	history := memory.NewHistoryStore()
	ctx := context.Background()
	for range historyKeep + 5 {
		require.NoError(t, history.RecordPass(ctx, domain.PassRecord{ID: "p"}))
	}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(time.Hour),
		memory.NewSchedulerStore(), &mockSyncOrchestrator{}, history)

	scheduler.runTask(ctx, &domain.ScheduledTask{ID: domain.TaskIDSyncPass, Interval: time.Hour, Enabled: true})
	scheduler.wg.Wait()

	passes, err := history.ListPasses(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, passes, historyKeep)
}

func TestScheduler_RunTask_UnknownTaskID(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(time.Hour), memory.NewSchedulerStore(), nil, nil)

	scheduler.runTask(context.Background(), &domain.ScheduledTask{ID: "unknown-task", Enabled: true})
	scheduler.wg.Wait()
}

func TestScheduler_RunSyncPass_NilOrchestrator(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(time.Hour), memory.NewSchedulerStore(), nil, nil)

	assert.NoError(t, scheduler.runSyncPass(context.Background()))
}
