package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driven"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driving"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyKeep is how many pass records survive pruning.
const historyKeep = 100

// Scheduler runs sync passes on their configured cadence. Task state is
// persisted so a restarted daemon does not pass early.
type Scheduler struct {
	config   domain.SchedulerConfig
	store    driven.SchedulerStore
	syncOrch driving.SyncOrchestrator
	history  driven.HistoryStore
	tick     time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
// history is optional; when set it is pruned after every pass.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	syncOrch driving.SyncOrchestrator,
	history driven.HistoryStore,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		syncOrch: syncOrch,
		history:  history,
		tick:     time.Minute,
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		logger.Info("Scheduler disabled")
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler and waits for a running pass.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	if taskCfg := s.config.GetTaskConfig(domain.TaskIDSyncPass); taskCfg.Enabled {
		if err := s.ensureTask(ctx, domain.TaskIDSyncPass, "Sync Pass", taskCfg); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store. A new task is due
// immediately so the daemon passes once on start.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return fmt.Errorf("get task %s: %w", id, err)
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = time.Now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		if tasks[i].IsDue(now) {
			s.runTask(ctx, &tasks[i])
		}
	}
}

// runTask executes a single task in the background.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		started := time.Now()
		var err error
		switch task.ID {
		case domain.TaskIDSyncPass:
			err = s.runSyncPass(ctx)
		default:
			logger.Warn("scheduler: unknown task ID: %s", task.ID)
			return
		}

		if errors.Is(err, domain.ErrPassInProgress) {
			logger.Debug("scheduler: %v, will retry next tick", err)
			return
		}

		ended := time.Now()
		if err != nil {
			task.LastError = err.Error()
		} else {
			task.LastError = ""
			task.LastSuccess = ended
		}
		task.LastRun = started
		task.NextRun = ended.Add(task.Interval)

		if saveErr := s.store.SaveTask(context.WithoutCancel(ctx), task); saveErr != nil {
			logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
		}

		if s.history != nil {
			if pruneErr := s.history.PruneHistory(context.WithoutCancel(ctx), historyKeep); pruneErr != nil {
				logger.Warn("scheduler: failed to prune history: %v", pruneErr)
			}
		}
	}()
}

// runSyncPass runs a full pass in both directions.
func (s *Scheduler) runSyncPass(ctx context.Context) error {
	if s.syncOrch == nil {
		return nil
	}
	_, err := s.syncOrch.RunPass(ctx, domain.ModeBoth)
	return err
}
