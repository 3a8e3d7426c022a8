package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driven"
)

const taskColumns = `id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled`

// schedulerStore keeps daemon task state in the scheduled_tasks table.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

// GetTask returns nil without error when no task has the given ID.
func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	tasks, err := s.query(ctx, `SELECT `+taskColumns+` FROM scheduled_tasks WHERE id = ?`, taskID)
	if err != nil || len(tasks) == 0 {
		return nil, err
	}
	return &tasks[0], nil
}

// ListTasks returns every task ordered by ID.
func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	return s.query(ctx, `SELECT `+taskColumns+` FROM scheduled_tasks ORDER BY id`)
}

// SaveTask upserts the task by ID.
func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}

	const upsert = `INSERT INTO scheduled_tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			interval_seconds = excluded.interval_seconds,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_error = excluded.last_error,
			last_success = excluded.last_success,
			enabled = excluded.enabled`

	if _, err := s.store.db.ExecContext(ctx, upsert,
		task.ID,
		task.Name,
		int64(task.Interval/time.Second),
		formatNullableTime(task.LastRun),
		formatNullableTime(task.NextRun),
		nullString(task.LastError),
		formatNullableTime(task.LastSuccess),
		boolToInt(task.Enabled),
	); err != nil {
		return fmt.Errorf("saving task %s: %w", task.ID, err)
	}
	return nil
}

// DeleteTask removes the task; deleting an unknown ID is not an error.
func (s *schedulerStore) DeleteTask(ctx context.Context, taskID string) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM scheduled_tasks WHERE id = ?`, taskID); err != nil {
		return fmt.Errorf("deleting task %s: %w", taskID, err)
	}
	return nil
}

func (s *schedulerStore) query(ctx context.Context, q string, args ...any) ([]domain.ScheduledTask, error) {
	rows, err := s.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ScheduledTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading tasks: %w", err)
	}
	return tasks, nil
}

func scanTask(rows *sql.Rows) (domain.ScheduledTask, error) {
	var (
		task                                   domain.ScheduledTask
		seconds                                int64
		lastRun, nextRun, lastErr, lastSuccess sql.NullString
		enabled                                int
	)
	err := rows.Scan(&task.ID, &task.Name, &seconds, &lastRun, &nextRun, &lastErr, &lastSuccess, &enabled)
	if err != nil {
		return task, fmt.Errorf("scanning task: %w", err)
	}

	task.Interval = time.Duration(seconds) * time.Second
	task.LastRun = parseNullableTime(lastRun)
	task.NextRun = parseNullableTime(nextRun)
	task.LastError = lastErr.String
	task.LastSuccess = parseNullableTime(lastSuccess)
	task.Enabled = enabled != 0
	return task, nil
}
