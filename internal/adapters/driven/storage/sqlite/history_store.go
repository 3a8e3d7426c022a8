package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/ports/driven"
)

// historyStore implements driven.HistoryStore.
type historyStore struct {
	store *Store
}

var _ driven.HistoryStore = (*historyStore)(nil)

// RecordPass stores a pass summary.
func (s *historyStore) RecordPass(ctx context.Context, rec domain.PassRecord) error {
	if rec.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO passes (id, mode, started_at, ended_at, processed, advanced, skipped, failed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, string(rec.Mode),
		rec.StartedAt.UTC().Format(time.RFC3339), formatNullableTime(rec.EndedAt),
		rec.Processed, rec.Advanced, rec.Skipped, rec.Failed,
		nullString(rec.Error))
	if err != nil {
		return fmt.Errorf("recording pass: %w", err)
	}
	return nil
}

// ListPasses returns up to limit passes, most recent first.
// A limit of zero or less returns every pass.
func (s *historyStore) ListPasses(ctx context.Context, limit int) ([]domain.PassRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, mode, started_at, ended_at, processed, advanced, skipped, failed, error
		FROM passes
		ORDER BY rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying passes: %w", err)
	}
	defer rows.Close()

	var passes []domain.PassRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		rec, err := scanPass(rows)
		if err != nil {
			return nil, err
		}
		passes = append(passes, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating passes: %w", err)
	}

	return passes, nil
}

// PruneHistory keeps only the most recent keep passes.
func (s *historyStore) PruneHistory(ctx context.Context, keep int) error {
	if keep < 0 {
		return nil
	}
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM passes
		WHERE rowid NOT IN (
			SELECT rowid FROM passes ORDER BY rowid DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning pass history: %w", err)
	}
	return nil
}

func scanPass(rows *sql.Rows) (domain.PassRecord, error) {
	var rec domain.PassRecord
	var mode, startedAt string
	var endedAt, errMsg sql.NullString

	if err := rows.Scan(&rec.ID, &mode, &startedAt, &endedAt,
		&rec.Processed, &rec.Advanced, &rec.Skipped, &rec.Failed, &errMsg); err != nil {
		return rec, fmt.Errorf("scanning pass: %w", err)
	}

	rec.Mode = domain.Mode(mode)
	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		rec.StartedAt = t
	}
	rec.EndedAt = parseNullableTime(endedAt)
	if errMsg.Valid {
		rec.Error = errMsg.String
	}

	return rec, nil
}
