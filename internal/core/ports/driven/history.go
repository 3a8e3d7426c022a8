package driven

import (
	"context"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
)

// HistoryStore keeps summaries of finished passes.
// It is informational only: tags stay the source of truth.
type HistoryStore interface {
	// RecordPass stores a pass summary.
	RecordPass(ctx context.Context, rec domain.PassRecord) error

	// ListPasses returns recent passes, most recent first.
	ListPasses(ctx context.Context, limit int) ([]domain.PassRecord, error)

	// PruneHistory keeps only the most recent keep passes.
	PruneHistory(ctx context.Context, keep int) error
}
