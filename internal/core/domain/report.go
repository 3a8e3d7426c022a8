package domain

import (
	"fmt"
	"sync"
	"time"
)

// Mode selects which directions a pass covers.
type Mode string

// Pass modes.
const (
	ModePush Mode = "push"
	ModePull Mode = "pull"
	ModeBoth Mode = "both"
)

// IsValid returns true if the mode is recognised.
func (m Mode) IsValid() bool {
	switch m {
	case ModePush, ModePull, ModeBoth:
		return true
	default:
		return false
	}
}

// Pushes reports whether the mode includes the library-to-tablet direction.
func (m Mode) Pushes() bool {
	return m == ModePush || m == ModeBoth
}

// Pulls reports whether the mode includes the tablet-to-library direction.
func (m Mode) Pulls() bool {
	return m == ModePull || m == ModeBoth
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.IsValid() {
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, s)
	}
	return m, nil
}

// Failure is one logged, recovered failure within a pass.
type Failure struct {
	// ItemID is the owning item, if known.
	ItemID string

	// Name is the attachment or tablet document concerned.
	Name string

	// Err is the cause.
	Err error
}

// String renders the failure for logs.
func (f Failure) String() string {
	if f.ItemID == "" {
		return fmt.Sprintf("%s: %v", f.Name, f.Err)
	}
	return fmt.Sprintf("%s/%s: %v", f.ItemID, f.Name, f.Err)
}

// PassReport summarises a sync pass. It is safe for concurrent use.
type PassReport struct {
	mu sync.Mutex

	// ID uniquely identifies the pass.
	ID string

	// Mode is the pass direction.
	Mode Mode

	// StartedAt and EndedAt bound the pass.
	StartedAt time.Time
	EndedAt   time.Time

	// Processed counts items and documents examined.
	Processed int

	// Advanced counts committed transitions.
	Advanced int

	// Skipped counts deliberate no-ops such as already-annotated attachments.
	Skipped int

	// Failures lists recovered failures.
	Failures []Failure
}

// AddProcessed increments Processed.
func (r *PassReport) AddProcessed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Processed++
}

// AddAdvanced increments Advanced.
func (r *PassReport) AddAdvanced() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Advanced++
}

// AddSkipped increments Skipped.
func (r *PassReport) AddSkipped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Skipped++
}

// AddFailure records a failure.
func (r *PassReport) AddFailure(f Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures = append(r.Failures, f)
}

// FailedNames returns the names of all failures in order.
func (r *PassReport) FailedNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		names = append(names, f.Name)
	}
	return names
}

// Snapshot returns a copy of the counters.
func (r *PassReport) Snapshot() (processed, advanced, skipped, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Processed, r.Advanced, r.Skipped, len(r.Failures)
}

// PassRecord is the persisted summary of a finished pass.
type PassRecord struct {
	ID        string
	Mode      Mode
	StartedAt time.Time
	EndedAt   time.Time
	Processed int
	Advanced  int
	Skipped   int
	Failed    int

	// Error is the pass-level error, if the pass stopped early.
	Error string
}

// Record converts a finished report into a PassRecord.
func (r *PassReport) Record(passErr error) PassRecord {
	processed, advanced, skipped, failed := r.Snapshot()
	rec := PassRecord{
		ID:        r.ID,
		Mode:      r.Mode,
		StartedAt: r.StartedAt,
		EndedAt:   r.EndedAt,
		Processed: processed,
		Advanced:  advanced,
		Skipped:   skipped,
		Failed:    failed,
	}
	if passErr != nil {
		rec.Error = passErr.Error()
	}
	return rec
}
