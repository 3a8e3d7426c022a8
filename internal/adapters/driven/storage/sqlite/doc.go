// Package sqlite provides a SQLite-based implementation of the bridge's
// persistence ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements two store interfaces
// through a single database connection:
//
//   - HistoryStore: Summaries of finished sync passes
//   - SchedulerStore: Daemon task state
//
// Neither is consulted to decide a transition; library tags stay the source of
// truth for sync state.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.zrbridge/history.db
package sqlite
