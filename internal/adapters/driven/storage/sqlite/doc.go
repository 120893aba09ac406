// Package sqlite provides a unified SQLite-based implementation of driven
// port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation. It implements multiple
// store interfaces through a single database connection:
//
//   - RunHistoryStore: collection run outcome persistence
//   - SchedulerStore: background task state persistence
//
// Fence coverage deliberately does not live here: it is kept in per-scope
// JSON files so a user can inspect and repair coverage by hand.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files.
//
// # Data Location
//
// By default, the database is stored at ~/.haven/data/haven.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
