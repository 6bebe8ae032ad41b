// Package queue persists media jobs in a SQLite database.
//
// A job records the kind of ffmpeg operation to run, its input files, the
// JSON-encoded parameters declared by the caller, and its lifecycle status.
// The store serializes concurrent access with WAL mode plus a bounded
// busy-retry loop so the daemon and CLI can share one database file.
package queue
