// Package workflow runs the daemon's queue worker. The manager polls the
// queue for pending jobs, claims one at a time, dispatches it to the handler
// for its kind, and persists progress and terminal status.
package workflow
