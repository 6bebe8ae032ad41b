package queue

import (
	"context"
	"fmt"
	"time"
)

// Retry resets a failed or review job back to pending.
func (s *Store) Retry(ctx context.Context, id int64) (*Item, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status != StatusFailed && item.Status != StatusReview {
		return nil, fmt.Errorf("job %d has status %s; only failed or review jobs can be retried", id, item.Status)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.execWithRetry(ensureContext(ctx),
		`UPDATE jobs SET status = ?, error_message = NULL,
            progress_stage = NULL, progress_percent = 0, progress_message = NULL,
            updated_at = ?
         WHERE id = ?`,
		StatusPending, timestamp, id)
	if err != nil {
		return nil, fmt.Errorf("retry job %d: %w", id, err)
	}
	return s.GetByID(ctx, id)
}

// RetryFailed resets every failed job back to pending and reports the count.
func (s *Store) RetryFailed(ctx context.Context) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ensureContext(ctx),
		`UPDATE jobs SET status = ?, error_message = NULL,
            progress_stage = NULL, progress_percent = 0, progress_message = NULL,
            updated_at = ?
         WHERE status = ?`,
		StatusPending, timestamp, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("retry failed jobs: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all jobs and reports the count removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ensureContext(ctx), `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

// ClearCompleted removes completed jobs and reports the count removed.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ensureContext(ctx),
		`DELETE FROM jobs WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed jobs: %w", err)
	}
	return res.RowsAffected()
}

// ResetRunning fails any job left in the running state, typically after an
// unclean daemon shutdown, so it surfaces instead of staying stuck.
func (s *Store) ResetRunning(ctx context.Context, reason string) (int64, error) {
	if reason == "" {
		reason = DaemonStopReason
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ensureContext(ctx),
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE status = ?`,
		StatusFailed, reason, timestamp, StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("reset running jobs: %w", err)
	}
	return res.RowsAffected()
}

// Health aggregates per-status counts.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("queue health: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan health row: %w", err)
		}
		summary.Total += count
		switch Status(status) {
		case StatusPending:
			summary.Pending = count
		case StatusRunning:
			summary.Running = count
		case StatusCompleted:
			summary.Completed = count
		case StatusFailed:
			summary.Failed = count
		case StatusReview:
			summary.Review = count
		}
	}
	return summary, rows.Err()
}

// Stats returns per-status counts keyed by status name.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	summary, err := s.Health(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]int{
		string(StatusPending):   summary.Pending,
		string(StatusRunning):   summary.Running,
		string(StatusCompleted): summary.Completed,
		string(StatusFailed):    summary.Failed,
		string(StatusReview):    summary.Review,
	}, nil
}
