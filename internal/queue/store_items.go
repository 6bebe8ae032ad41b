package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound indicates the requested job does not exist.
var ErrNotFound = errors.New("queue item not found")

// NewJob inserts a pending job for the given kind and inputs. Parameters are
// stored as the caller-provided JSON document.
func (s *Store) NewJob(ctx context.Context, kind Kind, sourcePath, backgroundPath, paramsJSON string) (*Item, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ensureContext(ctx),
		`INSERT INTO jobs (
            kind, status, source_path, background_path, params_json,
            progress_percent, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(kind),
		StatusPending,
		nullableString(sourcePath),
		nullableString(backgroundPath),
		nullableString(paramsJSON),
		0.0,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a single job.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+itemColumns+` FROM jobs WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	return item, nil
}

// List returns jobs ordered oldest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, 0, len(statuses))
		for _, status := range statuses {
			placeholders = append(placeholders, "?")
			args = append(args, string(status))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ClaimNextPending atomically transitions the oldest pending job to running
// and returns it. Returns nil when the queue has no pending work.
func (s *Store) ClaimNextPending(ctx context.Context) (*Item, error) {
	ctx = ensureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	var claimedID int64
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			`UPDATE jobs SET status = ?, updated_at = ?
             WHERE id = (SELECT id FROM jobs WHERE status = ? ORDER BY id ASC LIMIT 1)
             RETURNING id`,
			StatusRunning, timestamp, StatusPending)
		return row.Scan(&claimedID)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim pending job: %w", err)
	}
	return s.GetByID(ctx, claimedID)
}

// UpdateProgress persists progress fields for a running job.
func (s *Store) UpdateProgress(ctx context.Context, id int64, stage string, percent float64, message string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ensureContext(ctx),
		`UPDATE jobs SET progress_stage = ?, progress_percent = ?, progress_message = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(stage), percent, nullableString(message), timestamp, id)
	if err != nil {
		return fmt.Errorf("update progress for job %d: %w", id, err)
	}
	return nil
}

// MarkCompleted records the final artifact and result document for a job.
func (s *Store) MarkCompleted(ctx context.Context, id int64, outputPath, resultJSON string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ensureContext(ctx),
		`UPDATE jobs SET status = ?, output_path = ?, result_json = ?, error_message = NULL,
            progress_percent = 100, updated_at = ?
         WHERE id = ?`,
		StatusCompleted, nullableString(outputPath), nullableString(resultJSON), timestamp, id)
	if err != nil {
		return fmt.Errorf("complete job %d: %w", id, err)
	}
	return nil
}

// MarkFailure records a terminal failure status and message for a job.
func (s *Store) MarkFailure(ctx context.Context, id int64, status Status, message string) error {
	if status != StatusFailed && status != StatusReview {
		return fmt.Errorf("mark failure: status %q is not a failure state", status)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ensureContext(ctx),
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status, nullableString(message), timestamp, id)
	if err != nil {
		return fmt.Errorf("fail job %d: %w", id, err)
	}
	return nil
}
