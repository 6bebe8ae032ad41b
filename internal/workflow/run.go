package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mixdown/internal/logging"
	"mixdown/internal/queue"
	"mixdown/internal/services"
)

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, err := m.store.ClaimNextPending(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.setLastError(err)
			m.logger.Error("failed to claim next queue item", logging.Error(err))
			m.waitOrShutdown(ctx, m.errorRetryInterval)
			continue
		}
		if item == nil {
			m.waitOrShutdown(ctx, m.pollInterval)
			continue
		}

		if err := m.processItem(ctx, item); err != nil && errors.Is(err, context.Canceled) {
			return
		}
	}
}

func (m *Manager) waitOrShutdown(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(interval):
	}
}

func (m *Manager) processItem(ctx context.Context, item *queue.Item) error {
	logger := m.logger.With(
		logging.Int64(logging.FieldJobID, item.ID),
		logging.String(logging.FieldJobKind, string(item.Kind)))

	handler, ok := m.handlers[item.Kind]
	if !ok {
		message := fmt.Sprintf("no handler for job kind %q", item.Kind)
		logger.Error("unhandled job kind")
		if err := m.store.MarkFailure(ctx, item.ID, queue.StatusReview, message); err != nil {
			logger.Error("failed to persist unhandled kind", logging.Error(err))
		}
		m.setLastError(errors.New(message))
		return nil
	}

	start := time.Now()
	logger.Info("job started", logging.String("source", item.SourcePath))

	sink := newProgressSink(ctx, m.store, item.ID, logger)
	execErr := handler.Execute(ctx, item, sink.report)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			logger.Info("job interrupted by shutdown")
			return execErr
		}
		m.handleFailure(ctx, logger, item, execErr)
		return nil
	}

	if err := m.store.MarkCompleted(ctx, item.ID, item.OutputPath, item.ResultJSON); err != nil {
		logger.Error("failed to persist completion", logging.Error(err))
		m.setLastError(err)
		return nil
	}
	item.Status = queue.StatusCompleted
	m.setLastItem(item)
	logger.Info("job completed",
		logging.String("output", item.OutputPath),
		logging.Duration("elapsed", time.Since(start)))
	return nil
}

func (m *Manager) handleFailure(ctx context.Context, logger *slog.Logger, item *queue.Item, execErr error) {
	status := services.FailureStatus(execErr)
	message := strings.TrimSpace(execErr.Error())

	logger.Error("job failed",
		logging.String("resolved_status", string(status)),
		logging.Error(execErr))
	if err := m.store.MarkFailure(ctx, item.ID, status, message); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist failure")
		} else {
			logger.Error("failed to persist job failure", logging.Error(err))
		}
	}
	item.Status = status
	item.ErrorMessage = message
	m.setLastError(execErr)
	m.setLastItem(item)
}

// progressSink throttles handler progress updates before persisting them.
// Updates land in the queue row so status output can show live percentages.
type progressSink struct {
	ctx     context.Context
	store   *queue.Store
	id      int64
	logger  *slog.Logger
	last    float64
	stage   string
	started bool
}

func newProgressSink(ctx context.Context, store *queue.Store, id int64, logger *slog.Logger) *progressSink {
	return &progressSink{ctx: ctx, store: store, id: id, logger: logger}
}

func (s *progressSink) report(stage string, percent float64, message string) {
	if s.started && stage == s.stage && percent-s.last < 1 {
		return
	}
	s.started = true
	s.stage = stage
	s.last = percent
	if err := s.store.UpdateProgress(s.ctx, s.id, stage, percent, message); err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("failed to persist progress", logging.Error(err))
		}
	}
}
