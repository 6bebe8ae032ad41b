package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"mixdown/internal/media/ffprobe"
	"mixdown/internal/queue"
	"mixdown/internal/services"
	"mixdown/internal/testsupport"
)

func TestProbeHandlerExecute(t *testing.T) {
	env, cfg := newTestEnv(t, &renderExecutor{}, audioProbe("12.5"))
	source := filepath.Join(testsupport.BaseDir(cfg), "input.wav")
	testsupport.WriteFile(t, source, 128)

	item := newItem(t, queue.KindProbe, source, "", "")
	handler := NewProbeHandler(env)
	if err := handler.Execute(context.Background(), item, nil); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var result ProbeResult
	if err := json.Unmarshal([]byte(item.ResultJSON), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.DurationSeconds != 12.5 {
		t.Fatalf("duration = %v", result.DurationSeconds)
	}
	if result.AudioStreams != 1 || result.VideoStreams != 0 {
		t.Fatalf("stream counts = %+v", result)
	}
	if result.FormatName != "wav" || result.SampleRate != 44100 {
		t.Fatalf("metadata = %+v", result)
	}
}

func TestProbeHandlerToolTimeout(t *testing.T) {
	stalled := func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
		<-ctx.Done()
		return ffprobe.Result{}, fmt.Errorf("ffprobe inspect: %w", ctx.Err())
	}
	env, cfg := newTestEnv(t, &renderExecutor{}, stalled)
	cfg.Tools.TimeoutSeconds = 1
	source := filepath.Join(testsupport.BaseDir(cfg), "input.wav")
	testsupport.WriteFile(t, source, 128)

	err := NewProbeHandler(env).Execute(context.Background(), newItem(t, queue.KindProbe, source, "", ""), nil)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if services.FailureStatus(err) != queue.StatusFailed {
		t.Fatalf("timeout should stay retryable, got %v", services.FailureStatus(err))
	}
}

func TestInspectAppliesConfiguredDeadline(t *testing.T) {
	var sawDeadline bool
	recording := func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
		_, sawDeadline = ctx.Deadline()
		return ffprobe.Result{}, nil
	}
	env, _ := newTestEnv(t, &renderExecutor{}, recording)
	env.Config.Tools.TimeoutSeconds = 30
	if _, err := env.Inspect(context.Background(), "input.wav"); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !sawDeadline {
		t.Fatal("expected a deadline on the probe context")
	}

	env.Config.Tools.TimeoutSeconds = 0
	if _, err := env.Inspect(context.Background(), "input.wav"); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if sawDeadline {
		t.Fatal("zero timeout should leave the context unbounded")
	}
}

func TestProbeHandlerMissingSource(t *testing.T) {
	env, cfg := newTestEnv(t, &renderExecutor{}, audioProbe("1"))
	item := newItem(t, queue.KindProbe, filepath.Join(testsupport.BaseDir(cfg), "missing.wav"), "", "")

	err := NewProbeHandler(env).Execute(context.Background(), item, nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if services.FailureStatus(err) != queue.StatusReview {
		t.Fatalf("expected review classification")
	}
}
