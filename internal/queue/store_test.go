package queue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewJobAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	item, err := store.NewJob(ctx, KindMix, "/tmp/narration.wav", "/tmp/bgm.mp3", `{"bgm_volume":0.3}`)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if item.Status != StatusPending {
		t.Fatalf("status = %s, want pending", item.Status)
	}
	if item.Kind != KindMix {
		t.Fatalf("kind = %s, want mix", item.Kind)
	}
	if item.BackgroundPath != "/tmp/bgm.mp3" {
		t.Fatalf("background path = %q", item.BackgroundPath)
	}
	if item.CreatedAt.IsZero() || item.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps")
	}

	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.ParamsJSON != `{"bgm_volume":0.3}` {
		t.Fatalf("params = %q", got.ParamsJSON)
	}
}

func TestGetByIDMissing(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.GetByID(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClaimNextPendingOrdersByID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.NewJob(ctx, KindProbe, "/tmp/a.wav", "", "")
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if _, err := store.NewJob(ctx, KindProbe, "/tmp/b.wav", "", ""); err != nil {
		t.Fatalf("new job: %v", err)
	}

	claimed, err := store.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("claimed %+v, want id %d", claimed, first.ID)
	}
	if claimed.Status != StatusRunning {
		t.Fatalf("status = %s, want running", claimed.Status)
	}
}

func TestClaimNextPendingEmpty(t *testing.T) {
	store := openTestStore(t)
	claimed, err := store.ClaimNextPending(context.Background())
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed != nil {
		t.Fatalf("expected nil claim, got %+v", claimed)
	}
}

func TestCompleteAndFailTransitions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	item, err := store.NewJob(ctx, KindConvert, "/tmp/in.wav", "", "")
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := store.UpdateProgress(ctx, item.ID, "transcode", 42.5, "running ffmpeg"); err != nil {
		t.Fatalf("update progress: %v", err)
	}
	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ProgressStage != "transcode" || got.ProgressPercent != 42.5 {
		t.Fatalf("progress = %s/%v", got.ProgressStage, got.ProgressPercent)
	}

	if err := store.MarkCompleted(ctx, item.ID, "/out/in.mp3", `{"duration":12.5}`); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, err = store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCompleted || got.OutputPath != "/out/in.mp3" {
		t.Fatalf("item after complete: %+v", got)
	}
	if got.ProgressPercent != 100 {
		t.Fatalf("progress percent = %v, want 100", got.ProgressPercent)
	}

	other, err := store.NewJob(ctx, KindConvert, "/tmp/other.wav", "", "")
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := store.MarkFailure(ctx, other.ID, StatusReview, "bad params"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	got, err = store.GetByID(ctx, other.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusReview || got.ErrorMessage != "bad params" {
		t.Fatalf("item after failure: %+v", got)
	}

	if err := store.MarkFailure(ctx, other.ID, StatusCompleted, "nope"); err == nil {
		t.Fatal("expected error for non-failure status")
	}
}

func TestRetryResetsFailure(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	item, err := store.NewJob(ctx, KindMix, "/tmp/n.wav", "/tmp/b.mp3", "")
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := store.MarkFailure(ctx, item.ID, StatusFailed, "ffmpeg exploded"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	retried, err := store.Retry(ctx, item.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.Status != StatusPending || retried.ErrorMessage != "" {
		t.Fatalf("item after retry: %+v", retried)
	}

	if _, err := store.Retry(ctx, item.ID); err == nil {
		t.Fatal("expected error retrying a pending job")
	}
}

func TestMaintenanceCounts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.NewJob(ctx, KindProbe, "/tmp/x.wav", "", ""); err != nil {
			t.Fatalf("new job: %v", err)
		}
	}
	claimed, err := store.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := store.MarkCompleted(ctx, claimed.ID, "/out/x.json", ""); err != nil {
		t.Fatalf("complete: %v", err)
	}
	claimed, err = store.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := store.MarkFailure(ctx, claimed.ID, StatusFailed, "boom"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	summary, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if summary.Total != 3 || summary.Pending != 1 || summary.Completed != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	retried, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("retried = %d, want 1", retried)
	}

	removed, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("clear completed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	removed, err = store.Clear(ctx)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
}

func TestResetRunning(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.NewJob(ctx, KindMix, "/tmp/n.wav", "/tmp/b.mp3", ""); err != nil {
		t.Fatalf("new job: %v", err)
	}
	if _, err := store.ClaimNextPending(ctx); err != nil {
		t.Fatalf("claim: %v", err)
	}

	reset, err := store.ResetRunning(ctx, "")
	if err != nil {
		t.Fatalf("reset running: %v", err)
	}
	if reset != 1 {
		t.Fatalf("reset = %d, want 1", reset)
	}

	items, err := store.List(ctx, StatusFailed)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].ErrorMessage != DaemonStopReason {
		t.Fatalf("items = %+v", items)
	}
}

func TestParseHelpers(t *testing.T) {
	if status, ok := ParseStatus(" Failed "); !ok || status != StatusFailed {
		t.Fatalf("ParseStatus = %s/%v", status, ok)
	}
	if _, ok := ParseStatus("exploded"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if kind, ok := ParseKind("Extract-Audio"); !ok || kind != KindExtractAudio {
		t.Fatalf("ParseKind = %s/%v", kind, ok)
	}
	if _, ok := ParseKind("transmogrify"); ok {
		t.Fatal("expected unknown kind to be rejected")
	}
}
