package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mixdown/internal/queue"
	"mixdown/internal/services"
	"mixdown/internal/testsupport"
)

func TestMixHandlerExecute(t *testing.T) {
	exec := &renderExecutor{}
	env, cfg := newTestEnv(t, exec, audioProbe("60"))
	narration := filepath.Join(testsupport.BaseDir(cfg), "narration.wav")
	background := filepath.Join(testsupport.BaseDir(cfg), "bgm.mp3")
	testsupport.WriteFile(t, narration, 256)
	testsupport.WriteFile(t, background, 256)

	item := newItem(t, queue.KindMix, narration, background, "")
	if err := NewMixHandler(env).Execute(context.Background(), item, nil); err != nil {
		t.Fatalf("execute: %v", err)
	}

	// defaults enable loudnorm, so the mix runs two ffmpeg passes
	if len(exec.calls) != 2 {
		t.Fatalf("ffmpeg invocations = %d, want 2", len(exec.calls))
	}
	mixArgs := strings.Join(exec.calls[0], " ")
	if !strings.Contains(mixArgs, "-stream_loop -1 -i "+background) {
		t.Fatalf("mix args = %q", mixArgs)
	}
	if !strings.Contains(mixArgs, "amix=inputs=2:duration=first:normalize=0") {
		t.Fatalf("mix args missing amix: %q", mixArgs)
	}
	normArgs := strings.Join(exec.calls[1], " ")
	if !strings.Contains(normArgs, "loudnorm=I=-16:TP=-1.5:LRA=11") {
		t.Fatalf("loudnorm args = %q", normArgs)
	}

	want := filepath.Join(cfg.Paths.OutputDir, "narration.mp3")
	if item.OutputPath != want {
		t.Fatalf("output path = %q, want %q", item.OutputPath, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("published artifact missing: %v", err)
	}

	var result MixResult
	if err := json.Unmarshal([]byte(item.ResultJSON), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.NarrationDuration != 60 {
		t.Fatalf("narration duration = %v", result.NarrationDuration)
	}
	// defaults: fade_in 2 + intro 3 + fade_down 2 = delay 7; total 7+60+3
	if result.NarrationDelay != 7 {
		t.Fatalf("narration delay = %v", result.NarrationDelay)
	}
	if result.TotalDuration != 70 {
		t.Fatalf("total duration = %v", result.TotalDuration)
	}
	if !result.Loudnorm {
		t.Fatal("loudnorm flag not recorded")
	}
	requireEmptyStaging(t, cfg)
}

func TestMixHandlerToolFailureCleansStaging(t *testing.T) {
	exec := &renderExecutor{err: errors.New("exit status 1")}
	env, cfg := newTestEnv(t, exec, audioProbe("60"))
	narration := filepath.Join(testsupport.BaseDir(cfg), "narration.wav")
	background := filepath.Join(testsupport.BaseDir(cfg), "bgm.mp3")
	testsupport.WriteFile(t, narration, 256)
	testsupport.WriteFile(t, background, 256)

	item := newItem(t, queue.KindMix, narration, background, "")
	err := NewMixHandler(env).Execute(context.Background(), item, nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	requireEmptyStaging(t, cfg)
}

func TestMixHandlerWithoutLoudnorm(t *testing.T) {
	exec := &renderExecutor{}
	env, cfg := newTestEnv(t, exec, audioProbe("60"))
	narration := filepath.Join(testsupport.BaseDir(cfg), "narration.wav")
	background := filepath.Join(testsupport.BaseDir(cfg), "bgm.mp3")
	testsupport.WriteFile(t, narration, 256)
	testsupport.WriteFile(t, background, 256)

	loudnorm := false
	params, err := EncodeParams(MixParams{Loudnorm: &loudnorm})
	if err != nil {
		t.Fatalf("encode params: %v", err)
	}
	item := newItem(t, queue.KindMix, narration, background, params)
	if err := NewMixHandler(env).Execute(context.Background(), item, nil); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if len(exec.calls) != 1 {
		t.Fatalf("ffmpeg invocations = %d, want 1", len(exec.calls))
	}
	var result MixResult
	if err := json.Unmarshal([]byte(item.ResultJSON), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Loudnorm {
		t.Fatal("loudnorm should be disabled")
	}
}

func TestMixHandlerEnvelopeOverrides(t *testing.T) {
	exec := &renderExecutor{}
	env, cfg := newTestEnv(t, exec, audioProbe("10"))
	narration := filepath.Join(testsupport.BaseDir(cfg), "narration.wav")
	background := filepath.Join(testsupport.BaseDir(cfg), "bgm.mp3")
	testsupport.WriteFile(t, narration, 256)
	testsupport.WriteFile(t, background, 256)

	zero := 0.0
	volume := 0.5
	params, err := EncodeParams(MixParams{
		FadeIn:    &zero,
		Intro:     &zero,
		FadeDown:  &zero,
		FadeOut:   &zero,
		BGMVolume: &volume,
	})
	if err != nil {
		t.Fatalf("encode params: %v", err)
	}
	item := newItem(t, queue.KindMix, narration, background, params)
	if err := NewMixHandler(env).Execute(context.Background(), item, nil); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var result MixResult
	if err := json.Unmarshal([]byte(item.ResultJSON), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.NarrationDelay != 0 || result.TotalDuration != 10 {
		t.Fatalf("collapsed envelope timeline = %+v", result)
	}
	mixArgs := strings.Join(exec.calls[0], " ")
	if !strings.Contains(mixArgs, "atrim=0:10") {
		t.Fatalf("background not trimmed to total: %q", mixArgs)
	}
}

func TestMixHandlerMissingBackground(t *testing.T) {
	env, cfg := newTestEnv(t, &renderExecutor{}, audioProbe("60"))
	narration := filepath.Join(testsupport.BaseDir(cfg), "narration.wav")
	testsupport.WriteFile(t, narration, 256)

	item := newItem(t, queue.KindMix, narration, filepath.Join(testsupport.BaseDir(cfg), "missing.mp3"), "")
	err := NewMixHandler(env).Execute(context.Background(), item, nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMixHandlerInvalidVolume(t *testing.T) {
	env, cfg := newTestEnv(t, &renderExecutor{}, audioProbe("60"))
	narration := filepath.Join(testsupport.BaseDir(cfg), "narration.wav")
	background := filepath.Join(testsupport.BaseDir(cfg), "bgm.mp3")
	testsupport.WriteFile(t, narration, 256)
	testsupport.WriteFile(t, background, 256)

	volume := 1.5
	params, err := EncodeParams(MixParams{BGMVolume: &volume})
	if err != nil {
		t.Fatalf("encode params: %v", err)
	}
	item := newItem(t, queue.KindMix, narration, background, params)
	execErr := NewMixHandler(env).Execute(context.Background(), item, nil)
	if !errors.Is(execErr, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", execErr)
	}
	if services.FailureStatus(execErr) != queue.StatusReview {
		t.Fatal("expected review classification")
	}
}

func TestNewRegistryCoversAllKinds(t *testing.T) {
	env, _ := newTestEnv(t, &renderExecutor{}, audioProbe("1"))
	registry := NewRegistry(env)
	for _, kind := range []queue.Kind{queue.KindProbe, queue.KindConvert, queue.KindExtractAudio, queue.KindMix} {
		handler, ok := registry[kind]
		if !ok {
			t.Fatalf("no handler for %s", kind)
		}
		if handler.Kind() != kind {
			t.Fatalf("handler kind = %s, want %s", handler.Kind(), kind)
		}
	}
}
