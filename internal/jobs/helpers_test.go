package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mixdown/internal/config"
	"mixdown/internal/media/ffprobe"
	"mixdown/internal/queue"
	"mixdown/internal/testsupport"
)

// renderExecutor records every ffmpeg invocation and writes the final
// argument as the output file so publishing succeeds.
type renderExecutor struct {
	calls [][]string
	err   error
}

func (f *renderExecutor) Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
	f.calls = append(f.calls, append([]string(nil), args...))
	if f.err != nil {
		return f.err
	}
	if onStdout != nil {
		onStdout("out_time_us=1000000")
		onStdout("speed=10x")
		onStdout("progress=end")
	}
	output := args[len(args)-1]
	return os.WriteFile(output, []byte("rendered audio"), 0o644)
}

func audioProbe(durationSeconds string) Prober {
	return func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
		return ffprobe.Result{
			Format: ffprobe.Format{
				Duration:   durationSeconds,
				Size:       "4096",
				FormatName: "wav",
				BitRate:    "256000",
			},
			Streams: []ffprobe.Stream{
				{Index: 0, CodecType: "audio", CodecName: "pcm_s16le", SampleRate: "44100", Channels: 2},
			},
		}, nil
	}
}

func newTestEnv(t *testing.T, exec *renderExecutor, probe Prober) (*Environment, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	env, err := NewEnvironment(cfg, nil, WithExecutor(exec), WithProber(probe))
	if err != nil {
		t.Fatalf("new environment: %v", err)
	}
	return env, cfg
}

// requireEmptyStaging fails when a handler leaves job workspaces behind in
// the staging directory.
func requireEmptyStaging(t *testing.T, cfg *config.Config) {
	t.Helper()
	leftovers, err := filepath.Glob(filepath.Join(cfg.Paths.StagingDir, "job-*"))
	if err != nil {
		t.Fatalf("scan staging directory: %v", err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("staging directory not cleaned up: %v", leftovers)
	}
}

func newItem(t *testing.T, kind queue.Kind, source, background, params string) *queue.Item {
	t.Helper()
	return &queue.Item{
		ID:             1,
		Kind:           kind,
		Status:         queue.StatusRunning,
		SourcePath:     source,
		BackgroundPath: background,
		ParamsJSON:     params,
	}
}
