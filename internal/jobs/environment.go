package jobs

import (
	"context"
	"log/slog"

	"mixdown/internal/config"
	"mixdown/internal/logging"
	"mixdown/internal/media/ffmpeg"
	"mixdown/internal/media/ffprobe"
)

// Prober inspects a media file. It matches ffprobe.Inspect and exists so
// tests can substitute canned metadata.
type Prober func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Environment bundles the shared services every handler needs.
type Environment struct {
	Config *config.Config
	Logger *slog.Logger

	runner *ffmpeg.Runner
	probe  Prober
}

// EnvOption configures optional Environment behavior.
type EnvOption func(*envOptions)

type envOptions struct {
	executor ffmpeg.Executor
	probe    Prober
}

// WithExecutor substitutes the ffmpeg process executor, primarily for tests.
func WithExecutor(exec ffmpeg.Executor) EnvOption {
	return func(o *envOptions) {
		o.executor = exec
	}
}

// WithProber substitutes the media prober, primarily for tests.
func WithProber(probe Prober) EnvOption {
	return func(o *envOptions) {
		o.probe = probe
	}
}

// NewEnvironment builds the handler environment from configuration.
func NewEnvironment(cfg *config.Config, logger *slog.Logger, opts ...EnvOption) (*Environment, error) {
	options := &envOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var runnerOpts []ffmpeg.Option
	if options.executor != nil {
		runnerOpts = append(runnerOpts, ffmpeg.WithExecutor(options.executor))
	}
	runner, err := ffmpeg.NewRunner(cfg.FFmpegBinary(), cfg.ToolTimeout(), runnerOpts...)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = logging.NewNop()
	}
	probe := options.probe
	if probe == nil {
		probe = ffprobe.Inspect
	}
	return &Environment{
		Config: cfg,
		Logger: logger,
		runner: runner,
		probe:  probe,
	}, nil
}

// Inspect probes a media file with the configured ffprobe binary. The
// per-invocation tool timeout applies here the same as for ffmpeg runs.
func (e *Environment) Inspect(ctx context.Context, path string) (ffprobe.Result, error) {
	if timeout := e.Config.ToolTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return e.probe(ctx, e.Config.FFprobeBinary(), path)
}

// Runner returns the shared ffmpeg runner.
func (e *Environment) Runner() *ffmpeg.Runner {
	return e.runner
}
