package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"mixdown/internal/logging"
	"mixdown/internal/media/ffmpeg"
	"mixdown/internal/queue"
	"mixdown/internal/services"
	"mixdown/internal/workspace"
)

// renderSpec describes one ffmpeg invocation that produces a published
// artifact.
type renderSpec struct {
	stage string
	name  string
	args  func(workPath string) []string
}

// runRender executes one invocation inside a fresh workspace, streams progress, and
// publishes the artifact into the output directory. Progress is scaled to the
// source duration when it is known.
func runRender(ctx context.Context, env *Environment, item *queue.Item, report ProgressFunc, totalSeconds float64, spec renderSpec) (*RenderResult, error) {
	ws, err := workspace.Create(env.Config.Paths.StagingDir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, string(item.Kind), "workspace", "create staging directory", err)
	}
	defer func() {
		if cleanupErr := ws.Cleanup(); cleanupErr != nil {
			env.Logger.Warn("workspace cleanup failed",
				logging.String("path", ws.Root()),
				logging.Error(cleanupErr))
		}
	}()

	workPath := ws.Path(spec.name)
	onProgress := func(p ffmpeg.Progress) {
		percent := p.PercentOf(totalSeconds)
		report(spec.stage, percent*0.9, "")
	}
	if err := env.Runner().Run(ctx, spec.args(workPath), onProgress); err != nil {
		marker := services.ErrExternalTool
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return nil, services.Wrap(marker, string(item.Kind), "ffmpeg", spec.stage, err)
	}

	report("publish", 95, "moving artifact to output directory")
	dest, err := ws.Publish(workPath, env.Config.Paths.OutputDir, spec.name)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, string(item.Kind), "publish", "", err)
	}

	result := &RenderResult{OutputPath: dest, DurationSeconds: totalSeconds}
	if info, statErr := os.Stat(dest); statErr == nil {
		result.SizeBytes = info.Size()
	}
	return result, nil
}

// inspectFailure classifies an ffprobe error the same way runRender
// classifies ffmpeg errors, so expired tool timeouts report as timeouts.
func inspectFailure(kind queue.Kind, detail string, err error) error {
	marker := services.ErrExternalTool
	if errors.Is(err, context.DeadlineExceeded) {
		marker = services.ErrTimeout
	}
	return services.Wrap(marker, string(kind), "ffprobe", detail, err)
}

func finishRender(item *queue.Item, report ProgressFunc, stage string, result any, outputPath string) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return services.Wrap(services.ErrTransient, string(item.Kind), "encode result", "", err)
	}
	item.OutputPath = outputPath
	item.ResultJSON = string(payload)
	report(stage, 100, "complete")
	return nil
}
