package jobs

import (
	"context"
	"errors"
	"os"

	"mixdown/internal/logging"
	"mixdown/internal/media/ffmpeg"
	"mixdown/internal/mix"
	"mixdown/internal/queue"
	"mixdown/internal/services"
	"mixdown/internal/workspace"
)

// MixHandler lays a narration track over a looping background bed. The
// background fades in, ducks under the narration, and fades out after it
// ends; an optional loudness normalization pass runs on the mixed result.
type MixHandler struct {
	env *Environment
}

func NewMixHandler(env *Environment) *MixHandler {
	return &MixHandler{env: env}
}

func (h *MixHandler) Kind() queue.Kind {
	return queue.KindMix
}

func (h *MixHandler) Execute(ctx context.Context, item *queue.Item, report ProgressFunc) error {
	report = ensureProgress(report)
	if err := requireFile(item.Kind, "narration", item.SourcePath); err != nil {
		return err
	}
	if err := requireFile(item.Kind, "background", item.BackgroundPath); err != nil {
		return err
	}
	var params MixParams
	if err := decodeParams(item.ParamsJSON, &params); err != nil {
		return services.Wrap(services.ErrValidation, string(item.Kind), "params", "", err)
	}
	settings := params.Settings(h.env.Config.Mix)
	out := params.Output.Settings(h.env.Config.Output)

	report("probe", 5, "measuring narration")
	narration, err := h.env.Inspect(ctx, item.SourcePath)
	if err != nil {
		return inspectFailure(item.Kind, "inspect narration", err)
	}
	duration := narration.DurationSeconds()
	timeline, err := mix.NewTimeline(duration, settings)
	if err != nil {
		return services.Wrap(services.ErrValidation, string(item.Kind), "timeline", "", err)
	}

	ws, err := workspace.Create(h.env.Config.Paths.StagingDir)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, string(item.Kind), "workspace", "create staging directory", err)
	}
	defer func() {
		if cleanupErr := ws.Cleanup(); cleanupErr != nil {
			h.env.Logger.Warn("workspace cleanup failed",
				logging.String("path", ws.Root()),
				logging.Error(cleanupErr))
		}
	}()

	name := outputName(item.SourcePath, params.Output.Name, out.Format)
	mixed := ws.Path("mixed-" + name)
	mixShare := 0.85
	if settings.Loudnorm {
		mixShare = 0.5
	}
	if err := h.runPass(ctx, report, "mix", timeline.TotalDuration, 0, mixShare,
		ffmpeg.MixArgs(item.SourcePath, item.BackgroundPath, mixed, timeline, out)); err != nil {
		return err
	}

	artifact := mixed
	if settings.Loudnorm {
		normalized := ws.Path(name)
		if err := h.runPass(ctx, report, "loudnorm", timeline.TotalDuration, 0.5, 0.4,
			ffmpeg.LoudnormArgs(mixed, normalized, out)); err != nil {
			return err
		}
		artifact = normalized
	}

	report("publish", 95, "moving artifact to output directory")
	dest, err := ws.Publish(artifact, h.env.Config.Paths.OutputDir, name)
	if err != nil {
		return services.Wrap(services.ErrTransient, string(item.Kind), "publish", "", err)
	}

	result := MixResult{
		RenderResult: RenderResult{
			OutputPath:      dest,
			DurationSeconds: timeline.TotalDuration,
		},
		NarrationDuration: duration,
		NarrationDelay:    timeline.NarrationDelay,
		TotalDuration:     timeline.TotalDuration,
		Loudnorm:          settings.Loudnorm,
	}
	if info, statErr := os.Stat(dest); statErr == nil {
		result.SizeBytes = info.Size()
	}

	h.env.Logger.Info("mix complete",
		logging.String("narration", item.SourcePath),
		logging.String("background", item.BackgroundPath),
		logging.String("output", dest),
		logging.Float64("total_duration", timeline.TotalDuration),
		logging.Bool("loudnorm", settings.Loudnorm))
	return finishRender(item, report, "mix", result, dest)
}

// runPass executes one ffmpeg invocation, mapping its progress into the
// [offset, offset+share] slice of the overall percentage.
func (h *MixHandler) runPass(ctx context.Context, report ProgressFunc, stage string, totalSeconds, offset, share float64, args []string) error {
	onProgress := func(p ffmpeg.Progress) {
		percent := (offset + p.PercentOf(totalSeconds)/100*share) * 100
		report(stage, percent, "")
	}
	if err := h.env.Runner().Run(ctx, args, onProgress); err != nil {
		marker := services.ErrExternalTool
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return services.Wrap(marker, string(queue.KindMix), "ffmpeg", stage, err)
	}
	return nil
}
