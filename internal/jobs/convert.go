package jobs

import (
	"context"

	"mixdown/internal/logging"
	"mixdown/internal/media/ffmpeg"
	"mixdown/internal/queue"
	"mixdown/internal/services"
)

// ConvertHandler transcodes an audio file into the configured output format.
type ConvertHandler struct {
	env *Environment
}

func NewConvertHandler(env *Environment) *ConvertHandler {
	return &ConvertHandler{env: env}
}

func (h *ConvertHandler) Kind() queue.Kind {
	return queue.KindConvert
}

func (h *ConvertHandler) Execute(ctx context.Context, item *queue.Item, report ProgressFunc) error {
	report = ensureProgress(report)
	if err := requireFile(item.Kind, "source", item.SourcePath); err != nil {
		return err
	}
	var params ConvertParams
	if err := decodeParams(item.ParamsJSON, &params); err != nil {
		return services.Wrap(services.ErrValidation, string(item.Kind), "params", "", err)
	}
	out := params.Output.Settings(h.env.Config.Output)

	report("probe", 5, "inspecting source")
	probed, err := h.env.Inspect(ctx, item.SourcePath)
	if err != nil {
		return inspectFailure(item.Kind, "inspect source", err)
	}
	if probed.AudioStreamCount() == 0 {
		return services.Wrap(services.ErrValidation, string(item.Kind), "source", "no audio streams", nil)
	}

	name := outputName(item.SourcePath, params.Output.Name, out.Format)
	result, err := runRender(ctx, h.env, item, report, probed.DurationSeconds(), renderSpec{
		stage: "transcode",
		name:  name,
		args: func(workPath string) []string {
			return ffmpeg.ConvertArgs(item.SourcePath, workPath, out)
		},
	})
	if err != nil {
		return err
	}

	h.env.Logger.Info("convert complete",
		logging.String("source", item.SourcePath),
		logging.String("output", result.OutputPath))
	return finishRender(item, report, "transcode", result, result.OutputPath)
}
